package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/auth"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userKey ctxKey = "user"

// WithRequestLogging logs every request once it has been served.
func WithRequestLogging(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chiMiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// bearerToken returns the token of a Bearer Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) || token == "" {
		return "", false
	}
	return token, true
}

// BearerAuth rejects requests without a valid access token and stores the
// token's user id in the request context.
func BearerAuth(secret []byte) func(http.Handler) http.Handler {
	return bearer(secret, true)
}

// OptionalBearerAuth is BearerAuth for endpoints open to anonymous callers.
// A token that is present must still be valid.
func OptionalBearerAuth(secret []byte) func(http.Handler) http.Handler {
	return bearer(secret, false)
}

func bearer(secret []byte, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				if required {
					http.Error(w, "missing access token", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			userID, err := auth.GetUserIDFromToken(token, secret)
			if err != nil {
				http.Error(w, "invalid access token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext returns the authenticated user id, or an empty string
// for anonymous requests.
func GetUserIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(userKey).(string); ok {
		return s
	}
	return ""
}
