// Package httpapi is the HTTP surface of the GophSend reference server: the
// file endpoints, the account file list and the development identity
// provider.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every endpoint.
//
// Routes:
//
//	GET  /ping
//	POST /api/upload              (optional bearer token)
//	GET  /api/exists/{id}
//	GET  /api/metadata/{id}       (send-v1 signature)
//	GET  /api/download/{id}       (send-v1 signature)
//	POST /api/info|params|password|delete/{id}  (owner token)
//	GET  /api/filelist/{kid}      (bearer token)
//	POST /api/filelist/{kid}      (bearer token)
//	GET  /oauth/authorize, POST /oauth/authorize
//	POST /oauth/token
//	GET  /oauth/userinfo
func NewRouter(files *FileHandler, lists *FileListHandler, oauth *OAuthHandler, secret []byte, logger logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api", func(r chi.Router) {
		r.With(OptionalBearerAuth(secret)).Post("/upload", files.Upload)
		r.Get("/exists/{id}", files.Exists)
		r.Get("/metadata/{id}", files.Metadata)
		r.Get("/download/{id}", files.Download)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/info/{id}", files.Info)
			r.Post("/params/{id}", files.Params)
			r.Post("/password/{id}", files.Password)
			r.Post("/delete/{id}", files.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(secret))
			r.Get("/filelist/{kid}", lists.Get)
			r.Post("/filelist/{kid}", lists.Put)
		})
	})

	r.Route("/oauth", func(r chi.Router) {
		r.Get("/authorize", oauth.AuthorizeForm)
		r.Post("/authorize", oauth.Authorize)
		r.Post("/token", oauth.Token)
		r.Get("/userinfo", oauth.UserInfo)
	})

	return r
}
