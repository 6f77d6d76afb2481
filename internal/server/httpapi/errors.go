package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/services"
)

func setChallenge(w http.ResponseWriter, nonce string) {
	if nonce != "" {
		w.Header().Set("WWW-Authenticate", common.AuthScheme+" "+nonce)
	}
}

// writeError maps service errors to status codes. Rejected signatures carry
// the current challenge.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var ce *services.ChallengeError
	switch {
	case errors.As(err, &ce):
		setChallenge(w, ce.Nonce)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, common.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, common.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, common.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		http.Error(w, common.ErrInternal.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
