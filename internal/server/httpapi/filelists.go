package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type FileListService interface {
	Get(ctx context.Context, userID, kid string) ([]byte, error)
	Put(ctx context.Context, userID, kid string, data []byte) error
}

// FileListHandler stores the encrypted file list of the signed-in user.
type FileListHandler struct {
	FileLists FileListService
	Logger    logging.Logger
}

// Get handles GET /api/filelist/{kid}.
func (h *FileListHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, err := h.FileLists.Get(r.Context(), GetUserIDFromContext(r.Context()), chi.URLParam(r, "kid"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

// Put handles POST /api/filelist/{kid}.
func (h *FileListHandler) Put(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, services.MaxFileListSize))
	if err != nil {
		http.Error(w, "file list too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err := h.FileLists.Put(r.Context(), GetUserIDFromContext(r.Context()), chi.URLParam(r, "kid"), data); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
