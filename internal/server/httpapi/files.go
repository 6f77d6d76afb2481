package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
	"github.com/dmitrijs2005/gophsend/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// FileService is the file logic the handlers need.
type FileService interface {
	Upload(ctx context.Context, in services.UploadInput) (*models.File, error)
	Exists(ctx context.Context, id string) (bool, string, error)
	Metadata(ctx context.Context, id, authHeader string) (*models.File, string, error)
	Download(ctx context.Context, id, authHeader string) (*services.Download, error)
	Info(ctx context.Context, id, ownerToken string) (*services.FileStatus, error)
	SetDownloadLimit(ctx context.Context, id, ownerToken string, limit int) error
	SetPassword(ctx context.Context, id, ownerToken, authKey string) error
	Delete(ctx context.Context, id, ownerToken string) error
}

// FileHandler serves uploads, signed downloads and the owner endpoints.
type FileHandler struct {
	Files   FileService
	BaseURL string
	Logger  logging.Logger
}

type ownerRequest struct {
	OwnerToken string `json:"owner_token"`
	DLimit     int    `json:"dlimit"`
	Auth       string `json:"auth"`
}

func (h *FileHandler) shareURL(id string) string {
	return strings.TrimRight(h.BaseURL, "/") + "/download/" + id + "/"
}

func parseUpload(r *http.Request) (services.UploadInput, error) {
	in := services.UploadInput{
		Body:       r.Body,
		Size:       r.ContentLength,
		AuthKey:    r.Header.Get(common.HeaderAuthKey),
		OwnerToken: r.Header.Get(common.HeaderOwnerToken),
		UserID:     GetUserIDFromContext(r.Context()),
	}

	meta, err := common.B64Decode(r.Header.Get(common.HeaderFileMetadata))
	if err != nil {
		return in, fmt.Errorf("%w: metadata encoding", common.ErrValidation)
	}
	in.Metadata = meta

	secs, err := strconv.ParseInt(r.Header.Get(common.HeaderTimeLimit), 10, 64)
	if err != nil {
		return in, fmt.Errorf("%w: invalid time limit", common.ErrValidation)
	}
	in.TimeLimit = time.Duration(secs) * time.Second

	in.DownloadLimit, err = strconv.Atoi(r.Header.Get(common.HeaderDownloadLimit))
	if err != nil {
		return in, fmt.Errorf("%w: invalid download limit", common.ErrValidation)
	}
	return in, nil
}

// Upload handles POST /api/upload.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	in, err := parseUpload(r)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	f, err := h.Files.Upload(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, map[string]string{"id": f.ID, "url": h.shareURL(f.ID)})
}

// Exists handles GET /api/exists/{id}.
func (h *FileHandler) Exists(w http.ResponseWriter, r *http.Request) {
	requiresPassword, nonce, err := h.Files.Exists(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	setChallenge(w, nonce)
	writeJSON(w, map[string]bool{"requiresPassword": requiresPassword})
}

// Metadata handles GET /api/metadata/{id}.
func (h *FileHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	f, nonce, err := h.Files.Metadata(r.Context(), chi.URLParam(r, "id"), r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	setChallenge(w, nonce)
	writeJSON(w, map[string]any{
		"metadata": common.B64Encode(f.Metadata),
		"size":     f.Size,
		"ttl":      f.TTL(time.Now()).Milliseconds(),
	})
}

// Download handles GET /api/download/{id}.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.Files.Download(r.Context(), id, r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	defer d.Body.Close()

	setChallenge(w, d.Nonce)
	w.Header().Set("Content-Type", "application/octet-stream")
	if d.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
	}
	if _, err := io.Copy(w, d.Body); err != nil {
		h.Logger.Warn(r.Context(), "download interrupted", "id", id, "error", err)
	}
}

func (h *FileHandler) decodeOwner(w http.ResponseWriter, r *http.Request) (*ownerRequest, bool) {
	var req ownerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil || req.OwnerToken == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// Info handles POST /api/info/{id}.
func (h *FileHandler) Info(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeOwner(w, r)
	if !ok {
		return
	}
	st, err := h.Files.Info(r.Context(), chi.URLParam(r, "id"), req.OwnerToken)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, map[string]any{
		"dl":     st.DownloadCount,
		"dlimit": st.DownloadLimit,
		"ttl":    st.TTL.Milliseconds(),
	})
}

// Params handles POST /api/params/{id}.
func (h *FileHandler) Params(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeOwner(w, r)
	if !ok {
		return
	}
	if err := h.Files.SetDownloadLimit(r.Context(), chi.URLParam(r, "id"), req.OwnerToken, req.DLimit); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Password handles POST /api/password/{id}.
func (h *FileHandler) Password(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeOwner(w, r)
	if !ok {
		return
	}
	if err := h.Files.SetPassword(r.Context(), chi.URLParam(r, "id"), req.OwnerToken, req.Auth); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Delete handles POST /api/delete/{id}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeOwner(w, r)
	if !ok {
		return
	}
	if err := h.Files.Delete(r.Context(), chi.URLParam(r, "id"), req.OwnerToken); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
