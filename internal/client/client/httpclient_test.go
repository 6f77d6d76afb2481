package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", srv.Client())
}

func TestUpload_SendsHeadersAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload", r.URL.Path)
		assert.Equal(t, common.B64Encode([]byte("meta")), r.Header.Get(common.HeaderFileMetadata))
		assert.Equal(t, "auth", r.Header.Get(common.HeaderAuthKey))
		assert.Equal(t, "owner", r.Header.Get(common.HeaderOwnerToken))
		assert.Equal(t, "3600", r.Header.Get(common.HeaderTimeLimit))
		assert.Equal(t, "5", r.Header.Get(common.HeaderDownloadLimit))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "ciphertext", string(body))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "abc", "url": "http://x/download/abc/"})
	})

	resp, err := c.Upload(context.Background(), UploadRequest{
		Body:          strings.NewReader("ciphertext"),
		Size:          10,
		Metadata:      []byte("meta"),
		AuthKey:       "auth",
		OwnerToken:    "owner",
		TimeLimit:     time.Hour,
		DownloadLimit: 5,
		BearerToken:   "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.ID)
	assert.Equal(t, "http://x/download/abc/", resp.URL)
}

func TestUpload_MissingIDIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := c.Upload(context.Background(), UploadRequest{Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, common.ErrNetwork)
}

func TestMetadata_ChallengeCarriesNonce(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", "send-v1 fresh")
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Metadata(context.Background(), "abc", "send-v1 stale")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	var ch *ChallengeError
	require.True(t, errors.As(err, &ch))
	assert.Equal(t, "fresh", ch.Nonce)
}

func TestMetadata_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/metadata/abc", r.URL.Path)
		assert.Equal(t, "send-v1 sig", r.Header.Get("Authorization"))
		w.Header().Set("WWW-Authenticate", "send-v1 next")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"metadata": common.B64Encode([]byte{1, 2, 3}),
			"size":     42,
			"ttl":      1500,
		})
	})

	resp, err := c.Metadata(context.Background(), "abc", "send-v1 sig")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, resp.Metadata)
	assert.EqualValues(t, 42, resp.Size)
	assert.Equal(t, 1500*time.Millisecond, resp.TTL)
	assert.Equal(t, "next", resp.Nonce)
}

func TestExists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/exists/abc" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", "send-v1 n1")
		_, _ = w.Write([]byte(`{"requiresPassword":true}`))
	})

	resp, err := c.Exists(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, resp.RequiresPassword)
	assert.Equal(t, "n1", resp.Nonce)

	_, err = c.Exists(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDownload_StreamsBody(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 1<<16)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})

	resp, err := c.Download(context.Background(), "abc", "send-v1 sig")
	require.NoError(t, err)
	defer resp.Body.Close()
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestOwnerOperations(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "owner", body["owner_token"])
		mu.Lock()
		seen = append(seen, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/info/abc":
			_, _ = w.Write([]byte(`{"dl":2,"dlimit":5,"ttl":60000}`))
		case "/api/params/abc":
			assert.EqualValues(t, 7, body["dlimit"])
		case "/api/password/abc":
			assert.Equal(t, "newauth", body["auth"])
		}
	})

	ctx := context.Background()
	info, err := c.Info(ctx, "abc", "owner")
	require.NoError(t, err)
	assert.Equal(t, FileStatus{DownloadCount: 2, DownloadLimit: 5, TTL: time.Minute}, *info)

	require.NoError(t, c.SetDownloadLimit(ctx, "abc", "owner", 7))
	require.NoError(t, c.SetPassword(ctx, "abc", "owner", "newauth"))
	require.NoError(t, c.Delete(ctx, "abc", "owner"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/info/abc", "/api/params/abc", "/api/password/abc", "/api/delete/abc"}, seen)
}

func TestFileList_RoundTrip(t *testing.T) {
	var (
		mu     sync.Mutex
		stored []byte
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/filelist/kid1", r.URL.Path)
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPost {
			stored, _ = io.ReadAll(r.Body)
			return
		}
		if stored == nil {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(stored)
	})

	ctx := context.Background()
	_, err := c.GetFileList(ctx, "tok", "kid1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, c.PutFileList(ctx, "tok", "kid1", []byte("blob")))
	got, err := c.GetFileList(ctx, "tok", "kid1")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), got)
}

func TestUnexpectedStatusIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, common.ErrNetwork)
	assert.ErrorIs(t, err, common.ErrInternal)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "boom", se.Message)
}

func TestTransportErrorIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewHTTPClient(srv.URL, nil)
	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, common.ErrNetwork)
}

func TestCancelledContextIsReported(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Ping(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientStatusIsNotInternal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too large", http.StatusRequestEntityTooLarge)
	})

	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, common.ErrNetwork)
	assert.NotErrorIs(t, err, common.ErrInternal)
}
