package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
)

// MaxFileListSize caps the encrypted file list accepted from the server.
const MaxFileListSize = 8 << 20

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the service at baseURL. A nil
// httpClient means a client without timeouts.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type metadataBody struct {
	Metadata string `json:"metadata"`
	Size     int64  `json:"size"`
	TTL      int64  `json:"ttl"`
}

type existsBody struct {
	RequiresPassword bool `json:"requiresPassword"`
}

type ownerBody struct {
	OwnerToken string `json:"owner_token"`
	DLimit     int    `json:"dlimit,omitempty"`
	Auth       string `json:"auth,omitempty"`
}

type infoBody struct {
	DL     int   `json:"dl"`
	DLimit int   `json:"dlimit"`
	TTL    int64 `json:"ttl"`
}

func (c *HTTPClient) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
	if err := mapStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// mapStatus converts non-2xx responses to errors.
func mapStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		nonce, _ := cryptox.ParseAuthenticate(resp.Header.Get("WWW-Authenticate"))
		return &ChallengeError{Nonce: nonce}
	case http.StatusNotFound:
		return common.ErrNotFound
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}

func nonceOf(resp *http.Response) string {
	nonce, _ := cryptox.ParseAuthenticate(resp.Header.Get("WWW-Authenticate"))
	return nonce
}

func (c *HTTPClient) postJSON(ctx context.Context, path []string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path...), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", common.ErrNetwork, err)
	}
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("ping"), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *HTTPClient) Upload(ctx context.Context, r UploadRequest) (*UploadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("api", "upload"), r.Body)
	if err != nil {
		return nil, err
	}
	if r.Size > 0 {
		req.ContentLength = r.Size
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(common.HeaderFileMetadata, common.B64Encode(r.Metadata))
	req.Header.Set(common.HeaderAuthKey, r.AuthKey)
	req.Header.Set(common.HeaderOwnerToken, r.OwnerToken)
	req.Header.Set(common.HeaderTimeLimit, strconv.FormatInt(int64(r.TimeLimit/time.Second), 10))
	req.Header.Set(common.HeaderDownloadLimit, strconv.Itoa(r.DownloadLimit))
	if r.BearerToken != "" {
		req.Header.Set("Authorization", common.BearerScheme+" "+r.BearerToken)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode upload response: %w", common.ErrNetwork, err)
	}
	if out.ID == "" || out.URL == "" {
		return nil, fmt.Errorf("%w: upload response without id", common.ErrNetwork)
	}
	return &out, nil
}

func (c *HTTPClient) Exists(ctx context.Context, id string) (*ExistsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("api", "exists", id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body existsBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode exists response: %w", common.ErrNetwork, err)
	}
	return &ExistsResponse{RequiresPassword: body.RequiresPassword, Nonce: nonceOf(resp)}, nil
}

func (c *HTTPClient) Metadata(ctx context.Context, id, auth string) (*MetadataResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("api", "metadata", id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body metadataBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode metadata response: %w", common.ErrNetwork, err)
	}
	meta, err := common.B64Decode(body.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata encoding: %w", common.ErrNetwork, err)
	}
	return &MetadataResponse{
		Metadata: meta,
		Size:     body.Size,
		TTL:      time.Duration(body.TTL) * time.Millisecond,
		Nonce:    nonceOf(resp),
	}, nil
}

func (c *HTTPClient) Download(ctx context.Context, id, auth string) (*DownloadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("api", "download", id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return &DownloadResponse{Body: resp.Body, Size: resp.ContentLength, Nonce: nonceOf(resp)}, nil
}

func (c *HTTPClient) Info(ctx context.Context, id, ownerToken string) (*FileStatus, error) {
	var body infoBody
	if err := c.postJSON(ctx, []string{"api", "info", id}, ownerBody{OwnerToken: ownerToken}, &body); err != nil {
		return nil, err
	}
	return &FileStatus{
		DownloadCount: body.DL,
		DownloadLimit: body.DLimit,
		TTL:           time.Duration(body.TTL) * time.Millisecond,
	}, nil
}

func (c *HTTPClient) SetDownloadLimit(ctx context.Context, id, ownerToken string, limit int) error {
	return c.postJSON(ctx, []string{"api", "params", id}, ownerBody{OwnerToken: ownerToken, DLimit: limit}, nil)
}

func (c *HTTPClient) Delete(ctx context.Context, id, ownerToken string) error {
	return c.postJSON(ctx, []string{"api", "delete", id}, ownerBody{OwnerToken: ownerToken}, nil)
}

func (c *HTTPClient) SetPassword(ctx context.Context, id, ownerToken, authKey string) error {
	return c.postJSON(ctx, []string{"api", "password", id}, ownerBody{OwnerToken: ownerToken, Auth: authKey}, nil)
}

func (c *HTTPClient) GetFileList(ctx context.Context, bearerToken, kid string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("api", "filelist", kid), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", common.BearerScheme+" "+bearerToken)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileListSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read file list: %w", common.ErrNetwork, err)
	}
	if len(data) > MaxFileListSize {
		return nil, errors.New("file list too large")
	}
	return data, nil
}

func (c *HTTPClient) PutFileList(ctx context.Context, bearerToken, kid string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("api", "filelist", kid), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", common.BearerScheme+" "+bearerToken)

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
