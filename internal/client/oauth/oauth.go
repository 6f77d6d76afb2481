// Package oauth is a small client for the identity provider used to sign in:
// authorization URL construction, the PKCE code exchange and the profile
// lookup.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/gophsend/internal/client/config"
	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
)

// AuthorizationRequest holds the per-login values placed in the
// authorization URL.
type AuthorizationRequest struct {
	State         string
	CodeChallenge string
	KeysJWK       string
}

// Token is the token endpoint response.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	KeysJWE      string `json:"keys_jwe"`
}

type Client struct {
	cfg  config.OAuth
	http *http.Client
}

func NewClient(cfg config.OAuth, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// AuthorizationURL builds the URL the user opens to approve the login.
func (c *Client) AuthorizationURL(r AuthorizationRequest) (string, error) {
	u, err := url.Parse(c.cfg.AuthorizationURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorization url: %w", err)
	}
	q := u.Query()
	q.Set("client_id", c.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("access_type", "offline")
	q.Set("scope", "profile "+c.cfg.KeyScope)
	q.Set("state", r.State)
	q.Set("code_challenge", r.CodeChallenge)
	q.Set("code_challenge_method", "S256")
	q.Set("keys_jwk", r.KeysJWK)
	if c.cfg.RedirectURI != "" {
		q.Set("redirect_uri", c.cfg.RedirectURI)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Token, error) {
	payload, err := json.Marshal(map[string]string{
		"code":          code,
		"client_id":     c.cfg.ClientID,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var tok Token
	if err := c.doJSON(req, &tok); err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token exchange: %w: no access token", common.ErrInvalidToken)
	}
	return &tok, nil
}

// UserInfo returns the profile of the token's owner.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*models.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", common.BearerScheme+" "+accessToken)

	var p models.Profile
	if err := c.doJSON(req, &p); err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	return &p, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, bytes.TrimSpace(msg))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: unexpected status %d", common.ErrNetwork, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", common.ErrNetwork, err)
	}
	return nil
}
