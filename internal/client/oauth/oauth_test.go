package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dmitrijs2005/gophsend/internal/client/config"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, h http.Handler) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.OAuth{
		AuthorizationURL: srv.URL + "/oauth/authorize",
		TokenURL:         srv.URL + "/oauth/token",
		UserInfoURL:      srv.URL + "/oauth/userinfo",
		ClientID:         "cli",
		KeyScope:         "scope:send",
		RedirectURI:      "urn:ietf:wg:oauth:2.0:oob",
	}
	return NewClient(cfg, srv.Client()), srv.URL
}

func TestAuthorizationURL(t *testing.T) {
	c, base := newProvider(t, http.NotFoundHandler())

	raw, err := c.AuthorizationURL(AuthorizationRequest{State: "st", CodeChallenge: "ch", KeysJWK: "jwk"})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, base+"/oauth/authorize", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	assert.Equal(t, "cli", q.Get("client_id"))
	assert.Equal(t, "st", q.Get("state"))
	assert.Equal(t, "ch", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "jwk", q.Get("keys_jwk"))
	assert.Equal(t, "profile scope:send", q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
}

func TestExchangeCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["code"] != "good" {
			http.Error(w, "invalid_grant", http.StatusBadRequest)
			return
		}
		assert.Equal(t, "cli", body["client_id"])
		assert.Equal(t, "verifier", body["code_verifier"])
		_ = json.NewEncoder(w).Encode(Token{AccessToken: "at", KeysJWE: "jwe", ExpiresIn: 60})
	})
	c, _ := newProvider(t, mux)

	tok, err := c.ExchangeCode(context.Background(), "good", "verifier")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "jwe", tok.KeysJWE)
	assert.EqualValues(t, 60, tok.ExpiresIn)

	_, err = c.ExchangeCode(context.Background(), "bad", "verifier")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestExchangeCode_EmptyToken(t *testing.T) {
	c, _ := newProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	_, err := c.ExchangeCode(context.Background(), "x", "y")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestUserInfo(t *testing.T) {
	c, _ := newProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"uid":"u1","email":"a@b.c"}`))
	}))

	p, err := c.UserInfo(context.Background(), "at")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UID)
	assert.Equal(t, "a@b.c", p.Email)

	_, err = c.UserInfo(context.Background(), "other")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestServerErrorIsNetwork(t *testing.T) {
	c, _ := newProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	_, err := c.UserInfo(context.Background(), "at")
	assert.ErrorIs(t, err, common.ErrNetwork)
}
