package httpapi

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/services"
)

// OutOfBandRedirect asks the provider to show the code instead of
// redirecting.
const OutOfBandRedirect = "urn:ietf:wg:oauth:2.0:oob"

type OAuthService interface {
	Authorize(ctx context.Context, r services.AuthorizeRequest) (string, error)
	Exchange(ctx context.Context, code, clientID, verifier string) (*services.Token, error)
	UserInfo(ctx context.Context, accessToken string) (*services.Profile, error)
}

// OAuthHandler is the development identity provider.
type OAuthHandler struct {
	OAuth  OAuthService
	Logger logging.Logger
}

var authorizePage = template.Must(template.New("authorize").Parse(`<!doctype html>
<title>GophSend sign in</title>
<form method="post">
{{range $k, $v := .Params}}<input type="hidden" name="{{$k}}" value="{{$v}}">
{{end}}<label>Email <input type="email" name="email" required></label>
<button type="submit">Sign in</button>
</form>
`))

var codePage = template.Must(template.New("code").Parse(`<!doctype html>
<title>GophSend sign in</title>
<p>Paste this into the client:</p>
<pre>{{.}}</pre>
`))

var authorizeParams = []string{
	"client_id", "response_type", "access_type", "scope", "state",
	"code_challenge", "code_challenge_method", "keys_jwk", "redirect_uri",
}

// AuthorizeForm handles GET /oauth/authorize by asking for an email.
func (h *OAuthHandler) AuthorizeForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := make(map[string]string, len(authorizeParams))
	for _, k := range authorizeParams {
		if v := q.Get(k); v != "" {
			params[k] = v
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = authorizePage.Execute(w, map[string]any{"Params": params})
}

// Authorize handles POST /oauth/authorize. The code and state are either
// shown for pasting or sent to the redirect URI.
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	code, err := h.OAuth.Authorize(r.Context(), services.AuthorizeRequest{
		ClientID:            r.PostForm.Get("client_id"),
		Email:               r.PostForm.Get("email"),
		CodeChallenge:       r.PostForm.Get("code_challenge"),
		CodeChallengeMethod: r.PostForm.Get("code_challenge_method"),
		KeysJWK:             r.PostForm.Get("keys_jwk"),
	})
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}

	result := url.Values{"code": {code}, "state": {r.PostForm.Get("state")}}
	redirect := r.PostForm.Get("redirect_uri")
	if redirect == "" || redirect == OutOfBandRedirect {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = codePage.Execute(w, result.Encode())
		return
	}

	target, err := url.Parse(redirect)
	if err != nil {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}
	target.RawQuery = result.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// Token handles POST /oauth/token.
func (h *OAuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code         string `json:"code"`
		ClientID     string `json:"client_id"`
		CodeVerifier string `json:"code_verifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	tok, err := h.OAuth.Exchange(r.Context(), req.Code, req.ClientID, req.CodeVerifier)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, map[string]any{
		"access_token": tok.AccessToken,
		"token_type":   tok.TokenType,
		"expires_in":   tok.ExpiresIn,
		"keys_jwe":     tok.KeysJWE,
	})
}

// UserInfo handles GET /oauth/userinfo.
func (h *OAuthHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		http.Error(w, "missing access token", http.StatusUnauthorized)
		return
	}
	p, err := h.OAuth.UserInfo(r.Context(), token)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, map[string]string{
		"uid":         p.UID,
		"email":       p.Email,
		"displayName": p.Email,
	})
}
