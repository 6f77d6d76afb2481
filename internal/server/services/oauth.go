package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/auth"
	"github.com/dmitrijs2005/gophsend/internal/server/config"
	"github.com/dmitrijs2005/gophsend/internal/server/models"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/repomanager"
	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
)

const (
	authCodeSize     = 16
	authCodeValidity = 5 * time.Minute
	scopedKeyInfo    = "gophsend scoped key"
)

// AuthorizeRequest is an approved authorization request.
type AuthorizeRequest struct {
	ClientID            string
	Email               string
	CodeChallenge       string
	CodeChallengeMethod string
	KeysJWK             string
}

// Token is the token endpoint response.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	KeysJWE     string
}

// Profile is the account behind an access token.
type Profile struct {
	UID   string
	Email string
}

type scopedKey struct {
	Kid   string `json:"kid"`
	K     string `json:"k"`
	Kty   string `json:"kty"`
	Scope string `json:"scope"`
}

// OAuthService is a development identity provider. Any email is accepted;
// the account id and the scoped key are derived from it and the server
// secret, so they are stable across restarts.
type OAuthService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	keyScope                    string
	now                         func() time.Time
	logger                      logging.Logger
}

func NewOAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *OAuthService {
	return &OAuthService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		keyScope:                    cfg.KeyScope,
		now:                         time.Now,
		logger:                      logger,
	}
}

// UserID maps an email to its account id.
func UserID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("gophsend:"+strings.ToLower(email))).String()
}

// Authorize issues a one-time code for an approved request.
func (s *OAuthService) Authorize(ctx context.Context, r AuthorizeRequest) (string, error) {
	addr, err := mail.ParseAddress(r.Email)
	if err != nil {
		return "", fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	switch {
	case r.ClientID == "":
		return "", fmt.Errorf("%w: missing client_id", common.ErrValidation)
	case r.CodeChallengeMethod != "S256":
		return "", fmt.Errorf("%w: code_challenge_method must be S256", common.ErrValidation)
	case r.CodeChallenge == "":
		return "", fmt.Errorf("%w: missing code_challenge", common.ErrValidation)
	}
	if _, err := parsePublicJWK(r.KeysJWK); err != nil {
		return "", err
	}

	code, err := common.MakeRandHexString(authCodeSize)
	if err != nil {
		return "", err
	}
	err = s.repomanager.AuthCodes(s.db).Create(ctx, &models.AuthCode{
		Code:          code,
		UserID:        UserID(addr.Address),
		Email:         addr.Address,
		ClientID:      r.ClientID,
		CodeChallenge: r.CodeChallenge,
		KeysJWK:       r.KeysJWK,
		ExpiresAt:     s.now().Add(authCodeValidity),
	})
	if err != nil {
		return "", fmt.Errorf("store auth code: %w", err)
	}
	return code, nil
}

// Exchange redeems a code. The verifier must hash to the stored challenge.
func (s *OAuthService) Exchange(ctx context.Context, code, clientID, verifier string) (*Token, error) {
	ac, err := s.repomanager.AuthCodes(s.db).Consume(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown code", common.ErrUnauthorized)
	}
	if !s.now().Before(ac.ExpiresAt) {
		return nil, fmt.Errorf("%w: code expired", common.ErrUnauthorized)
	}
	if ac.ClientID != clientID {
		return nil, fmt.Errorf("%w: client mismatch", common.ErrUnauthorized)
	}
	sum := sha256.Sum256([]byte(verifier))
	if subtle.ConstantTimeCompare([]byte(common.B64Encode(sum[:])), []byte(ac.CodeChallenge)) != 1 {
		return nil, fmt.Errorf("%w: pkce verification failed", common.ErrUnauthorized)
	}

	access, err := auth.IssueToken(auth.Claims{UserID: ac.UserID, Email: ac.Email}, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	keys, err := s.keyBundle(ac)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "login approved", "user", ac.UserID)
	return &Token{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.accessTokenValidityDuration / time.Second),
		KeysJWE:     keys,
	}, nil
}

// UserInfo returns the profile of a valid access token.
func (s *OAuthService) UserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	return &Profile{UID: claims.UserID, Email: claims.Email}, nil
}

// keyBundle encrypts the account's scoped key to the client's ephemeral key.
func (s *OAuthService) keyBundle(ac *models.AuthCode) (string, error) {
	pub, err := parsePublicJWK(ac.KeysJWK)
	if err != nil {
		return "", err
	}

	key := s.scopedKey(ac.UserID)
	defer common.WipeByteArray(key)
	kidSum := sha256.Sum256(key)

	payload, err := json.Marshal(map[string]scopedKey{
		s.keyScope: {
			Kid:   "1-" + common.B64Encode(kidSum[:16]),
			K:     common.B64Encode(key),
			Kty:   "oct",
			Scope: s.keyScope,
		},
	})
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(payload)

	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.ECDH_ES, Key: pub.Key}, nil)
	if err != nil {
		return "", fmt.Errorf("key bundle encrypter: %w", err)
	}
	obj, err := enc.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("encrypt key bundle: %w", err)
	}
	return obj.CompactSerialize()
}

func (s *OAuthService) scopedKey(userID string) []byte {
	mac := hmac.New(sha256.New, s.jwtSecret)
	mac.Write([]byte(scopedKeyInfo))
	mac.Write([]byte{0})
	mac.Write([]byte(s.keyScope))
	mac.Write([]byte{0})
	mac.Write([]byte(userID))
	return mac.Sum(nil)
}

func parsePublicJWK(b64 string) (*jose.JSONWebKey, error) {
	raw, err := common.B64Decode(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: keys_jwk encoding", common.ErrValidation)
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: keys_jwk: %v", common.ErrValidation, err)
	}
	if !jwk.Valid() || !jwk.IsPublic() {
		return nil, fmt.Errorf("%w: keys_jwk must be a public key", common.ErrValidation)
	}
	return &jwk, nil
}
