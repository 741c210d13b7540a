package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"linkstride-client/internal/repository/contract"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenStorageKey is where the bearer token lives in the session store.
const TokenStorageKey = "token"

var (
	ErrNoToken      = errors.New("no session token")
	ErrTokenExpired = errors.New("session token expired")
)

// TokenClaims is what the client reads from the API's JWT without verifying it.
// Verification is the server's job; the client only needs the user id and expiry.
type TokenClaims struct {
	UserID    string
	ExpiresAt *time.Time
}

func ParseTokenClaims(token string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}

	out := &TokenClaims{}
	for _, key := range []string{"user_id", "userId", "id", "sub"} {
		if v, ok := claims[key]; ok && v != nil {
			out.UserID = claimString(v)
			if out.UserID != "" {
				break
			}
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		out.ExpiresAt = &t
	}
	return out, nil
}

func claimString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

// StoreTokenSource reads the bearer token from the session store on every request,
// so a logout or re-login takes effect without rebuilding the HTTP client.
type StoreTokenSource struct {
	store contract.StorageRepository
	now   func() time.Time
}

func NewStoreTokenSource(store contract.StorageRepository) *StoreTokenSource {
	return &StoreTokenSource{store: store, now: time.Now}
}

var _ oauth2.TokenSource = (*StoreTokenSource)(nil)

func (s *StoreTokenSource) Token() (*oauth2.Token, error) {
	raw, err := s.store.Get(context.Background(), TokenStorageKey)
	if errors.Is(err, contract.ErrKeyNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}

	var access string
	if err := json.Unmarshal([]byte(raw), &access); err != nil {
		access = raw
	}
	if access == "" {
		return nil, ErrNoToken
	}

	token := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if claims, err := ParseTokenClaims(access); err == nil && claims.ExpiresAt != nil {
		if !s.now().Before(*claims.ExpiresAt) {
			return nil, ErrTokenExpired
		}
		token.Expiry = *claims.ExpiresAt
	}
	return token, nil
}
