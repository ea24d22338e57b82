package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/realtime/proto"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Issuer mints and validates the short-lived access tokens. Tokens are
// self-contained: validation checks signature and expiry only, there is no
// server-side lookup.
type Issuer struct {
	secret   []byte
	validFor time.Duration
}

func NewIssuer(secret string, validFor time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		validFor: validFor,
	}
}

// ValidFor returns the configured access token lifetime.
func (i *Issuer) ValidFor() time.Duration {
	return i.validFor
}

type accessTokenClaims struct {
	Username string   `json:"username"`
	RoleIDs  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Issue mints a signed access token for the user and returns it together
// with its expiry instant.
func (i *Issuer) Issue(user *model.User) (string, time.Time, error) {
	now := NowTimeFunc()
	expiresAt := now.Add(i.validFor)

	claims := accessTokenClaims{
		Username: user.Username,
		RoleIDs:  user.RoleIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Validate checks signature and expiry of an access token and returns the
// identity encoded in its claims. Expired tokens are rejected regardless of
// signature validity.
func (i *Issuer) Validate(tokenString string) (*Identity, error) {
	claims := &accessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, proto.NewAuthenticationError("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return NowTimeFunc() }))
	if err != nil || !token.Valid {
		return nil, proto.NewAuthenticationError("invalid or expired token")
	}

	return &Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		RoleIDs:  claims.RoleIDs,
	}, nil
}
