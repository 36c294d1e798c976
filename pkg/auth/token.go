package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing bearer token")

	signingMethod = jwt.SigningMethodHS256
)

// Keys signs and verifies operator access tokens with a shared HMAC secret.
type Keys struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewKeys(cfg config.JWTConfig) (*Keys, error) {
	switch {
	case cfg.Secret == "":
		return nil, fmt.Errorf("jwt secret is required")
	case cfg.Issuer == "":
		return nil, fmt.Errorf("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return nil, fmt.Errorf("jwt expiration minutes must be positive")
	}
	return &Keys{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
	}, nil
}

// Mint issues a token valid from now for the configured lifetime.
func (k *Keys) Mint(now time.Time, p AccessTokenPayload) (string, error) {
	if p.UserID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	if !p.Role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", p.Role)
	}
	id := strings.TrimSpace(p.JTI)
	if id == "" {
		id = uuid.NewString()
	}

	claims := AccessTokenClaims{
		UserID: p.UserID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    k.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, issuer and expiry.
func (k *Keys) Parse(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return k.secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(k.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("token carries no user id")
	}
	return claims, nil
}

// BearerToken extracts the credential from an Authorization header value.
// A bare token without the scheme is accepted.
func BearerToken(header string) (string, error) {
	raw := strings.TrimSpace(header)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" || strings.EqualFold(raw, "bearer") {
		return "", ErrMissingToken
	}
	return raw, nil
}
