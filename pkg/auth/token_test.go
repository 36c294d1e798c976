package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

func testKeys(t *testing.T, issuer string) *Keys {
	t.Helper()
	keys, err := NewKeys(config.JWTConfig{Secret: "secret", Issuer: issuer, ExpirationMinutes: 30})
	if err != nil {
		t.Fatalf("new keys: %v", err)
	}
	return keys
}

func TestMintThenParseKeepsOperatorClaims(t *testing.T) {
	keys := testKeys(t, "jiale-mrp")
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	operator := uuid.New()

	token, err := keys.Mint(now, AccessTokenPayload{UserID: operator, Role: enums.UserRoleAdmin, JTI: "fixed-jti"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Parse checks expiry against the wall clock, so verify the stored claims directly.
	claims := &AccessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.UserID != operator || claims.Role != enums.UserRoleAdmin {
		t.Fatalf("unexpected operator claims %+v", claims)
	}
	if claims.ID != "fixed-jti" || claims.Issuer != "jiale-mrp" {
		t.Fatalf("unexpected registered claims id=%s iss=%s", claims.ID, claims.Issuer)
	}
	if got := claims.ExpiresAt.Time.Sub(now); got != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %v", got)
	}
}

func TestParseRejects(t *testing.T) {
	keys := testKeys(t, "jiale-mrp")
	fresh, err := keys.Mint(time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	stale, err := keys.Mint(time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	tests := []struct {
		name  string
		keys  *Keys
		token string
		want  error
	}{
		{"tampered signature", keys, fresh[:len(fresh)-4] + "AAAA", nil},
		{"expired", keys, stale, jwt.ErrTokenExpired},
		{"foreign issuer", testKeys(t, "someone-else"), fresh, jwt.ErrTokenInvalidIssuer},
	}
	for _, tt := range tests {
		_, err := tt.keys.Parse(tt.token)
		if err == nil {
			t.Fatalf("%s: expected rejection", tt.name)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestMintValidatesPayload(t *testing.T) {
	keys := testKeys(t, "jiale-mrp")
	if _, err := keys.Mint(time.Now(), AccessTokenPayload{UserID: uuid.New()}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := keys.Mint(time.Now(), AccessTokenPayload{Role: enums.UserRoleUser}); err == nil {
		t.Fatal("expected missing user id error")
	}
}

func TestNewKeysValidatesConfig(t *testing.T) {
	bad := []config.JWTConfig{
		{Issuer: "i", ExpirationMinutes: 5},
		{Secret: "s", ExpirationMinutes: 5},
		{Secret: "s", Issuer: "i"},
	}
	for i, cfg := range bad {
		if _, err := NewKeys(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    bool
	}{
		{"Bearer abc.def", "abc.def", false},
		{"bearer   abc.def ", "abc.def", false},
		{"abc.def", "abc.def", false},
		{"Bearer ", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if (err != nil) != tt.err || got != tt.want {
			t.Fatalf("BearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}
