package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload the scheduling API puts into its access tokens.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseNoVerify decodes the payload without checking the signature or the
// expiry. Clients use it to read exp from a token they cannot verify.
func ParseNoVerify(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &claims, nil
}

// ActiveAt reports whether exp lies strictly after now, compared in whole
// seconds. A token without exp is never active.
func (c *Claims) ActiveAt(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Unix() > now.Unix()
}

// Unexpired decodes token and checks its exp against now. Missing, malformed
// and expired tokens all report false.
func Unexpired(token string, now time.Time) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	claims, err := ParseNoVerify(token)
	if err != nil {
		return false
	}
	return claims.ActiveAt(now)
}

func SignHS256(claims Claims, secret string) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
