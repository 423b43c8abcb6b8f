package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const RoleAdmin = "admin"

// Claims are the identity fields the backend puts in its tokens.
type Claims struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the id claim, falling back to the subject.
func (c *Claims) UserID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Subject
}

func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Decoder turns backend tokens into Claims. Without a secret the signature is
// not checked, matching what the browser storefront does; expiry is still
// enforced.
type Decoder struct {
	secretKey []byte
	parser    *jwt.Parser
	now       func() time.Time
}

// NewDecoder creates a decoder. An empty secret disables signature checks.
func NewDecoder(secretKey string) *Decoder {
	d := &Decoder{now: time.Now}
	if secretKey != "" {
		d.secretKey = []byte(secretKey)
	}
	d.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return d.now() }),
	)
	return d
}

// Verifies reports whether signatures are checked.
func (d *Decoder) Verifies() bool {
	return d.secretKey != nil
}

// Decode parses tokenString and returns its claims.
func (d *Decoder) Decode(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	if d.secretKey == nil {
		return d.decodeUnverified(tokenString)
	}

	token, err := d.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return d.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (d *Decoder) decodeUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt != nil && !d.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}
