package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/pkg/middleware"
)

// AccessClaims are the claims the provider puts in its access tokens.
type AccessClaims struct {
	Email     string `json:"email"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens signed with the provider's secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse validates token and returns its claims.
func (v *Verifier) Parse(token string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid access token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("access token has no subject")
	}
	return claims, nil
}

// Validate satisfies middleware.TokenValidator.
func (v *Verifier) Validate(token string) (*middleware.Claims, error) {
	c, err := v.Parse(token)
	if err != nil {
		return nil, err
	}
	sid := c.SessionID
	if sid == "" {
		sid = c.Subject
	}
	return &middleware.Claims{
		UserID:    c.Subject,
		Email:     c.Email,
		SessionID: sid,
	}, nil
}

// Sign issues a token for claims. Tests and local tooling use it to mint
// tokens the verifier accepts.
func (v *Verifier) Sign(claims AccessClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// SessionFromToken builds the session a verified bearer token stands for.
// It carries no refresh token.
func SessionFromToken(token string, c *AccessClaims) *domain.Session {
	var expires time.Time
	if c.ExpiresAt != nil {
		expires = c.ExpiresAt.Time.UTC()
	}
	return &domain.Session{
		AccessToken: token,
		ExpiresAt:   expires,
		User:        domain.User{ID: c.Subject, Email: c.Email},
	}
}
