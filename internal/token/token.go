// Package token issues and verifies the signed bearer tokens that carry a
// user's identity claims between services. Tokens are self-contained and
// stateless; revocation is handled one layer up by the session registry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/osvitahub/backend/internal/model"
)

var (
	// ErrTokenExpired is returned by Verify when the token's signature is
	// valid but its expiry has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrSignatureInvalid is returned by Verify for any token that does not
	// carry a valid signature from our secret, including malformed input.
	ErrSignatureInvalid = errors.New("invalid token signature")
)

const defaultTTL = 24 * time.Hour

// Config holds issuer tuning parameters. Secret must be set; an empty
// secret is a deployment mistake and fails construction, not requests.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Issuer creates and verifies HS256-signed access tokens. Safe for
// concurrent use; the secret is read-only after construction.
type Issuer struct {
	config Config
}

// Claims is the identity claim bundle embedded in every access token.
type Claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim, the owning user's id.
func (c *Claims) UserID() string {
	return c.Subject
}

// New validates cfg and returns an Issuer.
func New(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: signing secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	return &Issuer{config: cfg}, nil
}

// TTL reports the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.config.TTL
}

// Issue signs a token carrying the user's id, email and role. The expiry is
// issued-at plus the configured lifetime.
func (i *Issuer) Issue(u *model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.TTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.config.Secret)
}

// Verify checks signature and expiry and returns the embedded claims.
// Expired tokens yield [ErrTokenExpired]; every other failure, tampering
// included, collapses to [ErrSignatureInvalid] so callers cannot leak
// parser detail to clients.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	t, err := parser.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return i.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrSignatureInvalid
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrSignatureInvalid
	}
	if claims.Subject == "" {
		return nil, ErrSignatureInvalid
	}

	return claims, nil
}
