// Package auth issues and verifies the bearer tokens carried by shop staff and
// customers. Accounts and login live outside this service; only the signed role
// claim matters here.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "serviceshop/internal/core/context"
)

const (
	defaultIssuer = "serviceshop"
	defaultTTL    = 15 * time.Minute
	clockSkew     = 30 * time.Second
)

var (
	// ErrUnknownRole is returned for a role outside admin, technician and customer.
	ErrUnknownRole = errors.New("unknown role")
	// ErrMissingSubject is returned for tokens without a user id.
	ErrMissingSubject = errors.New("token has no subject")
)

var roles = []string{appctx.RoleAdmin, appctx.RoleTechnician, appctx.RoleCustomer}

// Config is the signing setup shared by the issuer and the verifier.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// NewConfig fills in the issuer and lifetime defaults.
func NewConfig(secret, issuer string) Config {
	if issuer == "" {
		issuer = defaultIssuer
	}
	return Config{Secret: secret, Issuer: issuer, TTL: defaultTTL}
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// Tokens signs and verifies HS256 access tokens.
type Tokens struct {
	cfg    Config
	key    []byte
	parser *jwt.Parser
}

func NewTokens(cfg Config) *Tokens {
	return &Tokens{
		cfg: cfg,
		key: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Issue signs a token for user. It is used by tooling and tests; the API
// itself never hands out tokens.
func (t *Tokens) Issue(user appctx.UserContext) (string, time.Time, error) {
	if !slices.Contains(roles, user.Role) {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrUnknownRole, user.Role)
	}
	if user.UserID == "" {
		return "", time.Time{}, ErrMissingSubject
	}

	now := time.Now()
	exp := now.Add(t.cfg.TTL)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: user.Email,
		Role:  user.Role,
	}).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the signature, issuer and expiry of raw and returns the
// identity it carries.
func (t *Tokens) Verify(raw string) (*appctx.UserContext, error) {
	var c claims
	if _, err := t.parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.key, nil
	}); err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	if c.Subject == "" {
		return nil, ErrMissingSubject
	}
	if !slices.Contains(roles, c.Role) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, c.Role)
	}
	return &appctx.UserContext{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}
