// Package token issues and verifies the HS256 bearer tokens carried by every
// authenticated request. Tokens are self-contained; no session state is kept
// on the server.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"tenant-notes/models"
)

// DefaultTTL is applied when Issue is called with a non-positive ttl.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken covers every verification failure: bad signature,
// malformed token, wrong algorithm and expiry all look the same to callers.
var ErrInvalidToken = errors.New("invalid token")

// Identity is what a token is issued for. Timing fields are stamped by Issue.
type Identity struct {
	UserID     string
	Email      string
	Role       models.Role
	TenantID   string
	TenantSlug string
}

// Claims is the decoded token payload.
type Claims struct {
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	TenantID   string      `json:"tenantId"`
	TenantSlug string      `json:"tenantSlug"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
}

type Option func(*Service)

// WithClock overrides time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTTL sets the lifetime used when Issue gets a non-positive ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService returns a Service signing with secret. The secret is fixed for
// the lifetime of the Service.
func NewService(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	s := &Service{
		secret: append([]byte(nil), secret...),
		ttl:    DefaultTTL,
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for id that expires ttl after now.
func (s *Service) Issue(id Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	iat := jwt.NewNumericDate(s.now())
	exp := jwt.NewNumericDate(iat.Add(ttl))

	claims := Claims{
		Email:      id.Email,
		Role:       id.Role,
		TenantID:   id.TenantID,
		TenantSlug: id.TenantSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (s *Service) wholeSeconds() time.Time {
	return s.now().Truncate(time.Second)
}

// Verify checks the signature and expiry of tokenStr and returns its claims.
// Every failure is reported as ErrInvalidToken.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		// exp is whole seconds: a token stays valid through its exp second.
		jwt.WithTimeFunc(s.wholeSeconds),
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		s.log.Debug("token rejected", zap.Error(err))
		return nil, ErrInvalidToken
	}
	return claims, nil
}
