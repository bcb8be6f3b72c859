package services

import (
	"context"
	"time"

	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenCookieName = "admin_token"
	DefaultTokenTTL = 7 * 24 * time.Hour
)

// RevocationStore remembers the ids of tokens that were logged out before
// they expired.
type RevocationStore interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

type adminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the HS256 admin session tokens.
type TokenService struct {
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
	revocations RevocationStore
	log         logger.Logger
}

func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
		log:    logger.New("TokenService"),
	}
}

// WithRevocations makes logout effective server side. Without a store a
// logged-out token stays valid until it expires.
func (s *TokenService) WithRevocations(store RevocationStore) *TokenService {
	s.revocations = store
	return s
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func (s *TokenService) Issue(principal Principal) (string, time.Time, error) {
	log := s.log.Function("Issue")

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	id, err := uuid.NewV7()
	if err != nil {
		return "", time.Time{}, log.Err("failed to generate token id", err)
	}

	claims := adminClaims{
		Username: principal.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Subject:   principal.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, log.Err("failed to sign token", err, "username", principal.Username)
	}

	return signed, expiresAt, nil
}

// Verify reports the principal behind token. Any parse, signature, expiry or
// revocation failure is simply (Principal{}, false).
func (s *TokenService) Verify(token string) (Principal, bool) {
	return s.VerifyContext(context.Background(), token)
}

func (s *TokenService) VerifyContext(ctx context.Context, token string) (Principal, bool) {
	claims, ok := s.parse(token)
	if !ok {
		return Principal{}, false
	}

	if s.revocations != nil && claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.log.Function("VerifyContext").Warn("revocation check failed, rejecting token", "error", err)
			return Principal{}, false
		}
		if revoked {
			return Principal{}, false
		}
	}

	return Principal{Username: claims.Username}, true
}

// Revoke invalidates a still valid token until its expiry. Invalid tokens are
// ignored.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if s.revocations == nil {
		return nil
	}

	claims, ok := s.parse(token)
	if !ok || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return s.log.Function("Revoke").Err("failed to revoke token", err, "username", claims.Username)
	}

	return nil
}

func (s *TokenService) parse(token string) (adminClaims, bool) {
	if token == "" {
		return adminClaims{}, false
	}

	var claims adminClaims
	parsed, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Username == "" {
		s.log.Function("parse").Debug("rejected token", "error", err)
		return adminClaims{}, false
	}

	return claims, true
}
