package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/Payphone-Digital/contacts-api/config"
	"github.com/Payphone-Digital/contacts-api/internal/constants"
	apperrors "github.com/Payphone-Digital/contacts-api/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const claimScope = "scope"

// TokenService issues and verifies the signed tokens. The subject is the
// user's email.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	now        func() time.Time
}

func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	method := jwt.GetSigningMethod(cfg.SigningAlgorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.SigningAlgorithm)
	}

	return &TokenService{
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  orDefault(cfg.AccessTokenTTL, constants.AccessTokenExpiry),
		refreshTTL: orDefault(cfg.RefreshTokenTTL, constants.RefreshTokenExpiry),
		emailTTL:   orDefault(cfg.EmailTokenTTL, constants.EmailTokenExpiry),
		now:        time.Now,
	}, nil
}

// SetClock replaces the time source used for iat/exp and validation.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateAccessToken issues a short lived token; ttl <= 0 uses the configured default.
func (s *TokenService) CreateAccessToken(subject string, ttl time.Duration) (string, error) {
	return s.issue(subject, constants.ScopeAccessToken, orDefault(ttl, s.accessTTL))
}

func (s *TokenService) CreateRefreshToken(subject string, ttl time.Duration) (string, error) {
	return s.issue(subject, constants.ScopeRefreshToken, orDefault(ttl, s.refreshTTL))
}

// CreateEmailToken issues a confirmation token. It carries no scope.
func (s *TokenService) CreateEmailToken(subject string, ttl time.Duration) (string, error) {
	return s.issue(subject, "", orDefault(ttl, s.emailTTL))
}

func (s *TokenService) issue(subject, scope string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.NewString(),
	}
	if scope != "" {
		claims[claimScope] = scope
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the token and its scope and returns the subject.
func (s *TokenService) Decode(token, expectedScope string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}

	scope, _ := claims[claimScope].(string)
	if scope != expectedScope {
		return "", apperrors.ErrWrongScope
	}
	return subjectFrom(claims)
}

// SubjectOf verifies signature and expiry only. Used for confirmation tokens.
func (s *TokenService) SubjectOf(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	return subjectFrom(claims)
}

func (s *TokenService) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}
	return claims, nil
}

func subjectFrom(claims jwt.MapClaims) (string, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", apperrors.WrapError(apperrors.ErrInvalidToken, errors.New("missing subject"))
	}
	return sub, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
