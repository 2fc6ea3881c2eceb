package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RevocationStore remembers logged-out tokens
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

var ErrInvalidToken = errors.New("invalid token")

// AuthService issues and validates access tokens
type AuthService struct {
	identity *IdentityService
	revoked  RevocationStore
	secret   []byte
	ttl      time.Duration
	issuer   string
	now      func() time.Time
}

// NewAuthService creates a new auth service; revoked may be nil
func NewAuthService(identity *IdentityService, revoked RevocationStore, secret string, ttl time.Duration, issuer string) (*AuthService, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET not set in environment")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		identity: identity,
		revoked:  revoked,
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   issuer,
		now:      time.Now,
	}, nil
}

// TTL is the lifetime of issued tokens
func (s *AuthService) TTL() time.Duration { return s.ttl }

// Login authenticates a user and returns a token
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.identity.FindByEmail(ctx, req.Email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.identity.CheckPassword(user, req.Password) {
		return nil, ErrInvalidCredentials
	}

	caller := models.Caller{UserID: user.ID, Email: user.Email, Roles: user.RoleNames()}
	token, expiresAt, err := s.GenerateToken(caller)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Token:     token,
		User:      caller,
		ExpiresAt: expiresAt,
	}, nil
}

// GenerateToken generates a new JWT token for a caller
func (s *AuthService) GenerateToken(caller models.Caller) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := dto.TokenClaims{
		UserID: caller.UserID,
		Email:  caller.Email,
		Roles:  caller.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   caller.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns claims if valid
func (s *AuthService) ValidateToken(tokenString string) (*dto.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dto.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*dto.TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate validates the token and resolves the caller from the identity store,
// so deleted users and changed roles take effect immediately
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.Caller, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
		}
	}

	user, err := s.identity.FindByID(ctx, claims.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidToken)
	}
	if err != nil {
		return nil, err
	}

	return &models.Caller{UserID: user.ID, Email: user.Email, Roles: user.RoleNames()}, nil
}

// Logout revokes the token until it would have expired
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	if s.revoked == nil || tokenString == "" {
		return nil
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		// an unusable token needs no revocation
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, ttl)
}
