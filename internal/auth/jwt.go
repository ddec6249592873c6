package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenKind discriminates access tokens from refresh tokens. Each kind is
// signed with its own secret, so one can never be presented as the other.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims represents the verified claims of a token
type TokenClaims struct {
	UserID    string    `json:"user_id"` // UUID stored as string in token
	Email     string    `json:"email"`
	Kind      TokenKind `json:"kind"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type"`
}

// JWTService handles JWT creation and validation using HS256
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
}

func NewJWTService(accessSecret, refreshSecret []byte) (*JWTService, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("jwt secrets must not be empty")
	}
	return &JWTService{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
	}, nil
}

func (s *JWTService) secretFor(kind TokenKind) []byte {
	if kind == TokenKindRefresh {
		return s.refreshSecret
	}
	return s.accessSecret
}

// CreateToken generates a signed token of the given kind with the given duration
func (s *JWTService) CreateToken(userID uuid.UUID, email string, kind TokenKind, duration time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps every token unique, even two minted in the same second
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
		Email:     email,
		TokenType: string(kind),
	})

	return token.SignedString(s.secretFor(kind))
}

// VerifyToken validates a token's signature, expiry, and kind, and returns its
// claims. Fails with ErrExpiredToken past expiry, ErrInvalidToken otherwise.
func (s *JWTService) VerifyToken(tokenStr string, kind TokenKind) (*TokenClaims, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secretFor(kind), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid || claims.TokenType != string(kind) {
		return nil, ErrInvalidToken
	}

	var issuedAt, expiresAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &TokenClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Kind:      kind,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
