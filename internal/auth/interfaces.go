package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/calculator-api/internal/user"
)

// TokenService defines the interface for token creation and validation.
// The default implementation is JWTService (HS256 with per-kind secrets).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, kind TokenKind, duration time.Duration) (string, error)
	VerifyToken(tokenStr string, kind TokenKind) (*TokenClaims, error)
}

// UserRepository defines the user persistence operations the auth service needs
type UserRepository interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*user.User, error)
	ConsumeVerificationToken(ctx context.Context, token string) (*user.User, error)
	SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash string) (*user.User, error)
}

// RefreshTokenRepository defines the interface for refresh token storage
type RefreshTokenRepository interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) error
}

// EmailService defines the interface for outbound email. Delivery is
// best-effort; callers must never fail a state transition on email errors.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, username, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, username, token string) error
	SendWelcomeEmail(ctx context.Context, toEmail, username string) error
}
