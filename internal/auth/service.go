package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/calculator-api/internal/logging"
	"github.com/redmonkez12/calculator-api/internal/user"
)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 6

var (
	ErrInvalidCredentials       = errors.New("invalid username or password")
	ErrUsernameRequired         = errors.New("username is required")
	ErrEmailRequired            = errors.New("email is required")
	ErrPasswordRequired         = errors.New("password is required")
	ErrPasswordTooShort         = errors.New("password must be at least 6 characters")
	ErrInvalidEmailFormat       = errors.New("invalid email format")
	ErrEmailNotVerified         = errors.New("email not verified, please check your inbox")
	ErrAccountInactive          = errors.New("account is inactive")
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	ErrTokenExpired             = errors.New("verification token has expired")
	ErrEmailAlreadyVerified     = errors.New("email already verified")
	ErrInvalidResetToken        = errors.New("invalid reset token")
)

// Service owns the user lifecycle: registration, email verification,
// authentication, token refresh, and password reset.
type Service struct {
	userRepo             UserRepository
	refreshRepo          RefreshTokenRepository
	tokenService         TokenService
	hasher               *PasswordHasher
	emailService         EmailService
	logger               *logging.Logger
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
	verificationDuration time.Duration
	resetDuration        time.Duration
}

func NewService(
	userRepo UserRepository,
	refreshRepo RefreshTokenRepository,
	tokenService TokenService,
	hasher *PasswordHasher,
	emailService EmailService,
	logger *logging.Logger,
	accessTokenDuration time.Duration,
	refreshTokenDuration time.Duration,
	verificationDuration time.Duration,
	resetDuration time.Duration,
) *Service {
	return &Service{
		userRepo:             userRepo,
		refreshRepo:          refreshRepo,
		tokenService:         tokenService,
		hasher:               hasher,
		emailService:         emailService,
		logger:               logger,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
		verificationDuration: verificationDuration,
		resetDuration:        resetDuration,
	}
}

// RegisterInput carries the registration fields
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// Register creates a new unverified user account and dispatches the
// verification email. Persistence and delivery are decoupled: the account is
// committed even when the email cannot be sent.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	if input.Username == "" {
		return nil, ErrUsernameRequired
	}
	if input.Email == "" {
		return nil, ErrEmailRequired
	}
	if len(input.Email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if input.Password == "" {
		return nil, ErrPasswordRequired
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}
	expiresAt := time.Now().Add(s.verificationDuration)

	newUser, err := s.userRepo.Create(ctx, &user.User{
		Username:              input.Username,
		Email:                 input.Email,
		PasswordHash:          passwordHash,
		FirstName:             input.FirstName,
		LastName:              input.LastName,
		VerificationToken:     &verificationToken,
		VerificationExpiresAt: &expiresAt,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateUsername) || errors.Is(err, user.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendVerificationEmail(emailCtx, newUser.Email, newUser.Username, verificationToken); err != nil {
			s.logger.Warn("failed to send verification email", "email", newUser.Email, "error", err)
		}
	}()

	return newUser, nil
}

// Login authenticates by username or email and returns a token pair.
// Unknown user and wrong password produce the same error so responses carry
// no enumeration signal.
func (s *Service) Login(ctx context.Context, identifier, password string) (*AuthTokens, *user.User, error) {
	if identifier == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	existing, err := s.userRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(existing.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	if !existing.IsVerified {
		return nil, nil, ErrEmailNotVerified
	}
	if !existing.IsActive {
		return nil, nil, ErrAccountInactive
	}

	tokens, err := s.generateTokens(ctx, existing.ID, existing.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, existing, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. The
// presented token is revoked first, so every refresh token is single-use.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.tokenService.VerifyToken(refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	stored, err := s.refreshRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if !stored.IsValid() {
		if stored.IsRevoked() {
			return nil, ErrRefreshTokenRevoked
		}
		return nil, ErrRefreshTokenExpired
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	existing, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !existing.IsActive {
		return nil, ErrInvalidToken
	}

	if err := s.refreshRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	tokens, err := s.generateTokens(ctx, existing.ID, existing.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, nil
}

// Logout revokes the presented refresh token. Access tokens stay valid until
// natural expiry; there is no blacklist.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.refreshRepo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// VerifyEmail consumes a verification token, marking the user verified and
// clearing the token in one transaction. A second call with the same token
// fails with ErrInvalidVerificationToken because the token is gone.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*user.User, error) {
	verified, err := s.userRepo.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidVerificationToken
		}
		if errors.Is(err, user.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendWelcomeEmail(emailCtx, verified.Email, verified.Username); err != nil {
			s.logger.Warn("failed to send welcome email", "email", verified.Email, "error", err)
		}
	}()

	return verified, nil
}

// ResendVerification regenerates the verification token and dispatches a new
// email. An unknown email reports success so responses carry no enumeration
// signal; an already verified account is a real error the caller may surface.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		s.logger.Warn("failed to get user for resend verification", "error", err)
		return nil
	}

	if existing.IsVerified {
		return ErrEmailAlreadyVerified
	}

	token, err := generateRandomToken()
	if err != nil {
		s.logger.Warn("failed to generate verification token", "error", err)
		return nil
	}

	if err := s.userRepo.SetVerificationToken(ctx, existing.ID, token, time.Now().Add(s.verificationDuration)); err != nil {
		s.logger.Warn("failed to set verification token", "error", err)
		return nil
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendVerificationEmail(emailCtx, existing.Email, existing.Username, token); err != nil {
			s.logger.Warn("failed to resend verification email", "email", existing.Email, "error", err)
		}
	}()

	return nil
}

// RequestPasswordReset stores a reset token on the account and dispatches the
// reset email. Always returns nil to prevent email enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		s.logger.Warn("failed to get user for password reset", "error", err)
		return nil
	}

	token, err := generateRandomToken()
	if err != nil {
		s.logger.Warn("failed to generate password reset token", "error", err)
		return nil
	}

	if err := s.userRepo.SetResetToken(ctx, existing.ID, token, time.Now().Add(s.resetDuration)); err != nil {
		s.logger.Warn("failed to set password reset token", "error", err)
		return nil
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendPasswordResetEmail(emailCtx, existing.Email, existing.Username, token); err != nil {
			s.logger.Warn("failed to send password reset email", "email", existing.Email, "error", err)
		}
	}()

	return nil
}

// ResetPassword consumes a reset token and stores the new password hash in one
// transaction, then revokes all outstanding refresh tokens for the account.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	updated, err := s.userRepo.ConsumeResetToken(ctx, token, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidResetToken
		}
		if errors.Is(err, user.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	if err := s.refreshRepo.RevokeAllUserTokens(ctx, updated.ID); err != nil {
		s.logger.Warn("failed to revoke user tokens after password reset", "error", err)
	}

	return nil
}

// GetUser returns the user for an authenticated principal
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// generateTokens creates an access/refresh pair and records the refresh token
func (s *Service) generateTokens(ctx context.Context, userID uuid.UUID, email string) (*AuthTokens, error) {
	accessToken, err := s.tokenService.CreateToken(userID, email, TokenKindAccess, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenService.CreateToken(userID, email, TokenKindRefresh, s.refreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.refreshTokenDuration)
	if err := s.refreshRepo.StoreRefreshToken(ctx, userID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenDuration.Seconds()),
	}, nil
}
