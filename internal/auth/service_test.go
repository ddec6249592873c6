package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/calculator-api/internal/logging"
	"github.com/redmonkez12/calculator-api/internal/user"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users []*user.User
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username {
			return nil, user.ErrDuplicateUsername
		}
		if existing.Email == u.Email {
			return nil, user.ErrDuplicateEmail
		}
	}

	u.ID = uuid.New()
	u.IsActive = true
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users = append(r.users, u)
	return u, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) ConsumeVerificationToken(ctx context.Context, token string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.VerificationToken == nil || *u.VerificationToken != token {
			continue
		}
		if u.VerificationExpiresAt != nil && u.VerificationExpiresAt.Before(time.Now()) {
			return nil, user.ErrTokenExpired
		}
		u.IsVerified = true
		u.VerificationToken = nil
		u.VerificationExpiresAt = nil
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == userID && !u.IsVerified {
			u.VerificationToken = &token
			u.VerificationExpiresAt = &expiresAt
			return nil
		}
	}
	return user.ErrNotFound
}

func (r *fakeUserRepo) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == userID {
			u.ResetToken = &token
			u.ResetExpiresAt = &expiresAt
			return nil
		}
	}
	return user.ErrNotFound
}

func (r *fakeUserRepo) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ResetToken == nil || *u.ResetToken != token {
			continue
		}
		if u.ResetExpiresAt != nil && u.ResetExpiresAt.Before(time.Now()) {
			return nil, user.ErrTokenExpired
		}
		u.PasswordHash = passwordHash
		u.ResetToken = nil
		u.ResetExpiresAt = nil
		return u, nil
	}
	return nil, user.ErrNotFound
}

// verificationTokenFor returns the pending verification token for an email
func (r *fakeUserRepo) verificationTokenFor(email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email && u.VerificationToken != nil {
			return *u.VerificationToken
		}
	}
	return ""
}

// resetTokenFor returns the pending reset token for an email
func (r *fakeUserRepo) resetTokenFor(email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email && u.ResetToken != nil {
			return *u.ResetToken
		}
	}
	return ""
}

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]*RefreshToken)}
}

func (r *fakeRefreshTokenRepo) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[hashToken(token)] = &RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeRefreshTokenRepo) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tokens[hashToken(token)]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	return stored, nil
}

func (r *fakeRefreshTokenRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tokens[hashToken(token)]
	if !ok || stored.RevokedAt != nil {
		return ErrRefreshTokenNotFound
	}
	now := time.Now()
	stored.RevokedAt = &now
	return nil
}

func (r *fakeRefreshTokenRepo) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, stored := range r.tokens {
		if stored.UserID == userID && stored.RevokedAt == nil {
			stored.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeRefreshTokenRepo) CleanupExpiredTokens(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, stored := range r.tokens {
		if stored.IsExpired() {
			delete(r.tokens, hash)
		}
	}
	return nil
}

type fakeEmailService struct{}

func (fakeEmailService) SendVerificationEmail(ctx context.Context, toEmail, username, token string) error {
	return nil
}

func (fakeEmailService) SendPasswordResetEmail(ctx context.Context, toEmail, username, token string) error {
	return nil
}

func (fakeEmailService) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeUserRepo, *fakeRefreshTokenRepo) {
	t.Helper()

	userRepo := &fakeUserRepo{}
	refreshRepo := newFakeRefreshTokenRepo()

	jwtService, err := NewJWTService([]byte("access-secret"), []byte("refresh-secret"))
	if err != nil {
		t.Fatalf("NewJWTService: %v", err)
	}

	svc := NewService(
		userRepo,
		refreshRepo,
		jwtService,
		NewPasswordHasher(),
		fakeEmailService{},
		logging.NewLogger(true),
		30*time.Minute,
		7*24*time.Hour,
		24*time.Hour,
		time.Hour,
	)
	return svc, userRepo, refreshRepo
}

func registerVerifiedUser(t *testing.T, svc *Service, userRepo *fakeUserRepo) *user.User {
	t.Helper()

	registered, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	token := userRepo.verificationTokenFor(registered.Email)
	if token == "" {
		t.Fatal("no verification token stored after registration")
	}
	if _, err := svc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	return registered
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	registered, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if registered.PasswordHash == "secret123" {
		t.Error("password stored in plain text")
	}
	if !strings.HasPrefix(registered.PasswordHash, "$argon2id$") {
		t.Errorf("PasswordHash = %q, want argon2id encoding", registered.PasswordHash)
	}
	if registered.IsVerified {
		t.Error("new user must start unverified")
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "secret123"}, ErrUsernameRequired},
		{"missing email", RegisterInput{Username: "alice", Password: "secret123"}, ErrEmailRequired},
		{"invalid email", RegisterInput{Username: "alice", Email: "not-an-email", Password: "secret123"}, ErrInvalidEmailFormat},
		{"missing password", RegisterInput{Username: "alice", Email: "a@example.com"}, ErrPasswordRequired},
		{"short password", RegisterInput{Username: "alice", Email: "a@example.com", Password: "short"}, ErrPasswordTooShort},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.input); !errors.Is(err, tc.wantErr) {
				t.Errorf("Register error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret123"}); !errors.Is(err, user.ErrDuplicateUsername) {
		t.Errorf("duplicate username error = %v, want ErrDuplicateUsername", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "alice@example.com", Password: "secret123"}); !errors.Is(err, user.ErrDuplicateEmail) {
		t.Errorf("duplicate email error = %v, want ErrDuplicateEmail", err)
	}
}

func TestLoginErrorsCarryNoEnumerationSignal(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registerVerifiedUser(t, svc, userRepo)

	_, _, unknownErr := svc.Login(ctx, "nobody", "secret123")
	_, _, wrongPassErr := svc.Login(ctx, "alice", "wrong-password")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongPassErr, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", wrongPassErr)
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Errorf("error messages differ: %q vs %q", unknownErr, wrongPassErr)
	}
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice", "secret123"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("unverified login error = %v, want ErrEmailNotVerified", err)
	}

	token := userRepo.verificationTokenFor(registered.Email)
	if _, err := svc.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	tokens, loggedIn, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("verified login: %v", err)
	}
	if tokens.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", tokens.TokenType)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Error("login returned empty tokens")
	}
	if loggedIn.ID != registered.ID {
		t.Errorf("logged in user ID = %v, want %v", loggedIn.ID, registered.ID)
	}

	// Email login works too
	if _, _, err := svc.Login(ctx, "alice@example.com", "secret123"); err != nil {
		t.Errorf("email login: %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registered := registerVerifiedUser(t, svc, userRepo)

	userRepo.mu.Lock()
	for _, u := range userRepo.users {
		if u.ID == registered.ID {
			u.IsActive = false
		}
	}
	userRepo.mu.Unlock()

	if _, _, err := svc.Login(ctx, "alice", "secret123"); !errors.Is(err, ErrAccountInactive) {
		t.Errorf("inactive login error = %v, want ErrAccountInactive", err)
	}
}

func TestVerifyEmailTokenIsSingleUse(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	token := userRepo.verificationTokenFor(registered.Email)
	if _, err := svc.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("first VerifyEmail: %v", err)
	}

	if _, err := svc.VerifyEmail(ctx, token); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Errorf("second VerifyEmail error = %v, want ErrInvalidVerificationToken", err)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	userRepo.mu.Lock()
	past := time.Now().Add(-time.Minute)
	for _, u := range userRepo.users {
		if u.ID == registered.ID {
			u.VerificationExpiresAt = &past
		}
	}
	userRepo.mu.Unlock()

	token := userRepo.verificationTokenFor(registered.Email)
	if _, err := svc.VerifyEmail(ctx, token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expired VerifyEmail error = %v, want ErrTokenExpired", err)
	}
}

func TestResendVerification(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	oldToken := userRepo.verificationTokenFor(registered.Email)
	if err := svc.ResendVerification(ctx, registered.Email); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	newToken := userRepo.verificationTokenFor(registered.Email)
	if newToken == "" || newToken == oldToken {
		t.Error("resend did not rotate the verification token")
	}

	// Unknown addresses report success
	if err := svc.ResendVerification(ctx, "nobody@example.com"); err != nil {
		t.Errorf("unknown email error = %v, want nil", err)
	}

	if _, err := svc.VerifyEmail(ctx, newToken); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if err := svc.ResendVerification(ctx, registered.Email); !errors.Is(err, ErrEmailAlreadyVerified) {
		t.Errorf("verified resend error = %v, want ErrEmailAlreadyVerified", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registered := registerVerifiedUser(t, svc, userRepo)

	tokens, _, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, registered.Email); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	// Unknown addresses report success
	if err := svc.RequestPasswordReset(ctx, "nobody@example.com"); err != nil {
		t.Errorf("unknown email error = %v, want nil", err)
	}

	resetToken := userRepo.resetTokenFor(registered.Email)
	if resetToken == "" {
		t.Fatal("no reset token stored")
	}

	if err := svc.ResetPassword(ctx, resetToken, "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("weak password error = %v, want ErrPasswordTooShort", err)
	}

	if err := svc.ResetPassword(ctx, resetToken, "brand-new-password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// Token is single-use
	if err := svc.ResetPassword(ctx, resetToken, "another-password"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("reused token error = %v, want ErrInvalidResetToken", err)
	}

	// Old password no longer works, new one does
	if _, _, err := svc.Login(ctx, "alice", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password login error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "brand-new-password"); err != nil {
		t.Errorf("new password login: %v", err)
	}

	// Outstanding sessions died with the old password
	if _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Errorf("pre-reset refresh error = %v, want ErrRefreshTokenRevoked", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registerVerifiedUser(t, svc, userRepo)

	tokens, _, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	rotated, err := svc.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Error("refresh did not rotate the refresh token")
	}

	// The old token is revoked after use
	if _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Errorf("reused refresh error = %v, want ErrRefreshTokenRevoked", err)
	}

	// The rotated token still works
	if _, err := svc.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Errorf("rotated refresh: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registerVerifiedUser(t, svc, userRepo)

	tokens, _, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.Refresh(ctx, tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access-as-refresh error = %v, want ErrInvalidToken", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	t.Parallel()

	svc, userRepo, _ := newTestService(t)
	ctx := context.Background()

	registerVerifiedUser(t, svc, userRepo)

	tokens, _, err := svc.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Errorf("post-logout refresh error = %v, want ErrRefreshTokenRevoked", err)
	}

	// Logout without a token and with an unknown token is not an error
	if err := svc.Logout(ctx, ""); err != nil {
		t.Errorf("empty logout: %v", err)
	}
	if err := svc.Logout(ctx, "unknown-token"); err != nil {
		t.Errorf("unknown token logout: %v", err)
	}
}
