package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()

	svc, err := NewJWTService([]byte("access-secret"), []byte("refresh-secret"))
	if err != nil {
		t.Fatalf("NewJWTService: %v", err)
	}
	return svc
}

func TestJWTRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestJWTService(t)
	userID := uuid.New()

	token, err := svc.CreateToken(userID, "alice@example.com", TokenKindAccess, time.Minute)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	claims, err := svc.VerifyToken(token, TokenKindAccess)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}

	if claims.UserID != userID.String() {
		t.Errorf("UserID = %q, want %q", claims.UserID, userID.String())
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "alice@example.com")
	}
	if claims.Kind != TokenKindAccess {
		t.Errorf("Kind = %q, want %q", claims.Kind, TokenKindAccess)
	}
}

func TestJWTExpired(t *testing.T) {
	t.Parallel()

	svc := newTestJWTService(t)

	token, err := svc.CreateToken(uuid.New(), "alice@example.com", TokenKindAccess, -time.Minute)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	if _, err := svc.VerifyToken(token, TokenKindAccess); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("VerifyToken error = %v, want ErrExpiredToken", err)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	t.Parallel()

	svc := newTestJWTService(t)
	other, err := NewJWTService([]byte("other-access"), []byte("other-refresh"))
	if err != nil {
		t.Fatalf("NewJWTService: %v", err)
	}

	token, err := svc.CreateToken(uuid.New(), "alice@example.com", TokenKindAccess, time.Minute)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	if _, err := other.VerifyToken(token, TokenKindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyToken error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTKindMismatch(t *testing.T) {
	t.Parallel()

	svc := newTestJWTService(t)

	accessToken, err := svc.CreateToken(uuid.New(), "alice@example.com", TokenKindAccess, time.Minute)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	// An access token must never pass as a refresh token
	if _, err := svc.VerifyToken(accessToken, TokenKindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyToken error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTMalformed(t *testing.T) {
	t.Parallel()

	svc := newTestJWTService(t)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.VerifyToken(token, TokenKindAccess); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyToken(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestJWTTokensAreUnique(t *testing.T) {
	t.Parallel()

	svc := newTestJWTService(t)
	userID := uuid.New()

	first, err := svc.CreateToken(userID, "alice@example.com", TokenKindRefresh, time.Hour)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	second, err := svc.CreateToken(userID, "alice@example.com", TokenKindRefresh, time.Hour)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	if first == second {
		t.Error("two tokens for the same user are identical")
	}
}

func TestNewJWTServiceRejectsEmptySecrets(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTService(nil, []byte("refresh")); err == nil {
		t.Error("expected error for empty access secret")
	}
	if _, err := NewJWTService([]byte("access"), nil); err == nil {
		t.Error("expected error for empty refresh secret")
	}
}
