package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	svc := newTestJWTService(t)
	mw := NewMiddleware(svc)
	userID := uuid.New()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, ok := GetUserIDFromContext(r.Context())
		if !ok || gotID != userID {
			t.Errorf("context user ID = %v (ok=%v), want %v", gotID, ok, userID)
		}
		gotEmail, ok := GetUserEmailFromContext(r.Context())
		if !ok || gotEmail != "alice@example.com" {
			t.Errorf("context email = %q (ok=%v), want alice@example.com", gotEmail, ok)
		}
		w.WriteHeader(http.StatusOK)
	})

	accessToken, err := svc.CreateToken(userID, "alice@example.com", TokenKindAccess, time.Minute)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	expiredToken, err := svc.CreateToken(userID, "alice@example.com", TokenKindAccess, -time.Minute)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	refreshToken, err := svc.CreateToken(userID, "alice@example.com", TokenKindRefresh, time.Minute)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + accessToken, http.StatusOK},
		{"lowercase scheme", "bearer " + accessToken, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + accessToken, http.StatusUnauthorized},
		{"no scheme", accessToken, http.StatusUnauthorized},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized},
		{"refresh token", "Bearer " + refreshToken, http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			rec := httptest.NewRecorder()
			mw.RequireAuth(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
