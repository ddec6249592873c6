package auth

import (
	"strings"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	hash, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash = %q, want argon2id encoding", hash)
	}
	if !hasher.Verify(hash, "secret123") {
		t.Error("Verify rejected the correct password")
	}
	if hasher.Verify(hash, "wrong-password") {
		t.Error("Verify accepted a wrong password")
	}
}

func TestPasswordHashUsesUniqueSalts(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	first, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password are identical")
	}
}

func TestPasswordVerifyRejectsMalformedHash(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher()

	for _, hash := range []string{"", "not-a-hash", "$argon2id$v=19$garbage"} {
		if hasher.Verify(hash, "secret123") {
			t.Errorf("Verify accepted malformed hash %q", hash)
		}
	}
}
