package auth

import (
	"crypto/rand"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

func TestPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("monsoon-season-2026")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash = %q, want $argon2id$ prefix", hash)
	}

	ok, err := VerifyPassword("monsoon-season-2026", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("correct password should verify")
	}

	ok, err = VerifyPassword("monsoon-season-2025", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("wrong password should not verify")
	}
}

func TestPassword_SaltVaries(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if first == second {
		t.Error("two hashes of one password should differ by salt")
	}
}

// Hashes record their own cost parameters, so credentials created under
// older (cheaper) settings keep verifying after the defaults change.
func TestPassword_LegacyCostsStillVerify(t *testing.T) {
	legacy := hashParams{memory: 8 * 1024, time: 1, threads: 1, saltLen: 16, keyLen: 32}

	salt := make([]byte, legacy.saltLen)
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("generating salt: %v", err)
	}
	key := argon2.IDKey([]byte("old-account"), salt, legacy.time, legacy.memory, legacy.threads, legacy.keyLen)
	encoded := encodeHash(legacy, salt, key)

	ok, err := VerifyPassword("old-account", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("hash with non-default costs should still verify")
	}
}

func TestPassword_MalformedHashes(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"plaintext", "hunter2"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=1$c2FsdA$a2V5"},
		{"wrong version", "$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$a2V5"},
		{"missing key part", "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA"},
		{"bad cost string", "$argon2id$v=19$m=lots$c2FsdA$a2V5"},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=3,p=1$!!!$a2V5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := VerifyPassword("password", tt.encoded); !errors.Is(err, ErrMalformedHash) {
				t.Errorf("VerifyPassword() error = %v, want ErrMalformedHash", err)
			}
		})
	}
}
