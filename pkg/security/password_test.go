package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/security"
)

func fastArgon() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password1", fastArgon())
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := security.VerifyPassword("very-secure-password1", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashPasswordSaltsEachHash(t *testing.T) {
	first, err := security.HashPassword("same-password1", fastArgon())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := security.HashPassword("same-password1", fastArgon())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$bcrypt$v=19$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=8,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$***$a2V5",
	} {
		if _, err := security.VerifyPassword("irrelevant1", encoded); err != security.ErrInvalidHash {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
	if _, err := security.HashPassword("", fastArgon()); err == nil {
		t.Fatal("expected empty password to be rejected")
	}
}

func TestNeedsRehash(t *testing.T) {
	cfg := fastArgon()
	hash, err := security.HashPassword("rotate-me-42", cfg)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if security.NeedsRehash(hash, cfg) {
		t.Fatal("hash produced with current costs must not need a rehash")
	}
	cfg.ArgonTime = 2
	if !security.NeedsRehash(hash, cfg) {
		t.Fatal("raising the iteration count must trigger a rehash")
	}
	if !security.NeedsRehash("garbage", cfg) {
		t.Fatal("unparseable hashes must be replaced")
	}
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password string
		valid    bool
	}{
		{"short1", false},
		{"lettersonly", false},
		{"12345678", false},
		{"goodpass1", true},
		{strings.Repeat("a1", 65), false},
		{"Correct-Horse-7", true},
	}
	for _, tc := range cases {
		err := security.ValidatePassword(tc.password)
		if tc.valid && err != nil {
			t.Fatalf("expected %q to be valid, got %v", tc.password, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("expected %q to be rejected", tc.password)
		}
	}
}
