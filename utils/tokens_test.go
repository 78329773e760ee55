package utils

import (
	"regexp"
	"testing"
)

func TestGenerateShortToken(t *testing.T) {
	token := GenerateShortToken(16)
	if len(token) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(token))
	}
	if !regexp.MustCompile(`^[0-9a-f]+$`).MatchString(token) {
		t.Fatalf("token is not lowercase hex: %q", token)
	}

	// Collisions across a small sample would mean something is badly broken
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok := GenerateShortToken(16)
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}

func TestGenerateInviteCode(t *testing.T) {
	code := GenerateInviteCode()
	if len(code) != 12 {
		t.Fatalf("expected 12 chars, got %d", len(code))
	}
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("session-token")
	b := HashToken("session-token")
	if a != b {
		t.Fatalf("hash is not deterministic")
	}
	if a == HashToken("other-token") {
		t.Fatalf("different tokens hashed equal")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}
