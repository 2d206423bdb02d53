package security

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")

	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("hash must not echo the plaintext")
	}

	if err := CheckPassword(hash, "hunter22"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}

	if err := CheckPassword(hash, "hunter23"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestNewResetToken(t *testing.T) {
	plain, digest, err := NewResetToken()

	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if plain == "" || digest == "" {
		t.Fatal("token and digest must be non-empty")
	}
	if plain == digest {
		t.Fatal("digest must differ from the plaintext")
	}
	if got := HashToken(plain); got != digest {
		t.Fatalf("digest mismatch: got %q, want %q", got, digest)
	}

	plain2, _, err := NewResetToken()

	if err != nil {
		t.Fatalf("second token: %v", err)
	}
	if plain == plain2 {
		t.Fatal("tokens must be unique")
	}
}

func TestTokenHashEqual(t *testing.T) {
	a := HashToken("a")

	if !TokenHashEqual(a, HashToken("a")) {
		t.Fatal("equal digests reported unequal")
	}
	if TokenHashEqual(a, HashToken("b")) {
		t.Fatal("different digests reported equal")
	}
}
