package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("orange-cat-42", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}
	if hash == "orange-cat-42" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if !CheckPassword(hash, "orange-cat-42") {
		t.Error("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("pw", 99)
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("failed to read cost: %v", err)
	}
	if cost != DefaultBcryptCost {
		t.Errorf("expected cost %d for out-of-range input, got %d", DefaultBcryptCost, cost)
	}
}
