package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !h.Verify("correct horse battery", hash) {
		t.Error("Verify rejected the right password")
	}
	if h.Verify("wrong horse battery", hash) {
		t.Error("Verify accepted a wrong password")
	}

	again, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if again == hash {
		t.Error("hashes of the same password should differ by salt")
	}
}

func TestBcryptHasherCostFallback(t *testing.T) {
	if got := NewBcryptHasher(0).Cost; got != DefaultBcryptCost {
		t.Errorf("Cost = %d, want %d", got, DefaultBcryptCost)
	}
	if got := NewBcryptHasher(bcrypt.MaxCost + 1).Cost; got != DefaultBcryptCost {
		t.Errorf("Cost = %d, want %d", got, DefaultBcryptCost)
	}
}

func TestBcryptHasherRejectsOverlongPassword(t *testing.T) {
	if _, err := NewBcryptHasher(bcrypt.MinCost).Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("expected error for a password longer than 72 bytes")
	}
}
