package password

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashWithCost("s3cret-pass", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashWithCost() error = %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the plain password")
	}
	if !Verify("s3cret-pass", hash) {
		t.Error("Verify() = false for the right password")
	}
	if Verify("wrong-pass", hash) {
		t.Error("Verify() = true for the wrong password")
	}
}

func TestHash_Salted(t *testing.T) {
	a, _ := HashWithCost("same-password", bcrypt.MinCost)
	b, _ := HashWithCost("same-password", bcrypt.MinCost)
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"short", false},
		{"1234567", false},
		{"12345678", true},
		{"a much longer passphrase", true},
	}
	for _, tt := range tests {
		if got := ValidatePassword(tt.in); got != tt.want {
			t.Errorf("ValidatePassword(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
