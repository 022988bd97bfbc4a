package crypto

import "testing"

func TestPinHashing(t *testing.T) {
	hash, err := HashPin("1234")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if hash == "1234" {
		t.Fatalf("expected hash, got raw pin")
	}
	if err := CheckPin(hash, "1234"); err != nil {
		t.Fatalf("expected pin to match")
	}
	if err := CheckPin(hash, "4321"); err == nil {
		t.Fatalf("expected pin mismatch")
	}
}

func TestResetTokenHashing(t *testing.T) {
	token, err := NewResetToken()
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	other, err := NewResetToken()
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if token == other {
		t.Fatalf("expected distinct tokens")
	}
	if HashToken(token) != HashToken(token) {
		t.Fatalf("expected stable hash")
	}
	if HashToken(token) == HashToken(other) {
		t.Fatalf("expected distinct hashes")
	}
}
