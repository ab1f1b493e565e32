package security

import (
	"bytes"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte("k"), 32)
}

func TestKeyring_RoundTrip(t *testing.T) {
	kr, err := NewKeyring(testKey())
	if err != nil {
		t.Fatalf("NewKeyring failed: %v", err)
	}

	secret := "gemini-api-secret-0123456789"
	sealed, err := kr.Seal(secret)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if sealed == secret {
		t.Fatal("ciphertext equals plaintext")
	}

	opened, err := kr.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != secret {
		t.Errorf("round trip = %q, want %q", opened, secret)
	}
}

func TestKeyring_RejectsBadKeyLength(t *testing.T) {
	if _, err := NewKeyring([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestKeyring_RejectsTamperedCiphertext(t *testing.T) {
	kr, _ := NewKeyring(testKey())
	sealed, err := kr.Seal("secret")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	tampered := "A" + sealed[1:]
	if tampered == sealed {
		tampered = "B" + sealed[1:]
	}
	if _, err := kr.Open(tampered); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}

func TestKeyring_WrongKeyFails(t *testing.T) {
	kr1, _ := NewKeyring(testKey())
	kr2, _ := NewKeyring(bytes.Repeat([]byte("x"), 32))

	sealed, err := kr1.Seal("secret")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := kr2.Open(sealed); err == nil {
		t.Fatal("expected error when opening with the wrong key")
	}
}
