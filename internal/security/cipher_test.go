package security

import (
	"bytes"
	"testing"
)

func TestDeriveKeyIsDeterministicPerSaltAndSecret(t *testing.T) {
	c := NewCipher()
	salt := []byte("test-salt-1234567890123456")

	key := c.DeriveKey("test-secret", salt)
	if len(key) != defaultKeyLength {
		t.Errorf("expected key length %d, got %d", defaultKeyLength, len(key))
	}

	key2 := c.DeriveKey("test-secret", salt)
	if !bytes.Equal(key, key2) {
		t.Error("expected same key for same inputs")
	}

	key3 := c.DeriveKey("different-secret", salt)
	if bytes.Equal(key, key3) {
		t.Error("expected different key for different secret")
	}
}

func TestSealOpenRoundTrips(t *testing.T) {
	c := NewCipher()
	key := []byte("12345678901234567890123456789012")
	plaintext := []byte("converge across replicas")

	sealed, err := c.Seal(plaintext, key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Equal(sealed, plaintext) {
		t.Error("expected sealed value to differ from plaintext")
	}

	opened, err := c.Open(sealed, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("expected %q, got %q", plaintext, opened)
	}
}

func TestOpenRejectsTruncatedInput(t *testing.T) {
	c := NewCipher()
	key := []byte("12345678901234567890123456789012")

	if _, err := c.Open([]byte("short"), key); err == nil {
		t.Error("expected error for too-short sealed value")
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	c := NewCipher()
	key := []byte("12345678901234567890123456789012")

	sealed, err := c.Seal([]byte("original"), key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := c.Open(tampered, key); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestGenerateSaltProducesDistinctValues(t *testing.T) {
	c := NewCipher()

	salt1, err := c.GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltLength {
		t.Errorf("expected salt length %d, got %d", saltLength, len(salt1))
	}

	salt2, err := c.GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("expected different salts on multiple calls")
	}
}

func TestSealRejectsInvalidKeyLength(t *testing.T) {
	c := NewCipher()
	if _, err := c.Seal([]byte("data"), []byte("short-key")); err == nil {
		t.Error("expected error for invalid key length")
	}
}
