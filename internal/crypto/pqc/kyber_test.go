package pqc

import "testing"

func TestKyberHookEncryptDecryptRoundTrips(t *testing.T) {
	hook, err := NewKyberHook()
	if err != nil {
		t.Fatalf("new hook: %v", err)
	}

	plaintext := []byte("delta payload bytes")
	ciphertext, err := hook.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if string(ciphertext) == string(plaintext) {
		t.Fatal("expected ciphertext to differ from plaintext")
	}

	decrypted, err := hook.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Fatalf("expected %q, got %q", plaintext, decrypted)
	}
}

func TestKyberHookDecryptRejectsShortCiphertext(t *testing.T) {
	hook, err := NewKyberHook()
	if err != nil {
		t.Fatalf("new hook: %v", err)
	}
	if _, err := hook.Decrypt([]byte("too short")); err == nil {
		t.Fatal("expected error for undersized ciphertext")
	}
}

func TestKyberHookMarshalPublicKeyIsNonEmpty(t *testing.T) {
	hook, err := NewKyberHook()
	if err != nil {
		t.Fatalf("new hook: %v", err)
	}
	data, err := hook.MarshalPublicKey()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty marshaled public key")
	}
}

func TestTwoHooksDoNotShareKeys(t *testing.T) {
	a, err := NewKyberHook()
	if err != nil {
		t.Fatalf("new hook a: %v", err)
	}
	b, err := NewKyberHook()
	if err != nil {
		t.Fatalf("new hook b: %v", err)
	}

	ciphertext, err := a.Encrypt([]byte("for a only"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := b.Decrypt(ciphertext); err == nil {
		t.Fatal("expected decrypt under a different key pair to fail")
	}
}
