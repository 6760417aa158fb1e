// Package pqc implements an optional delta-payload encryption hook: a
// post-quantum Kyber-768 KEM whose per-payload shared secret keys
// AES-256-GCM, used to encrypt deltas in transit.
package pqc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber768"
)

// EncryptionHook is the pluggable delta-payload cipher the sync engine
// calls before sending a Delta and after receiving one. A nil hook is a
// pass-through.
type EncryptionHook interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// KyberHook implements EncryptionHook. Each Encrypt performs a fresh
// Kyber-768 encapsulation to the hook's public key, uses the shared
// secret as the AES-256-GCM key, and prefixes the KEM ciphertext to the
// sealed payload.
type KyberHook struct {
	scheme     kem.Scheme
	publicKey  kem.PublicKey
	privateKey kem.PrivateKey
}

// NewKyberHook generates a fresh Kyber-768 key pair and returns a hook
// that encrypts to its own public key — appropriate for a single replica
// encrypting its own at-rest/in-flight deltas.
func NewKyberHook() (*KyberHook, error) {
	scheme := kyber768.Scheme()
	publicKey, privateKey, err := scheme.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("pqc: generate kyber key pair: %w", err)
	}
	return &KyberHook{scheme: scheme, publicKey: publicKey, privateKey: privateKey}, nil
}

// MarshalPublicKey returns the hook's public key in wire form, so a peer
// wanting to encrypt deltas addressed to this replica can obtain it out of
// band.
func (h *KyberHook) MarshalPublicKey() ([]byte, error) {
	return h.publicKey.MarshalBinary()
}

func (h *KyberHook) Encrypt(plaintext []byte) ([]byte, error) {
	ciphertext, sharedSecret, err := h.scheme.Encapsulate(h.publicKey)
	if err != nil {
		return nil, fmt.Errorf("pqc: encapsulate: %w", err)
	}

	encrypted, err := aesEncrypt(sharedSecret, plaintext)
	if err != nil {
		return nil, fmt.Errorf("pqc: aes encrypt: %w", err)
	}

	result := make([]byte, h.scheme.CiphertextSize()+len(encrypted))
	copy(result[:h.scheme.CiphertextSize()], ciphertext)
	copy(result[h.scheme.CiphertextSize():], encrypted)
	return result, nil
}

func (h *KyberHook) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < h.scheme.CiphertextSize() {
		return nil, errors.New("pqc: ciphertext shorter than kyber ciphertext size")
	}

	kyberCiphertext := ciphertext[:h.scheme.CiphertextSize()]
	encrypted := ciphertext[h.scheme.CiphertextSize():]

	sharedSecret, err := h.scheme.Decapsulate(h.privateKey, kyberCiphertext)
	if err != nil {
		return nil, fmt.Errorf("pqc: decapsulate: %w", err)
	}

	plaintext, err := aesDecrypt(sharedSecret, encrypted)
	if err != nil {
		return nil, fmt.Errorf("pqc: aes decrypt: %w", err)
	}
	return plaintext, nil
}

func aesEncrypt(key, plaintext []byte) ([]byte, error) {
	aesKey := normalizeKey(key)

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func aesDecrypt(key, ciphertext []byte) ([]byte, error) {
	aesKey := normalizeKey(key)

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("pqc: ciphertext shorter than nonce")
	}
	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, body, nil)
}

func normalizeKey(key []byte) []byte {
	if len(key) == 32 {
		return key
	}
	hash := sha256.Sum256(key)
	return hash[:]
}
