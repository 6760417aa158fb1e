// Package security implements at-rest encryption for storage: a
// generic byte-slice cipher built on PBKDF2-SHA256 key derivation into
// AES-GCM.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	defaultIterations = 100000
	defaultKeyLength  = 32
	saltLength        = 16
)

// Cipher derives AES-GCM keys from a passphrase and salt, and seals/opens
// byte slices under them.
type Cipher struct {
	iterations int
	keyLength  int
}

// NewCipher returns a Cipher using the package's default derivation
// parameters.
func NewCipher() *Cipher {
	return &Cipher{iterations: defaultIterations, keyLength: defaultKeyLength}
}

// DeriveKey derives a symmetric key from secret and salt.
func (c *Cipher) DeriveKey(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, c.iterations, c.keyLength, sha256.New)
}

// GenerateSalt returns a fresh random salt suitable for DeriveKey.
func (c *Cipher) GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("security: generate salt: %w", err)
	}
	return salt, nil
}

// Seal encrypts plaintext under key, prefixing the nonce to the ciphertext.
func (c *Cipher) Seal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("security: generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value previously produced by Seal under key.
func (c *Cipher) Open(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("security: sealed value shorter than nonce")
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("security: open: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: new gcm: %w", err)
	}
	return gcm, nil
}
