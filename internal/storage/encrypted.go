package storage

import (
	"encoding/base64"
	"fmt"

	"github.com/replimesh/replimesh/internal/security"
)

// EncryptedStorage wraps an inner Storage and AES-GCM-encrypts every
// value before it reaches the delegate. It is a decorator over the
// Storage contract, not a new backend: keys and the iteration contract
// are untouched; only the stored value bytes are transformed.
type EncryptedStorage struct {
	inner  Storage
	cipher *security.Cipher
	key    []byte
}

// NewEncryptedStorage wraps inner, deriving an AES-GCM key from secret and
// salt via PBKDF2.
func NewEncryptedStorage(inner Storage, secret string, salt []byte) *EncryptedStorage {
	cipher := security.NewCipher()
	return &EncryptedStorage{inner: inner, cipher: cipher, key: cipher.DeriveKey(secret, salt)}
}

func (e *EncryptedStorage) Set(key string, value []byte) error {
	sealed, err := e.cipher.Seal(value, e.key)
	if err != nil {
		return fmt.Errorf("storage: encrypt value for %q: %w", key, err)
	}
	return e.inner.Set(key, []byte(base64.StdEncoding.EncodeToString(sealed)))
}

func (e *EncryptedStorage) Get(key string) ([]byte, error) {
	stored, err := e.inner.Get(key)
	if err != nil {
		return nil, err
	}
	sealed, err := base64.StdEncoding.DecodeString(string(stored))
	if err != nil {
		return nil, fmt.Errorf("storage: decode sealed value for %q: %w", key, err)
	}
	plaintext, err := e.cipher.Open(sealed, e.key)
	if err != nil {
		return nil, fmt.Errorf("storage: decrypt value for %q: %w", key, err)
	}
	return plaintext, nil
}

func (e *EncryptedStorage) Remove(key string) error        { return e.inner.Remove(key) }
func (e *EncryptedStorage) Keys() ([]string, error)         { return e.inner.Keys() }
func (e *EncryptedStorage) Contains(key string) (bool, error) { return e.inner.Contains(key) }
func (e *EncryptedStorage) Len() (int, error)               { return e.inner.Len() }
func (e *EncryptedStorage) IsEmpty() (bool, error)          { return e.inner.IsEmpty() }
func (e *EncryptedStorage) Clear() error                    { return e.inner.Clear() }
