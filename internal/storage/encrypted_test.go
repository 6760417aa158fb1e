package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptedStorageRoundTrips(t *testing.T) {
	inner := NewMemStorage()
	enc := NewEncryptedStorage(inner, "passphrase", []byte("0123456789abcdef"))

	require.NoError(t, enc.Set("secret", []byte("plaintext value")))

	got, err := enc.Get("secret")
	require.NoError(t, err)
	assert.Equal(t, []byte("plaintext value"), got)
}

func TestEncryptedStorageValueIsOpaqueToInnerStore(t *testing.T) {
	inner := NewMemStorage()
	enc := NewEncryptedStorage(inner, "passphrase", []byte("0123456789abcdef"))

	require.NoError(t, enc.Set("secret", []byte("plaintext value")))

	raw, err := inner.Get("secret")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plaintext value")
}

func TestEncryptedStorageWrongKeyFailsToOpen(t *testing.T) {
	inner := NewMemStorage()
	writer := NewEncryptedStorage(inner, "passphrase-one", []byte("0123456789abcdef"))
	require.NoError(t, writer.Set("secret", []byte("plaintext value")))

	reader := NewEncryptedStorage(inner, "passphrase-two", []byte("0123456789abcdef"))
	_, err := reader.Get("secret")
	assert.Error(t, err)
}

func TestEncryptedStoragePassesThroughKeyOperations(t *testing.T) {
	inner := NewMemStorage()
	enc := NewEncryptedStorage(inner, "passphrase", []byte("0123456789abcdef"))

	require.NoError(t, enc.Set("a", []byte("1")))
	require.NoError(t, enc.Set("b", []byte("2")))

	n, err := enc.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := enc.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)

	require.NoError(t, enc.Clear())
	empty, err := enc.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
}
