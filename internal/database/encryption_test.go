package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enableTestEncryption(t *testing.T) {
	t.Helper()
	t.Setenv("ROOMCAST_ENABLE_ENCRYPTION", "true")
	t.Setenv("ROOMCAST_ENCRYPTION_SECRET", "this-is-a-test-secret-at-least-32-chars")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enableTestEncryption(t)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	plaintext := "hello, room"
	ciphertext, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptProducesFreshNonces(t *testing.T) {
	enableTestEncryption(t)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	a, err := enc.Encrypt("same input")
	require.NoError(t, err)
	b, err := enc.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryptForLookupDeterministic(t *testing.T) {
	enableTestEncryption(t)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	a, err := enc.EncryptForLookup("6287000000001")
	require.NoError(t, err)
	b, err := enc.EncryptForLookup("6287000000001")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := enc.EncryptForLookup("6287000000002")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	// Lookup ciphertext still decrypts like any other.
	decrypted, err := enc.Decrypt(a)
	require.NoError(t, err)
	assert.Equal(t, "6287000000001", decrypted)
}

func TestEncryptionDisabledPassthrough(t *testing.T) {
	t.Setenv("ROOMCAST_ENABLE_ENCRYPTION", "false")

	enc, err := NewEncryptor()
	require.NoError(t, err)

	out, err := enc.EncryptIfEnabled("plain value")
	require.NoError(t, err)
	assert.Equal(t, "plain value", out)

	out, err = enc.DecryptIfEnabled("plain value")
	require.NoError(t, err)
	assert.Equal(t, "plain value", out)
}

func TestEncryptEmptyString(t *testing.T) {
	enableTestEncryption(t)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	out, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestNewEncryptorMissingSecret(t *testing.T) {
	t.Setenv("ROOMCAST_ENABLE_ENCRYPTION", "true")
	t.Setenv("ROOMCAST_ENCRYPTION_SECRET", "")

	_, err := NewEncryptor()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROOMCAST_ENCRYPTION_SECRET")
}

func TestNewEncryptorShortSecret(t *testing.T) {
	t.Setenv("ROOMCAST_ENABLE_ENCRYPTION", "true")
	t.Setenv("ROOMCAST_ENCRYPTION_SECRET", "short")

	_, err := NewEncryptor()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestDecryptGarbage(t *testing.T) {
	enableTestEncryption(t)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	_, err = enc.Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}
