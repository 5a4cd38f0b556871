package security

import (
	"testing"

	"github.com/hallmail/hallmail/internal/config"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(key string) EncryptionService {
	cfg := config.GetDefaultConfig()
	cfg.Mailbox.EncryptionKey = key
	return NewEncryptionService(cfg, logger.NewNoopLogger())
}

func TestEncryptDecrypt(t *testing.T) {
	svc := newService("a-key-that-is-not-32-bytes")

	encrypted, err := svc.Encrypt("imap-password")
	require.NoError(t, err)
	assert.NotEqual(t, "imap-password", encrypted)

	decrypted, err := svc.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "imap-password", decrypted)

	again, err := svc.Encrypt("imap-password")
	require.NoError(t, err)
	assert.NotEqual(t, encrypted, again, "nonce must differ between calls")
}

func TestDecryptWithOtherKeyFails(t *testing.T) {
	encrypted, err := newService("key-one").Encrypt("secret")
	require.NoError(t, err)

	_, err = newService("key-two").Decrypt(encrypted)
	assert.Error(t, err)
}

func TestMissingKey(t *testing.T) {
	svc := newService("")

	_, err := svc.Encrypt("secret")
	require.Error(t, err)
	assert.True(t, ierr.IsConfiguration(err))

	empty, err := svc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHash(t *testing.T) {
	svc := newService("k")
	assert.Equal(t, svc.Hash("value"), svc.Hash("value"))
	assert.Len(t, svc.Hash("value"), 64)
}
