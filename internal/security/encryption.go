package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"

	"github.com/hallmail/hallmail/internal/config"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
)

// EncryptionService defines the interface for encryption and hashing operations
type EncryptionService interface {
	// Encrypt encrypts plaintext using AES-GCM
	Encrypt(plaintext string) (string, error)

	// Decrypt decrypts ciphertext using AES-GCM
	Decrypt(ciphertext string) (string, error)

	// Hash creates a one-way hash of the input value using SHA-256
	Hash(value string) string
}

type aesEncryptionService struct {
	key    []byte
	logger *logger.Logger
}

// NewEncryptionService creates the service protecting mailbox credentials.
// Without a key every Encrypt/Decrypt call fails with a configuration error.
func NewEncryptionService(cfg *config.Configuration, logger *logger.Logger) EncryptionService {
	if cfg.Mailbox.EncryptionKey == "" {
		logger.Warnw("mailbox encryption key not configured, IMAP connections will be refused")
		return &aesEncryptionService{logger: logger}
	}

	key := []byte(cfg.Mailbox.EncryptionKey)

	// AES-256 needs exactly 32 bytes
	if len(key) != 32 {
		sum := sha256.Sum256(key)
		key = sum[:]
	}

	return &aesEncryptionService{
		key:    key,
		logger: logger,
	}
}

func (s *aesEncryptionService) gcm() (cipher.AEAD, error) {
	if len(s.key) == 0 {
		return nil, ierr.NewError("encryption key not configured").
			WithHint("Mailbox connections are not configured, please contact support").
			WithReportableDetails(map[string]any{"missing": []string{"mailbox.encryption_key"}}).
			Mark(ierr.ErrConfiguration)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create cipher").
			Mark(ierr.ErrSystem)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create cipher").
			Mark(ierr.ErrSystem)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext using AES-GCM and returns base64-encoded ciphertext
func (s *aesEncryptionService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to generate nonce").
			Mark(ierr.ErrSystem)
	}

	// nonce is stored as the ciphertext prefix
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decrypts base64-encoded ciphertext using AES-GCM
func (s *aesEncryptionService) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Stored credential is corrupted").
			Mark(ierr.ErrSystem)
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(decoded) < nonceSize {
		return "", ierr.NewError("ciphertext too short").
			WithHint("Stored credential is corrupted").
			Mark(ierr.ErrSystem)
	}

	plaintext, err := gcm.Open(nil, decoded[:nonceSize], decoded[nonceSize:], nil)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Stored credential could not be decrypted").
			Mark(ierr.ErrSystem)
	}
	return string(plaintext), nil
}

// Hash creates a one-way hash of the input value using SHA-256
func (s *aesEncryptionService) Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
