package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"

	"chatsync/internal/models"

	"golang.org/x/crypto/pbkdf2"
)

// encryptor encrypts message bodies at rest. Encryption is enabled by
// setting CHATSYNC_ENCRYPTION_SECRET; without it, bodies are stored as
// plaintext and Encrypt/Decrypt pass values through unchanged.
type encryptor struct {
	gcm cipher.AEAD
}

func newEncryptor() (*encryptor, error) {
	secret := os.Getenv("CHATSYNC_ENCRYPTION_SECRET")
	if secret == "" {
		return &encryptor{gcm: nil}, nil
	}

	salt := []byte("chatsync-body-v1")
	key := pbkdf2.Key([]byte(secret), salt, models.PBKDF2Iterations, models.KeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &encryptor{gcm: gcm}, nil
}

func (e *encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || e.gcm == nil {
		return plaintext, nil
	}

	nonce := make([]byte, models.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

func (e *encryptor) Decrypt(stored string) (string, error) {
	if stored == "" || e.gcm == nil {
		return stored, nil
	}

	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(raw) < models.NonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := e.gcm.Open(nil, raw[:models.NonceSize], raw[models.NonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}
