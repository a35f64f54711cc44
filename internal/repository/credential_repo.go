package repository

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/internal/model"

	"gorm.io/gorm"
)

// credentialRepository resolves broker API keys for a user. Secrets are
// stored AES-256-GCM encrypted, base64(nonce || ciphertext); the key comes
// from configuration.
type credentialRepository struct {
	db  *gorm.DB
	key []byte
}

func NewCredentialRepository(cfg *config.Config, db *gorm.DB) (contract.CredentialResolver, error) {
	var key []byte
	if cfg.Security.EncryptionKey != "" {
		decoded, err := base64.StdEncoding.DecodeString(cfg.Security.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(decoded))
		}
		key = decoded
	}

	return &credentialRepository{
		db:  db,
		key: key,
	}, nil
}

// Resolve returns (nil, nil) when the user has no active credential, so the
// caller can treat an unconfigured broker as a soft condition.
func (r *credentialRepository) Resolve(ctx context.Context, userID uint) (*contract.BrokerKeys, error) {
	var cred model.BrokerCredential
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	secret, err := r.decrypt(cred.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("decrypt broker secret for user %d: %w", userID, err)
	}

	return &contract.BrokerKeys{
		APIKey:    cred.APIKey,
		APISecret: secret,
	}, nil
}

func (r *credentialRepository) decrypt(encoded string) (string, error) {
	if len(r.key) == 0 {
		return "", errors.New("no encryption key configured")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(raw) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
