package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
	secretDomain "github.com/antistereov/singularity-core-sub003/internal/secret/domain"
	secretService "github.com/antistereov/singularity-core-sub003/internal/secret/service"
)

// SearchableHash is a keyed hash stored next to an envelope for equality lookups.
type SearchableHash struct {
	Value     string // Hex-encoded HMAC-SHA256
	SecretKey string // Hash secret the value was computed with
}

// Hasher computes HMAC-SHA256 under one fixed hash secret.
type Hasher struct {
	secretKey string
	key       []byte
}

// SecretKey returns the identifier of the hash secret.
func (h *Hasher) SecretKey() string {
	return h.secretKey
}

// Hash returns the hex HMAC-SHA256 of plaintext. It is deterministic and one-way.
func (h *Hasher) Hash(plaintext string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// Close zeroes the key material.
func (h *Hasher) Close() {
	cryptoDomain.Zero(h.key)
}

type hmacHashService struct {
	secrets secretService.SecretService
}

// NewHashService creates a HashService bound to the hash secrets.
func NewHashService(secrets secretService.SecretService) HashService {
	return &hmacHashService{secrets: secrets}
}

func (h *hmacHashService) CurrentSecretKey(ctx context.Context) (string, error) {
	secret, err := h.secrets.CurrentSecret(ctx)
	if err != nil {
		return "", cryptoDomain.NewEncryptionError(cryptoDomain.ErrSecret, "current", err)
	}
	return secret.Key, nil
}

func (h *hmacHashService) CurrentHasher(ctx context.Context) (*Hasher, error) {
	secret, err := h.secrets.CurrentSecret(ctx)
	if err != nil {
		return nil, cryptoDomain.NewEncryptionError(cryptoDomain.ErrSecret, "hash", err)
	}
	return newHasher(secret)
}

func (h *hmacHashService) HashUnderAllSecrets(ctx context.Context, plaintext string) ([]SearchableHash, error) {
	secrets, err := h.secrets.Secrets(ctx)
	if err != nil {
		return nil, cryptoDomain.NewEncryptionError(cryptoDomain.ErrSecret, "hash", err)
	}

	hashes := make([]SearchableHash, 0, len(secrets))
	for _, secret := range secrets {
		hasher, err := newHasher(secret)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, SearchableHash{Value: hasher.Hash(plaintext), SecretKey: hasher.SecretKey()})
		hasher.Close()
	}
	return hashes, nil
}

func newHasher(secret *secretDomain.Secret) (*Hasher, error) {
	if secret.Algorithm != cryptoDomain.HMACSHA256 {
		return nil, cryptoDomain.NewEncryptionError(
			cryptoDomain.ErrCipher,
			"hash",
			cryptoDomain.ErrUnsupportedAlgorithm,
		)
	}

	key, err := secret.KeyMaterial()
	if err != nil {
		return nil, cryptoDomain.NewEncryptionError(cryptoDomain.ErrCipher, "hash", err)
	}
	return &Hasher{secretKey: secret.Key, key: key}, nil
}

func (h *hmacHashService) HashSearchableHmacSha256(ctx context.Context, plaintext string) (SearchableHash, error) {
	hasher, err := h.CurrentHasher(ctx)
	if err != nil {
		return SearchableHash{}, err
	}
	defer hasher.Close()

	return SearchableHash{Value: hasher.Hash(plaintext), SecretKey: hasher.SecretKey()}, nil
}
