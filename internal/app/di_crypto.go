package app

import (
	"context"
	"fmt"

	cryptoService "github.com/antistereov/singularity-core-sub003/internal/crypto/service"
	secretDomain "github.com/antistereov/singularity-core-sub003/internal/secret/domain"
	secretService "github.com/antistereov/singularity-core-sub003/internal/secret/service"
	secretStore "github.com/antistereov/singularity-core-sub003/internal/secret/store"
)

// Secrets returns the secret store holding the encryption and hash chains.
func (c *Container) Secrets() (*secretStore.ChainStore, error) {
	return c.secrets.get(c.initSecrets)
}

// EncryptionService returns the envelope encryption service.
func (c *Container) EncryptionService() (cryptoService.EncryptionService, error) {
	return c.encryptionService.get(c.initEncryptionService)
}

// HashService returns the searchable hash service.
func (c *Container) HashService() (cryptoService.HashService, error) {
	return c.hashService.get(c.initHashService)
}

func (c *Container) initSecrets() (*secretStore.ChainStore, error) {
	ctx := context.Background()

	var keeper secretDomain.KMSKeeper
	if c.config.SecretsKMSKeyURI != "" {
		k, err := secretStore.OpenKeeper(ctx, c.config.SecretsKMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open kms keeper: %w", err)
		}
		defer func() {
			_ = k.Close()
		}()
		keeper = k
	}

	encryption, err := secretDomain.LoadChain(
		ctx,
		secretDomain.CategoryEncryption,
		c.config.EncryptionSecrets,
		c.config.ActiveEncryptionSecretID,
		keeper,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption secrets: %w", err)
	}

	hash, err := secretDomain.LoadChain(
		ctx,
		secretDomain.CategoryHash,
		c.config.HashSecrets,
		c.config.ActiveHashSecretID,
		keeper,
	)
	if err != nil {
		encryption.Close()
		return nil, fmt.Errorf("failed to load hash secrets: %w", err)
	}

	c.Logger().Info("secrets loaded",
		"encryption_active_id", encryption.ActiveID(),
		"encryption_count", len(encryption.Keys()),
		"hash_active_id", hash.ActiveID(),
		"hash_count", len(hash.Keys()),
		"kms", keeper != nil,
	)

	return secretStore.NewChainStore(encryption, hash), nil
}

func (c *Container) initEncryptionService() (cryptoService.EncryptionService, error) {
	store, err := c.Secrets()
	if err != nil {
		return nil, err
	}
	return cryptoService.NewEncryptionService(
		secretService.NewSecretService(secretDomain.CategoryEncryption, store),
		cryptoService.NewCipherManager(),
		int64(c.config.CipherPoolSize),
	), nil
}

func (c *Container) initHashService() (cryptoService.HashService, error) {
	store, err := c.Secrets()
	if err != nil {
		return nil, err
	}
	return cryptoService.NewHashService(
		secretService.NewSecretService(secretDomain.CategoryHash, store),
	), nil
}
