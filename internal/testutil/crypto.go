package testutil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
	cryptoService "github.com/antistereov/singularity-core-sub003/internal/crypto/service"
	secretDomain "github.com/antistereov/singularity-core-sub003/internal/secret/domain"
	secretService "github.com/antistereov/singularity-core-sub003/internal/secret/service"
	secretStore "github.com/antistereov/singularity-core-sub003/internal/secret/store"
)

// NewSecret generates a random secret sized for alg.
func NewSecret(t *testing.T, key string, alg cryptoDomain.Algorithm) *secretDomain.Secret {
	t.Helper()

	material := make([]byte, alg.KeySize())
	_, err := rand.Read(material)
	require.NoError(t, err)

	return &secretDomain.Secret{
		Key:       key,
		Value:     base64.StdEncoding.EncodeToString(material),
		Algorithm: alg,
	}
}

// Keys bundles secret chains with the services built on them.
//
// Encryption secrets: "enc-a" (aes-gcm, current), "enc-b" (aes-gcm), "enc-legacy" (aes-ecb).
// Hash secrets: "hash-a" (current), "hash-b".
type Keys struct {
	Encryption *secretDomain.Chain
	Hash       *secretDomain.Chain
	Store      *secretStore.ChainStore

	EncryptionService *CountingEncryptionService
	HashService       cryptoService.HashService
}

// NewKeys builds fresh random secrets and services for one test.
func NewKeys(t *testing.T) *Keys {
	t.Helper()

	encryption, err := secretDomain.NewChain(
		secretDomain.CategoryEncryption,
		"enc-a",
		NewSecret(t, "enc-a", cryptoDomain.AESGCM),
		NewSecret(t, "enc-b", cryptoDomain.AESGCM),
		NewSecret(t, "enc-legacy", cryptoDomain.AESECB),
	)
	require.NoError(t, err)

	hash, err := secretDomain.NewChain(
		secretDomain.CategoryHash,
		"hash-a",
		NewSecret(t, "hash-a", cryptoDomain.HMACSHA256),
		NewSecret(t, "hash-b", cryptoDomain.HMACSHA256),
	)
	require.NoError(t, err)

	store := secretStore.NewChainStore(encryption, hash)
	t.Cleanup(store.Close)

	return &Keys{
		Encryption: encryption,
		Hash:       hash,
		Store:      store,
		EncryptionService: &CountingEncryptionService{
			EncryptionService: cryptoService.NewEncryptionService(
				secretService.NewSecretService(secretDomain.CategoryEncryption, store),
				cryptoService.NewCipherManager(),
				4,
			),
		},
		HashService: cryptoService.NewHashService(
			secretService.NewSecretService(secretDomain.CategoryHash, store),
		),
	}
}

// CountingEncryptionService records how many envelopes were sealed and opened.
type CountingEncryptionService struct {
	cryptoService.EncryptionService
	seals atomic.Int64
	opens atomic.Int64
}

func (c *CountingEncryptionService) Seal(ctx context.Context, plaintext []byte) (cryptoDomain.Envelope, error) {
	c.seals.Add(1)
	return c.EncryptionService.Seal(ctx, plaintext)
}

func (c *CountingEncryptionService) Open(ctx context.Context, env cryptoDomain.Envelope) ([]byte, error) {
	c.opens.Add(1)
	return c.EncryptionService.Open(ctx, env)
}

// Seals returns the number of Seal calls.
func (c *CountingEncryptionService) Seals() int64 { return c.seals.Load() }

// Opens returns the number of Open calls.
func (c *CountingEncryptionService) Opens() int64 { return c.opens.Load() }

// Reset zeroes both counters.
func (c *CountingEncryptionService) Reset() {
	c.seals.Store(0)
	c.opens.Store(0)
}
