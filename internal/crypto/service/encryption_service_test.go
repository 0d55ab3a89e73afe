package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
	secretDomain "github.com/antistereov/singularity-core-sub003/internal/secret/domain"
	secretService "github.com/antistereov/singularity-core-sub003/internal/secret/service"
	secretStore "github.com/antistereov/singularity-core-sub003/internal/secret/store"
)

type profile struct {
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Tags  map[string]string `json:"tags,omitempty"`
}

func newSecret(t *testing.T, key string, alg cryptoDomain.Algorithm) *secretDomain.Secret {
	t.Helper()
	return &secretDomain.Secret{
		Key:       key,
		Value:     base64.StdEncoding.EncodeToString(randomKey(t, alg.KeySize())),
		Algorithm: alg,
	}
}

func newChain(
	t *testing.T,
	category secretDomain.Category,
	activeID string,
	secrets ...*secretDomain.Secret,
) *secretDomain.Chain {
	t.Helper()
	chain, err := secretDomain.NewChain(category, activeID, secrets...)
	require.NoError(t, err)
	return chain
}

func newEncryptionService(t *testing.T, chain *secretDomain.Chain) EncryptionService {
	t.Helper()
	store := secretStore.NewChainStore(chain)
	return NewEncryptionService(
		secretService.NewSecretService(secretDomain.CategoryEncryption, store),
		NewCipherManager(),
		2,
	)
}

func TestEncryptionService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	value := profile{Name: "Jane", Email: "jane@example.com", Tags: map[string]string{"b": "2", "a": "1"}}

	for _, alg := range []cryptoDomain.Algorithm{
		cryptoDomain.AESGCM,
		cryptoDomain.ChaCha20,
		cryptoDomain.AESSIV,
		cryptoDomain.AESECB,
	} {
		t.Run(string(alg), func(t *testing.T) {
			svc := newEncryptionService(t, newChain(
				t,
				secretDomain.CategoryEncryption,
				"enc-1",
				newSecret(t, "enc-1", alg),
			))

			enc, err := Wrap(ctx, svc, value)
			require.NoError(t, err)
			assert.Equal(t, "enc-1", enc.SecretKey)
			assert.NotContains(t, enc.Ciphertext, "jane@example.com")

			raw, err := base64.StdEncoding.DecodeString(enc.Ciphertext)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "jane@example.com")

			decrypted, err := Unwrap(ctx, svc, enc)
			require.NoError(t, err)
			assert.Equal(t, value, decrypted)

			again, err := Wrap(ctx, svc, value)
			require.NoError(t, err)
			if alg.Deterministic() {
				assert.Equal(t, enc.Ciphertext, again.Ciphertext)
			} else {
				assert.NotEqual(t, enc.Ciphertext, again.Ciphertext)
			}
		})
	}
}

func TestEncryptionService_CrossKeyDecrypt(t *testing.T) {
	ctx := context.Background()
	chain := newChain(
		t,
		secretDomain.CategoryEncryption,
		"enc-a",
		newSecret(t, "enc-a", cryptoDomain.AESECB),
		newSecret(t, "enc-b", cryptoDomain.AESGCM),
	)
	svc := newEncryptionService(t, chain)

	old, err := Wrap(ctx, svc, profile{Name: "Old"})
	require.NoError(t, err)
	assert.Equal(t, "enc-a", old.SecretKey)

	require.NoError(t, chain.SetActive("enc-b"))

	current, err := svc.CurrentSecretKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "enc-b", current)

	decrypted, err := Unwrap(ctx, svc, old)
	require.NoError(t, err)
	assert.Equal(t, "Old", decrypted.Name)

	fresh, err := Wrap(ctx, svc, decrypted)
	require.NoError(t, err)
	assert.Equal(t, "enc-b", fresh.SecretKey)
}

func TestEncryptionService_Errors(t *testing.T) {
	ctx := context.Background()
	chain := newChain(
		t,
		secretDomain.CategoryEncryption,
		"enc-1",
		newSecret(t, "enc-1", cryptoDomain.AESGCM),
		newSecret(t, "enc-2", cryptoDomain.AESGCM),
	)
	svc := newEncryptionService(t, chain)

	enc, err := Wrap(ctx, svc, profile{Name: "Jane"})
	require.NoError(t, err)

	t.Run("unknown secret", func(t *testing.T) {
		_, err := Unwrap(ctx, svc, cryptoDomain.Encrypted[profile]{SecretKey: "enc-9", Ciphertext: enc.Ciphertext})
		assert.ErrorIs(t, err, cryptoDomain.ErrSecret)
		assert.ErrorIs(t, err, secretDomain.ErrSecretNotFound)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := Unwrap(ctx, svc, cryptoDomain.Encrypted[profile]{SecretKey: "enc-1", Ciphertext: "%%%"})
		assert.ErrorIs(t, err, cryptoDomain.ErrEncoding)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := Unwrap(ctx, svc, cryptoDomain.Encrypted[profile]{SecretKey: "enc-2", Ciphertext: enc.Ciphertext})
		assert.ErrorIs(t, err, cryptoDomain.ErrCipher)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		_, err := Unwrap(ctx, svc, cryptoDomain.Encrypted[profile]{
			SecretKey:  "enc-1",
			Ciphertext: base64.StdEncoding.EncodeToString([]byte("short")),
		})
		assert.ErrorIs(t, err, cryptoDomain.ErrCipher)
	})

	t.Run("payload does not match type", func(t *testing.T) {
		_, err := Unwrap(ctx, svc, cryptoDomain.Encrypted[[]int]{SecretKey: enc.SecretKey, Ciphertext: enc.Ciphertext})
		assert.ErrorIs(t, err, cryptoDomain.ErrObjectMapping)
	})

	t.Run("unmarshalable value", func(t *testing.T) {
		_, err := Wrap(ctx, svc, map[string]any{"ch": make(chan int)})
		assert.ErrorIs(t, err, cryptoDomain.ErrObjectMapping)
	})

	t.Run("messages hide secret material", func(t *testing.T) {
		_, err := Unwrap(ctx, svc, cryptoDomain.Encrypted[profile]{SecretKey: "enc-2", Ciphertext: enc.Ciphertext})
		require.Error(t, err)
		secret, _ := chain.Get("enc-2")
		assert.False(t, strings.Contains(err.Error(), secret.Value))
		assert.False(t, strings.Contains(err.Error(), enc.Ciphertext))
	})
}

func TestEncryptionService_NoCurrentSecret(t *testing.T) {
	ctx := context.Background()
	chain := newChain(t, secretDomain.CategoryEncryption, "enc-1", newSecret(t, "enc-1", cryptoDomain.AESGCM))
	svc := newEncryptionService(t, chain)
	chain.Close()

	_, err := Wrap(ctx, svc, profile{Name: "Jane"})
	assert.ErrorIs(t, err, cryptoDomain.ErrSecret)
	assert.ErrorIs(t, err, secretDomain.ErrSecretUnavailable)
}

func TestEncryptionService_CancelledContext(t *testing.T) {
	chain := newChain(t, secretDomain.CategoryEncryption, "enc-1", newSecret(t, "enc-1", cryptoDomain.AESGCM))
	svc := NewEncryptionService(
		secretService.NewSecretService(secretDomain.CategoryEncryption, secretStore.NewChainStore(chain)),
		NewCipherManager(),
		1,
	).(*encryptionService)

	require.NoError(t, svc.pool.Acquire(context.Background(), 1))
	defer svc.pool.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Seal(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
