package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/semaphore"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
	secretService "github.com/antistereov/singularity-core-sub003/internal/secret/service"
)

// encryptionService implements EncryptionService.
//
// Cipher work goes through a weighted semaphore so a long rotation sweep cannot
// occupy more than poolSize CPU slots at once; callers waiting for a slot honor
// their context.
type encryptionService struct {
	secrets secretService.SecretService
	ciphers CipherManager
	pool    *semaphore.Weighted
}

// NewEncryptionService creates an EncryptionService bound to the encryption secrets.
// poolSize bounds concurrent cipher operations; values below 1 are treated as 1.
func NewEncryptionService(
	secrets secretService.SecretService,
	ciphers CipherManager,
	poolSize int64,
) EncryptionService {
	if poolSize < 1 {
		poolSize = 1
	}
	return &encryptionService{
		secrets: secrets,
		ciphers: ciphers,
		pool:    semaphore.NewWeighted(poolSize),
	}
}

// CurrentSecretKey returns the identifier of the current encryption secret.
func (s *encryptionService) CurrentSecretKey(ctx context.Context) (string, error) {
	secret, err := s.secrets.CurrentSecret(ctx)
	if err != nil {
		return "", cryptoDomain.NewEncryptionError(cryptoDomain.ErrSecret, "current", err)
	}
	return secret.Key, nil
}

// Seal encrypts plaintext with the current secret. The secret key is bound as AAD,
// so an envelope cannot be relabeled to another secret.
func (s *encryptionService) Seal(ctx context.Context, plaintext []byte) (cryptoDomain.Envelope, error) {
	secret, err := s.secrets.CurrentSecret(ctx)
	if err != nil {
		return cryptoDomain.Envelope{}, cryptoDomain.NewEncryptionError(cryptoDomain.ErrSecret, "seal", err)
	}

	if err := s.pool.Acquire(ctx, 1); err != nil {
		return cryptoDomain.Envelope{}, err
	}
	defer s.pool.Release(1)

	key, err := secret.KeyMaterial()
	if err != nil {
		return cryptoDomain.Envelope{}, cryptoDomain.NewEncryptionError(cryptoDomain.ErrCipher, "seal", err)
	}
	defer cryptoDomain.Zero(key)

	cipher, err := s.ciphers.CreateCipher(key, secret.Algorithm)
	if err != nil {
		return cryptoDomain.Envelope{}, cryptoDomain.NewEncryptionError(cryptoDomain.ErrCipher, "seal", err)
	}

	ciphertext, nonce, err := cipher.Encrypt(plaintext, []byte(secret.Key))
	if err != nil {
		return cryptoDomain.Envelope{}, cryptoDomain.NewEncryptionError(cryptoDomain.ErrCipher, "seal", err)
	}

	framed := make([]byte, 0, len(nonce)+len(ciphertext))
	framed = append(framed, nonce...)
	framed = append(framed, ciphertext...)

	return cryptoDomain.Envelope{
		SecretKey:  secret.Key,
		Ciphertext: base64.StdEncoding.EncodeToString(framed),
	}, nil
}

// Open decrypts an envelope with the secret it references, which need not be current.
// A missing secret yields ErrSecret and is not recoverable by retrying.
func (s *encryptionService) Open(ctx context.Context, env cryptoDomain.Envelope) ([]byte, error) {
	secret, err := s.secrets.Secret(ctx, env.SecretKey)
	if err != nil {
		return nil, cryptoDomain.NewEncryptionError(cryptoDomain.ErrSecret, "open", err)
	}

	framed, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, cryptoDomain.NewEncryptionError(cryptoDomain.ErrEncoding, "open", err)
	}

	if err := s.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.pool.Release(1)

	key, err := secret.KeyMaterial()
	if err != nil {
		return nil, cryptoDomain.NewEncryptionError(cryptoDomain.ErrCipher, "open", err)
	}
	defer cryptoDomain.Zero(key)

	cipher, err := s.ciphers.CreateCipher(key, secret.Algorithm)
	if err != nil {
		return nil, cryptoDomain.NewEncryptionError(cryptoDomain.ErrCipher, "open", err)
	}

	nonceSize := cipher.NonceSize()
	if len(framed) < nonceSize {
		return nil, cryptoDomain.NewEncryptionError(
			cryptoDomain.ErrCipher,
			"open",
			cryptoDomain.ErrDecryptionFailed,
		)
	}

	plaintext, err := cipher.Decrypt(framed[nonceSize:], framed[:nonceSize], []byte(secret.Key))
	if err != nil {
		return nil, cryptoDomain.NewEncryptionError(
			cryptoDomain.ErrCipher,
			"open",
			fmt.Errorf("%w: %v", cryptoDomain.ErrDecryptionFailed, err),
		)
	}
	return plaintext, nil
}

// Wrap serializes value to canonical JSON and seals it under the current secret.
func Wrap[T any](ctx context.Context, s EncryptionService, value T) (cryptoDomain.Encrypted[T], error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return cryptoDomain.Encrypted[T]{}, cryptoDomain.NewEncryptionError(
			cryptoDomain.ErrObjectMapping,
			"wrap",
			err,
		)
	}
	defer cryptoDomain.Zero(plaintext)

	env, err := s.Seal(ctx, plaintext)
	if err != nil {
		return cryptoDomain.Encrypted[T]{}, err
	}
	return cryptoDomain.EncryptedFrom[T](env), nil
}

// Unwrap opens the envelope with the secret it references and deserializes into T.
func Unwrap[T any](ctx context.Context, s EncryptionService, enc cryptoDomain.Encrypted[T]) (T, error) {
	var value T

	plaintext, err := s.Open(ctx, enc.Envelope())
	if err != nil {
		return value, err
	}
	defer cryptoDomain.Zero(plaintext)

	if err := json.Unmarshal(plaintext, &value); err != nil {
		return value, cryptoDomain.NewEncryptionError(cryptoDomain.ErrObjectMapping, "unwrap", err)
	}
	return value, nil
}
