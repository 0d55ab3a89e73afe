// Package service provides the cipher primitives, the envelope Encryption Service and
// the searchable Hash Service.
package service

import (
	"context"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
)

// Cipher encrypts and decrypts raw bytes under one key.
//
// Randomized ciphers return a fresh nonce per call; deterministic ciphers return a
// nil nonce and report NonceSize 0.
type Cipher interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)

	// NonceSize is the length of the nonce stored in front of the ciphertext.
	NonceSize() int
}

// CipherManager creates Cipher instances for a key and algorithm.
type CipherManager interface {
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (Cipher, error)
}

// EncryptionService seals raw payloads into envelopes under the current encryption
// secret and opens envelopes with whichever secret they reference.
//
// Use the generic Wrap and Unwrap helpers for typed payloads.
type EncryptionService interface {
	Seal(ctx context.Context, plaintext []byte) (cryptoDomain.Envelope, error)
	Open(ctx context.Context, env cryptoDomain.Envelope) ([]byte, error)
	// CurrentSecretKey returns the identifier new envelopes are written under.
	CurrentSecretKey(ctx context.Context) (string, error)
}

// HashService computes deterministic keyed hashes for searchable fields.
type HashService interface {
	// HashSearchableHmacSha256 hashes plaintext with the current hash secret.
	HashSearchableHmacSha256(ctx context.Context, plaintext string) (SearchableHash, error)
	// CurrentHasher snapshots the current hash secret so several fields of one
	// document are hashed under the same key.
	CurrentHasher(ctx context.Context) (*Hasher, error)
	// CurrentSecretKey returns the identifier of the current hash secret.
	CurrentSecretKey(ctx context.Context) (string, error)
	// HashUnderAllSecrets hashes plaintext with every hash secret, the current one
	// first. Lookups match on any of the values so that documents not yet moved to
	// the current hash secret are still found.
	HashUnderAllSecrets(ctx context.Context, plaintext string) ([]SearchableHash, error)
}
