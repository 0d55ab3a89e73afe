// Package domain defines versioned symmetric secrets and the chains that hold them.
//
// Secrets are grouped by category ("encryption", "hash"). Within a category many
// secrets coexist and exactly one is current. Older secrets stay resolvable by key
// until no stored envelope references them.
package domain

import (
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
)

// Category groups secrets by purpose.
type Category string

const (
	// CategoryEncryption holds secrets used to seal sensitive payloads.
	CategoryEncryption Category = "encryption"
	// CategoryHash holds secrets used for searchable keyed hashes.
	CategoryHash Category = "hash"
)

// ParseCategory converts a string to a known Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryEncryption, CategoryHash:
		return Category(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSecretCategory, s)
	}
}

// DefaultAlgorithm is used when a secret entry omits its algorithm.
func (c Category) DefaultAlgorithm() cryptoDomain.Algorithm {
	if c == CategoryHash {
		return cryptoDomain.HMACSHA256
	}
	return cryptoDomain.AESGCM
}

// Allows reports whether secrets of this category may declare alg.
func (c Category) Allows(alg cryptoDomain.Algorithm) bool {
	if c == CategoryHash {
		return alg == cryptoDomain.HMACSHA256
	}
	return alg.IsCipher()
}

// Secret is a symmetric key with its identifier and intended algorithm.
type Secret struct {
	Key       string                 // Identifier referenced by envelopes and hashes
	Value     string                 // Base64 (standard encoding) key material
	Algorithm cryptoDomain.Algorithm // Primitive the key material is meant for
}

// KeyMaterial decodes the secret value. Callers should zero the result after use.
func (s *Secret) KeyMaterial() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s.Value)
	if err != nil {
		return nil, fmt.Errorf("%w for %s", ErrInvalidSecretBase64, s.Key)
	}
	return key, nil
}

// String never prints key material.
func (s Secret) String() string {
	return fmt.Sprintf("Secret{Key: %s, Algorithm: %s}", s.Key, s.Algorithm)
}
