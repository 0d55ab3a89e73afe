package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
)

// KMSKeeper unwraps secret values that are stored encrypted by a KMS.
// *gocloud.dev/secrets.Keeper satisfies it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// Chain holds every secret of one category with one of them designated current.
//
// Reads are safe for concurrent use. SetActive and Add exist for external key
// management; the encryption core only reads.
type Chain struct {
	category Category
	mu       sync.RWMutex
	activeID string
	keys     sync.Map
}

// NewChain builds a chain from already-validated secrets.
func NewChain(category Category, activeID string, secrets ...*Secret) (*Chain, error) {
	c := &Chain{category: category}
	for _, s := range secrets {
		if err := c.Add(s); err != nil {
			c.Close()
			return nil, err
		}
	}
	if err := c.SetActive(activeID); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Category returns the category of the chain.
func (c *Chain) Category() Category {
	return c.category
}

// ActiveID returns the identifier of the current secret.
func (c *Chain) ActiveID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeID
}

// Current returns the current secret.
func (c *Chain) Current() (*Secret, bool) {
	id := c.ActiveID()
	if id == "" {
		return nil, false
	}
	return c.Get(id)
}

// Get retrieves a secret by identifier.
func (c *Chain) Get(id string) (*Secret, bool) {
	if s, ok := c.keys.Load(id); ok {
		return s.(*Secret), true
	}
	return nil, false
}

// Add registers a secret. Identifiers are immutable once added.
func (c *Chain) Add(s *Secret) error {
	if !c.category.Allows(s.Algorithm) {
		return fmt.Errorf("%w: %s for %s", ErrAlgorithmNotAllowed, s.Algorithm, c.category)
	}
	if _, loaded := c.keys.LoadOrStore(s.Key, s); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateSecretID, s.Key)
	}
	return nil
}

// SetActive advances the current pointer. The secret must already be in the chain.
func (c *Chain) SetActive(id string) error {
	if _, ok := c.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrActiveSecretNotFound, id)
	}
	c.mu.Lock()
	c.activeID = id
	c.mu.Unlock()
	return nil
}

// Keys lists the identifiers currently in the chain.
func (c *Chain) Keys() []string {
	var keys []string
	c.keys.Range(func(key, _ any) bool {
		keys = append(keys, key.(string))
		return true
	})
	return keys
}

// Close clears every secret from the chain and resets the active pointer.
func (c *Chain) Close() {
	c.mu.Lock()
	c.activeID = ""
	c.mu.Unlock()
	c.keys.Clear()
}

// LoadChain parses a comma-separated list of secret entries.
//
// Entry format is "id:algorithm:base64key" or "id:base64key"; the short form uses
// the category's default algorithm. When keeper is not nil, each base64 value is the
// KMS ciphertext of the key and is decrypted before validation.
//
//	ENCRYPTION_SECRETS="enc-2024:aes-gcm:<base64>,enc-2025:aes-siv:<base64>"
//	ACTIVE_ENCRYPTION_SECRET_ID="enc-2025"
func LoadChain(
	ctx context.Context,
	category Category,
	raw, activeID string,
	keeper KMSKeeper,
) (*Chain, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: %s", ErrSecretsNotSet, category)
	}
	if activeID == "" {
		return nil, fmt.Errorf("%w: %s", ErrActiveSecretIDNotSet, category)
	}

	chain := &Chain{category: category}
	for part := range strings.SplitSeq(raw, ",") {
		secret, err := parseEntry(ctx, category, strings.TrimSpace(part), keeper)
		if err != nil {
			chain.Close()
			return nil, err
		}
		if err := chain.Add(secret); err != nil {
			chain.Close()
			return nil, err
		}
	}

	if err := chain.SetActive(activeID); err != nil {
		chain.Close()
		return nil, err
	}
	return chain, nil
}

func parseEntry(ctx context.Context, category Category, entry string, keeper KMSKeeper) (*Secret, error) {
	p := strings.Split(entry, ":")
	var id, encoded string
	alg := category.DefaultAlgorithm()
	switch len(p) {
	case 2:
		id, encoded = p[0], p[1]
	case 3:
		id, alg, encoded = p[0], cryptoDomain.Algorithm(p[1]), p[2]
	default:
		return nil, fmt.Errorf("%w: entry %d fields", ErrInvalidSecretsFormat, len(p))
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty secret id", ErrInvalidSecretsFormat)
	}
	if !category.Allows(alg) {
		return nil, fmt.Errorf("%w: %s for %s", ErrAlgorithmNotAllowed, alg, category)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w for %s", ErrInvalidSecretBase64, id)
	}

	if keeper != nil {
		unwrapped, err := keeper.Decrypt(ctx, key)
		cryptoDomain.Zero(key)
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap secret %s: %w", id, err)
		}
		key = unwrapped
	}
	defer cryptoDomain.Zero(key)

	if !alg.ValidKeySize(len(key)) {
		return nil, fmt.Errorf(
			"%w: secret %s (%s) got %d bytes",
			cryptoDomain.ErrInvalidKeySize,
			id,
			alg,
			len(key),
		)
	}

	return &Secret{
		Key:       id,
		Value:     base64.StdEncoding.EncodeToString(key),
		Algorithm: alg,
	}, nil
}
