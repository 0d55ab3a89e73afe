// Package store provides secret store implementations backed by in-memory chains
// loaded from configuration, optionally unwrapped through a KMS keeper.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	secretDomain "github.com/antistereov/singularity-core-sub003/internal/secret/domain"
)

// ChainStore serves secrets from one Chain per category.
type ChainStore struct {
	mu     sync.RWMutex
	chains map[secretDomain.Category]*secretDomain.Chain
}

// NewChainStore creates a store over the given chains, keyed by their category.
func NewChainStore(chains ...*secretDomain.Chain) *ChainStore {
	s := &ChainStore{chains: make(map[secretDomain.Category]*secretDomain.Chain, len(chains))}
	for _, c := range chains {
		s.chains[c.Category()] = c
	}
	return s
}

// Chain returns the chain of a category, if registered.
func (s *ChainStore) Chain(category secretDomain.Category) (*secretDomain.Chain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[category]
	return c, ok
}

// Current returns the current secret of the category.
func (s *ChainStore) Current(_ context.Context, category secretDomain.Category) (*secretDomain.Secret, error) {
	chain, ok := s.Chain(category)
	if !ok {
		return nil, fmt.Errorf("%w: no chain for %s", secretDomain.ErrSecretUnavailable, category)
	}
	secret, ok := chain.Current()
	if !ok {
		return nil, fmt.Errorf("%w: no current secret for %s", secretDomain.ErrSecretUnavailable, category)
	}
	return secret, nil
}

// Get returns the secret with the given identifier.
func (s *ChainStore) Get(
	_ context.Context,
	category secretDomain.Category,
	key string,
) (*secretDomain.Secret, error) {
	chain, ok := s.Chain(category)
	if !ok {
		return nil, fmt.Errorf("%w: no chain for %s", secretDomain.ErrSecretUnavailable, category)
	}
	secret, ok := chain.Get(key)
	if !ok {
		return nil, secretDomain.ErrSecretNotFound
	}
	return secret, nil
}

// All returns every secret of the category with the current secret first and the
// rest ordered by identifier.
func (s *ChainStore) All(_ context.Context, category secretDomain.Category) ([]*secretDomain.Secret, error) {
	chain, ok := s.Chain(category)
	if !ok {
		return nil, fmt.Errorf("%w: no chain for %s", secretDomain.ErrSecretUnavailable, category)
	}
	current, ok := chain.Current()
	if !ok {
		return nil, fmt.Errorf("%w: no current secret for %s", secretDomain.ErrSecretUnavailable, category)
	}

	keys := chain.Keys()
	slices.Sort(keys)

	secrets := make([]*secretDomain.Secret, 0, len(keys))
	secrets = append(secrets, current)
	for _, key := range keys {
		if key == current.Key {
			continue
		}
		if secret, ok := chain.Get(key); ok {
			secrets = append(secrets, secret)
		}
	}
	return secrets, nil
}

// Close clears every chain.
func (s *ChainStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chains {
		c.Close()
	}
	s.chains = map[secretDomain.Category]*secretDomain.Chain{}
}
