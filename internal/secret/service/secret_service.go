package service

import (
	"context"

	secretDomain "github.com/antistereov/singularity-core-sub003/internal/secret/domain"
)

type secretService struct {
	category secretDomain.Category
	store    Store
}

// NewSecretService binds category to store.
func NewSecretService(category secretDomain.Category, store Store) SecretService {
	return &secretService{category: category, store: store}
}

func (s *secretService) Category() secretDomain.Category {
	return s.category
}

func (s *secretService) CurrentSecret(ctx context.Context) (*secretDomain.Secret, error) {
	return s.store.Current(ctx, s.category)
}

func (s *secretService) Secret(ctx context.Context, key string) (*secretDomain.Secret, error) {
	return s.store.Get(ctx, s.category, key)
}

func (s *secretService) Secrets(ctx context.Context) ([]*secretDomain.Secret, error) {
	return s.store.All(ctx, s.category)
}
