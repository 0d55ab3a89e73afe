// Package service binds a secret category to the secret store.
package service

import (
	"context"

	secretDomain "github.com/antistereov/singularity-core-sub003/internal/secret/domain"
)

// Store is a versioned repository of symmetric secrets.
//
// Both methods fail with secretDomain.ErrSecretNotFound for unknown identifiers and
// secretDomain.ErrSecretUnavailable when the category has no usable current secret.
type Store interface {
	Current(ctx context.Context, category secretDomain.Category) (*secretDomain.Secret, error)
	Get(ctx context.Context, category secretDomain.Category, key string) (*secretDomain.Secret, error)
	// All returns every secret of the category, the current one first.
	All(ctx context.Context, category secretDomain.Category) ([]*secretDomain.Secret, error)
}

// SecretService exposes the secrets of one category.
type SecretService interface {
	// Category returns the bound category.
	Category() secretDomain.Category
	// CurrentSecret returns the secret designated for new writes.
	CurrentSecret(ctx context.Context) (*secretDomain.Secret, error)
	// Secret returns a historical secret by identifier.
	Secret(ctx context.Context, key string) (*secretDomain.Secret, error)
	// Secrets returns every secret of the category, the current one first.
	Secrets(ctx context.Context) ([]*secretDomain.Secret, error)
}
