// Package usecase implements the user, guest and principal use cases on top of the
// sensitive CRUD engine. Lookups by email or external identity go through keyed
// hashes and decrypt only the matching document.
package usecase

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

// PrincipalRepository defines persistence for encrypted principals, including the
// hash lookups that serve FindByEmail and FindByIdentity. Each lookup takes the
// value hashed under every hash secret and matches any of them.
type PrincipalRepository interface {
	sensitive.Store[domain.EncryptedPrincipal]
	FindByEmailHash(ctx context.Context, hashes []string) (domain.EncryptedPrincipal, error)
	ExistsByEmailHash(ctx context.Context, hashes []string) (bool, error)
	FindByIdentityHash(ctx context.Context, hashes []string) (domain.EncryptedPrincipal, error)
}

// PostCommitHook runs after a user has been committed, outside any transaction.
// A failure does not undo the registration.
type PostCommitHook func(ctx context.Context, user *domain.User) error

// RegisterUserInput contains the input data for user registration.
type RegisterUserInput struct {
	Name     string
	Email    string
	Password string
	Roles    []string
	Groups   []string
}

// CreateGuestInput contains the input data for guest creation.
type CreateGuestInput struct {
	Name   string
	Roles  []string
	Groups []string
}

// UserUseCase defines user business logic.
type UserUseCase interface {
	// Register creates a user with a hashed password. When the post-commit hook
	// fails, the saved user is returned with a *errors.PostCommitSideEffectError.
	Register(ctx context.Context, input RegisterUserInput) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByIDOrNil(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByIdentity(ctx context.Context, provider, externalID string) (*domain.User, error)
	VerifyPassword(user *domain.User, password string) bool
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, pageable sensitive.Pageable, criteria sensitive.Criteria) (sensitive.Page[domain.User], error)
	FindAll(ctx context.Context) iter.Seq2[domain.User, error]
	RotateSecret(ctx context.Context) (sensitive.RotationReport, error)
	RotateHashSecret(ctx context.Context) (sensitive.RotationReport, error)
}

// GuestUseCase defines guest business logic.
type GuestUseCase interface {
	Create(ctx context.Context, input CreateGuestInput) (*domain.Guest, error)
	Save(ctx context.Context, guest *domain.Guest) (*domain.Guest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Guest, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RotateSecret(ctx context.Context) (sensitive.RotationReport, error)
}

// PrincipalUseCase resolves a stored principal of any kind.
type PrincipalUseCase interface {
	// FindByID returns a *domain.User or *domain.Guest depending on the stored kind.
	FindByID(ctx context.Context, id uuid.UUID) (domain.Principal, error)
}
