package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
)

// principalUseCase implements PrincipalUseCase over an unscoped repository.
type principalUseCase struct {
	repo   PrincipalRepository
	users  *UserEngine
	guests *GuestEngine
}

// FindByID loads one row and decrypts it with the engine matching its kind.
func (p *principalUseCase) FindByID(ctx context.Context, id uuid.UUID) (domain.Principal, error) {
	doc, err := p.repo.FindByID(ctx, id)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, domain.ErrPrincipalNotFound
	}
	if err != nil {
		return nil, err
	}

	switch doc.Kind {
	case domain.KindUser:
		user, err := p.users.Decrypt(ctx, doc)
		if err != nil {
			return nil, err
		}
		return &user, nil
	case domain.KindGuest:
		guest, err := p.guests.Decrypt(ctx, doc)
		if err != nil {
			return nil, err
		}
		return &guest, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, doc.Kind)
	}
}

// NewPrincipalUseCase creates a PrincipalUseCase. repo must not be scoped to a kind.
func NewPrincipalUseCase(repo PrincipalRepository, users *UserEngine, guests *GuestEngine) PrincipalUseCase {
	return &principalUseCase{
		repo:   repo,
		users:  users,
		guests: guests,
	}
}
