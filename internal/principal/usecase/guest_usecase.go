package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
	appValidation "github.com/antistereov/singularity-core-sub003/internal/validation"
)

const defaultGuestRole = "guest"

// guestUseCase implements GuestUseCase.
type guestUseCase struct {
	engine *GuestEngine
	now    func() time.Time
}

// Validate checks the guest input.
func (i CreateGuestInput) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required, appValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&i.Roles, validation.Each(appValidation.Slug)),
		validation.Field(&i.Groups, validation.Each(appValidation.Slug)),
	)
	return appValidation.WrapValidationError(err)
}

// Create stores a new guest.
func (g *guestUseCase) Create(ctx context.Context, input CreateGuestInput) (*domain.Guest, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate guest id")
	}

	roles := input.Roles
	if len(roles) == 0 {
		roles = []string{defaultGuestRole}
	}

	now := g.now().UTC()
	guest := domain.Guest{
		Metadata: domain.Metadata{
			ID:         id,
			Roles:      roles,
			Groups:     input.Groups,
			CreatedAt:  now,
			UpdatedAt:  now,
			LastActive: now,
		},
		Sensitive: domain.GuestSensitiveData{Name: strings.TrimSpace(input.Name)},
	}

	saved, err := g.engine.Save(ctx, guest)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Save encrypts and stores guest, refreshing UpdatedAt.
func (g *guestUseCase) Save(ctx context.Context, guest *domain.Guest) (*domain.Guest, error) {
	doc := *guest
	doc.UpdatedAt = g.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	saved, err := g.engine.Save(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindByID retrieves a guest by id.
func (g *guestUseCase) FindByID(ctx context.Context, id uuid.UUID) (*domain.Guest, error) {
	guest, err := g.engine.FindByID(ctx, id)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, domain.ErrGuestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

// Delete removes a guest by id.
func (g *guestUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	return g.engine.DeleteByID(ctx, id)
}

// RotateSecret re-encrypts guests written under an old encryption secret.
func (g *guestUseCase) RotateSecret(ctx context.Context) (sensitive.RotationReport, error) {
	return g.engine.RotateSecret(ctx)
}

// NewGuestUseCase creates a GuestUseCase.
func NewGuestUseCase(engine *GuestEngine) GuestUseCase {
	return &guestUseCase{
		engine: engine,
		now:    time.Now,
	}
}
