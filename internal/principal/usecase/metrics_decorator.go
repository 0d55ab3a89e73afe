package usecase

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/metrics"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

const metricsDomain = "principals"

func recordOperation(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := "success"
	switch {
	case apperrors.IsDegradedSuccess(err):
		status = "degraded"
	case err != nil:
		status = "error"
	}

	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// userUseCaseWithMetrics decorates UserUseCase with metrics instrumentation.
type userUseCaseWithMetrics struct {
	next    UserUseCase
	metrics metrics.BusinessMetrics
}

// NewUserUseCaseWithMetrics wraps a UserUseCase with metrics recording.
func NewUserUseCaseWithMetrics(useCase UserUseCase, m metrics.BusinessMetrics) UserUseCase {
	return &userUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Register records metrics for user registration. A failed post-commit hook is
// recorded as "degraded".
func (u *userUseCaseWithMetrics) Register(ctx context.Context, input RegisterUserInput) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.Register(ctx, input)
	recordOperation(ctx, u.metrics, "user_register", start, err)
	return user, err
}

func (u *userUseCaseWithMetrics) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	start := time.Now()
	saved, err := u.next.Save(ctx, user)
	recordOperation(ctx, u.metrics, "user_save", start, err)
	return saved, err
}

func (u *userUseCaseWithMetrics) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.FindByID(ctx, id)
	recordOperation(ctx, u.metrics, "user_find_by_id", start, err)
	return user, err
}

func (u *userUseCaseWithMetrics) FindByIDOrNil(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.FindByIDOrNil(ctx, id)
	recordOperation(ctx, u.metrics, "user_find_by_id", start, err)
	return user, err
}

func (u *userUseCaseWithMetrics) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.FindByEmail(ctx, email)
	recordOperation(ctx, u.metrics, "user_find_by_email", start, err)
	return user, err
}

func (u *userUseCaseWithMetrics) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	start := time.Now()
	exists, err := u.next.ExistsByEmail(ctx, email)
	recordOperation(ctx, u.metrics, "user_exists_by_email", start, err)
	return exists, err
}

func (u *userUseCaseWithMetrics) FindByIdentity(
	ctx context.Context,
	provider, externalID string,
) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.FindByIdentity(ctx, provider, externalID)
	recordOperation(ctx, u.metrics, "user_find_by_identity", start, err)
	return user, err
}

// VerifyPassword is not instrumented; it performs no I/O.
func (u *userUseCaseWithMetrics) VerifyPassword(user *domain.User, password string) bool {
	return u.next.VerifyPassword(user, password)
}

func (u *userUseCaseWithMetrics) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := u.next.Delete(ctx, id)
	recordOperation(ctx, u.metrics, "user_delete", start, err)
	return err
}

func (u *userUseCaseWithMetrics) List(
	ctx context.Context,
	pageable sensitive.Pageable,
	criteria sensitive.Criteria,
) (sensitive.Page[domain.User], error) {
	start := time.Now()
	page, err := u.next.List(ctx, pageable, criteria)
	recordOperation(ctx, u.metrics, "user_list", start, err)
	return page, err
}

func (u *userUseCaseWithMetrics) FindAll(ctx context.Context) iter.Seq2[domain.User, error] {
	return u.next.FindAll(ctx)
}

func (u *userUseCaseWithMetrics) RotateSecret(ctx context.Context) (sensitive.RotationReport, error) {
	start := time.Now()
	report, err := u.next.RotateSecret(ctx)
	recordOperation(ctx, u.metrics, "user_rotate_secret", start, err)
	return report, err
}

func (u *userUseCaseWithMetrics) RotateHashSecret(ctx context.Context) (sensitive.RotationReport, error) {
	start := time.Now()
	report, err := u.next.RotateHashSecret(ctx)
	recordOperation(ctx, u.metrics, "user_rotate_hash_secret", start, err)
	return report, err
}

// guestUseCaseWithMetrics decorates GuestUseCase with metrics instrumentation.
type guestUseCaseWithMetrics struct {
	next    GuestUseCase
	metrics metrics.BusinessMetrics
}

// NewGuestUseCaseWithMetrics wraps a GuestUseCase with metrics recording.
func NewGuestUseCaseWithMetrics(useCase GuestUseCase, m metrics.BusinessMetrics) GuestUseCase {
	return &guestUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (g *guestUseCaseWithMetrics) Create(ctx context.Context, input CreateGuestInput) (*domain.Guest, error) {
	start := time.Now()
	guest, err := g.next.Create(ctx, input)
	recordOperation(ctx, g.metrics, "guest_create", start, err)
	return guest, err
}

func (g *guestUseCaseWithMetrics) Save(ctx context.Context, guest *domain.Guest) (*domain.Guest, error) {
	start := time.Now()
	saved, err := g.next.Save(ctx, guest)
	recordOperation(ctx, g.metrics, "guest_save", start, err)
	return saved, err
}

func (g *guestUseCaseWithMetrics) FindByID(ctx context.Context, id uuid.UUID) (*domain.Guest, error) {
	start := time.Now()
	guest, err := g.next.FindByID(ctx, id)
	recordOperation(ctx, g.metrics, "guest_find_by_id", start, err)
	return guest, err
}

func (g *guestUseCaseWithMetrics) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := g.next.Delete(ctx, id)
	recordOperation(ctx, g.metrics, "guest_delete", start, err)
	return err
}

func (g *guestUseCaseWithMetrics) RotateSecret(ctx context.Context) (sensitive.RotationReport, error) {
	start := time.Now()
	report, err := g.next.RotateSecret(ctx)
	recordOperation(ctx, g.metrics, "guest_rotate_secret", start, err)
	return report, err
}
