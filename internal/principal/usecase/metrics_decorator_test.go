package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/metrics"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/principal/usecase"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordRotation(ctx context.Context, document, target, outcome string, count int64) {
	m.Called(ctx, document, target, outcome, count)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

// stubUserUseCase returns fixed results from the methods under test.
type stubUserUseCase struct {
	usecase.UserUseCase
	user *domain.User
	err  error
}

func (s *stubUserUseCase) Register(context.Context, usecase.RegisterUserInput) (*domain.User, error) {
	return s.user, s.err
}

func (s *stubUserUseCase) FindByEmail(context.Context, string) (*domain.User, error) {
	return s.user, s.err
}

func (s *stubUserUseCase) RotateSecret(context.Context) (sensitive.RotationReport, error) {
	return sensitive.RotationReport{}, s.err
}

func expectMetrics(m *mockBusinessMetrics, ctx context.Context, operation, status string) {
	m.On("RecordOperation", ctx, "principals", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "principals", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestUserUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{Metadata: domain.Metadata{ID: uuid.Must(uuid.NewV7())}}

	tests := []struct {
		name      string
		call      func(usecase.UserUseCase) error
		stub      *stubUserUseCase
		operation string
		status    string
	}{
		{
			name: "register success",
			call: func(u usecase.UserUseCase) error {
				_, err := u.Register(ctx, usecase.RegisterUserInput{})
				return err
			},
			stub:      &stubUserUseCase{user: user},
			operation: "user_register",
			status:    "success",
		},
		{
			name: "register degraded",
			call: func(u usecase.UserUseCase) error {
				_, err := u.Register(ctx, usecase.RegisterUserInput{})
				return err
			},
			stub: &stubUserUseCase{
				user: user,
				err:  &apperrors.PostCommitSideEffectError{Op: "register", Err: errors.New("smtp")},
			},
			operation: "user_register",
			status:    "degraded",
		},
		{
			name: "find by email error",
			call: func(u usecase.UserUseCase) error {
				_, err := u.FindByEmail(ctx, "a@example.com")
				return err
			},
			stub:      &stubUserUseCase{err: domain.ErrUserNotFound},
			operation: "user_find_by_email",
			status:    "error",
		},
		{
			name: "rotate secret success",
			call: func(u usecase.UserUseCase) error {
				_, err := u.RotateSecret(ctx)
				return err
			},
			stub:      &stubUserUseCase{},
			operation: "user_rotate_secret",
			status:    "success",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockBusinessMetrics{}
			expectMetrics(m, ctx, tt.operation, tt.status)

			decorator := usecase.NewUserUseCaseWithMetrics(tt.stub, m)
			err := tt.call(decorator)

			if tt.stub.err != nil {
				require.ErrorIs(t, err, tt.stub.err)
			} else {
				require.NoError(t, err)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestGuestUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	m := &mockBusinessMetrics{}
	expectMetrics(m, ctx, "guest_create", "success")
	expectMetrics(m, ctx, "guest_find_by_id", "error")

	guests := usecase.NewGuestUseCaseWithMetrics(f.guests, m)

	guest, err := guests.Create(ctx, usecase.CreateGuestInput{Name: "Visitor"})
	require.NoError(t, err)
	assert.Equal(t, "Visitor", guest.Sensitive.Name)

	_, err = guests.FindByID(ctx, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)

	m.AssertExpectations(t)
}
