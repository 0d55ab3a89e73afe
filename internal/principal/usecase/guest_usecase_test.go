package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/principal/usecase"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

func TestGuestUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndFind", func(t *testing.T) {
		f := newFixture(t, nil)

		guest, err := f.guests.Create(ctx, usecase.CreateGuestInput{Name: " Visitor "})
		require.NoError(t, err)
		assert.Equal(t, "Visitor", guest.Sensitive.Name)
		assert.Equal(t, []string{"guest"}, guest.Roles)

		stored, ok := f.table.Get(guest.ID)
		require.True(t, ok)
		assert.Equal(t, domain.KindGuest, stored.Kind)
		assert.Nil(t, stored.EmailHash)
		assert.Empty(t, stored.HashSecretKey)

		found, err := f.guests.FindByID(ctx, guest.ID)
		require.NoError(t, err)
		assert.Equal(t, guest.ID, found.ID)
		assert.Equal(t, "Visitor", found.Sensitive.Name)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.guests.Create(ctx, usecase.CreateGuestInput{Name: "  "})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("UsersAreInvisible", func(t *testing.T) {
		f := newFixture(t, nil)
		user := f.saveUser(t, "Alice", "alice@example.com", nil)

		_, err := f.guests.FindByID(ctx, user.ID)
		assert.ErrorIs(t, err, domain.ErrGuestNotFound)

		require.NoError(t, f.guests.Delete(ctx, user.ID))
		assert.Equal(t, 1, f.table.Len())
	})

	t.Run("SaveAndDelete", func(t *testing.T) {
		f := newFixture(t, nil)
		guest, err := f.guests.Create(ctx, usecase.CreateGuestInput{Name: "Visitor"})
		require.NoError(t, err)

		guest.Sensitive.Name = "Returning visitor"
		saved, err := f.guests.Save(ctx, guest)
		require.NoError(t, err)
		assert.Equal(t, "Returning visitor", saved.Sensitive.Name)

		require.NoError(t, f.guests.Delete(ctx, guest.ID))
		_, err = f.guests.FindByID(ctx, guest.ID)
		assert.ErrorIs(t, err, domain.ErrGuestNotFound)
	})

	t.Run("RotateSecret", func(t *testing.T) {
		f := newFixture(t, nil)
		f.saveUser(t, "Alice", "alice@example.com", nil)
		guest, err := f.guests.Create(ctx, usecase.CreateGuestInput{Name: "Visitor"})
		require.NoError(t, err)
		require.NoError(t, f.keys.Encryption.SetActive("enc-b"))

		report, err := f.guests.RotateSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, sensitive.RotationReport{Visited: 1, Rotated: 1}, report)

		stored, _ := f.table.Get(guest.ID)
		assert.Equal(t, "enc-b", stored.Sensitive.SecretKey)

		report, err = f.guests.RotateSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, sensitive.RotationReport{Visited: 1, Skipped: 1}, report)
	})
}

func TestPrincipalUseCase_FindByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	user := f.saveUser(t, "Alice", "alice@example.com", nil)
	guest, err := f.guests.Create(ctx, usecase.CreateGuestInput{Name: "Visitor"})
	require.NoError(t, err)

	t.Run("User", func(t *testing.T) {
		p, err := f.principals.FindByID(ctx, user.ID)
		require.NoError(t, err)
		require.IsType(t, &domain.User{}, p)
		assert.Equal(t, domain.KindUser, p.Kind())
		assert.Equal(t, "alice@example.com", p.(*domain.User).Sensitive.Email)
	})

	t.Run("Guest", func(t *testing.T) {
		p, err := f.principals.FindByID(ctx, guest.ID)
		require.NoError(t, err)
		require.IsType(t, &domain.Guest{}, p)
		assert.Equal(t, guest.ID, p.PrincipalMetadata().ID)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := f.principals.FindByID(ctx, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		stored, _ := f.table.Get(guest.ID)
		stored.ID = uuid.Must(uuid.NewV7())
		stored.Kind = "robot"
		f.table.Put(stored)

		_, err := f.principals.FindByID(ctx, stored.ID)
		assert.ErrorIs(t, err, domain.ErrUnknownKind)
	})
}
