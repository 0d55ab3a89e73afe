package app

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antistereov/singularity-core-sub003/internal/config"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	principalUseCase "github.com/antistereov/singularity-core-sub003/internal/principal/usecase"
	"github.com/antistereov/singularity-core-sub003/internal/rotation"
	"github.com/antistereov/singularity-core-sub003/internal/testutil"
)

// TestRotationEndToEnd registers principals under one set of secrets, advances both
// current secrets and checks that a rotation pass leaves every document readable
// and findable under the new ones.
func TestRotationEndToEnd(t *testing.T) {
	drivers := []struct {
		name  string
		setup func(t *testing.T) *sql.DB
		dsn   func() string
	}{
		{name: "postgres", setup: testutil.SetupPostgresDB, dsn: testutil.GetPostgresTestDSN},
		{name: "mysql", setup: testutil.SetupMySQLDB, dsn: testutil.GetMySQLTestDSN},
	}

	for _, d := range drivers {
		t.Run(d.name, func(t *testing.T) {
			d.setup(t)
			ctx := context.Background()

			before := testConfig()
			before.DBDriver = d.name
			before.DBConnectionString = d.dsn()
			before.ActiveEncryptionSecretID = "enc-1"
			before.HashSecrets = "hash-1:" + key(3, 32)

			after := *before
			after.ActiveEncryptionSecretID = "enc-2"
			after.HashSecrets = "hash-1:" + key(3, 32) + ",hash-2:" + key(4, 32)
			after.ActiveHashSecretID = "hash-2"

			user, guest := seed(t, ctx, before)

			container := NewContainer(&after)
			t.Cleanup(func() {
				_ = container.Shutdown(context.Background())
			})

			runner, err := container.RotationRunner()
			require.NoError(t, err)

			results, err := runner.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, rotated(results))

			users, err := container.UserUseCase()
			require.NoError(t, err)
			found, err := users.FindByEmail(ctx, "ada@example.com")
			require.NoError(t, err)
			assert.Equal(t, user.ID, found.ID)
			assert.Equal(t, "Ada Lovelace", found.Sensitive.Name)

			principals, err := container.PrincipalUseCase()
			require.NoError(t, err)
			p, err := principals.FindByID(ctx, guest.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.KindGuest, p.Kind())

			results, err = runner.Run(ctx)
			require.NoError(t, err)
			assert.Zero(t, rotated(results))
		})
	}
}

func seed(t *testing.T, ctx context.Context, cfg *config.Config) (*domain.User, *domain.Guest) {
	t.Helper()

	container := NewContainer(cfg)
	defer func() {
		_ = container.Shutdown(context.Background())
	}()

	users, err := container.UserUseCase()
	require.NoError(t, err)
	user, err := users.Register(ctx, principalUseCase.RegisterUserInput{
		Name:     "Ada Lovelace",
		Email:    "Ada@Example.com",
		Password: "Analytical1Engine",
	})
	require.NoError(t, err)

	guests, err := container.GuestUseCase()
	require.NoError(t, err)
	guest, err := guests.Create(ctx, principalUseCase.CreateGuestInput{Name: "visitor"})
	require.NoError(t, err)

	return user, guest
}

func rotated(results []rotation.Result) int {
	total := 0
	for _, r := range results {
		total += r.Report.Rotated
	}
	return total
}
