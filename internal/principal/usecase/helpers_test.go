package usecase_test

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/principal/repository"
	"github.com/antistereov/singularity-core-sub003/internal/principal/usecase"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
	"github.com/antistereov/singularity-core-sub003/internal/testutil"
)

// principalRepo scopes a shared in-memory table to one kind and adds the hash lookups.
type principalRepo struct {
	table *testutil.MemStore[domain.EncryptedPrincipal]
	kind  domain.Kind
}

var _ usecase.PrincipalRepository = (*principalRepo)(nil)

func matchPrincipal(p domain.EncryptedPrincipal, f sensitive.Filter) bool {
	value := fmt.Sprint(f.Value)
	switch f.Field {
	case "kind":
		return string(p.Kind) == value
	case "email_hash":
		return p.EmailHash != nil && *p.EmailHash == value
	case "identity_hashes":
		return slices.Contains(p.IdentityHashes, value)
	case "roles":
		return slices.Contains(p.Roles, value)
	case "groups":
		return slices.Contains(p.Groups, value)
	}
	return false
}

func (r *principalRepo) scope(criteria sensitive.Criteria) sensitive.Criteria {
	if r.kind == "" {
		return criteria
	}
	return append(sensitive.Criteria{{Field: "kind", Op: sensitive.OpEq, Value: string(r.kind)}}, criteria...)
}

func (r *principalRepo) visible(p domain.EncryptedPrincipal) bool {
	return r.kind == "" || p.Kind == r.kind
}

func (r *principalRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.EncryptedPrincipal, error) {
	doc, err := r.table.FindByID(ctx, id)
	if err != nil || !r.visible(doc) {
		return domain.EncryptedPrincipal{}, domain.ErrPrincipalNotFound
	}
	return doc, nil
}

func (r *principalRepo) FindPage(
	ctx context.Context,
	pageable sensitive.Pageable,
	criteria sensitive.Criteria,
) ([]domain.EncryptedPrincipal, int64, error) {
	return r.table.FindPage(ctx, pageable, r.scope(criteria))
}

func (r *principalRepo) Upsert(ctx context.Context, p domain.EncryptedPrincipal) error {
	if !r.visible(p) {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "kind mismatch")
	}
	if err := r.checkEmailOwner(ctx, p); err != nil {
		return err
	}
	return r.table.Upsert(ctx, p)
}

func (r *principalRepo) ReplaceIfUnchanged(ctx context.Context, prev, p domain.EncryptedPrincipal) (bool, error) {
	if !r.visible(p) {
		return false, apperrors.Wrap(apperrors.ErrInvalidInput, "kind mismatch")
	}
	if err := r.checkEmailOwner(ctx, p); err != nil {
		return false, err
	}
	return r.table.ReplaceIfUnchanged(ctx, prev, p)
}

func (r *principalRepo) checkEmailOwner(ctx context.Context, p domain.EncryptedPrincipal) error {
	if p.EmailHash == nil {
		return nil
	}
	owners, err := r.table.FindAll(ctx, sensitive.Criteria{
		{Field: "email_hash", Op: sensitive.OpEq, Value: *p.EmailHash},
	})
	if err != nil {
		return err
	}
	for _, owner := range owners {
		if owner.ID != p.ID {
			return domain.ErrEmailAlreadyExists
		}
	}
	return nil
}

func (r *principalRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	doc, ok := r.table.Get(id)
	if !ok || !r.visible(doc) {
		return nil
	}
	return r.table.DeleteByID(ctx, id)
}

func (r *principalRepo) DeleteAll(ctx context.Context) error {
	docs, err := r.table.FindAll(ctx, r.scope(nil))
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := r.table.DeleteByID(ctx, doc.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *principalRepo) Stream(ctx context.Context) iter.Seq2[domain.EncryptedPrincipal, error] {
	return func(yield func(domain.EncryptedPrincipal, error) bool) {
		for doc, err := range r.table.Stream(ctx) {
			if err == nil && !r.visible(doc) {
				continue
			}
			if !yield(doc, err) || err != nil {
				return
			}
		}
	}
}

// findAny returns the first document matching field against any of values.
func (r *principalRepo) findAny(
	ctx context.Context,
	field string,
	op sensitive.Operator,
	values []string,
) (domain.EncryptedPrincipal, error) {
	for _, v := range values {
		docs, err := r.table.FindAll(ctx, r.scope(sensitive.Criteria{{Field: field, Op: op, Value: v}}))
		if err != nil {
			return domain.EncryptedPrincipal{}, err
		}
		if len(docs) > 0 {
			return docs[0], nil
		}
	}
	return domain.EncryptedPrincipal{}, domain.ErrPrincipalNotFound
}

func (r *principalRepo) FindByEmailHash(ctx context.Context, hashes []string) (domain.EncryptedPrincipal, error) {
	return r.findAny(ctx, "email_hash", sensitive.OpEq, hashes)
}

func (r *principalRepo) ExistsByEmailHash(ctx context.Context, hashes []string) (bool, error) {
	_, err := r.FindByEmailHash(ctx, hashes)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *principalRepo) FindByIdentityHash(ctx context.Context, hashes []string) (domain.EncryptedPrincipal, error) {
	return r.findAny(ctx, "identity_hashes", sensitive.OpContains, hashes)
}

type fixture struct {
	keys       *testutil.Keys
	table      *testutil.MemStore[domain.EncryptedPrincipal]
	users      usecase.UserUseCase
	guests     usecase.GuestUseCase
	principals usecase.PrincipalUseCase
}

func newFixture(t *testing.T, hook usecase.PostCommitHook) *fixture {
	t.Helper()

	keys := testutil.NewKeys(t)
	table := testutil.NewMemStore(
		func(p domain.EncryptedPrincipal) uuid.UUID { return p.ID },
		repository.Fields,
		matchPrincipal,
	)
	opts := []sensitive.Option{
		sensitive.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		sensitive.WithMaxPageSize(10),
	}

	userRepo := &principalRepo{table: table, kind: domain.KindUser}
	guestRepo := &principalRepo{table: table, kind: domain.KindGuest}

	userEngine := usecase.NewUserEngine(userRepo, keys.EncryptionService, keys.HashService, opts...)
	guestEngine := usecase.NewGuestEngine(guestRepo, keys.EncryptionService, opts...)

	return &fixture{
		keys:       keys,
		table:      table,
		users:      usecase.NewUserUseCase(userEngine, userRepo, keys.HashService, hook),
		guests:     usecase.NewGuestUseCase(guestEngine),
		principals: usecase.NewPrincipalUseCase(&principalRepo{table: table}, userEngine, guestEngine),
	}
}

func (f *fixture) saveUser(t *testing.T, name, email string, identities map[string]string) *domain.User {
	t.Helper()

	user, err := f.users.Save(context.Background(), &domain.User{
		Metadata: domain.Metadata{
			ID:    uuid.Must(uuid.NewV7()),
			Roles: []string{"user"},
		},
		Sensitive: domain.UserSensitiveData{
			Name:       name,
			Email:      email,
			Identities: identities,
		},
	})
	require.NoError(t, err)
	return user
}
