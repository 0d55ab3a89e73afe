package sensitive_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
	cryptoService "github.com/antistereov/singularity-core-sub003/internal/crypto/service"
	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
	"github.com/antistereov/singularity-core-sub003/internal/testutil"
)

type notePayload struct {
	Body  string `json:"body"`
	Email string `json:"email"`
}

type note struct {
	ID        uuid.UUID
	Owner     string
	Sensitive notePayload
}

type encryptedNote struct {
	ID            uuid.UUID
	Owner         string
	EmailHash     string
	HashSecretKey string
	Sensitive     cryptoDomain.Encrypted[notePayload]
}

type noteConverter struct {
	hashes cryptoService.HashService
}

func (noteConverter) Sensitive(n note) notePayload { return n.Sensitive }

func (noteConverter) EncryptedSensitive(n encryptedNote) cryptoDomain.Encrypted[notePayload] {
	return n.Sensitive
}

func (noteConverter) DocumentID(n encryptedNote) uuid.UUID { return n.ID }

func (noteConverter) HashSecretKey(n encryptedNote) string { return n.HashSecretKey }

func (c noteConverter) DoEncrypt(
	ctx context.Context,
	n note,
	sealed cryptoDomain.Encrypted[notePayload],
) (encryptedNote, error) {
	hasher, err := c.hashes.CurrentHasher(ctx)
	if err != nil {
		return encryptedNote{}, err
	}
	defer hasher.Close()

	return encryptedNote{
		ID:            n.ID,
		Owner:         n.Owner,
		EmailHash:     hasher.Hash(n.Sensitive.Email),
		HashSecretKey: hasher.SecretKey(),
		Sensitive:     sealed,
	}, nil
}

func (noteConverter) DoDecrypt(_ context.Context, n encryptedNote, payload notePayload) (note, error) {
	return note{ID: n.ID, Owner: n.Owner, Sensitive: payload}, nil
}

var noteFields = sensitive.Fields{
	"owner":      {sensitive.OpEq},
	"email_hash": {sensitive.OpEq},
}

func matchNote(n encryptedNote, f sensitive.Filter) bool {
	switch f.Field {
	case "owner":
		return n.Owner == f.Value
	case "email_hash":
		return n.EmailHash == f.Value
	}
	return false
}

type fixture struct {
	keys   *testutil.Keys
	store  *testutil.MemStore[encryptedNote]
	engine *sensitive.Engine[notePayload, note, encryptedNote]
}

func newFixture(t *testing.T, opts ...sensitive.Option) *fixture {
	t.Helper()

	keys := testutil.NewKeys(t)
	store := testutil.NewMemStore(func(n encryptedNote) uuid.UUID { return n.ID }, noteFields, matchNote)

	opts = append([]sensitive.Option{
		sensitive.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		sensitive.WithHashService(keys.HashService),
		sensitive.WithMaxPageSize(10),
	}, opts...)

	return &fixture{
		keys:  keys,
		store: store,
		engine: sensitive.NewEngine(
			"note",
			sensitive.Store[encryptedNote](store),
			sensitive.Converter[notePayload, note, encryptedNote](noteConverter{hashes: keys.HashService}),
			keys.EncryptionService,
			opts...,
		),
	}
}

func newNote(owner, email string) note {
	return note{
		ID:        uuid.Must(uuid.NewV7()),
		Owner:     owner,
		Sensitive: notePayload{Body: "meet at noon", Email: email},
	}
}

func TestEngine_SaveAndFindByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	n := newNote("alice", "alice@example.com")

	saved, err := f.engine.Save(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, n, saved)

	stored, ok := f.store.Get(n.ID)
	require.True(t, ok)
	assert.Equal(t, "enc-a", stored.Sensitive.SecretKey)
	assert.Equal(t, "hash-a", stored.HashSecretKey)
	assert.NotEmpty(t, stored.EmailHash)
	assert.False(t, strings.Contains(stored.Sensitive.Ciphertext, "alice@example.com"))
	assert.False(t, strings.Contains(stored.Sensitive.Ciphertext, "meet at noon"))

	found, err := f.engine.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n, found)
}

func TestEngine_FindByIDMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := uuid.Must(uuid.NewV7())

	_, err := f.engine.FindByID(ctx, id)
	assert.ErrorIs(t, err, sensitive.ErrDocumentNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	found, err := f.engine.FindByIDOrNil(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, found)

	n := newNote("bob", "bob@example.com")
	_, err = f.engine.Save(ctx, n)
	require.NoError(t, err)

	found, err = f.engine.FindByIDOrNil(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, n, *found)
}

func TestEngine_DecryptErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	n := newNote("carol", "carol@example.com")

	_, err := f.engine.Save(ctx, n)
	require.NoError(t, err)

	stored, _ := f.store.Get(n.ID)
	stored.Sensitive.SecretKey = "enc-retired"
	f.store.Put(stored)

	_, err = f.engine.FindByID(ctx, n.ID)
	assert.ErrorIs(t, err, sensitive.ErrDecryptDocument)
	assert.ErrorIs(t, err, cryptoDomain.ErrSecret)

	class, msg := apperrors.Public(err)
	assert.Equal(t, apperrors.ClassInternal, class)
	assert.NotContains(t, msg, "enc-retired")
}

func TestEngine_SaveAll(t *testing.T) {
	ctx := context.Background()
	tx := &countingTx{}
	f := newFixture(t, sensitive.WithTxManager(tx))

	notes := []note{
		newNote("alice", "alice@example.com"),
		newNote("bob", "bob@example.com"),
		newNote("carol", "carol@example.com"),
	}

	saved, err := f.engine.SaveAll(ctx, notes)
	require.NoError(t, err)
	assert.Equal(t, notes, saved)
	assert.Equal(t, 3, f.store.Len())
	assert.Equal(t, int64(3), f.store.Upserts())
	assert.Equal(t, 1, tx.calls)

	t.Run("failure inside the transaction is returned", func(t *testing.T) {
		broken := newNote("dave", "dave@example.com")
		f.store.FailUpsert(broken.ID, apperrors.ErrDatabase)

		_, err := f.engine.SaveAll(ctx, []note{newNote("erin", "erin@example.com"), broken})
		assert.ErrorIs(t, err, sensitive.ErrStore)
		assert.Equal(t, 2, tx.calls)
	})
}

func TestEngine_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := newNote("alice", "alice@example.com")
	b := newNote("bob", "bob@example.com")
	_, err := f.engine.SaveAll(ctx, []note{a, b})
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteByID(ctx, a.ID))
	_, err = f.engine.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, sensitive.ErrDocumentNotFound)

	require.NoError(t, f.engine.DeleteAll(ctx))
	assert.Equal(t, 0, f.store.Len())
}

func TestEngine_FindAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var want []note
	for _, owner := range []string{"alice", "bob", "carol"} {
		n, err := f.engine.Save(ctx, newNote(owner, owner+"@example.com"))
		require.NoError(t, err)
		want = append(want, n)
	}

	var got []note
	for n, err := range f.engine.FindAll(ctx) {
		require.NoError(t, err)
		got = append(got, n)
	}
	assert.Equal(t, want, got)

	t.Run("stops early", func(t *testing.T) {
		count := 0
		for range f.engine.FindAll(ctx) {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})
}

func TestEngine_FindAllPaginated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := range 5 {
		owner := "alice"
		if i%2 == 1 {
			owner = "bob"
		}
		_, err := f.engine.Save(ctx, newNote(owner, owner+"@example.com"))
		require.NoError(t, err)
	}

	t.Run("first page", func(t *testing.T) {
		page, err := f.engine.FindAllPaginated(ctx, sensitive.Pageable{Page: 0, Size: 2}, nil)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, int64(5), page.Total)
		assert.Equal(t, 3, page.TotalPages())
	})

	t.Run("last page", func(t *testing.T) {
		page, err := f.engine.FindAllPaginated(ctx, sensitive.Pageable{Page: 2, Size: 2}, nil)
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
	})

	t.Run("criteria on plaintext field", func(t *testing.T) {
		page, err := f.engine.FindAllPaginated(
			ctx,
			sensitive.Pageable{Size: 10},
			sensitive.Criteria{{Field: "owner", Op: sensitive.OpEq, Value: "bob"}},
		)
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		for _, n := range page.Items {
			assert.Equal(t, "bob", n.Owner)
		}
	})

	t.Run("criteria on ciphertext is rejected", func(t *testing.T) {
		_, err := f.engine.FindAllPaginated(
			ctx,
			sensitive.Pageable{Size: 10},
			sensitive.Criteria{{Field: "body", Op: sensitive.OpEq, Value: "meet at noon"}},
		)
		assert.ErrorIs(t, err, sensitive.ErrInvalidCriteria)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("invalid page size", func(t *testing.T) {
		_, err := f.engine.FindAllPaginated(ctx, sensitive.Pageable{Size: 11}, nil)
		assert.ErrorIs(t, err, sensitive.ErrInvalidPageable)

		_, err = f.engine.FindAllPaginated(ctx, sensitive.Pageable{Page: -1, Size: 1}, nil)
		assert.ErrorIs(t, err, sensitive.ErrInvalidPageable)
	})
}

type countingTx struct {
	calls int
}

func (c *countingTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return fn(ctx)
}
