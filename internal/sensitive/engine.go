// Package sensitive provides a generic CRUD engine over documents whose sensitive
// sub-record is stored only inside an encryption envelope.
//
// The engine works on three related shapes: the sensitive payload S, the decrypted
// document D that application code manipulates, and the encrypted document E that
// the Store persists. A Converter supplies the per-entity conversions between them.
package sensitive

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	cryptoDomain "github.com/antistereov/singularity-core-sub003/internal/crypto/domain"
	cryptoService "github.com/antistereov/singularity-core-sub003/internal/crypto/service"
	"github.com/antistereov/singularity-core-sub003/internal/database"
	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
)

// Converter assembles the storage and domain shapes of one entity.
type Converter[S, D, E any] interface {
	// Sensitive returns the payload to seal from a decrypted document.
	Sensitive(doc D) S
	// EncryptedSensitive returns the envelope stored on an encrypted document.
	EncryptedSensitive(doc E) cryptoDomain.Encrypted[S]
	// DocumentID returns the identifier of an encrypted document.
	DocumentID(doc E) uuid.UUID
	// DoEncrypt combines the plaintext fields of doc with the new envelope and
	// recomputes searchable hashes.
	DoEncrypt(ctx context.Context, doc D, sensitive cryptoDomain.Encrypted[S]) (E, error)
	// DoDecrypt combines the plaintext fields of doc with the opened payload.
	DoDecrypt(ctx context.Context, doc E, sensitive S) (D, error)
}

// HashKeyed is implemented by converters whose documents carry searchable hashes.
type HashKeyed[E any] interface {
	// HashSecretKey returns the hash secret the document's hashes were computed with.
	HashSecretKey(doc E) string
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	limiter   *rate.Limiter
	txManager database.TxManager
	hashes    cryptoService.HashService
	maxSize   int
}

// WithLogger sets the logger used by rotation sweeps.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLimiter throttles rotation writes.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(o *options) { o.limiter = limiter }
}

// WithTxManager makes SaveAll write all documents in one transaction.
func WithTxManager(txManager database.TxManager) Option {
	return func(o *options) { o.txManager = txManager }
}

// WithHashService enables RotateHashSecret.
func WithHashService(hashes cryptoService.HashService) Option {
	return func(o *options) { o.hashes = hashes }
}

// WithMaxPageSize bounds Pageable.Size in FindAllPaginated.
func WithMaxPageSize(size int) Option {
	return func(o *options) { o.maxSize = size }
}

// Engine is the CRUD engine for one document family.
type Engine[S, D, E any] struct {
	name       string
	store      Store[E]
	conv       Converter[S, D, E]
	encryption cryptoService.EncryptionService
	opts       options
}

// NewEngine creates an Engine. name identifies the document family in logs.
func NewEngine[S, D, E any](
	name string,
	store Store[E],
	conv Converter[S, D, E],
	encryption cryptoService.EncryptionService,
	opts ...Option,
) *Engine[S, D, E] {
	o := options{
		logger:  slog.Default(),
		limiter: rate.NewLimiter(rate.Inf, 0),
		maxSize: 100,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[S, D, E]{
		name:       name,
		store:      store,
		conv:       conv,
		encryption: encryption,
		opts:       o,
	}
}

// Encrypt seals the sensitive payload of doc under the current secret.
func (e *Engine[S, D, E]) Encrypt(ctx context.Context, doc D) (E, error) {
	var zero E

	sealed, err := cryptoService.Wrap(ctx, e.encryption, e.conv.Sensitive(doc))
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrEncryptDocument, err)
	}

	encrypted, err := e.conv.DoEncrypt(ctx, doc, sealed)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrEncryptDocument, err)
	}
	return encrypted, nil
}

// Decrypt opens the envelope of doc with the secret it references.
func (e *Engine[S, D, E]) Decrypt(ctx context.Context, doc E) (D, error) {
	var zero D

	payload, err := cryptoService.Unwrap(ctx, e.encryption, e.conv.EncryptedSensitive(doc))
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrDecryptDocument, err)
	}

	decrypted, err := e.conv.DoDecrypt(ctx, doc, payload)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrDecryptDocument, err)
	}
	return decrypted, nil
}

// FindByID returns ErrDocumentNotFound when no document has the id.
func (e *Engine[S, D, E]) FindByID(ctx context.Context, id uuid.UUID) (D, error) {
	var zero D

	doc, err := e.store.FindByID(ctx, id)
	if err != nil {
		return zero, e.storeError(err)
	}
	return e.Decrypt(ctx, doc)
}

// FindByIDOrNil returns nil without error when no document has the id.
func (e *Engine[S, D, E]) FindByIDOrNil(ctx context.Context, id uuid.UUID) (*D, error) {
	doc, err := e.FindByID(ctx, id)
	if apperrors.Is(err, ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save encrypts doc and upserts it by id. The returned document reflects what was stored.
func (e *Engine[S, D, E]) Save(ctx context.Context, doc D) (D, error) {
	var zero D

	encrypted, err := e.Encrypt(ctx, doc)
	if err != nil {
		return zero, err
	}
	if err := e.store.Upsert(ctx, encrypted); err != nil {
		return zero, e.storeError(err)
	}

	saved, err := e.conv.DoDecrypt(ctx, encrypted, e.conv.Sensitive(doc))
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrDecryptDocument, err)
	}
	return saved, nil
}

// SaveAll encrypts docs concurrently, then writes them in order. With a TxManager
// configured the writes are all-or-nothing.
func (e *Engine[S, D, E]) SaveAll(ctx context.Context, docs []D) ([]D, error) {
	encrypted := make([]E, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		g.Go(func() error {
			enc, err := e.Encrypt(gctx, doc)
			if err != nil {
				return err
			}
			encrypted[i] = enc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	write := func(ctx context.Context) error {
		for _, enc := range encrypted {
			if err := e.store.Upsert(ctx, enc); err != nil {
				return e.storeError(err)
			}
		}
		return nil
	}

	var err error
	if e.opts.txManager != nil {
		err = e.opts.txManager.WithTx(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return nil, err
	}

	saved := make([]D, len(docs))
	for i, doc := range docs {
		out, err := e.conv.DoDecrypt(ctx, encrypted[i], e.conv.Sensitive(doc))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecryptDocument, err)
		}
		saved[i] = out
	}
	return saved, nil
}

// DeleteByID removes the document with id. Deleting a missing id is not an error.
func (e *Engine[S, D, E]) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := e.store.DeleteByID(ctx, id); err != nil {
		return e.storeError(err)
	}
	return nil
}

// DeleteAll removes every document of the family.
func (e *Engine[S, D, E]) DeleteAll(ctx context.Context) error {
	if err := e.store.DeleteAll(ctx); err != nil {
		return e.storeError(err)
	}
	return nil
}

// FindAll lazily decrypts every stored document. Iteration stops after the first error.
func (e *Engine[S, D, E]) FindAll(ctx context.Context) iter.Seq2[D, error] {
	return func(yield func(D, error) bool) {
		var zero D
		for doc, err := range e.store.Stream(ctx) {
			if err != nil {
				yield(zero, e.storeError(err))
				return
			}
			decrypted, err := e.Decrypt(ctx, doc)
			if !yield(decrypted, err) || err != nil {
				return
			}
		}
	}
}

// FindAllPaginated returns one page of decrypted documents matching criteria.
// Criteria may only reference plaintext and hash fields known to the store.
func (e *Engine[S, D, E]) FindAllPaginated(
	ctx context.Context,
	pageable Pageable,
	criteria Criteria,
) (Page[D], error) {
	if err := pageable.Validate(e.opts.maxSize); err != nil {
		return Page[D]{}, err
	}

	docs, total, err := e.store.FindPage(ctx, pageable, criteria)
	if err != nil {
		return Page[D]{}, e.storeError(err)
	}

	items := make([]D, 0, len(docs))
	for _, doc := range docs {
		decrypted, err := e.Decrypt(ctx, doc)
		if err != nil {
			return Page[D]{}, err
		}
		items = append(items, decrypted)
	}

	return Page[D]{Items: items, Total: total, Page: pageable.Page, Size: pageable.Size}, nil
}

func (e *Engine[S, D, E]) storeError(err error) error {
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrDocumentNotFound, err)
	case apperrors.Is(err, ErrInvalidCriteria), apperrors.Is(err, ErrInvalidPageable):
		return err
	case apperrors.Is(err, context.Canceled), apperrors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
}
