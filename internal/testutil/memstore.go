package testutil

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

// MemStore is an in-memory sensitive.Store that counts reads and writes so tests
// can assert that an operation did not touch the store.
type MemStore[E any] struct {
	mu     sync.RWMutex
	docs   map[uuid.UUID]E
	idOf   func(E) uuid.UUID
	match  func(E, sensitive.Filter) bool
	fields sensitive.Fields
	fail   map[uuid.UUID]error

	upserts atomic.Int64
	deletes atomic.Int64
	reads   atomic.Int64
}

// NewMemStore creates an empty store. match evaluates one filter against a
// document and may be nil when the test never queries by criteria.
func NewMemStore[E any](
	idOf func(E) uuid.UUID,
	fields sensitive.Fields,
	match func(E, sensitive.Filter) bool,
) *MemStore[E] {
	return &MemStore[E]{
		docs:   make(map[uuid.UUID]E),
		idOf:   idOf,
		match:  match,
		fields: fields,
		fail:   make(map[uuid.UUID]error),
	}
}

// Put stores doc without counting a write.
func (s *MemStore[E]) Put(doc E) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[s.idOf(doc)] = doc
}

// Get returns the stored document without counting a read.
func (s *MemStore[E]) Get(id uuid.UUID) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// FailUpsert makes every Upsert of id return err.
func (s *MemStore[E]) FailUpsert(id uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[id] = err
}

// Upserts returns the number of Upsert calls that reached the store.
func (s *MemStore[E]) Upserts() int64 { return s.upserts.Load() }

// Deletes returns the number of delete calls.
func (s *MemStore[E]) Deletes() int64 { return s.deletes.Load() }

// Reads returns the number of documents returned by find and stream calls.
func (s *MemStore[E]) Reads() int64 { return s.reads.Load() }

// Len returns the number of stored documents.
func (s *MemStore[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemStore[E]) FindByID(ctx context.Context, id uuid.UUID) (E, error) {
	var zero E
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return zero, apperrors.Wrap(apperrors.ErrNotFound, "document "+id.String())
	}
	s.reads.Add(1)
	return doc, nil
}

// FindAll returns every document matching criteria in id order.
func (s *MemStore[E]) FindAll(ctx context.Context, criteria sensitive.Criteria) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.fields.Check(criteria, nil); err != nil {
		return nil, err
	}

	var out []E
	for _, doc := range s.sorted() {
		if s.matches(doc, criteria) {
			out = append(out, doc)
		}
	}
	s.reads.Add(int64(len(out)))
	return out, nil
}

func (s *MemStore[E]) FindPage(
	ctx context.Context,
	pageable sensitive.Pageable,
	criteria sensitive.Criteria,
) ([]E, int64, error) {
	if err := s.fields.Check(criteria, pageable.Sort); err != nil {
		return nil, 0, err
	}

	all, err := s.FindAll(ctx, criteria)
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(all))
	start := min(pageable.Offset(), len(all))
	end := min(start+pageable.Size, len(all))
	return all[start:end], total, nil
}

func (s *MemStore[E]) Upsert(ctx context.Context, doc E) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.idOf(doc)
	if err := s.fail[id]; err != nil {
		return err
	}
	s.upserts.Add(1)
	s.docs[id] = doc
	return nil
}

// ReplaceIfUnchanged compares the stored document with prev using reflect.DeepEqual.
// A successful replace counts as an upsert.
func (s *MemStore[E]) ReplaceIfUnchanged(ctx context.Context, prev, doc E) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.idOf(doc)
	if err := s.fail[id]; err != nil {
		return false, err
	}
	stored, ok := s.docs[id]
	if !ok || !reflect.DeepEqual(stored, prev) {
		return false, nil
	}
	s.upserts.Add(1)
	s.docs[id] = doc
	return true, nil
}

func (s *MemStore[E]) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes.Add(1)
	delete(s.docs, id)
	return nil
}

func (s *MemStore[E]) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes.Add(1)
	clear(s.docs)
	return nil
}

// Stream yields a snapshot of the documents in id order.
func (s *MemStore[E]) Stream(ctx context.Context) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		var zero E
		for _, doc := range s.sorted() {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			s.reads.Add(1)
			if !yield(doc, nil) {
				return
			}
		}
	}
}

func (s *MemStore[E]) sorted() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})

	docs := make([]E, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, s.docs[id])
	}
	return docs
}

func (s *MemStore[E]) matches(doc E, criteria sensitive.Criteria) bool {
	for _, f := range criteria {
		if s.match == nil {
			panic(fmt.Sprintf("testutil: MemStore has no matcher for %q", f.Field))
		}
		if !s.match(doc, f) {
			return false
		}
	}
	return true
}
