// Package repository implements persistence for encrypted principal documents.
//
// Users and guests share the principals table, discriminated by the kind column.
// Only plaintext metadata and keyed hashes are queryable; the sensitive envelope is
// stored as secret_key and ciphertext and never appears in a predicate.
// PostgreSQL uses native UUID and JSONB types, MySQL uses BINARY(16) and JSON.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"

	"github.com/antistereov/singularity-core-sub003/internal/database"
	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/principal/domain"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

const (
	principalColumns = `id, kind, roles, group_memberships, email_hash, identity_hashes, ` +
		`hash_secret_key, secret_key, ciphertext, created_at, updated_at, last_active`

	defaultStreamBatchSize = 500
)

// Fields lists the queryable principal fields and their operators.
var Fields = sensitive.Fields{
	"kind":            {sensitive.OpEq},
	"roles":           {sensitive.OpContains},
	"groups":          {sensitive.OpContains},
	"email_hash":      {sensitive.OpEq},
	"identity_hashes": {sensitive.OpContains},
	"created_at":      {sensitive.OpEq, sensitive.OpGte, sensitive.OpLte},
	"updated_at":      {sensitive.OpEq, sensitive.OpGte, sensitive.OpLte},
	"last_active":     {sensitive.OpEq, sensitive.OpGte, sensitive.OpLte},
}

var columnOf = map[string]string{
	"groups": "group_memberships",
}

// dialect isolates the SQL differences between PostgreSQL and MySQL.
type dialect interface {
	placeholder(n int) string
	encodeID(id uuid.UUID) (any, error)
	jsonContains(column, placeholder string) string
	upsert() string
	isUniqueViolation(err error) bool
}

// PrincipalRepository stores encrypted principals. A repository scoped to a kind
// only sees and writes rows of that kind.
type PrincipalRepository struct {
	db        *sql.DB
	dialect   dialect
	kind      domain.Kind
	batchSize int
}

// ForKind returns a copy of the repository scoped to kind.
func (r *PrincipalRepository) ForKind(kind domain.Kind) *PrincipalRepository {
	scoped := *r
	scoped.kind = kind
	return &scoped
}

// WithBatchSize returns a copy of the repository that streams in batches of size.
func (r *PrincipalRepository) WithBatchSize(size int) *PrincipalRepository {
	scoped := *r
	scoped.batchSize = size
	return &scoped
}

// FindByID retrieves a principal by id.
func (r *PrincipalRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.EncryptedPrincipal, error) {
	q := r.newQuery()
	if err := q.addID("id = %s", id); err != nil {
		return domain.EncryptedPrincipal{}, err
	}
	return r.findOne(ctx, q, "failed to get principal by id")
}

// FindByEmailHash retrieves the principal whose email hash is one of hashes.
func (r *PrincipalRepository) FindByEmailHash(
	ctx context.Context,
	hashes []string,
) (domain.EncryptedPrincipal, error) {
	q := r.newQuery()
	q.addIn("email_hash", hashes)
	return r.findOne(ctx, q, "failed to get principal by email hash")
}

// ExistsByEmailHash reports whether a principal's email hash is one of hashes.
func (r *PrincipalRepository) ExistsByEmailHash(ctx context.Context, hashes []string) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	q := r.newQuery()
	q.addIn("email_hash", hashes)

	query := `SELECT EXISTS(SELECT 1 FROM principals` + q.where() + `)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, q.args...).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check principal by email hash")
	}
	return exists, nil
}

// FindByIdentityHash retrieves the principal holding any of the identity hashes.
func (r *PrincipalRepository) FindByIdentityHash(
	ctx context.Context,
	hashes []string,
) (domain.EncryptedPrincipal, error) {
	q := r.newQuery()
	if err := q.addAnyContains("identity_hashes", hashes); err != nil {
		return domain.EncryptedPrincipal{}, err
	}
	return r.findOne(ctx, q, "failed to get principal by identity hash")
}

// FindPage returns one page of principals matching criteria and the total count.
func (r *PrincipalRepository) FindPage(
	ctx context.Context,
	pageable sensitive.Pageable,
	criteria sensitive.Criteria,
) ([]domain.EncryptedPrincipal, int64, error) {
	if err := Fields.Check(criteria, pageable.Sort); err != nil {
		return nil, 0, err
	}

	q := r.newQuery()
	for _, f := range criteria {
		if err := q.addFilter(f); err != nil {
			return nil, 0, err
		}
	}

	querier := database.GetTx(ctx, r.db)

	var total int64
	countQuery := `SELECT COUNT(*) FROM principals` + q.where()
	if err := querier.QueryRowContext(ctx, countQuery, q.args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, "failed to count principals")
	}

	limit := r.dialect.placeholder(len(q.args) + 1)
	offset := r.dialect.placeholder(len(q.args) + 2)
	query := `SELECT ` + principalColumns + ` FROM principals` + q.where() +
		orderBy(pageable.Sort) + ` LIMIT ` + limit + ` OFFSET ` + offset

	args := append(q.args, pageable.Size, pageable.Offset())
	principals, err := r.findMany(ctx, query, args, "failed to list principals")
	if err != nil {
		return nil, 0, err
	}
	return principals, total, nil
}

// Upsert inserts the principal or replaces the row with the same id. created_at is
// kept from the first insert. The kind of a stored id never changes: replacing a
// row of the other kind fails with ErrKindConflict and leaves the row untouched.
func (r *PrincipalRepository) Upsert(ctx context.Context, p domain.EncryptedPrincipal) error {
	if err := r.checkKind(p); err != nil {
		return err
	}

	querier := database.GetTx(ctx, r.db)

	id, err := r.dialect.encodeID(p.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal principal id")
	}
	lists, err := marshalLists(p)
	if err != nil {
		return err
	}

	result, err := querier.ExecContext(
		ctx,
		r.dialect.upsert(),
		id,
		string(p.Kind),
		lists.roles,
		lists.groups,
		p.EmailHash,
		lists.identities,
		p.HashSecretKey,
		p.Sensitive.SecretKey,
		p.Sensitive.Ciphertext,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
		p.LastActive.UTC(),
	)
	if err != nil {
		return r.writeError(err, "failed to upsert principal")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read upserted principal count")
	}
	if affected > 0 {
		return nil
	}

	// No row changed: either the guard rejected another kind, or MySQL found the
	// row already holding these exact values.
	stored, err := r.storedKind(ctx, id)
	if err != nil {
		return err
	}
	if stored != p.Kind {
		return fmt.Errorf("%w: %s is a %s", domain.ErrKindConflict, p.ID, stored)
	}
	return nil
}

// ReplaceIfUnchanged updates the row only while its envelope, hash secret and
// updated_at still equal prev. Rotation always changes secret_key or
// hash_secret_key, so a matched row is also a changed row and MySQL's
// changed-rows count can be trusted.
func (r *PrincipalRepository) ReplaceIfUnchanged(
	ctx context.Context,
	prev, p domain.EncryptedPrincipal,
) (bool, error) {
	if err := r.checkKind(p); err != nil {
		return false, err
	}
	if prev.ID != p.ID || prev.Kind != p.Kind {
		return false, apperrors.Wrap(apperrors.ErrInvalidInput, "replacement must keep id and kind")
	}

	querier := database.GetTx(ctx, r.db)

	lists, err := marshalLists(p)
	if err != nil {
		return false, err
	}

	q := &query{dialect: r.dialect}
	q.set("roles", lists.roles)
	q.set("group_memberships", lists.groups)
	q.set("email_hash", p.EmailHash)
	q.set("identity_hashes", lists.identities)
	q.set("hash_secret_key", p.HashSecretKey)
	q.set("secret_key", p.Sensitive.SecretKey)
	q.set("ciphertext", p.Sensitive.Ciphertext)
	q.set("updated_at", p.UpdatedAt.UTC())
	q.set("last_active", p.LastActive.UTC())

	if err := q.addID("id = %s", prev.ID); err != nil {
		return false, err
	}
	q.add("kind = %s", string(prev.Kind))
	q.add("secret_key = %s", prev.Sensitive.SecretKey)
	q.add("ciphertext = %s", prev.Sensitive.Ciphertext)
	q.add("hash_secret_key = %s", prev.HashSecretKey)
	q.add("updated_at = %s", prev.UpdatedAt.UTC())

	stmt := `UPDATE principals SET ` + strings.Join(q.sets, ", ") + q.where()

	result, err := querier.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return false, r.writeError(err, "failed to replace principal")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read replaced principal count")
	}
	return affected > 0, nil
}

func (r *PrincipalRepository) checkKind(p domain.EncryptedPrincipal) error {
	if r.kind != "" && p.Kind != r.kind {
		return apperrors.Wrap(
			apperrors.ErrInvalidInput,
			fmt.Sprintf("cannot store %s in %s repository", p.Kind, r.kind),
		)
	}
	return nil
}

func (r *PrincipalRepository) storedKind(ctx context.Context, id any) (domain.Kind, error) {
	querier := database.GetTx(ctx, r.db)

	var kind string
	query := `SELECT kind FROM principals WHERE id = ` + r.dialect.placeholder(1)
	if err := querier.QueryRowContext(ctx, query, id).Scan(&kind); err != nil {
		return "", apperrors.Wrap(err, "failed to read principal kind")
	}
	return domain.Kind(kind), nil
}

func (r *PrincipalRepository) writeError(err error, msg string) error {
	if r.dialect.isUniqueViolation(err) {
		return domain.ErrEmailAlreadyExists
	}
	return apperrors.Wrap(err, msg)
}

// DeleteByID removes the principal with id.
func (r *PrincipalRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	q := r.newQuery()
	if err := q.addID("id = %s", id); err != nil {
		return err
	}

	if _, err := querier.ExecContext(ctx, `DELETE FROM principals`+q.where(), q.args...); err != nil {
		return apperrors.Wrap(err, "failed to delete principal")
	}
	return nil
}

// DeleteAll removes every principal in scope.
func (r *PrincipalRepository) DeleteAll(ctx context.Context) error {
	querier := database.GetTx(ctx, r.db)

	q := r.newQuery()
	if _, err := querier.ExecContext(ctx, `DELETE FROM principals`+q.where(), q.args...); err != nil {
		return apperrors.Wrap(err, "failed to delete principals")
	}
	return nil
}

// Stream yields every principal in id order, reading in keyset-paginated batches so
// that rows upserted during iteration are neither skipped nor repeated.
func (r *PrincipalRepository) Stream(ctx context.Context) iter.Seq2[domain.EncryptedPrincipal, error] {
	return func(yield func(domain.EncryptedPrincipal, error) bool) {
		after := uuid.Nil
		for {
			batch, err := r.batchAfter(ctx, after)
			if err != nil {
				yield(domain.EncryptedPrincipal{}, err)
				return
			}
			for _, p := range batch {
				if !yield(p, nil) {
					return
				}
			}
			if len(batch) < r.batchSize {
				return
			}
			after = batch[len(batch)-1].ID
		}
	}
}

func (r *PrincipalRepository) batchAfter(
	ctx context.Context,
	after uuid.UUID,
) ([]domain.EncryptedPrincipal, error) {
	q := r.newQuery()
	if err := q.addID("id > %s", after); err != nil {
		return nil, err
	}

	limit := r.dialect.placeholder(len(q.args) + 1)
	query := `SELECT ` + principalColumns + ` FROM principals` + q.where() +
		` ORDER BY id ASC LIMIT ` + limit

	return r.findMany(ctx, query, append(q.args, r.batchSize), "failed to stream principals")
}

func (r *PrincipalRepository) findOne(
	ctx context.Context,
	q *query,
	msg string,
) (domain.EncryptedPrincipal, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + principalColumns + ` FROM principals` + q.where()

	p, err := scanPrincipal(querier.QueryRowContext(ctx, query, q.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EncryptedPrincipal{}, domain.ErrPrincipalNotFound
		}
		return domain.EncryptedPrincipal{}, apperrors.Wrap(err, msg)
	}
	return p, nil
}

func (r *PrincipalRepository) findMany(
	ctx context.Context,
	query string,
	args []any,
	msg string,
) ([]domain.EncryptedPrincipal, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, msg)
	}
	defer func() {
		_ = rows.Close()
	}()

	principals := make([]domain.EncryptedPrincipal, 0)
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan principal row")
		}
		principals = append(principals, p)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating principal rows")
	}
	return principals, nil
}

func (r *PrincipalRepository) newQuery() *query {
	q := &query{dialect: r.dialect}
	if r.kind != "" {
		q.add("kind = %s", string(r.kind))
	}
	return q
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(s scanner) (domain.EncryptedPrincipal, error) {
	var (
		p                         domain.EncryptedPrincipal
		kind                      string
		roles, groups, identities []byte
		emailHash                 sql.NullString
	)

	err := s.Scan(
		&p.ID,
		&kind,
		&roles,
		&groups,
		&emailHash,
		&identities,
		&p.HashSecretKey,
		&p.Sensitive.SecretKey,
		&p.Sensitive.Ciphertext,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.LastActive,
	)
	if err != nil {
		return domain.EncryptedPrincipal{}, err
	}

	p.Kind = domain.Kind(kind)
	if emailHash.Valid {
		p.EmailHash = &emailHash.String
	}
	if err := unmarshalStrings(roles, &p.Roles); err != nil {
		return domain.EncryptedPrincipal{}, fmt.Errorf("roles: %w", err)
	}
	if err := unmarshalStrings(groups, &p.Groups); err != nil {
		return domain.EncryptedPrincipal{}, fmt.Errorf("groups: %w", err)
	}
	if err := unmarshalStrings(identities, &p.IdentityHashes); err != nil {
		return domain.EncryptedPrincipal{}, fmt.Errorf("identity hashes: %w", err)
	}
	return p, nil
}

type encodedLists struct {
	roles, groups, identities string
}

func marshalLists(p domain.EncryptedPrincipal) (encodedLists, error) {
	var (
		lists encodedLists
		err   error
	)
	if lists.roles, err = marshalStrings(p.Roles); err != nil {
		return lists, apperrors.Wrap(err, "failed to marshal principal roles")
	}
	if lists.groups, err = marshalStrings(p.Groups); err != nil {
		return lists, apperrors.Wrap(err, "failed to marshal principal groups")
	}
	if lists.identities, err = marshalStrings(p.IdentityHashes); err != nil {
		return lists, apperrors.Wrap(err, "failed to marshal principal identity hashes")
	}
	return lists, nil
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	return string(b), err
}

func unmarshalStrings(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		*dst = []string{}
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func orderBy(sort []sensitive.Order) string {
	if len(sort) == 0 {
		return ` ORDER BY id DESC`
	}

	parts := make([]string, 0, len(sort)+1)
	for _, o := range sort {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, column(o.Field)+" "+dir)
	}
	parts = append(parts, "id DESC")
	return ` ORDER BY ` + strings.Join(parts, ", ")
}

func column(field string) string {
	if c, ok := columnOf[field]; ok {
		return c
	}
	return field
}
