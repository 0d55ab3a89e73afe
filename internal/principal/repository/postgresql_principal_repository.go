package repository

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// NewPostgreSQLPrincipalRepository creates a PostgreSQL principal repository over all kinds.
func NewPostgreSQLPrincipalRepository(db *sql.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db, dialect: postgresDialect{}, batchSize: defaultStreamBatchSize}
}

type postgresDialect struct{}

func (postgresDialect) placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (postgresDialect) encodeID(id uuid.UUID) (any, error) {
	return id, nil
}

func (postgresDialect) jsonContains(column, placeholder string) string {
	return column + " @> " + placeholder + "::jsonb"
}

func (postgresDialect) upsert() string {
	return `INSERT INTO principals (` + principalColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  ON CONFLICT (id) DO UPDATE SET
				  roles = EXCLUDED.roles,
				  group_memberships = EXCLUDED.group_memberships,
				  email_hash = EXCLUDED.email_hash,
				  identity_hashes = EXCLUDED.identity_hashes,
				  hash_secret_key = EXCLUDED.hash_secret_key,
				  secret_key = EXCLUDED.secret_key,
				  ciphertext = EXCLUDED.ciphertext,
				  updated_at = EXCLUDED.updated_at,
				  last_active = EXCLUDED.last_active
			  WHERE principals.kind = EXCLUDED.kind`
}

// isUniqueViolation matches SQLSTATE 23505.
func (postgresDialect) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
