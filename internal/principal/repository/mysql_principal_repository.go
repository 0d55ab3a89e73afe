package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// NewMySQLPrincipalRepository creates a MySQL principal repository over all kinds.
func NewMySQLPrincipalRepository(db *sql.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db, dialect: mysqlDialect{}, batchSize: defaultStreamBatchSize}
}

type mysqlDialect struct{}

func (mysqlDialect) placeholder(int) string {
	return "?"
}

// encodeID stores UUIDs as BINARY(16).
func (mysqlDialect) encodeID(id uuid.UUID) (any, error) {
	return id.MarshalBinary()
}

func (mysqlDialect) jsonContains(column, placeholder string) string {
	return "JSON_CONTAINS(" + column + ", " + placeholder + ")"
}

// upsert leaves a row of another kind untouched. kind itself is never assigned, so
// every IF sees the stored value.
func (mysqlDialect) upsert() string {
	return `INSERT INTO principals (` + principalColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  roles = IF(kind = VALUES(kind), VALUES(roles), roles),
				  group_memberships = IF(kind = VALUES(kind), VALUES(group_memberships), group_memberships),
				  email_hash = IF(kind = VALUES(kind), VALUES(email_hash), email_hash),
				  identity_hashes = IF(kind = VALUES(kind), VALUES(identity_hashes), identity_hashes),
				  hash_secret_key = IF(kind = VALUES(kind), VALUES(hash_secret_key), hash_secret_key),
				  secret_key = IF(kind = VALUES(kind), VALUES(secret_key), secret_key),
				  ciphertext = IF(kind = VALUES(kind), VALUES(ciphertext), ciphertext),
				  updated_at = IF(kind = VALUES(kind), VALUES(updated_at), updated_at),
				  last_active = IF(kind = VALUES(kind), VALUES(last_active), last_active)`
}

// isUniqueViolation matches MySQL error 1062 (duplicate entry).
func (mysqlDialect) isUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
