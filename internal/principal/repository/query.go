package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/antistereov/singularity-core-sub003/internal/errors"
	"github.com/antistereov/singularity-core-sub003/internal/sensitive"
)

// query accumulates AND-ed conditions with dialect placeholders.
type query struct {
	dialect    dialect
	sets       []string
	conditions []string
	args       []any
}

// set appends an assignment. All assignments must be added before any condition
// because MySQL placeholders are positional.
func (q *query) set(column string, arg any) {
	q.args = append(q.args, arg)
	q.sets = append(q.sets, column+" = "+q.dialect.placeholder(len(q.args)))
}

// add appends a condition; format receives the placeholder of arg.
func (q *query) add(format string, arg any) {
	q.args = append(q.args, arg)
	q.conditions = append(q.conditions, fmt.Sprintf(format, q.dialect.placeholder(len(q.args))))
}

func (q *query) addID(format string, id uuid.UUID) error {
	encoded, err := q.dialect.encodeID(id)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal principal id")
	}
	q.add(format, encoded)
	return nil
}

// addFilter translates a filter that already passed Fields.Check.
func (q *query) addFilter(f sensitive.Filter) error {
	col := column(f.Field)

	switch f.Op {
	case sensitive.OpEq:
		q.add(col+" = %s", f.Value)
	case sensitive.OpGte:
		q.add(col+" >= %s", f.Value)
	case sensitive.OpLte:
		q.add(col+" <= %s", f.Value)
	case sensitive.OpContains:
		candidate, err := json.Marshal([]any{f.Value})
		if err != nil {
			return fmt.Errorf("%w: %v", sensitive.ErrInvalidCriteria, err)
		}
		q.args = append(q.args, string(candidate))
		q.conditions = append(
			q.conditions,
			q.dialect.jsonContains(col, q.dialect.placeholder(len(q.args))),
		)
	default:
		return fmt.Errorf("%w: operator %q", sensitive.ErrInvalidCriteria, f.Op)
	}
	return nil
}

// addIn matches column against any of values. An empty set matches nothing.
func (q *query) addIn(column string, values []string) {
	if len(values) == 0 {
		q.conditions = append(q.conditions, "1 = 0")
		return
	}
	placeholders := make([]string, 0, len(values))
	for _, v := range values {
		q.args = append(q.args, v)
		placeholders = append(placeholders, q.dialect.placeholder(len(q.args)))
	}
	q.conditions = append(q.conditions, column+" IN ("+strings.Join(placeholders, ", ")+")")
}

// addAnyContains matches rows whose JSON array column holds any of values.
func (q *query) addAnyContains(column string, values []string) error {
	if len(values) == 0 {
		q.conditions = append(q.conditions, "1 = 0")
		return nil
	}
	alternatives := make([]string, 0, len(values))
	for _, v := range values {
		candidate, err := json.Marshal([]string{v})
		if err != nil {
			return fmt.Errorf("%w: %v", sensitive.ErrInvalidCriteria, err)
		}
		q.args = append(q.args, string(candidate))
		alternatives = append(alternatives, q.dialect.jsonContains(column, q.dialect.placeholder(len(q.args))))
	}
	q.conditions = append(q.conditions, "("+strings.Join(alternatives, " OR ")+")")
	return nil
}

func (q *query) where() string {
	if len(q.conditions) == 0 {
		return ""
	}
	return ` WHERE ` + strings.Join(q.conditions, " AND ")
}
