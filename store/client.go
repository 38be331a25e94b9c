// Package store is the single data access facade used by every screen. It
// queries and mutates typed tables and invokes server-side procedures and
// functions. It never retries, batches or caches.
package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Op string

const (
	Insert Op = "insert"
	Update Op = "update"
	Delete Op = "delete"
)

// Mutation describes one write. Insert uses Row; update uses Values and
// Match; delete uses Match.
type Mutation struct {
	Op     Op
	Row    interface{}
	Values map[string]interface{}
	Match  *Filter
}

// Client is the data access facade.
type Client interface {
	// Query loads rows of table into dest. dest is a pointer to a slice of
	// the table's model, or a pointer to one model (ErrNotFound when absent).
	Query(ctx context.Context, table Table, filter *Filter, dest interface{}) error
	// Mutate performs one insert, update or delete and returns rows affected.
	Mutate(ctx context.Context, table Table, m Mutation) (int64, error)
	// Invoke runs a registered procedure or function by name.
	Invoke(ctx context.Context, name string, payload interface{}, result interface{}) error
}

// Procedure runs inside a database transaction.
type Procedure func(ctx context.Context, tx *gorm.DB, payload json.RawMessage) (interface{}, error)

// Function runs outside the database, e.g. email dispatch.
type Function func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Get loads the row with the given id into dest.
func Get(ctx context.Context, c Client, table Table, id uuid.UUID, dest interface{}) error {
	return c.Query(ctx, table, Where().Eq("id", id), dest)
}

// InsertRow inserts row into table.
func InsertRow(ctx context.Context, c Client, table Table, row interface{}) error {
	_, err := c.Mutate(ctx, table, Mutation{Op: Insert, Row: row})
	return err
}

// UpdateByID updates the row with the given id. ErrNotFound when nothing matched.
func UpdateByID(ctx context.Context, c Client, table Table, id uuid.UUID, values map[string]interface{}) error {
	return UpdateWhere(ctx, c, table, Where().Eq("id", id), values)
}

// UpdateWhere updates the rows matching match. ErrNotFound when nothing matched.
func UpdateWhere(ctx context.Context, c Client, table Table, match *Filter, values map[string]interface{}) error {
	n, err := c.Mutate(ctx, table, Mutation{Op: Update, Values: values, Match: match})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID deletes the row with the given id. ErrNotFound when nothing matched.
func DeleteByID(ctx context.Context, c Client, table Table, id uuid.UUID) error {
	return DeleteWhere(ctx, c, table, Where().Eq("id", id))
}

// DeleteWhere deletes the rows matching match. ErrNotFound when nothing matched.
func DeleteWhere(ctx context.Context, c Client, table Table, match *Filter) error {
	n, err := c.Mutate(ctx, table, Mutation{Op: Delete, Match: match})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
