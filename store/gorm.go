package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GormStore implements Client on a gorm connection.
type GormStore struct {
	db  *gorm.DB
	log *logrus.Entry

	mu         sync.RWMutex
	procedures map[string]Procedure
	functions  map[string]Function
}

// New returns a store with the built-in procedures registered.
func New(db *gorm.DB, log *logrus.Entry) *GormStore {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &GormStore{
		db:         db,
		log:        log.WithField("component", "store"),
		procedures: make(map[string]Procedure),
		functions:  make(map[string]Function),
	}
	s.RegisterProcedure(ProcConvertLeadToProject, convertLeadToProject)
	return s
}

// DB exposes the underlying connection for migrations and seeding.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) RegisterProcedure(name string, p Procedure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procedures[name] = p
}

func (s *GormStore) RegisterFunction(name string, fn Function) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions[name] = fn
}

func (s *GormStore) Query(ctx context.Context, table Table, filter *Filter, dest interface{}) error {
	if !table.valid() {
		return fmt.Errorf("%w: unknown table %q", ErrInvalidArgument, table)
	}
	if err := filter.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	tx := filter.apply(s.db.WithContext(ctx).Table(string(table)), true)

	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: dest must be a non-nil pointer", ErrInvalidArgument)
	}
	if rv.Elem().Kind() == reflect.Struct {
		return translate(tx.Take(dest).Error)
	}
	return translate(tx.Find(dest).Error)
}

func (s *GormStore) Mutate(ctx context.Context, table Table, m Mutation) (int64, error) {
	if !table.valid() {
		return 0, fmt.Errorf("%w: unknown table %q", ErrInvalidArgument, table)
	}
	if err := m.Match.validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	db := s.db.WithContext(ctx)

	switch m.Op {
	case Insert:
		if m.Row == nil {
			return 0, fmt.Errorf("%w: insert without row", ErrInvalidArgument)
		}
		res := db.Table(string(table)).Create(m.Row)
		return res.RowsAffected, translate(res.Error)

	case Update:
		if m.Match.Empty() {
			return 0, fmt.Errorf("%w: update without match", ErrInvalidArgument)
		}
		if len(m.Values) == 0 {
			return 0, fmt.Errorf("%w: update without values", ErrInvalidArgument)
		}
		res := m.Match.apply(db.Model(table.newRow()), false).Updates(m.Values)
		return res.RowsAffected, translate(res.Error)

	case Delete:
		if m.Match.Empty() {
			return 0, fmt.Errorf("%w: delete without match", ErrInvalidArgument)
		}
		if err := s.checkDependents(db, table, m.Match); err != nil {
			return 0, err
		}
		res := m.Match.apply(db, false).Delete(table.newRow())
		return res.RowsAffected, translate(res.Error)
	}
	return 0, fmt.Errorf("%w: unknown op %q", ErrInvalidArgument, m.Op)
}

// checkDependents rejects a delete while child rows still point at any
// matched parent row.
func (s *GormStore) checkDependents(db *gorm.DB, table Table, match *Filter) error {
	children, ok := dependents[table]
	if !ok {
		return nil
	}
	var ids []uuid.UUID
	if err := match.apply(db.Model(table.newRow()), false).Pluck("id", &ids).Error; err != nil {
		return translate(err)
	}
	if len(ids) == 0 {
		return nil
	}
	for _, child := range children {
		var count int64
		err := db.Table(string(child.table)).
			Where(fmt.Sprintf("%s IN ?", child.column), ids).
			Count(&count).Error
		if err != nil {
			return translate(err)
		}
		if count > 0 {
			return &DependentsError{Table: table, Dependent: child.table, Count: count}
		}
	}
	return nil
}

func (s *GormStore) Invoke(ctx context.Context, name string, payload interface{}, result interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	s.mu.RLock()
	proc, isProc := s.procedures[name]
	fn, isFn := s.functions[name]
	s.mu.RUnlock()

	var out interface{}
	switch {
	case isProc:
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var perr error
			out, perr = proc(ctx, tx, raw)
			return perr
		})
	case isFn:
		out, err = fn(ctx, raw)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if err != nil {
		s.log.WithError(err).WithField("name", name).Warn("invoke failed")
		return translate(err)
	}

	if result == nil || out == nil {
		return nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, result)
}
