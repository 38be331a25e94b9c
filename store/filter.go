package store

import (
	"fmt"
	"regexp"

	"gorm.io/gorm"
)

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type condition struct {
	column string
	op     string
	value  interface{}
}

type ordering struct {
	column string
	desc   bool
}

// Filter narrows a query, update or delete. Build one with Where().
type Filter struct {
	conds  []condition
	orders []ordering
	limit  int
}

// Where starts an empty filter.
func Where() *Filter {
	return &Filter{}
}

func (f *Filter) add(column, op string, value interface{}) *Filter {
	f.conds = append(f.conds, condition{column: column, op: op, value: value})
	return f
}

func (f *Filter) Eq(column string, value interface{}) *Filter  { return f.add(column, "=", value) }
func (f *Filter) Neq(column string, value interface{}) *Filter { return f.add(column, "<>", value) }
func (f *Filter) Gt(column string, value interface{}) *Filter  { return f.add(column, ">", value) }
func (f *Filter) Gte(column string, value interface{}) *Filter { return f.add(column, ">=", value) }
func (f *Filter) Lt(column string, value interface{}) *Filter  { return f.add(column, "<", value) }
func (f *Filter) Lte(column string, value interface{}) *Filter { return f.add(column, "<=", value) }
func (f *Filter) In(column string, values interface{}) *Filter { return f.add(column, "IN", values) }
func (f *Filter) IsNull(column string) *Filter                 { return f.add(column, "IS NULL", nil) }
func (f *Filter) NotNull(column string) *Filter                { return f.add(column, "IS NOT NULL", nil) }

// Order appends a sort column.
func (f *Filter) Order(column string, desc bool) *Filter {
	f.orders = append(f.orders, ordering{column: column, desc: desc})
	return f
}

// Limit caps the number of rows returned. Zero means no cap.
func (f *Filter) Limit(n int) *Filter {
	f.limit = n
	return f
}

// Empty reports whether the filter has no conditions.
func (f *Filter) Empty() bool {
	return f == nil || len(f.conds) == 0
}

func (f *Filter) validate() error {
	if f == nil {
		return nil
	}
	for _, c := range f.conds {
		if !identifier.MatchString(c.column) {
			return fmt.Errorf("invalid column %q", c.column)
		}
	}
	for _, o := range f.orders {
		if !identifier.MatchString(o.column) {
			return fmt.Errorf("invalid order column %q", o.column)
		}
	}
	return nil
}

// apply adds the conditions to tx. withShape also applies order and limit.
func (f *Filter) apply(tx *gorm.DB, withShape bool) *gorm.DB {
	if f == nil {
		return tx
	}
	for _, c := range f.conds {
		switch c.op {
		case "IS NULL", "IS NOT NULL":
			tx = tx.Where(fmt.Sprintf("%s %s", c.column, c.op))
		case "IN":
			tx = tx.Where(fmt.Sprintf("%s IN ?", c.column), c.value)
		default:
			tx = tx.Where(fmt.Sprintf("%s %s ?", c.column, c.op), c.value)
		}
	}
	if !withShape {
		return tx
	}
	for _, o := range f.orders {
		dir := "ASC"
		if o.desc {
			dir = "DESC"
		}
		tx = tx.Order(fmt.Sprintf("%s %s", o.column, dir))
	}
	if f.limit > 0 {
		tx = tx.Limit(f.limit)
	}
	return tx
}
