// Package listview derives the visible rows of a screen from its loaded
// rows and the user's search, filter and sort choices. Every function here
// is pure: the same rows and query always produce the same output.
package listview

import (
	"cmp"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"
)

// AllValues is the filter value that disables a filter.
const AllValues = "all"

// Query is the user's current view of a list.
type Query struct {
	Search  string            `json:"search"`
	Filters map[string]string `json:"filters"`
	SortBy  string            `json:"sort"`
	Desc    bool              `json:"desc"`
}

// Spec declares how a row type is searched, filtered and sorted.
type Spec[T any] struct {
	// Search lists the fields matched against the search text.
	Search []func(T) string
	// Filters maps a filter key to the field it compares exactly.
	Filters map[string]func(T) string
	// Sorts maps a sort key to a comparator.
	Sorts map[string]func(a, b T) int
	// DefaultSort is used when the query names no known sort key.
	DefaultSort string
	// DefaultDesc is the direction used with DefaultSort.
	DefaultDesc bool
}

// ParseQuery reads search, sort, dir and the filter keys declared by spec
// from URL query values.
func ParseQuery[T any](spec Spec[T], values url.Values) Query {
	q := Query{
		Search:  values.Get("search"),
		SortBy:  values.Get("sort"),
		Filters: map[string]string{},
	}
	switch strings.ToLower(values.Get("dir")) {
	case "desc":
		q.Desc = true
	case "asc":
	default:
		if q.SortBy == "" {
			q.Desc = spec.DefaultDesc
		}
	}
	for key := range spec.Filters {
		if v := values.Get(key); v != "" {
			q.Filters[key] = v
		}
	}
	return q
}

// Apply returns the rows matching q, sorted. rows is never modified.
func Apply[T any](spec Spec[T], rows []T, q Query) []T {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if needle != "" && !matchesSearch(spec.Search, row, needle) {
			continue
		}
		if !matchesFilters(spec.Filters, row, q.Filters) {
			continue
		}
		out = append(out, row)
	}

	sortBy, desc := q.SortBy, q.Desc
	if _, ok := spec.Sorts[sortBy]; !ok {
		sortBy, desc = spec.DefaultSort, spec.DefaultDesc
	}
	if less, ok := spec.Sorts[sortBy]; ok {
		cmpFn := less
		if desc {
			cmpFn = func(a, b T) int { return less(b, a) }
		}
		slices.SortStableFunc(out, cmpFn)
	}
	return out
}

func matchesSearch[T any](fields []func(T) string, row T, needle string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field(row)), needle) {
			return true
		}
	}
	return false
}

func matchesFilters[T any](fields map[string]func(T) string, row T, filters map[string]string) bool {
	for key, want := range filters {
		if want == "" || want == AllValues {
			continue
		}
		field, ok := fields[key]
		if !ok {
			continue
		}
		if field(row) != want {
			return false
		}
	}
	return true
}

// key renders q canonically so equal queries memoize together.
func (q Query) key() string {
	keys := make([]string, 0, len(q.Filters))
	for k, v := range q.Filters {
		if v == "" || v == AllValues {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(q.Search)))
	b.WriteByte(0)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(q.Filters[k])
		b.WriteByte(0)
	}
	b.WriteString(q.SortBy)
	if q.Desc {
		b.WriteString(":desc")
	}
	return b.String()
}

// ByString compares a string field case-insensitively.
func ByString[T any](field func(T) string) func(a, b T) int {
	return func(a, b T) int {
		return cmp.Compare(strings.ToLower(field(a)), strings.ToLower(field(b)))
	}
}

func ByFloat[T any](field func(T) float64) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(field(a), field(b)) }
}

func ByInt[T any](field func(T) int) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(field(a), field(b)) }
}

func ByTime[T any](field func(T) time.Time) func(a, b T) int {
	return func(a, b T) int { return field(a).Compare(field(b)) }
}

// ByOptionalTime orders missing times after present ones.
func ByOptionalTime[T any](field func(T) *time.Time) func(a, b T) int {
	return func(a, b T) int {
		ta, tb := field(a), field(b)
		switch {
		case ta == nil && tb == nil:
			return 0
		case ta == nil:
			return 1
		case tb == nil:
			return -1
		}
		return ta.Compare(*tb)
	}
}

// ByRank orders values by their position in ranks. Unknown values sort last.
func ByRank[T any](field func(T) string, ranks ...string) func(a, b T) int {
	pos := make(map[string]int, len(ranks))
	for i, r := range ranks {
		pos[r] = i
	}
	rank := func(v string) int {
		if i, ok := pos[v]; ok {
			return i
		}
		return len(ranks)
	}
	return func(a, b T) int { return cmp.Compare(rank(field(a)), rank(field(b))) }
}
