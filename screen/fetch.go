package screen

import (
	"context"
)

// Aux is an auxiliary collection fetched next to the primary one. A failed
// aux fetch leaves its destination empty instead of failing the screen.
type Aux struct {
	Name  string
	fetch func(ctx context.Context) (commit func(empty bool), err error)
}

// Auxiliary declares an aux fetch that stores its rows into dst once the
// load commits.
func Auxiliary[A any](name string, dst *[]A, fetch func(ctx context.Context) ([]A, error)) Aux {
	return Aux{
		Name: name,
		fetch: func(ctx context.Context) (func(bool), error) {
			rows, err := fetch(ctx)
			return func(empty bool) {
				if empty || rows == nil {
					*dst = []A{}
					return
				}
				*dst = rows
			}, err
		},
	}
}

// Enricher is the second wave of a load: it fetches stats for the loaded
// rows and merges them in.
type Enricher[T any] struct {
	Name string
	run  func(ctx context.Context, rows []T) ([]T, error)
}

// EnrichWith builds an enricher. key picks each row's id, fetch returns the
// stats for a set of ids and merge combines a row with its stats. Rows with
// no stats are merged with the zero value of S.
func EnrichWith[T any, K comparable, S any](
	name string,
	key func(T) K,
	fetch func(ctx context.Context, keys []K) (map[K]S, error),
	merge func(T, S) T,
) Enricher[T] {
	return Enricher[T]{
		Name: name,
		run: func(ctx context.Context, rows []T) ([]T, error) {
			if len(rows) == 0 {
				return rows, nil
			}
			keys := make([]K, 0, len(rows))
			seen := make(map[K]struct{}, len(rows))
			for _, r := range rows {
				k := key(r)
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				keys = append(keys, k)
			}

			stats, err := fetch(ctx, keys)
			if err != nil {
				return nil, err
			}
			out := make([]T, len(rows))
			for i, r := range rows {
				out[i] = merge(r, stats[key(r)])
			}
			return out, nil
		},
	}
}
