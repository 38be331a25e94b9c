package listview

import "sync"

// Projector memoizes Apply for one screen. The cached view is reused until
// either the rows version or the query changes.
type Projector[T any] struct {
	spec Spec[T]

	mu      sync.Mutex
	version uint64
	key     string
	valid   bool
	view    []T
}

func NewProjector[T any](spec Spec[T]) *Projector[T] {
	return &Projector[T]{spec: spec}
}

func (p *Projector[T]) Spec() Spec[T] {
	return p.spec
}

// View returns the projected rows for the given rows version.
func (p *Projector[T]) View(version uint64, rows []T, q Query) []T {
	key := q.key()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.valid && p.version == version && p.key == key {
		return p.view
	}
	p.view = Apply(p.spec, rows, q)
	p.version = version
	p.key = key
	p.valid = true
	return p.view
}
