// Package screen implements the list-filter-mutate contract shared by every
// dashboard screen: fetch, derive a view, mutate, then fetch again.
package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"agencydesk-backend/apperr"
	"agencydesk-backend/listview"
	"agencydesk-backend/metrics"
	"agencydesk-backend/notify"
	"agencydesk-backend/session"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrStaleLoad is returned by a load that finished after a newer load
// started. Its rows are discarded.
var ErrStaleLoad = errors.New("load superseded by a newer load")

// Toaster delivers toasts to a user.
type Toaster interface {
	Notify(userID uuid.UUID, t notify.Toast)
}

// Config declares one screen.
type Config[T any] struct {
	Name   string
	Fetch  func(ctx context.Context) ([]T, error)
	Aux    []Aux
	Enrich []Enricher[T]
	Spec   listview.Spec[T]
	// Limit is the size of the fetched prefix, reported with every page.
	Limit int
}

// Result is the outcome of a mutation as shown to the user.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RowResult struct {
	ID      uuid.UUID `json:"id"`
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
}

// BulkResult reports every row of a bulk operation. Rows are written
// independently, so a failure leaves earlier rows written.
type BulkResult struct {
	Result
	Rows      []RowResult `json:"rows"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// Page is the serialisable view of a screen.
type Page[T any] struct {
	Rows          []T      `json:"rows"`
	Fetched       int      `json:"fetched"`
	Limit         int      `json:"limit"`
	StatsComplete bool     `json:"stats_complete"`
	State         State    `json:"state"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Controller holds one screen's private copy of its rows.
type Controller[T any] struct {
	cfg       Config[T]
	sess      session.Session
	toaster   Toaster
	log       *logrus.Entry
	projector *listview.Projector[T]

	mu            sync.RWMutex
	state         State
	rows          []T
	version       uint64
	gen           uint64
	statsComplete bool
	warnings      []string
	err           error
}

func New[T any](cfg Config[T], sess session.Session, toaster Toaster, log *logrus.Entry) *Controller[T] {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller[T]{
		cfg:       cfg,
		sess:      sess,
		toaster:   toaster,
		log:       log.WithField("screen", cfg.Name),
		projector: listview.NewProjector(cfg.Spec),
		rows:      []T{},
	}
}

func (c *Controller[T]) Session() session.Session { return c.sess }

func (c *Controller[T]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Rows returns the committed rows in fetch order.
func (c *Controller[T]) Rows() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rows
}

// StatsComplete reports whether every enrichment wave of the last load
// landed.
func (c *Controller[T]) StatsComplete() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statsComplete
}

func (c *Controller[T]) Warnings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.warnings...)
}

func (c *Controller[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Load fetches the primary and auxiliary collections in parallel, commits
// the primary rows, then runs the enrichment wave and commits the merged
// rows.
func (c *Controller[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.state != Mutating {
		c.state = Loading
	}
	c.mu.Unlock()

	start := time.Now()
	var rows []T
	commits := make([]func(bool), len(c.cfg.Aux))
	auxErrs := make([]error, len(c.cfg.Aux))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.cfg.Fetch(gctx)
		if err != nil {
			return err
		}
		rows = r
		return nil
	})
	for i, a := range c.cfg.Aux {
		g.Go(func() error {
			commits[i], auxErrs[i] = a.fetch(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.RecordScreenLoad(c.cfg.Name, false, time.Since(start))
		c.mu.Lock()
		current := gen == c.gen
		if current {
			c.state = Failed
			c.err = err
		}
		c.mu.Unlock()
		if !current {
			return ErrStaleLoad
		}
		c.log.WithError(err).Error("screen load failed")
		c.toast(notify.ToastError, "Failed to load "+c.cfg.Name, apperr.UserMessage(err))
		return err
	}
	if rows == nil {
		rows = []T{}
	}

	var warnings []string
	for i, a := range c.cfg.Aux {
		if auxErrs[i] != nil {
			c.log.WithError(auxErrs[i]).WithField("aux", a.Name).Warn("auxiliary fetch failed, using empty fallback")
			metrics.RecordEnrichmentFailure(c.cfg.Name)
			warnings = append(warnings, fmt.Sprintf("%s unavailable", a.Name))
		}
	}

	// Fast path: primary rows with zero-valued stats.
	complete := len(c.cfg.Enrich) == 0
	if !c.commit(gen, rows, complete, warnings, func() {
		for i, commit := range commits {
			if commit != nil {
				commit(auxErrs[i] != nil)
			}
		}
	}) {
		return ErrStaleLoad
	}
	if complete {
		metrics.RecordScreenLoad(c.cfg.Name, true, time.Since(start))
		return nil
	}

	enriched, complete, enrichWarnings := c.enrich(ctx, rows)
	warnings = append(warnings, enrichWarnings...)
	if !c.commit(gen, enriched, complete, warnings, nil) {
		return ErrStaleLoad
	}
	metrics.RecordScreenLoad(c.cfg.Name, true, time.Since(start))
	return nil
}

// enrich runs each enrichment wave over rows. A failed wave keeps the rows
// it was given.
func (c *Controller[T]) enrich(ctx context.Context, rows []T) ([]T, bool, []string) {
	complete := true
	var warnings []string
	cur := rows
	for _, e := range c.cfg.Enrich {
		out, err := e.run(ctx, cur)
		if err != nil {
			c.log.WithError(err).WithField("enricher", e.Name).Warn("stats enrichment failed, showing zero values")
			metrics.RecordEnrichmentFailure(c.cfg.Name)
			warnings = append(warnings, fmt.Sprintf("%s unavailable", e.Name))
			complete = false
			continue
		}
		cur = out
	}
	return cur, complete, warnings
}

// commit stores rows if gen is still the newest load.
func (c *Controller[T]) commit(gen uint64, rows []T, complete bool, warnings []string, also func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.WithField("generation", gen).Debug("discarding stale load")
		return false
	}
	if also != nil {
		also()
	}
	c.rows = rows
	c.version++
	c.statsComplete = complete
	c.warnings = warnings
	c.err = nil
	if c.state != Mutating {
		c.state = Loaded
	}
	return true
}

// View is the memoized projection of the committed rows.
func (c *Controller[T]) View(q listview.Query) []T {
	c.mu.RLock()
	rows, version := c.rows, c.version
	c.mu.RUnlock()
	return c.projector.View(version, rows, q)
}

// Page projects q and wraps it with the load metadata.
func (c *Controller[T]) Page(q listview.Query) Page[T] {
	view := c.View(q)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Page[T]{
		Rows:          view,
		Fetched:       len(c.rows),
		Limit:         c.cfg.Limit,
		StatsComplete: c.statsComplete,
		State:         c.state,
		Warnings:      c.warnings,
	}
}

// Mutate runs one remote write, toasts its outcome and, on success, reloads
// the whole screen. fn returns the success message.
func (c *Controller[T]) Mutate(ctx context.Context, label string, fn func(ctx context.Context) (string, error)) (Result, error) {
	prev := c.setState(Mutating)

	msg, err := fn(ctx)
	if err != nil {
		metrics.RecordMutation(c.cfg.Name, false)
		userMsg := apperr.UserMessage(err)
		c.log.WithError(err).WithField("action", label).Warn("mutation failed")
		c.toast(notify.ToastError, label+" failed", userMsg)
		c.setState(prev)
		return Result{Success: false, Message: userMsg}, err
	}

	metrics.RecordMutation(c.cfg.Name, true)
	if msg == "" {
		msg = label + " succeeded"
	}
	c.toast(notify.ToastSuccess, label, msg)
	c.reload(ctx)
	return Result{Success: true, Message: msg}, nil
}

// Bulk applies fn to every id in order, one independent write per row, and
// reloads once at the end. Any failure produces a single error toast.
func (c *Controller[T]) Bulk(ctx context.Context, label string, ids []uuid.UUID, fn func(ctx context.Context, id uuid.UUID) error) BulkResult {
	c.setState(Mutating)

	res := BulkResult{Rows: make([]RowResult, 0, len(ids))}
	for _, id := range ids {
		rr := RowResult{ID: id, Success: true}
		if err := fn(ctx, id); err != nil {
			rr.Success = false
			rr.Message = apperr.UserMessage(err)
			res.Failed++
			c.log.WithError(err).WithFields(logrus.Fields{"action": label, "id": id}).Warn("bulk row failed")
		} else {
			res.Succeeded++
		}
		metrics.RecordBulkRow(c.cfg.Name, rr.Success)
		res.Rows = append(res.Rows, rr)
	}

	if res.Failed > 0 {
		res.Result = Result{Success: false, Message: fmt.Sprintf("%s failed for some rows", label)}
		c.toast(notify.ToastError, label+" failed", "Some rows could not be updated")
	} else {
		res.Result = Result{Success: true, Message: fmt.Sprintf("%s: %d row(s) updated", label, res.Succeeded)}
		c.toast(notify.ToastSuccess, label, res.Message)
	}
	metrics.RecordMutation(c.cfg.Name, res.Failed == 0)

	c.reload(ctx)
	return res
}

func (c *Controller[T]) reload(ctx context.Context) {
	c.mu.Lock()
	c.state = Loading
	c.mu.Unlock()
	if err := c.Load(ctx); err != nil && !errors.Is(err, ErrStaleLoad) {
		c.log.WithError(err).Warn("reload after mutation failed")
	}
}

func (c *Controller[T]) setState(s State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state
	c.state = s
	return prev
}

func (c *Controller[T]) toast(kind, title, message string) {
	if c.toaster == nil || c.sess.Anonymous() {
		return
	}
	c.toaster.Notify(c.sess.UserID, notify.Toast{Kind: kind, Title: title, Message: message})
}
