package screen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"agencydesk-backend/listview"
	"agencydesk-backend/notify"
	"agencydesk-backend/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customer struct {
	ID    uuid.UUID
	Name  string
	Spent float64
}

type spend struct{ Total float64 }

type recordingToaster struct {
	mu     sync.Mutex
	toasts []notify.Toast
}

func (r *recordingToaster) Notify(_ uuid.UUID, t notify.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recordingToaster) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.toasts))
	for i, t := range r.toasts {
		out[i] = t.Kind
	}
	return out
}

var testSession = session.Session{UserID: uuid.New(), Role: session.RoleAdmin}

var customerSpec = listview.Spec[customer]{
	Search: []func(customer) string{func(c customer) string { return c.Name }},
	Sorts: map[string]func(a, b customer) int{
		"name": listview.ByString(func(c customer) string { return c.Name }),
	},
	DefaultSort: "name",
}

func fixedRows() []customer {
	return []customer{
		{ID: uuid.New(), Name: "Acme Ltd"},
		{ID: uuid.New(), Name: "Bolt Studio"},
	}
}

func spendEnricher(fetch func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]spend, error)) Enricher[customer] {
	return EnrichWith("spend",
		func(c customer) uuid.UUID { return c.ID },
		fetch,
		func(c customer, s spend) customer { c.Spent = s.Total; return c },
	)
}

func TestLoad_EnrichesRows(t *testing.T) {
	rows := fixedRows()
	ctrl := New(Config[customer]{
		Name:  "customers",
		Fetch: func(context.Context) ([]customer, error) { return rows, nil },
		Enrich: []Enricher[customer]{spendEnricher(func(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]spend, error) {
			assert.Len(t, ids, 2)
			// second row has no stats and merges with the zero value
			return map[uuid.UUID]spend{rows[0].ID: {Total: 250}}, nil
		})},
		Spec: customerSpec,
	}, testSession, nil, nil)

	require.NoError(t, ctrl.Load(context.Background()))
	assert.Equal(t, Loaded, ctrl.State())
	assert.True(t, ctrl.StatsComplete())

	got := ctrl.Rows()
	assert.Equal(t, 250.0, got[0].Spent)
	assert.Zero(t, got[1].Spent)
	// base rows are not modified by the merge
	assert.Zero(t, rows[0].Spent)
}

func TestLoad_EnrichmentFailureKeepsZeroStats(t *testing.T) {
	ctrl := New(Config[customer]{
		Name:  "customers",
		Fetch: func(context.Context) ([]customer, error) { return fixedRows(), nil },
		Enrich: []Enricher[customer]{spendEnricher(func(context.Context, []uuid.UUID) (map[uuid.UUID]spend, error) {
			return nil, errors.New("invoices unavailable")
		})},
		Spec: customerSpec,
	}, testSession, nil, nil)

	require.NoError(t, ctrl.Load(context.Background()))
	assert.Equal(t, Loaded, ctrl.State())
	assert.False(t, ctrl.StatsComplete())
	require.Len(t, ctrl.Rows(), 2)
	for _, r := range ctrl.Rows() {
		assert.Zero(t, r.Spent)
	}
	assert.Equal(t, []string{"spend unavailable"}, ctrl.Warnings())
}

func TestLoad_AuxFailureFallsBackToEmpty(t *testing.T) {
	stages := []string{"stale"}
	categories := []string{"stale"}
	ctrl := New(Config[customer]{
		Name:  "pipeline",
		Fetch: func(context.Context) ([]customer, error) { return fixedRows(), nil },
		Aux: []Aux{
			Auxiliary("stages", &stages, func(context.Context) ([]string, error) { return []string{"New", "Won"}, nil }),
			Auxiliary("categories", &categories, func(context.Context) ([]string, error) { return nil, errors.New("boom") }),
		},
		Spec: customerSpec,
	}, testSession, nil, nil)

	require.NoError(t, ctrl.Load(context.Background()))
	assert.Equal(t, []string{"New", "Won"}, stages)
	assert.Empty(t, categories)
	assert.NotNil(t, categories)
	assert.Len(t, ctrl.Rows(), 2)
	assert.True(t, ctrl.StatsComplete())
}

func TestLoad_PrimaryFailure(t *testing.T) {
	toaster := &recordingToaster{}
	ctrl := New(Config[customer]{
		Name:  "customers",
		Fetch: func(context.Context) ([]customer, error) { return nil, errors.New("db down") },
		Spec:  customerSpec,
	}, testSession, toaster, nil)

	err := ctrl.Load(context.Background())
	assert.EqualError(t, err, "db down")
	assert.Equal(t, Failed, ctrl.State())
	assert.Equal(t, []string{notify.ToastError}, toaster.kinds())
	assert.Empty(t, ctrl.Rows())
}

func TestLoad_StaleLoadDoesNotOverwriteNewer(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	ctrl := New(Config[customer]{
		Name: "customers",
		Fetch: func(context.Context) ([]customer, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-release
				return []customer{{Name: "old"}}, nil
			}
			return []customer{{Name: "new"}}, nil
		},
		Spec: customerSpec,
	}, testSession, nil, nil)

	firstDone := make(chan error, 1)
	go func() { firstDone <- ctrl.Load(context.Background()) }()
	<-started

	require.NoError(t, ctrl.Load(context.Background()))
	close(release)

	assert.ErrorIs(t, <-firstDone, ErrStaleLoad)
	require.Len(t, ctrl.Rows(), 1)
	assert.Equal(t, "new", ctrl.Rows()[0].Name)
}

func TestView_ProjectsCommittedRows(t *testing.T) {
	ctrl := New(Config[customer]{
		Name:  "customers",
		Fetch: func(context.Context) ([]customer, error) { return fixedRows(), nil },
		Spec:  customerSpec,
	}, testSession, nil, nil)
	require.NoError(t, ctrl.Load(context.Background()))

	view := ctrl.View(listview.Query{Search: "BOLT"})
	require.Len(t, view, 1)
	assert.Equal(t, "Bolt Studio", view[0].Name)

	page := ctrl.Page(listview.Query{})
	assert.Equal(t, 2, page.Fetched)
	assert.Len(t, page.Rows, 2)
}

func TestMutate_SuccessToastsAndReloads(t *testing.T) {
	var fetches atomic.Int32
	toaster := &recordingToaster{}
	ctrl := New(Config[customer]{
		Name: "customers",
		Fetch: func(context.Context) ([]customer, error) {
			fetches.Add(1)
			return fixedRows(), nil
		},
		Spec: customerSpec,
	}, testSession, toaster, nil)
	require.NoError(t, ctrl.Load(context.Background()))

	res, err := ctrl.Mutate(context.Background(), "Customer updated", func(context.Context) (string, error) {
		assert.Equal(t, Mutating, ctrl.State())
		return "", nil
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Customer updated succeeded", res.Message)
	assert.EqualValues(t, 2, fetches.Load())
	assert.Equal(t, Loaded, ctrl.State())
	assert.Equal(t, []string{notify.ToastSuccess}, toaster.kinds())
}

func TestMutate_FailureIsNeverSwallowed(t *testing.T) {
	var fetches atomic.Int32
	toaster := &recordingToaster{}
	ctrl := New(Config[customer]{
		Name: "customers",
		Fetch: func(context.Context) ([]customer, error) {
			fetches.Add(1)
			return fixedRows(), nil
		},
		Spec: customerSpec,
	}, testSession, toaster, nil)
	require.NoError(t, ctrl.Load(context.Background()))

	res, err := ctrl.Mutate(context.Background(), "Delete customer", func(context.Context) (string, error) {
		return "", errors.New("socket closed")
	})
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
	assert.EqualValues(t, 1, fetches.Load())
	assert.Equal(t, Loaded, ctrl.State())
	assert.Equal(t, []string{notify.ToastError}, toaster.kinds())
}

func TestBulk_ReportsEveryRow(t *testing.T) {
	toaster := &recordingToaster{}
	ctrl := New(Config[customer]{
		Name:  "tickets",
		Fetch: func(context.Context) ([]customer, error) { return fixedRows(), nil },
		Spec:  customerSpec,
	}, testSession, toaster, nil)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	var order []uuid.UUID
	res := ctrl.Bulk(context.Background(), "Set status", ids, func(_ context.Context, id uuid.UUID) error {
		order = append(order, id)
		if id == ids[1] {
			return errors.New("row locked")
		}
		return nil
	})

	assert.Equal(t, ids, order)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Rows, 3)
	assert.True(t, res.Rows[0].Success)
	assert.False(t, res.Rows[1].Success)
	assert.True(t, res.Rows[2].Success)
	// one generic error toast for the whole batch
	assert.Equal(t, []string{notify.ToastError}, toaster.kinds())
	assert.Len(t, ctrl.Rows(), 2)
}

func TestBulk_AllSucceed(t *testing.T) {
	ctrl := New(Config[customer]{
		Name:  "tickets",
		Fetch: func(context.Context) ([]customer, error) { return nil, nil },
		Spec:  customerSpec,
	}, testSession, nil, nil)

	res := ctrl.Bulk(context.Background(), "Set status", []uuid.UUID{uuid.New()}, func(context.Context, uuid.UUID) error { return nil })
	assert.True(t, res.Success)
	assert.Equal(t, "Set status: 1 row(s) updated", res.Message)
	assert.NotNil(t, ctrl.Rows())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "mutating", Mutating.String())
	b, err := Failed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed", string(b))
}
