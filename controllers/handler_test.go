package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"agencydesk-backend/models"
	"agencydesk-backend/notify"
	"agencydesk-backend/screen"
	"agencydesk-backend/session"
	"agencydesk-backend/store"
	"agencydesk-backend/testutil"
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// outbox runs payloads through a console-mode mailer, so template data is
// checked against the real catalog, and keeps what was sent.
type outbox struct {
	mu     sync.Mutex
	mailer *notify.Mailer
	sent   []notify.Payload
	errs   []error
}

func (o *outbox) handle(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p notify.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	receipt, err := o.mailer.Send(ctx, p)
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.errs = append(o.errs, err)
		return nil, err
	}
	o.sent = append(o.sent, p)
	return receipt, nil
}

func (o *outbox) templates() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.sent))
	for _, p := range o.sent {
		out = append(out, p.Template)
	}
	return out
}

type testEnv struct {
	t     *testing.T
	db    *gorm.DB
	h     *Handler
	mail  *outbox
	admin models.Profile
	sess  session.Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.RegisterValidators()

	log := logrus.New()
	log.SetOutput(io.Discard)

	db := testutil.SetupTestDB(t)
	s := store.New(db, logrus.NewEntry(log))
	catalog, err := notify.LoadCatalog()
	require.NoError(t, err)
	box := &outbox{mailer: notify.NewMailer(notify.MailerConfig{}, catalog, nil, nil, logrus.NewEntry(log))}
	s.RegisterFunction(store.FnSendEmail, box.handle)

	h, err := NewHandler(Options{
		Store: s,
		Hub:   notify.NewHub(logrus.NewEntry(log)),
		Log:   log,
		Now:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	admin := testutil.CreateAdmin(t, db)
	return &testEnv{
		t:     t,
		db:    db,
		h:     h,
		mail:  box,
		admin: admin,
		sess:  session.Session{UserID: admin.ID, Email: admin.Email, FullName: admin.FullName, Role: admin.Role},
	}
}

// as switches the acting user.
func (e *testEnv) as(p models.Profile) *testEnv {
	e.sess = session.Session{UserID: p.ID, Email: p.Email, FullName: p.FullName, Role: p.Role}
	return e
}

// do serves one request to handler mounted at route.
func (e *testEnv) do(method, route, target string, body interface{}, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(route, req, handler)
}

// serve runs a prepared request through handler mounted at route.
func (e *testEnv) serve(route string, req *http.Request, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	e.t.Helper()
	r := gin.New()
	r.Handle(req.Method, route, func(c *gin.Context) {
		c.Set(utils.SessionKey, e.sess)
		c.Next()
	}, handler)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// chunked builds a request whose body length is unknown, as with
// Transfer-Encoding: chunked.
func chunked(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, io.NopCloser(strings.NewReader(body)))
	req.ContentLength = -1
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

type pageBody[T any] struct {
	Rows          []T      `json:"rows"`
	Fetched       int      `json:"fetched"`
	Limit         int      `json:"limit"`
	StatsComplete bool     `json:"stats_complete"`
	State         string   `json:"state"`
	Warnings      []string `json:"warnings"`
}

type mutationBody[T any] struct {
	Result screen.Result `json:"result"`
	Rows   pageBody[T]   `json:"rows"`
}

type bulkBody[T any] struct {
	Result screen.BulkResult `json:"result"`
	Rows   pageBody[T]       `json:"rows"`
}

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func ptr[T any](v T) *T {
	return &v
}

func daysFromNow(n int) *time.Time {
	t := fixedNow.AddDate(0, 0, n)
	return &t
}
