package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"agencydesk-backend/apperr"
	"agencydesk-backend/listview"
	"agencydesk-backend/models"
	"agencydesk-backend/notify"
	"agencydesk-backend/screen"
	"agencydesk-backend/store"
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options wires a Handler.
type Options struct {
	Store store.Client
	Hub   *notify.Hub
	Log   *logrus.Logger
	// FetchLimit is the prefix size list screens fetch. Defaults to 100.
	FetchLimit int
	Now        func() time.Time
}

// Handler serves every dashboard screen. Each request builds its own screen
// controller from the request's session.
type Handler struct {
	store        store.Client
	hub          *notify.Hub
	log          *logrus.Entry
	limit        int
	now          func() time.Time
	integrations IntegrationCatalog
}

func NewHandler(opts Options) (*Handler, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = 100
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	catalog, err := LoadIntegrationCatalog()
	if err != nil {
		return nil, err
	}
	return &Handler{
		store:        opts.Store,
		hub:          opts.Hub,
		log:          log.WithField("component", "controllers"),
		limit:        opts.FetchLimit,
		now:          opts.Now,
		integrations: catalog,
	}, nil
}

func (h *Handler) toaster() screen.Toaster {
	if h.hub == nil {
		return nil
	}
	return h.hub
}

func newScreen[T any](h *Handler, c *gin.Context, cfg screen.Config[T]) *screen.Controller[T] {
	if cfg.Limit == 0 {
		cfg.Limit = h.limit
	}
	return screen.New(cfg, utils.CurrentSession(c), h.toaster(), h.log)
}

// fetchRows returns a fetch of table narrowed by filter.
func fetchRows[T any](s store.Client, table store.Table, filter *store.Filter) func(ctx context.Context) ([]T, error) {
	return func(ctx context.Context) ([]T, error) {
		var rows []T
		if err := s.Query(ctx, table, filter, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
}

// listing is a page plus the lookup collections the screen's forms need.
type listing[T any] struct {
	screen.Page[T]
	Lookups gin.H `json:"lookups,omitempty"`
}

// respondList loads the screen and writes the page for the request's query.
func respondList[T any](c *gin.Context, ctrl *screen.Controller[T], spec listview.Spec[T], lookups gin.H) {
	if err := ctrl.Load(c.Request.Context()); err != nil {
		apperr.Respond(c, err)
		return
	}
	page := ctrl.Page(listview.ParseQuery(spec, c.Request.URL.Query()))
	c.JSON(http.StatusOK, listing[T]{Page: page, Lookups: lookups})
}

// respondMutation runs fn through the screen's mutate contract and writes
// the result with the reloaded page.
func respondMutation[T any](c *gin.Context, ctrl *screen.Controller[T], spec listview.Spec[T], status int, label string, fn func(ctx context.Context) (string, error)) {
	res, err := ctrl.Mutate(c.Request.Context(), label, fn)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(status, gin.H{
		"result": res,
		"rows":   ctrl.Page(listview.ParseQuery(spec, c.Request.URL.Query())),
	})
}

// respondBulk writes a bulk result. Partial failures are still 200: the
// per-row results say which rows failed.
func respondBulk[T any](c *gin.Context, ctrl *screen.Controller[T], spec listview.Spec[T], res screen.BulkResult) {
	c.JSON(http.StatusOK, gin.H{
		"result": res,
		"rows":   ctrl.Page(listview.ParseQuery(spec, c.Request.URL.Query())),
	})
}

// parseID reads the :id path parameter.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.BadRequest("Invalid id format"))
		return uuid.Nil, false
	}
	return id, true
}

// bind decodes the JSON body into input and runs its binding rules.
func bind(c *gin.Context, input interface{}) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		if errors.Is(err, io.EOF) {
			err = apperr.BadRequest("Request body is required")
		}
		apperr.Respond(c, err)
		return false
	}
	return true
}

// bindOptional binds a JSON body when one is sent. An empty body, chunked or
// not, leaves input at its zero value.
func bindOptional(c *gin.Context, input interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(input); err != nil && !errors.Is(err, io.EOF) {
		apperr.Respond(c, err)
		return false
	}
	return true
}

// sendEmail dispatches a templated email through the send-email function.
// Failures are logged; the calling mutation has already succeeded.
func (h *Handler) sendEmail(ctx context.Context, p notify.Payload) {
	if p.To == "" {
		return
	}
	var receipt notify.Receipt
	if err := h.store.Invoke(ctx, store.FnSendEmail, p, &receipt); err != nil {
		h.log.WithError(err).WithField("template", p.Template).Warn("email dispatch failed")
		return
	}
	h.log.WithFields(logrus.Fields{"template": p.Template, "email": receipt.Email}).Debug("email dispatched")
}

// emailCustomer sends template to a customer profile, looked up by id.
func (h *Handler) emailCustomer(ctx context.Context, customerID *uuid.UUID, template string, data map[string]string) {
	if customerID == nil {
		return
	}
	var p models.Profile
	if err := store.Get(ctx, h.store, store.Profiles, *customerID, &p); err != nil {
		h.log.WithError(err).WithField("template", template).Warn("email recipient lookup failed")
		return
	}
	if data == nil {
		data = map[string]string{}
	}
	data["name"] = p.FullName
	h.sendEmail(ctx, notify.Payload{To: p.Email, ToName: p.FullName, Template: template, Data: data, SMSTo: p.Phone})
}

// customersAux fetches customer profiles for name lookups and pickers.
func (h *Handler) customersAux(dst *[]models.Profile) screen.Aux {
	return screen.Auxiliary("customers", dst, fetchRows[models.Profile](h.store,
		store.Profiles, store.Where().Eq("role", models.RoleCustomer).Order("full_name", false)))
}

// joinAux merges rows of an aux collection loaded by the same pass into
// each row. The aux fetch has committed before the enrichment wave runs.
func joinAux[T, A any](name string, aux *[]A, auxKey func(A) uuid.UUID, key func(T) uuid.UUID, merge func(T, A) T) screen.Enricher[T] {
	return screen.EnrichWith(name, key,
		func(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]A, error) {
			byID := make(map[uuid.UUID]A, len(*aux))
			for _, a := range *aux {
				byID[auxKey(a)] = a
			}
			return byID, nil
		}, merge)
}

func joinCustomers[T any](customers *[]models.Profile, key func(T) uuid.UUID, merge func(T, models.Profile) T) screen.Enricher[T] {
	return joinAux("customer names", customers, func(p models.Profile) uuid.UUID { return p.ID }, key, merge)
}

func optionalID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func formatMoney(v float64) string {
	return fmt.Sprintf("£%.2f", v)
}
