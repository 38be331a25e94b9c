package controllers

import (
	"net/http"
	"strconv"

	"agencydesk-backend/analytics"
	"agencydesk-backend/apperr"
	"agencydesk-backend/models"
	"agencydesk-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// GetAnalytics builds the analytics report for ?range=3m|6m|12m. Synthetic
// series are added with ?include_synthetic=true and are flagged as such.
func (h *Handler) GetAnalytics(c *gin.Context) {
	r, err := analytics.ParseRange(c.Query("range"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("Invalid range", map[string]string{"range": "Must be one of: 3m 6m 12m"}))
		return
	}
	includeSynthetic, _ := strconv.ParseBool(c.DefaultQuery("include_synthetic", "false"))

	now := h.now()
	start := r.Start(now)

	var in analytics.Input
	var issued, paid []models.Invoice
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		return h.store.Query(ctx, store.Leads, store.Where().Gte("created_at", start), &in.Leads)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.PipelineStages, store.Where().Order("stage_order", false), &in.Stages)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.Invoices, store.Where().Gte("issue_date", start), &issued)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.Invoices, store.Where().Eq("status", models.InvoicePaid).Gte("paid_at", start), &paid)
	})
	if err := g.Wait(); err != nil {
		apperr.Respond(c, err)
		return
	}
	in.Invoices = mergeInvoices(issued, paid)

	c.JSON(http.StatusOK, analytics.Build(in, r, now, includeSynthetic))
}

// mergeInvoices concatenates both sets, dropping ids already seen.
func mergeInvoices(sets ...[]models.Invoice) []models.Invoice {
	seen := map[uuid.UUID]struct{}{}
	var out []models.Invoice
	for _, set := range sets {
		for _, inv := range set {
			if _, ok := seen[inv.ID]; ok {
				continue
			}
			seen[inv.ID] = struct{}{}
			out = append(out, inv)
		}
	}
	return out
}
