package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"agencydesk-backend/apperr"
	"agencydesk-backend/listview"
	"agencydesk-backend/models"
	"agencydesk-backend/pricing"
	"agencydesk-backend/screen"
	"agencydesk-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var domainPricingSpec = listview.Spec[models.DomainPricing]{
	Search: []func(models.DomainPricing) string{
		func(p models.DomainPricing) string { return p.TLD },
	},
	Filters: map[string]func(models.DomainPricing) string{
		"is_active": func(p models.DomainPricing) string { return strconv.FormatBool(p.IsActive) },
	},
	Sorts: map[string]func(a, b models.DomainPricing) int{
		"tld":        listview.ByString(func(p models.DomainPricing) string { return p.TLD }),
		"reg_1y_gbp": listview.ByFloat(func(p models.DomainPricing) float64 { return p.Reg1yGBP }),
	},
	DefaultSort: "tld",
}

var serviceDefaultSpec = listview.Spec[models.ServicePricingDefault]{
	Search: []func(models.ServicePricingDefault) string{
		func(p models.ServicePricingDefault) string { return p.ServiceType },
		func(p models.ServicePricingDefault) string { return p.Label },
	},
	Filters: map[string]func(models.ServicePricingDefault) string{
		"service_type": func(p models.ServicePricingDefault) string { return p.ServiceType },
	},
	Sorts: map[string]func(a, b models.ServicePricingDefault) int{
		"label":          listview.ByString(func(p models.ServicePricingDefault) string { return p.Label }),
		"base_price_gbp": listview.ByFloat(func(p models.ServicePricingDefault) float64 { return p.BasePriceGBP }),
	},
	DefaultSort: "label",
}

type DomainPricingInput struct {
	TLD           string  `json:"tld" binding:"required"`
	Reg1yGBP      float64 `json:"reg_1y_gbp" binding:"gte=0"`
	Renew1yGBP    float64 `json:"renew_1y_gbp" binding:"gte=0"`
	Transfer1yGBP float64 `json:"transfer_1y_gbp" binding:"gte=0"`
	IsActive      *bool   `json:"is_active"`
}

type UpdateDomainPricingInput struct {
	Reg1yGBP      *float64 `json:"reg_1y_gbp" binding:"omitempty,gte=0"`
	Renew1yGBP    *float64 `json:"renew_1y_gbp" binding:"omitempty,gte=0"`
	Transfer1yGBP *float64 `json:"transfer_1y_gbp" binding:"omitempty,gte=0"`
	IsActive      *bool    `json:"is_active"`
}

type ServiceDefaultInput struct {
	ServiceType     string  `json:"service_type" binding:"required"`
	Label           string  `json:"label" binding:"required"`
	BasePriceGBP    float64 `json:"base_price_gbp" binding:"gte=0"`
	MonthlyPriceGBP float64 `json:"monthly_price_gbp" binding:"gte=0"`
	SetupFeeGBP     float64 `json:"setup_fee_gbp" binding:"gte=0"`
	IsActive        *bool   `json:"is_active"`
}

type UpdateServiceDefaultInput struct {
	Label           *string  `json:"label" binding:"omitempty,min=1"`
	BasePriceGBP    *float64 `json:"base_price_gbp" binding:"omitempty,gte=0"`
	MonthlyPriceGBP *float64 `json:"monthly_price_gbp" binding:"omitempty,gte=0"`
	SetupFeeGBP     *float64 `json:"setup_fee_gbp" binding:"omitempty,gte=0"`
	IsActive        *bool    `json:"is_active"`
}

// BulkAdjustInput changes every price column of the selected rows by
// Percent, e.g. -10 for a 10% cut.
type BulkAdjustInput struct {
	IDs     []uuid.UUID `json:"ids" binding:"required,min=1"`
	Percent *float64    `json:"percent" binding:"required"`
}

func (in BulkAdjustInput) validate() error {
	if err := pricing.ValidatePercent(*in.Percent); err != nil {
		return apperr.Validation("Invalid percentage", map[string]string{"percent": err.Error()})
	}
	return nil
}

// normalizeTLD strips the leading dot: ".co.uk" is stored as "co.uk".
func normalizeTLD(tld string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tld)), ".")
}

func (h *Handler) domainPricingScreen(c *gin.Context) *screen.Controller[models.DomainPricing] {
	return newScreen(h, c, screen.Config[models.DomainPricing]{
		Name:  "domain_pricing",
		Fetch: fetchRows[models.DomainPricing](h.store, store.DomainPricing, store.Where().Order("tld", false).Limit(h.limit)),
		Spec:  domainPricingSpec,
	})
}

func (h *Handler) ListDomainPricing(c *gin.Context) {
	respondList(c, h.domainPricingScreen(c), domainPricingSpec, nil)
}

func (h *Handler) CreateDomainPricing(c *gin.Context) {
	var input DomainPricingInput
	if !bind(c, &input) {
		return
	}
	row := models.DomainPricing{
		TLD:           normalizeTLD(input.TLD),
		Reg1yGBP:      pricing.Round2(input.Reg1yGBP),
		Renew1yGBP:    pricing.Round2(input.Renew1yGBP),
		Transfer1yGBP: pricing.Round2(input.Transfer1yGBP),
		IsActive:      input.IsActive == nil || *input.IsActive,
	}
	respondMutation(c, h.domainPricingScreen(c), domainPricingSpec, http.StatusCreated, "Add TLD",
		func(ctx context.Context) (string, error) {
			if err := store.InsertRow(ctx, h.store, store.DomainPricing, &row); err != nil {
				return "", err
			}
			if !row.IsActive {
				if err := store.UpdateByID(ctx, h.store, store.DomainPricing, row.ID, map[string]interface{}{"is_active": false}); err != nil {
					return "", err
				}
			}
			return fmt.Sprintf(".%s pricing added", row.TLD), nil
		})
}

func (h *Handler) UpdateDomainPricing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateDomainPricingInput
	if !bind(c, &input) {
		return
	}
	updates := map[string]interface{}{}
	if input.Reg1yGBP != nil {
		updates["reg_1y_gbp"] = pricing.Round2(*input.Reg1yGBP)
	}
	if input.Renew1yGBP != nil {
		updates["renew_1y_gbp"] = pricing.Round2(*input.Renew1yGBP)
	}
	if input.Transfer1yGBP != nil {
		updates["transfer_1y_gbp"] = pricing.Round2(*input.Transfer1yGBP)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}
	respondMutation(c, h.domainPricingScreen(c), domainPricingSpec, http.StatusOK, "Update pricing",
		func(ctx context.Context) (string, error) {
			return "Pricing updated", store.UpdateByID(ctx, h.store, store.DomainPricing, id, updates)
		})
}

func (h *Handler) DeleteDomainPricing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	respondMutation(c, h.domainPricingScreen(c), domainPricingSpec, http.StatusOK, "Delete TLD",
		func(ctx context.Context) (string, error) {
			return "TLD removed", store.DeleteByID(ctx, h.store, store.DomainPricing, id)
		})
}

// BulkAdjustDomainPricing applies a percentage to the registration, renewal
// and transfer prices of each selected TLD, one row at a time.
func (h *Handler) BulkAdjustDomainPricing(c *gin.Context) {
	var input BulkAdjustInput
	if !bind(c, &input) {
		return
	}
	if err := input.validate(); err != nil {
		apperr.Respond(c, err)
		return
	}
	ctrl := h.domainPricingScreen(c)
	res := ctrl.Bulk(c.Request.Context(), "Adjust prices", input.IDs, func(ctx context.Context, id uuid.UUID) error {
		var row models.DomainPricing
		if err := store.Get(ctx, h.store, store.DomainPricing, id, &row); err != nil {
			return err
		}
		values := pricing.AdjustColumns(map[string]float64{
			"reg_1y_gbp":      row.Reg1yGBP,
			"renew_1y_gbp":    row.Renew1yGBP,
			"transfer_1y_gbp": row.Transfer1yGBP,
		}, pricing.DomainPriceColumns, *input.Percent)
		return store.UpdateByID(ctx, h.store, store.DomainPricing, id, values)
	})
	respondBulk(c, ctrl, domainPricingSpec, res)
}

func (h *Handler) serviceDefaultScreen(c *gin.Context) *screen.Controller[models.ServicePricingDefault] {
	return newScreen(h, c, screen.Config[models.ServicePricingDefault]{
		Name:  "service_defaults",
		Fetch: fetchRows[models.ServicePricingDefault](h.store, store.ServicePricingDefaults, store.Where().Order("service_type", false).Limit(h.limit)),
		Spec:  serviceDefaultSpec,
	})
}

func (h *Handler) ListServiceDefaults(c *gin.Context) {
	respondList(c, h.serviceDefaultScreen(c), serviceDefaultSpec, nil)
}

func (h *Handler) CreateServiceDefault(c *gin.Context) {
	var input ServiceDefaultInput
	if !bind(c, &input) {
		return
	}
	row := models.ServicePricingDefault{
		ServiceType:     strings.ToLower(strings.TrimSpace(input.ServiceType)),
		Label:           strings.TrimSpace(input.Label),
		BasePriceGBP:    pricing.Round2(input.BasePriceGBP),
		MonthlyPriceGBP: pricing.Round2(input.MonthlyPriceGBP),
		SetupFeeGBP:     pricing.Round2(input.SetupFeeGBP),
		IsActive:        input.IsActive == nil || *input.IsActive,
	}
	respondMutation(c, h.serviceDefaultScreen(c), serviceDefaultSpec, http.StatusCreated, "Add service default",
		func(ctx context.Context) (string, error) {
			if err := store.InsertRow(ctx, h.store, store.ServicePricingDefaults, &row); err != nil {
				return "", err
			}
			if !row.IsActive {
				if err := store.UpdateByID(ctx, h.store, store.ServicePricingDefaults, row.ID, map[string]interface{}{"is_active": false}); err != nil {
					return "", err
				}
			}
			return fmt.Sprintf("%s added", row.Label), nil
		})
}

func (h *Handler) UpdateServiceDefault(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateServiceDefaultInput
	if !bind(c, &input) {
		return
	}
	updates := map[string]interface{}{}
	if input.Label != nil {
		updates["label"] = strings.TrimSpace(*input.Label)
	}
	if input.BasePriceGBP != nil {
		updates["base_price_gbp"] = pricing.Round2(*input.BasePriceGBP)
	}
	if input.MonthlyPriceGBP != nil {
		updates["monthly_price_gbp"] = pricing.Round2(*input.MonthlyPriceGBP)
	}
	if input.SetupFeeGBP != nil {
		updates["setup_fee_gbp"] = pricing.Round2(*input.SetupFeeGBP)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}
	respondMutation(c, h.serviceDefaultScreen(c), serviceDefaultSpec, http.StatusOK, "Update service default",
		func(ctx context.Context) (string, error) {
			return "Service default updated", store.UpdateByID(ctx, h.store, store.ServicePricingDefaults, id, updates)
		})
}

func (h *Handler) DeleteServiceDefault(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	respondMutation(c, h.serviceDefaultScreen(c), serviceDefaultSpec, http.StatusOK, "Delete service default",
		func(ctx context.Context) (string, error) {
			return "Service default removed", store.DeleteByID(ctx, h.store, store.ServicePricingDefaults, id)
		})
}

func (h *Handler) BulkAdjustServiceDefaults(c *gin.Context) {
	var input BulkAdjustInput
	if !bind(c, &input) {
		return
	}
	if err := input.validate(); err != nil {
		apperr.Respond(c, err)
		return
	}
	ctrl := h.serviceDefaultScreen(c)
	res := ctrl.Bulk(c.Request.Context(), "Adjust prices", input.IDs, func(ctx context.Context, id uuid.UUID) error {
		var row models.ServicePricingDefault
		if err := store.Get(ctx, h.store, store.ServicePricingDefaults, id, &row); err != nil {
			return err
		}
		values := pricing.AdjustColumns(map[string]float64{
			"base_price_gbp":    row.BasePriceGBP,
			"monthly_price_gbp": row.MonthlyPriceGBP,
			"setup_fee_gbp":     row.SetupFeeGBP,
		}, pricing.ServiceDefaultColumns, *input.Percent)
		return store.UpdateByID(ctx, h.store, store.ServicePricingDefaults, id, values)
	})
	respondBulk(c, ctrl, serviceDefaultSpec, res)
}
