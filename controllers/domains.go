package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agencydesk-backend/apperr"
	"agencydesk-backend/listview"
	"agencydesk-backend/models"
	"agencydesk-backend/screen"
	"agencydesk-backend/store"
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DomainRow struct {
	models.Domain
	CustomerName string `json:"customer_name"`
	// DaysToExpiry is negative once the domain has expired.
	DaysToExpiry *int `json:"days_to_expiry"`
}

var domainSpec = listview.Spec[DomainRow]{
	Search: []func(DomainRow) string{
		func(r DomainRow) string { return r.DomainName },
		func(r DomainRow) string { return r.Registrar },
		func(r DomainRow) string { return r.CustomerName },
	},
	Filters: map[string]func(DomainRow) string{
		"status":     func(r DomainRow) string { return r.Status },
		"auto_renew": func(r DomainRow) string { return strconv.FormatBool(r.AutoRenew) },
	},
	Sorts: map[string]func(a, b DomainRow) int{
		"expiry_date": listview.ByOptionalTime(func(r DomainRow) *time.Time { return r.ExpiryDate }),
		"domain_name": listview.ByString(func(r DomainRow) string { return r.DomainName }),
	},
	DefaultSort: "expiry_date",
}

type CreateDomainInput struct {
	CustomerID   uuid.UUID  `json:"customer_id" binding:"required"`
	DomainName   string     `json:"domain_name" binding:"required,fqdn"`
	Registrar    string     `json:"registrar"`
	Status       string     `json:"status" binding:"omitempty,oneof=active pending expired transferring cancelled"`
	RegisteredAt *time.Time `json:"registered_at"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	AutoRenew    *bool      `json:"auto_renew"`
}

type UpdateDomainInput struct {
	Registrar  *string    `json:"registrar"`
	Status     *string    `json:"status" binding:"omitempty,oneof=active pending expired transferring cancelled"`
	ExpiryDate *time.Time `json:"expiry_date"`
	AutoRenew  *bool      `json:"auto_renew"`
}

type RenewDomainInput struct {
	Years int `json:"years" binding:"omitempty,min=1,max=10"`
}

func (h *Handler) domainScreen(c *gin.Context, customers *[]models.Profile) *screen.Controller[DomainRow] {
	return newScreen(h, c, screen.Config[DomainRow]{
		Name: "domains",
		Fetch: func(ctx context.Context) ([]DomainRow, error) {
			var domains []models.Domain
			if err := h.store.Query(ctx, store.Domains, store.Where().Order("expiry_date", false).Limit(h.limit), &domains); err != nil {
				return nil, err
			}
			now := h.now()
			rows := make([]DomainRow, len(domains))
			for i, d := range domains {
				rows[i] = DomainRow{Domain: d}
				if d.ExpiryDate != nil {
					days := utils.DaysBetween(now, *d.ExpiryDate)
					rows[i].DaysToExpiry = &days
				}
			}
			return rows, nil
		},
		Aux: []screen.Aux{h.customersAux(customers)},
		Enrich: []screen.Enricher[DomainRow]{
			joinCustomers(customers,
				func(r DomainRow) uuid.UUID { return r.CustomerID },
				func(r DomainRow, p models.Profile) DomainRow {
					r.CustomerName = p.FullName
					return r
				}),
		},
		Spec: domainSpec,
	})
}

func (h *Handler) ListDomains(c *gin.Context) {
	var customers []models.Profile
	respondList(c, h.domainScreen(c, &customers), domainSpec, gin.H{"customers": &customers})
}

func (h *Handler) CreateDomain(c *gin.Context) {
	var input CreateDomainInput
	if !bind(c, &input) {
		return
	}
	domain := models.Domain{
		CustomerID:   input.CustomerID,
		DomainName:   strings.ToLower(strings.TrimSpace(input.DomainName)),
		Registrar:    input.Registrar,
		Status:       input.Status,
		RegisteredAt: input.RegisteredAt,
		ExpiryDate:   input.ExpiryDate,
		AutoRenew:    input.AutoRenew == nil || *input.AutoRenew,
	}

	var customers []models.Profile
	respondMutation(c, h.domainScreen(c, &customers), domainSpec, http.StatusCreated, "Add domain",
		func(ctx context.Context) (string, error) {
			if err := store.InsertRow(ctx, h.store, store.Domains, &domain); err != nil {
				return "", err
			}
			// The column default would turn an explicit false into true.
			if !domain.AutoRenew {
				if err := store.UpdateByID(ctx, h.store, store.Domains, domain.ID, map[string]interface{}{"auto_renew": false}); err != nil {
					return "", err
				}
			}
			h.emailCustomer(ctx, &domain.CustomerID, "domain_registered", map[string]string{"domain_name": domain.DomainName})
			return fmt.Sprintf("%s added", domain.DomainName), nil
		})
}

func (h *Handler) UpdateDomain(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateDomainInput
	if !bind(c, &input) {
		return
	}

	updates := map[string]interface{}{}
	if input.Registrar != nil {
		updates["registrar"] = *input.Registrar
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.ExpiryDate != nil {
		updates["expiry_date"] = *input.ExpiryDate
	}
	if input.AutoRenew != nil {
		updates["auto_renew"] = *input.AutoRenew
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}

	var customers []models.Profile
	respondMutation(c, h.domainScreen(c, &customers), domainSpec, http.StatusOK, "Update domain",
		func(ctx context.Context) (string, error) {
			return "Domain updated", store.UpdateByID(ctx, h.store, store.Domains, id, updates)
		})
}

func (h *Handler) DeleteDomain(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var customers []models.Profile
	respondMutation(c, h.domainScreen(c, &customers), domainSpec, http.StatusOK, "Delete domain",
		func(ctx context.Context) (string, error) {
			return "Domain deleted", store.DeleteByID(ctx, h.store, store.Domains, id)
		})
}

// RenewalExpiry extends expiry by years, counting from now when the domain
// has already expired or has no expiry date.
func RenewalExpiry(expiry *time.Time, now time.Time, years int) time.Time {
	base := now
	if expiry != nil && expiry.After(now) {
		base = *expiry
	}
	return base.AddDate(years, 0, 0)
}

func (h *Handler) RenewDomain(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input RenewDomainInput
	if !bindOptional(c, &input) {
		return
	}
	if input.Years == 0 {
		input.Years = 1
	}

	var customers []models.Profile
	respondMutation(c, h.domainScreen(c, &customers), domainSpec, http.StatusOK, "Renew domain",
		func(ctx context.Context) (string, error) {
			var d models.Domain
			if err := store.Get(ctx, h.store, store.Domains, id, &d); err != nil {
				return "", err
			}
			if d.Status == "cancelled" {
				return "", apperr.Conflict("Cancelled domains cannot be renewed")
			}
			expiry := RenewalExpiry(d.ExpiryDate, h.now(), input.Years)
			err := store.UpdateByID(ctx, h.store, store.Domains, id, map[string]interface{}{
				"expiry_date": expiry,
				"status":      "active",
			})
			if err != nil {
				return "", err
			}
			h.emailCustomer(ctx, &d.CustomerID, "domain_renewed", map[string]string{
				"domain_name": d.DomainName,
				"expiry_date": utils.FormatDate(&expiry),
			})
			return fmt.Sprintf("%s renewed until %s", d.DomainName, utils.FormatDate(&expiry)), nil
		})
}
