package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agencydesk-backend/apperr"
	"agencydesk-backend/listview"
	"agencydesk-backend/models"
	"agencydesk-backend/screen"
	"agencydesk-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type HostingRow struct {
	models.HostingAccount
	CustomerName string `json:"customer_name"`
}

var hostingSpec = listview.Spec[HostingRow]{
	Search: []func(HostingRow) string{
		func(r HostingRow) string { return r.PlanName },
		func(r HostingRow) string { return r.PrimaryDomain },
		func(r HostingRow) string { return r.CustomerName },
	},
	Filters: map[string]func(HostingRow) string{
		"status": func(r HostingRow) string { return r.Status },
	},
	Sorts: map[string]func(a, b HostingRow) int{
		"renewal_date": listview.ByOptionalTime(func(r HostingRow) *time.Time { return r.RenewalDate }),
		"plan_name":    listview.ByString(func(r HostingRow) string { return r.PlanName }),
	},
	DefaultSort: "renewal_date",
}

// hostingStatusEmails is the template sent when an account enters a status.
var hostingStatusEmails = map[string]string{
	"active":    "hosting_activated",
	"suspended": "hosting_suspended",
	"cancelled": "hosting_cancelled",
}

type CreateHostingInput struct {
	CustomerID    uuid.UUID  `json:"customer_id" binding:"required"`
	PlanName      string     `json:"plan_name" binding:"required"`
	PrimaryDomain string     `json:"primary_domain" binding:"omitempty,fqdn"`
	MonthlyPrice  float64    `json:"monthly_price" binding:"gte=0"`
	RenewalDate   *time.Time `json:"renewal_date"`
}

type UpdateHostingInput struct {
	PlanName      *string    `json:"plan_name" binding:"omitempty,min=1"`
	PrimaryDomain *string    `json:"primary_domain" binding:"omitempty,fqdn"`
	MonthlyPrice  *float64   `json:"monthly_price" binding:"omitempty,gte=0"`
	RenewalDate   *time.Time `json:"renewal_date"`
}

type HostingStatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending active suspended cancelled"`
}

func (h *Handler) hostingScreen(c *gin.Context, customers *[]models.Profile) *screen.Controller[HostingRow] {
	return newScreen(h, c, screen.Config[HostingRow]{
		Name: "hosting",
		Fetch: func(ctx context.Context) ([]HostingRow, error) {
			var accounts []models.HostingAccount
			if err := h.store.Query(ctx, store.HostingAccounts, store.Where().Order("renewal_date", false).Limit(h.limit), &accounts); err != nil {
				return nil, err
			}
			rows := make([]HostingRow, len(accounts))
			for i, a := range accounts {
				rows[i] = HostingRow{HostingAccount: a}
			}
			return rows, nil
		},
		Aux: []screen.Aux{h.customersAux(customers)},
		Enrich: []screen.Enricher[HostingRow]{
			joinCustomers(customers,
				func(r HostingRow) uuid.UUID { return r.CustomerID },
				func(r HostingRow, p models.Profile) HostingRow {
					r.CustomerName = p.FullName
					return r
				}),
		},
		Spec: hostingSpec,
	})
}

func (h *Handler) ListHosting(c *gin.Context) {
	var customers []models.Profile
	respondList(c, h.hostingScreen(c, &customers), hostingSpec, gin.H{"customers": &customers})
}

func (h *Handler) CreateHosting(c *gin.Context) {
	var input CreateHostingInput
	if !bind(c, &input) {
		return
	}
	account := models.HostingAccount{
		CustomerID:    input.CustomerID,
		PlanName:      strings.TrimSpace(input.PlanName),
		PrimaryDomain: strings.ToLower(input.PrimaryDomain),
		MonthlyPrice:  input.MonthlyPrice,
		RenewalDate:   input.RenewalDate,
	}

	var customers []models.Profile
	respondMutation(c, h.hostingScreen(c, &customers), hostingSpec, http.StatusCreated, "Create hosting account",
		func(ctx context.Context) (string, error) {
			if err := store.InsertRow(ctx, h.store, store.HostingAccounts, &account); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s hosting created", account.PlanName), nil
		})
}

func (h *Handler) UpdateHosting(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateHostingInput
	if !bind(c, &input) {
		return
	}

	updates := map[string]interface{}{}
	if input.PlanName != nil {
		updates["plan_name"] = strings.TrimSpace(*input.PlanName)
	}
	if input.PrimaryDomain != nil {
		updates["primary_domain"] = strings.ToLower(*input.PrimaryDomain)
	}
	if input.MonthlyPrice != nil {
		updates["monthly_price"] = *input.MonthlyPrice
	}
	if input.RenewalDate != nil {
		updates["renewal_date"] = *input.RenewalDate
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}

	var customers []models.Profile
	respondMutation(c, h.hostingScreen(c, &customers), hostingSpec, http.StatusOK, "Update hosting account",
		func(ctx context.Context) (string, error) {
			return "Hosting account updated", store.UpdateByID(ctx, h.store, store.HostingAccounts, id, updates)
		})
}

func (h *Handler) DeleteHosting(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var customers []models.Profile
	respondMutation(c, h.hostingScreen(c, &customers), hostingSpec, http.StatusOK, "Delete hosting account",
		func(ctx context.Context) (string, error) {
			return "Hosting account deleted", store.DeleteByID(ctx, h.store, store.HostingAccounts, id)
		})
}

// SetHostingStatus changes the account status and tells the customer.
func (h *Handler) SetHostingStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input HostingStatusInput
	if !bind(c, &input) {
		return
	}

	var customers []models.Profile
	respondMutation(c, h.hostingScreen(c, &customers), hostingSpec, http.StatusOK, "Update hosting status",
		func(ctx context.Context) (string, error) {
			var a models.HostingAccount
			if err := store.Get(ctx, h.store, store.HostingAccounts, id, &a); err != nil {
				return "", err
			}
			if a.Status == input.Status {
				return "Status unchanged", nil
			}
			if err := store.UpdateByID(ctx, h.store, store.HostingAccounts, id, map[string]interface{}{"status": input.Status}); err != nil {
				return "", err
			}
			if tmpl, ok := hostingStatusEmails[input.Status]; ok {
				h.emailCustomer(ctx, &a.CustomerID, tmpl, map[string]string{"plan_name": a.PlanName})
			}
			return fmt.Sprintf("%s is now %s", a.PlanName, input.Status), nil
		})
}
