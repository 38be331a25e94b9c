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
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoiceRow struct {
	models.Invoice
	CustomerName string `json:"customer_name"`
}

var invoiceSpec = listview.Spec[InvoiceRow]{
	Search: []func(InvoiceRow) string{
		func(r InvoiceRow) string { return r.InvoiceNumber },
		func(r InvoiceRow) string { return r.CustomerName },
	},
	Filters: map[string]func(InvoiceRow) string{
		"status": func(r InvoiceRow) string { return r.Status },
	},
	Sorts: map[string]func(a, b InvoiceRow) int{
		"created_at": listview.ByTime(func(r InvoiceRow) time.Time { return r.CreatedAt }),
		"due_date":   listview.ByOptionalTime(func(r InvoiceRow) *time.Time { return r.DueDate }),
		"amount":     listview.ByFloat(func(r InvoiceRow) float64 { return r.Amount }),
	},
	DefaultSort: "created_at",
	DefaultDesc: true,
}

type CreateInvoiceInput struct {
	CustomerID  uuid.UUID  `json:"customer_id" binding:"required"`
	ProjectID   *uuid.UUID `json:"project_id"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount" binding:"required,gt=0"`
	Currency    string     `json:"currency" binding:"omitempty,len=3"`
	Status      string     `json:"status" binding:"omitempty,oneof=draft sent"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateInvoiceInput struct {
	Description *string    `json:"description"`
	Amount      *float64   `json:"amount" binding:"omitempty,gt=0"`
	Status      *string    `json:"status" binding:"omitempty,oneof=draft sent overdue cancelled"`
	DueDate     *time.Time `json:"due_date"`
}

func (h *Handler) invoiceScreen(c *gin.Context, customers *[]models.Profile) *screen.Controller[InvoiceRow] {
	return newScreen(h, c, screen.Config[InvoiceRow]{
		Name: "invoices",
		Fetch: func(ctx context.Context) ([]InvoiceRow, error) {
			var invoices []models.Invoice
			if err := h.store.Query(ctx, store.Invoices, store.Where().Order("created_at", true).Limit(h.limit), &invoices); err != nil {
				return nil, err
			}
			rows := make([]InvoiceRow, len(invoices))
			for i, inv := range invoices {
				rows[i] = InvoiceRow{Invoice: inv}
			}
			return rows, nil
		},
		Aux: []screen.Aux{h.customersAux(customers)},
		Enrich: []screen.Enricher[InvoiceRow]{
			joinCustomers(customers,
				func(r InvoiceRow) uuid.UUID { return r.CustomerID },
				func(r InvoiceRow, p models.Profile) InvoiceRow {
					r.CustomerName = p.FullName
					return r
				}),
		},
		Spec: invoiceSpec,
	})
}

func (h *Handler) ListInvoices(c *gin.Context) {
	var customers []models.Profile
	respondList(c, h.invoiceScreen(c, &customers), invoiceSpec, gin.H{"customers": &customers})
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	var input CreateInvoiceInput
	if !bind(c, &input) {
		return
	}
	now := h.now()
	invoice := models.Invoice{
		InvoiceNumber: utils.GenerateInvoiceNumber(now),
		CustomerID:    input.CustomerID,
		ProjectID:     input.ProjectID,
		Description:   input.Description,
		Amount:        input.Amount,
		Currency:      strings.ToUpper(input.Currency),
		Status:        input.Status,
		IssueDate:     now,
		DueDate:       input.DueDate,
	}

	var customers []models.Profile
	respondMutation(c, h.invoiceScreen(c, &customers), invoiceSpec, http.StatusCreated, "Create invoice",
		func(ctx context.Context) (string, error) {
			if err := store.InsertRow(ctx, h.store, store.Invoices, &invoice); err != nil {
				return "", err
			}
			h.emailCustomer(ctx, &invoice.CustomerID, "invoice_created", map[string]string{
				"invoice_number": invoice.InvoiceNumber,
				"amount":         formatMoney(invoice.Amount),
				"due_date":       utils.FormatDate(invoice.DueDate),
			})
			return fmt.Sprintf("Invoice %s created", invoice.InvoiceNumber), nil
		})
}

func (h *Handler) UpdateInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateInvoiceInput
	if !bind(c, &input) {
		return
	}

	updates := map[string]interface{}{}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Amount != nil {
		updates["amount"] = *input.Amount
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}

	var customers []models.Profile
	respondMutation(c, h.invoiceScreen(c, &customers), invoiceSpec, http.StatusOK, "Update invoice",
		func(ctx context.Context) (string, error) {
			return "Invoice updated", store.UpdateByID(ctx, h.store, store.Invoices, id, updates)
		})
}

func (h *Handler) DeleteInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var customers []models.Profile
	respondMutation(c, h.invoiceScreen(c, &customers), invoiceSpec, http.StatusOK, "Delete invoice",
		func(ctx context.Context) (string, error) {
			return "Invoice deleted", store.DeleteByID(ctx, h.store, store.Invoices, id)
		})
}

// MarkInvoicePaid records the payment and sends the receipt email.
func (h *Handler) MarkInvoicePaid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var customers []models.Profile
	respondMutation(c, h.invoiceScreen(c, &customers), invoiceSpec, http.StatusOK, "Mark paid",
		func(ctx context.Context) (string, error) {
			var inv models.Invoice
			if err := store.Get(ctx, h.store, store.Invoices, id, &inv); err != nil {
				return "", err
			}
			switch inv.Status {
			case models.InvoicePaid:
				return "", apperr.Conflict("Invoice is already paid")
			case models.InvoiceCancelled:
				return "", apperr.Conflict("Cancelled invoices cannot be paid")
			}
			err := store.UpdateByID(ctx, h.store, store.Invoices, id, map[string]interface{}{
				"status":  models.InvoicePaid,
				"paid_at": h.now(),
			})
			if err != nil {
				return "", err
			}
			h.emailCustomer(ctx, &inv.CustomerID, "payment_received", map[string]string{
				"invoice_number": inv.InvoiceNumber,
				"amount":         formatMoney(inv.Amount),
			})
			return fmt.Sprintf("Invoice %s marked as paid", inv.InvoiceNumber), nil
		})
}
