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
	"agencydesk-backend/session"
	"agencydesk-backend/store"
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TicketRow struct {
	models.Ticket
	CustomerName  string `json:"customer_name"`
	CategoryName  string `json:"category_name"`
	CategoryColor string `json:"category_color"`
	SLALabel      string `json:"sla_label"`
	SLAState      string `json:"sla_state"`
}

var ticketSpec = listview.Spec[TicketRow]{
	Search: []func(TicketRow) string{
		func(r TicketRow) string { return r.TicketNumber },
		func(r TicketRow) string { return r.Subject },
		func(r TicketRow) string { return r.CustomerName },
	},
	Filters: map[string]func(TicketRow) string{
		"status":   func(r TicketRow) string { return r.Status },
		"priority": func(r TicketRow) string { return r.Priority },
		"category_id": func(r TicketRow) string {
			if r.CategoryID == nil {
				return ""
			}
			return r.CategoryID.String()
		},
	},
	Sorts: map[string]func(a, b TicketRow) int{
		"created_at": listview.ByTime(func(r TicketRow) time.Time { return r.CreatedAt }),
		"priority":   listview.ByRank(func(r TicketRow) string { return r.Priority }, models.TicketPriorities...),
		"due_date":   listview.ByOptionalTime(func(r TicketRow) *time.Time { return r.DueDate }),
	},
	DefaultSort: "created_at",
	DefaultDesc: true,
}

// CreateTicketInput is shared by both roles. A customer always files for
// themselves: customer_id, assigned_to and due_date are ignored for them.
type CreateTicketInput struct {
	CustomerID  uuid.UUID  `json:"customer_id"`
	Subject     string     `json:"subject" binding:"required"`
	Description string     `json:"description"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	CategoryID  *uuid.UUID `json:"category_id"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateTicketInput struct {
	Subject     *string    `json:"subject" binding:"omitempty,min=1"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	CategoryID  *uuid.UUID `json:"category_id"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

type TicketStatusInput struct {
	Status string `json:"status" binding:"required,oneof=open in_progress resolved closed"`
}

type BulkTicketStatusInput struct {
	IDs    []uuid.UUID `json:"ids" binding:"required,min=1"`
	Status string      `json:"status" binding:"required,oneof=open in_progress resolved closed"`
}

type TicketMessageInput struct {
	Message    string `json:"message" binding:"required"`
	IsInternal bool   `json:"is_internal"`
}

// ticketScreen lists every ticket for admins and only their own for
// customers.
func (h *Handler) ticketScreen(c *gin.Context, customers *[]models.Profile, categories *[]models.TicketCategory) *screen.Controller[TicketRow] {
	filter := store.Where().Order("created_at", true).Limit(h.limit)
	if sess := utils.CurrentSession(c); !sess.IsAdmin() {
		filter = filter.Eq("customer_id", sess.UserID)
	}
	return newScreen(h, c, screen.Config[TicketRow]{
		Name: "tickets",
		Fetch: func(ctx context.Context) ([]TicketRow, error) {
			var tickets []models.Ticket
			if err := h.store.Query(ctx, store.Tickets, filter, &tickets); err != nil {
				return nil, err
			}
			now := h.now()
			rows := make([]TicketRow, len(tickets))
			for i, t := range tickets {
				rows[i] = TicketRow{Ticket: t}
				rows[i].SLALabel, rows[i].SLAState = utils.SLA(t.Status, t.DueDate, now)
			}
			return rows, nil
		},
		Aux: []screen.Aux{
			h.customersAux(customers),
			screen.Auxiliary("categories", categories, fetchRows[models.TicketCategory](h.store,
				store.TicketCategories, store.Where().Order("name", false))),
		},
		Enrich: []screen.Enricher[TicketRow]{
			joinCustomers(customers,
				func(r TicketRow) uuid.UUID { return r.CustomerID },
				func(r TicketRow, p models.Profile) TicketRow {
					r.CustomerName = p.FullName
					return r
				}),
			joinAux("ticket categories", categories,
				func(tc models.TicketCategory) uuid.UUID { return tc.ID },
				func(r TicketRow) uuid.UUID { return optionalID(r.CategoryID) },
				func(r TicketRow, tc models.TicketCategory) TicketRow {
					r.CategoryName = tc.Name
					r.CategoryColor = tc.Color
					return r
				}),
		},
		Spec: ticketSpec,
	})
}

// ticketLookups are the collections filled by a ticket screen load.
type ticketLookups struct {
	customers  []models.Profile
	categories []models.TicketCategory
}

func (h *Handler) ticketScreenWith(c *gin.Context) (*screen.Controller[TicketRow], *ticketLookups) {
	l := &ticketLookups{}
	return h.ticketScreen(c, &l.customers, &l.categories), l
}

func (h *Handler) ListTickets(c *gin.Context) {
	ctrl, l := h.ticketScreenWith(c)
	lookups := gin.H{"categories": &l.categories}
	if utils.CurrentSession(c).IsAdmin() {
		lookups["customers"] = &l.customers
	}
	respondList(c, ctrl, ticketSpec, lookups)
}

func (h *Handler) CreateTicket(c *gin.Context) {
	var input CreateTicketInput
	if !bind(c, &input) {
		return
	}
	if sess := utils.CurrentSession(c); !sess.IsAdmin() {
		input.CustomerID = sess.UserID
		input.AssignedTo = nil
		input.DueDate = nil
	} else if input.CustomerID == uuid.Nil {
		apperr.Respond(c, apperr.Validation("Please check the highlighted fields", map[string]string{"customer_id": "This field is required"}))
		return
	}
	ticket := models.Ticket{
		TicketNumber: utils.GenerateTicketNumber(h.now()),
		CustomerID:   input.CustomerID,
		Subject:      strings.TrimSpace(input.Subject),
		Description:  input.Description,
		Priority:     input.Priority,
		CategoryID:   input.CategoryID,
		AssignedTo:   input.AssignedTo,
		DueDate:      input.DueDate,
	}

	ctrl, _ := h.ticketScreenWith(c)
	respondMutation(c, ctrl, ticketSpec, http.StatusCreated, "Create ticket",
		func(ctx context.Context) (string, error) {
			if err := store.InsertRow(ctx, h.store, store.Tickets, &ticket); err != nil {
				return "", err
			}
			h.emailCustomer(ctx, &ticket.CustomerID, "ticket_created", map[string]string{
				"ticket_number": ticket.TicketNumber,
				"subject":       ticket.Subject,
			})
			return fmt.Sprintf("Ticket %s created", ticket.TicketNumber), nil
		})
}

func (h *Handler) UpdateTicket(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateTicketInput
	if !bind(c, &input) {
		return
	}

	updates := map[string]interface{}{}
	if input.Subject != nil {
		updates["subject"] = strings.TrimSpace(*input.Subject)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Priority != nil {
		updates["priority"] = *input.Priority
	}
	if input.CategoryID != nil {
		updates["category_id"] = *input.CategoryID
	}
	if input.AssignedTo != nil {
		updates["assigned_to"] = *input.AssignedTo
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}

	ctrl, _ := h.ticketScreenWith(c)
	respondMutation(c, ctrl, ticketSpec, http.StatusOK, "Update ticket",
		func(ctx context.Context) (string, error) {
			return "Ticket updated", store.UpdateByID(ctx, h.store, store.Tickets, id, updates)
		})
}

func (h *Handler) DeleteTicket(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctrl, _ := h.ticketScreenWith(c)
	respondMutation(c, ctrl, ticketSpec, http.StatusOK, "Delete ticket",
		func(ctx context.Context) (string, error) {
			return "Ticket deleted", store.DeleteByID(ctx, h.store, store.Tickets, id)
		})
}

// statusUpdates returns the columns written when t moves to status.
// Leaving open stamps the first response; resolving stamps resolved_at and
// reopening clears it.
func statusUpdates(t models.Ticket, status string, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{"status": status}
	if status != models.TicketOpen && t.FirstResponseAt == nil {
		updates["first_response_at"] = now
	}
	switch status {
	case models.TicketResolved, models.TicketClosed:
		if t.ResolvedAt == nil {
			updates["resolved_at"] = now
		}
	default:
		if t.ResolvedAt != nil {
			updates["resolved_at"] = nil
		}
	}
	return updates
}

// setTicketStatus moves one ticket to status and emails the customer when
// it is resolved.
func (h *Handler) setTicketStatus(ctx context.Context, id uuid.UUID, status string) error {
	var t models.Ticket
	if err := store.Get(ctx, h.store, store.Tickets, id, &t); err != nil {
		return err
	}
	if err := store.UpdateByID(ctx, h.store, store.Tickets, id, statusUpdates(t, status, h.now())); err != nil {
		return err
	}
	if status == models.TicketResolved && t.Status != models.TicketResolved {
		h.emailCustomer(ctx, &t.CustomerID, "ticket_resolved", map[string]string{"ticket_number": t.TicketNumber})
	}
	return nil
}

func (h *Handler) SetTicketStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input TicketStatusInput
	if !bind(c, &input) {
		return
	}
	ctrl, _ := h.ticketScreenWith(c)
	respondMutation(c, ctrl, ticketSpec, http.StatusOK, "Update status",
		func(ctx context.Context) (string, error) {
			if err := h.setTicketStatus(ctx, id, input.Status); err != nil {
				return "", err
			}
			return "Status changed to " + strings.ReplaceAll(input.Status, "_", " "), nil
		})
}

// BulkTicketStatus updates each ticket independently; the response lists
// the outcome per ticket.
func (h *Handler) BulkTicketStatus(c *gin.Context) {
	var input BulkTicketStatusInput
	if !bind(c, &input) {
		return
	}
	ctrl, _ := h.ticketScreenWith(c)
	res := ctrl.Bulk(c.Request.Context(), "Update status", input.IDs, func(ctx context.Context, id uuid.UUID) error {
		return h.setTicketStatus(ctx, id, input.Status)
	})
	respondBulk(c, ctrl, ticketSpec, res)
}

func canSeeTicket(sess session.Session, t models.Ticket) bool {
	return sess.IsAdmin() || t.CustomerID == sess.UserID
}

// ListTicketMessages returns the thread oldest first. Internal notes are
// only visible to admins.
func (h *Handler) ListTicketMessages(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var t models.Ticket
	if err := store.Get(ctx, h.store, store.Tickets, id, &t); err != nil {
		apperr.Respond(c, err)
		return
	}
	sess := utils.CurrentSession(c)
	if !canSeeTicket(sess, t) {
		apperr.Respond(c, apperr.NotFound("Ticket"))
		return
	}

	filter := store.Where().Eq("ticket_id", id).Order("created_at", false)
	if !sess.IsAdmin() {
		filter = filter.Eq("is_internal", false)
	}
	var messages []models.TicketMessage
	if err := h.store.Query(ctx, store.TicketMessages, filter, &messages); err != nil {
		apperr.Respond(c, err)
		return
	}
	if messages == nil {
		messages = []models.TicketMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t, "messages": messages})
}

// AddTicketMessage appends to the thread. The first public admin reply
// stamps first_response_at and the customer is emailed.
func (h *Handler) AddTicketMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input TicketMessageInput
	if !bind(c, &input) {
		return
	}
	sess := utils.CurrentSession(c)
	if sess.Anonymous() {
		apperr.Respond(c, apperr.Unauthorized())
		return
	}
	if input.IsInternal && !sess.IsAdmin() {
		apperr.Respond(c, apperr.Forbidden("Only admins can add internal notes"))
		return
	}

	ctrl, _ := h.ticketScreenWith(c)
	respondMutation(c, ctrl, ticketSpec, http.StatusCreated, "Send reply",
		func(ctx context.Context) (string, error) {
			var t models.Ticket
			if err := store.Get(ctx, h.store, store.Tickets, id, &t); err != nil {
				return "", err
			}
			if !canSeeTicket(sess, t) {
				return "", apperr.NotFound("Ticket")
			}
			msg := models.TicketMessage{
				TicketID:   id,
				SenderID:   sess.UserID,
				Message:    strings.TrimSpace(input.Message),
				IsInternal: input.IsInternal,
			}
			if err := store.InsertRow(ctx, h.store, store.TicketMessages, &msg); err != nil {
				return "", err
			}
			if !sess.IsAdmin() || input.IsInternal {
				return "Message sent", nil
			}
			if t.FirstResponseAt == nil {
				if err := store.UpdateByID(ctx, h.store, store.Tickets, id, map[string]interface{}{"first_response_at": h.now()}); err != nil {
					return "", err
				}
			}
			h.emailCustomer(ctx, &t.CustomerID, "ticket_reply", map[string]string{"ticket_number": t.TicketNumber})
			return "Reply sent", nil
		})
}
