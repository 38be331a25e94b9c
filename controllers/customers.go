package controllers

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
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
	"github.com/xuri/excelize/v2"
)

// CustomerStats are the per-customer aggregates loaded by the second wave.
type CustomerStats struct {
	ProjectCount int     `json:"project_count"`
	TicketCount  int     `json:"ticket_count"`
	TotalSpent   float64 `json:"total_spent"`
}

type CustomerRow struct {
	models.Profile
	CustomerStats
}

var customerSpec = listview.Spec[CustomerRow]{
	Search: []func(CustomerRow) string{
		func(r CustomerRow) string { return r.FullName },
		func(r CustomerRow) string { return r.Email },
		func(r CustomerRow) string { return r.CompanyName },
		func(r CustomerRow) string { return r.Phone },
	},
	Filters: map[string]func(CustomerRow) string{
		"role": func(r CustomerRow) string { return r.Role },
	},
	Sorts: map[string]func(a, b CustomerRow) int{
		"created_at":   listview.ByTime(func(r CustomerRow) time.Time { return r.CreatedAt }),
		"full_name":    listview.ByString(func(r CustomerRow) string { return r.FullName }),
		"company_name": listview.ByString(func(r CustomerRow) string { return r.CompanyName }),
		"total_spent":  listview.ByFloat(func(r CustomerRow) float64 { return r.TotalSpent }),
	},
	DefaultSort: "created_at",
	DefaultDesc: true,
}

type CreateCustomerInput struct {
	FullName    string `json:"full_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	CompanyName string `json:"company_name"`
	Phone       string `json:"phone" binding:"omitempty,phone"`
	Address     string `json:"address"`
}

type UpdateCustomerInput struct {
	FullName    *string `json:"full_name" binding:"omitempty,min=1"`
	Email       *string `json:"email" binding:"omitempty,email"`
	CompanyName *string `json:"company_name"`
	Phone       *string `json:"phone" binding:"omitempty,phone"`
	Address     *string `json:"address"`
}

func (h *Handler) customerScreen(c *gin.Context) *screen.Controller[CustomerRow] {
	return newScreen(h, c, screen.Config[CustomerRow]{
		Name: "customers",
		Fetch: func(ctx context.Context) ([]CustomerRow, error) {
			var profiles []models.Profile
			err := h.store.Query(ctx, store.Profiles,
				store.Where().Eq("role", models.RoleCustomer).Order("created_at", true).Limit(h.limit), &profiles)
			if err != nil {
				return nil, err
			}
			rows := make([]CustomerRow, len(profiles))
			for i, p := range profiles {
				rows[i] = CustomerRow{Profile: p}
			}
			return rows, nil
		},
		Enrich: []screen.Enricher[CustomerRow]{
			screen.EnrichWith("customer stats",
				func(r CustomerRow) uuid.UUID { return r.ID },
				h.customerStats,
				func(r CustomerRow, s CustomerStats) CustomerRow {
					r.CustomerStats = s
					return r
				}),
		},
		Spec: customerSpec,
	})
}

// customerStats counts projects and tickets and sums paid invoices for ids.
func (h *Handler) customerStats(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]CustomerStats, error) {
	stats := make(map[uuid.UUID]CustomerStats, len(ids))

	var projects []models.Project
	if err := h.store.Query(ctx, store.Projects, store.Where().In("customer_id", ids), &projects); err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.CustomerID == nil {
			continue
		}
		s := stats[*p.CustomerID]
		s.ProjectCount++
		stats[*p.CustomerID] = s
	}

	var tickets []models.Ticket
	if err := h.store.Query(ctx, store.Tickets, store.Where().In("customer_id", ids), &tickets); err != nil {
		return nil, err
	}
	for _, t := range tickets {
		s := stats[t.CustomerID]
		s.TicketCount++
		stats[t.CustomerID] = s
	}

	var invoices []models.Invoice
	err := h.store.Query(ctx, store.Invoices,
		store.Where().In("customer_id", ids).Eq("status", models.InvoicePaid), &invoices)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		s := stats[inv.CustomerID]
		s.TotalSpent += inv.Amount
		stats[inv.CustomerID] = s
	}
	return stats, nil
}

// customerMatch selects the customer profile with id. Admin profiles never
// match, so they cannot be edited or removed from this screen.
func customerMatch(id uuid.UUID) *store.Filter {
	return store.Where().Eq("id", id).Eq("role", models.RoleCustomer)
}

func (h *Handler) ListCustomers(c *gin.Context) {
	respondList(c, h.customerScreen(c), customerSpec, nil)
}

func (h *Handler) CreateCustomer(c *gin.Context) {
	var input CreateCustomerInput
	if !bind(c, &input) {
		return
	}
	profile := models.Profile{
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		FullName:    strings.TrimSpace(input.FullName),
		CompanyName: input.CompanyName,
		Address:     input.Address,
		Role:        models.RoleCustomer,
	}
	if input.Phone != "" {
		profile.Phone, _ = utils.NormalizePhone(input.Phone)
	}

	respondMutation(c, h.customerScreen(c), customerSpec, http.StatusCreated, "Create customer",
		func(ctx context.Context) (string, error) {
			if err := store.InsertRow(ctx, h.store, store.Profiles, &profile); err != nil {
				return "", err
			}
			h.sendEmail(ctx, notify.Payload{
				To:       profile.Email,
				ToName:   profile.FullName,
				Template: "welcome",
				Data:     map[string]string{"name": profile.FullName},
			})
			return fmt.Sprintf("%s added", profile.FullName), nil
		})
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateCustomerInput
	if !bind(c, &input) {
		return
	}

	updates := map[string]interface{}{}
	if input.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*input.FullName)
	}
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.CompanyName != nil {
		updates["company_name"] = *input.CompanyName
	}
	if input.Phone != nil {
		phone, _ := utils.NormalizePhone(*input.Phone)
		updates["phone"] = phone
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}

	respondMutation(c, h.customerScreen(c), customerSpec, http.StatusOK, "Update customer",
		func(ctx context.Context) (string, error) {
			return "Customer updated", store.UpdateWhere(ctx, h.store, store.Profiles, customerMatch(id), updates)
		})
}

// DeleteCustomer refuses while invoices, projects, tickets, domains or
// hosting accounts still reference the customer.
func (h *Handler) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	respondMutation(c, h.customerScreen(c), customerSpec, http.StatusOK, "Delete customer",
		func(ctx context.Context) (string, error) {
			return "Customer deleted", store.DeleteWhere(ctx, h.store, store.Profiles, customerMatch(id))
		})
}

var customerExportHeaders = []string{"Name", "Email", "Company", "Phone", "Projects", "Tickets", "Total Spent", "Created"}

// ExportCustomers writes the current filtered view as CSV or XLSX.
func (h *Handler) ExportCustomers(c *gin.Context) {
	ctrl := h.customerScreen(c)
	if err := ctrl.Load(c.Request.Context()); err != nil {
		apperr.Respond(c, err)
		return
	}
	rows := ctrl.View(listview.ParseQuery(customerSpec, c.Request.URL.Query()))

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.FullName, r.Email, r.CompanyName, r.Phone,
			fmt.Sprintf("%d", r.ProjectCount),
			fmt.Sprintf("%d", r.TicketCount),
			fmt.Sprintf("%.2f", r.TotalSpent),
			r.CreatedAt.Format("2006-01-02"),
		})
	}

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		exportExcel(c, "Customers", "customers.xlsx", customerExportHeaders, data)
	case "csv":
		exportCSV(c, "customers.csv", customerExportHeaders, data)
	default:
		apperr.Respond(c, apperr.BadRequest("format must be csv or xlsx"))
	}
}

func exportCSV(c *gin.Context, filename string, headers []string, data [][]string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()
	if err := writer.Write(headers); err != nil {
		return
	}
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			return
		}
	}
}

func exportExcel(c *gin.Context, sheet, filename string, headers []string, data [][]string) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for r, row := range data {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
