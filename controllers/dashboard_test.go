package controllers

import (
	"net/http"
	"testing"
	"time"

	"agencydesk-backend/analytics"
	"agencydesk-backend/apperr"
	"agencydesk-backend/models"
	"agencydesk-backend/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func paidInvoice(t *testing.T, db *gorm.DB, customerID uuid.UUID, amount float64, paidAt time.Time) {
	t.Helper()
	inv := models.Invoice{
		InvoiceNumber: "INV-" + uuid.NewString()[:8],
		CustomerID:    customerID,
		Amount:        amount,
		Status:        models.InvoicePaid,
		IssueDate:     paidAt,
		PaidAt:        &paidAt,
	}
	require.NoError(t, db.Create(&inv).Error)
}

func TestDashboardOverview(t *testing.T) {
	e := newTestEnv(t)
	cust := testutil.CreateCustomer(t, e.db)
	testutil.CreateCustomer(t, e.db)

	testutil.CreateTicket(t, e.db, cust.ID, "high", daysFromNow(-1))
	testutil.CreateTicket(t, e.db, cust.ID, "low", nil)
	done := testutil.CreateTicket(t, e.db, cust.ID, "low", nil)
	require.NoError(t, e.db.Model(&done).Update("status", models.TicketResolved).Error)

	testutil.CreateInvoice(t, e.db, cust.ID, 300, models.InvoiceOverdue)
	paidInvoice(t, e.db, cust.ID, 100.10, fixedNow.AddDate(0, 0, -2))
	paidInvoice(t, e.db, cust.ID, 49.90, fixedNow.AddDate(0, 0, -9))
	paidInvoice(t, e.db, cust.ID, 999, fixedNow.AddDate(0, -1, 0))

	today := fixedNow.Add(time.Hour)
	tomorrow := fixedNow.AddDate(0, 0, 1)
	later := fixedNow.AddDate(0, 0, 10)
	tooFar := fixedNow.AddDate(0, 0, 40)
	for name, expiry := range map[string]time.Time{
		"today.com": today, "tomorrow.com": tomorrow, "later.com": later, "far.com": tooFar,
	} {
		require.NoError(t, e.db.Create(&models.Domain{CustomerID: cust.ID, DomainName: name, ExpiryDate: &expiry}).Error)
	}
	renewal := fixedNow.AddDate(0, 0, 3)
	require.NoError(t, e.db.Create(&models.HostingAccount{CustomerID: cust.ID, PlanName: "Starter", Status: "active", RenewalDate: &renewal}).Error)
	require.NoError(t, e.db.Create(&models.HostingAccount{CustomerID: cust.ID, PlanName: "Pending", RenewalDate: &renewal}).Error)

	w := e.do(http.MethodGet, "/dashboard", "/dashboard", nil, e.h.GetDashboardOverview)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[DashboardOverview](t, w)

	assert.Equal(t, 2, got.TotalCustomers)
	assert.Equal(t, 2, got.OpenTickets)
	assert.Equal(t, 1, got.OverdueInvoices)
	assert.Equal(t, 150.0, got.MonthlyRevenue)
	assert.Len(t, got.RecentTickets, 3)

	assert.Equal(t, []UpcomingRenewal{
		{Name: "today.com", Type: "Domain", Date: "Today"},
		{Name: "tomorrow.com", Type: "Domain", Date: "Tomorrow"},
		{Name: "Starter", Type: "Hosting", Date: "3 days"},
		{Name: "later.com", Type: "Domain", Date: "10 days"},
	}, got.UpcomingRenewals)
}

func TestDashboardOverview_Empty(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/dashboard", "/dashboard", nil, e.h.GetDashboardOverview)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[DashboardOverview](t, w)
	assert.Zero(t, got.TotalCustomers)
	assert.Empty(t, got.RecentTickets)
	assert.Empty(t, got.UpcomingRenewals)
}

func TestGetAnalytics(t *testing.T) {
	e := newTestEnv(t)
	cust := testutil.CreateCustomer(t, e.db)
	stages := testutil.CreateStages(t, e.db, "New", "Won")

	lastMonth := fixedNow.AddDate(0, -1, 0)
	won := models.Lead{Name: "Won", Source: "referral", DealValue: 2000, PipelineStageID: &stages[1].ID, CreatedAt: lastMonth}
	open := models.Lead{Name: "Open", Source: "website", DealValue: 1000, PipelineStageID: &stages[0].ID, CreatedAt: lastMonth}
	stale := models.Lead{Name: "Stale", Source: "website", DealValue: 500, CreatedAt: fixedNow.AddDate(0, -8, 0)}
	for _, l := range []*models.Lead{&won, &open, &stale} {
		require.NoError(t, e.db.Create(l).Error)
	}
	require.NoError(t, e.db.Model(&won).Update("converted_to_customer", true).Error)
	paidInvoice(t, e.db, cust.ID, 200, lastMonth)

	w := e.do(http.MethodGet, "/analytics", "/analytics", nil, e.h.GetAnalytics)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := decode[analytics.Report](t, w)

	assert.Equal(t, analytics.Range6M, rep.Range)
	require.Len(t, rep.Months, 6)
	assert.Equal(t, "2026-03", rep.Months[5])
	assert.Equal(t, 2, rep.Summary.TotalLeads)
	assert.Equal(t, 1, rep.Summary.Converted)
	assert.Equal(t, 200.0, rep.Summary.PaidRevenue)
	assert.Len(t, rep.Funnel, 2)
	assert.Empty(t, rep.Synthetic)

	w = e.do(http.MethodGet, "/analytics", "/analytics?range=12m&include_synthetic=true", nil, e.h.GetAnalytics)
	require.Equal(t, http.StatusOK, w.Code)
	rep = decode[analytics.Report](t, w)
	assert.Len(t, rep.Months, 12)
	assert.Equal(t, 3, rep.Summary.TotalLeads)
	require.NotEmpty(t, rep.Synthetic)
	for _, s := range rep.Synthetic {
		assert.True(t, s.Synthetic, s.Name)
	}
}

func TestGetAnalytics_BadRange(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/analytics", "/analytics?range=2y", nil, e.h.GetAnalytics)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, apperr.CodeValidation, body.Code)
	assert.Contains(t, body.Fields, "range")
}
