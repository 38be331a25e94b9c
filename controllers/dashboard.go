package controllers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"agencydesk-backend/apperr"
	"agencydesk-backend/models"
	"agencydesk-backend/pricing"
	"agencydesk-backend/store"
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type DashboardOverview struct {
	TotalCustomers   int               `json:"total_customers"`
	OpenTickets      int               `json:"open_tickets"`
	ActiveProjects   int               `json:"active_projects"`
	OpenLeads        int               `json:"open_leads"`
	MonthlyRevenue   float64           `json:"monthly_revenue"`
	OverdueInvoices  int               `json:"overdue_invoices"`
	RecentTickets    []RecentTicket    `json:"recent_tickets"`
	UpcomingRenewals []UpcomingRenewal `json:"upcoming_renewals"`
}

type RecentTicket struct {
	TicketNumber string `json:"ticket_number"`
	Subject      string `json:"subject"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	SLALabel     string `json:"sla_label"`
}

type UpcomingRenewal struct {
	Name string `json:"name"`
	Type string `json:"type"` // "Domain" or "Hosting"
	Date string `json:"date"` // e.g. "Tomorrow", "3 days"
}

// renewalWindow is how far ahead the dashboard lists renewals.
const renewalWindow = 30

// GetDashboardOverview returns the headline counts, the latest tickets and
// the renewals due in the next 30 days.
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	now := h.now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	horizon := now.AddDate(0, 0, renewalWindow)

	var (
		customers []models.Profile
		tickets   []models.Ticket
		projects  []models.Project
		leads     []models.Lead
		paid      []models.Invoice
		overdue   []models.Invoice
		recent    []models.Ticket
		domains   []models.Domain
		hosting   []models.HostingAccount
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		return h.store.Query(ctx, store.Profiles, store.Where().Eq("role", models.RoleCustomer), &customers)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.Tickets, store.Where().In("status", []string{models.TicketOpen, models.TicketInProgress}), &tickets)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.Projects, store.Where().In("status", []string{models.ProjectPlanning, models.ProjectInProgress, models.ProjectReview}), &projects)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.Leads, store.Where().Eq("converted_to_customer", false), &leads)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.Invoices, store.Where().Eq("status", models.InvoicePaid).Gte("paid_at", firstOfMonth), &paid)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.Invoices, store.Where().Eq("status", models.InvoiceOverdue), &overdue)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.Tickets, store.Where().Order("created_at", true).Limit(5), &recent)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.Domains, store.Where().Gte("expiry_date", now).Lte("expiry_date", horizon), &domains)
	})
	g.Go(func() error {
		return h.store.Query(ctx, store.HostingAccounts, store.Where().Eq("status", "active").Gte("renewal_date", now).Lte("renewal_date", horizon), &hosting)
	})
	if err := g.Wait(); err != nil {
		apperr.Respond(c, err)
		return
	}

	overview := DashboardOverview{
		TotalCustomers:   len(customers),
		OpenTickets:      len(tickets),
		ActiveProjects:   len(projects),
		OpenLeads:        len(leads),
		OverdueInvoices:  len(overdue),
		RecentTickets:    make([]RecentTicket, 0, len(recent)),
		UpcomingRenewals: upcomingRenewals(domains, hosting, now),
	}
	for _, inv := range paid {
		overview.MonthlyRevenue += inv.Amount
	}
	overview.MonthlyRevenue = pricing.Round2(overview.MonthlyRevenue)
	for _, t := range recent {
		overview.RecentTickets = append(overview.RecentTickets, RecentTicket{
			TicketNumber: t.TicketNumber,
			Subject:      t.Subject,
			Priority:     t.Priority,
			Status:       t.Status,
			SLALabel:     utils.SLALabel(t.Status, t.DueDate, now),
		})
	}

	c.JSON(http.StatusOK, overview)
}

// upcomingRenewals lists domains and hosting accounts by days until renewal.
func upcomingRenewals(domains []models.Domain, hosting []models.HostingAccount, now time.Time) []UpcomingRenewal {
	type renewal struct {
		name string
		kind string
		days int
	}
	var all []renewal
	for _, d := range domains {
		if d.ExpiryDate != nil {
			all = append(all, renewal{d.DomainName, "Domain", utils.DaysBetween(now, *d.ExpiryDate)})
		}
	}
	for _, a := range hosting {
		if a.RenewalDate != nil {
			all = append(all, renewal{a.PlanName, "Hosting", utils.DaysBetween(now, *a.RenewalDate)})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].days < all[j].days })

	out := make([]UpcomingRenewal, 0, len(all))
	for _, r := range all {
		var label string
		switch r.days {
		case 0:
			label = "Today"
		case 1:
			label = "Tomorrow"
		default:
			label = fmt.Sprintf("%d days", r.days)
		}
		out = append(out, UpcomingRenewal{Name: r.name, Type: r.kind, Date: label})
	}
	return out
}
