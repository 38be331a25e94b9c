package store

import "agencydesk-backend/models"

// Table is a typed table name understood by the store.
type Table string

const (
	Profiles               Table = "profiles"
	Leads                  Table = "leads"
	PipelineStages         Table = "pipeline_stages"
	LeadActivities         Table = "lead_activities"
	Projects               Table = "projects"
	Tickets                Table = "tickets"
	TicketCategories       Table = "ticket_categories"
	TicketMessages         Table = "ticket_messages"
	Invoices               Table = "invoices"
	Domains                Table = "domains"
	HostingAccounts        Table = "hosting_accounts"
	DomainPricing          Table = "domain_pricing"
	ServicePricingDefaults Table = "service_pricing_defaults"
	APIIntegrations        Table = "api_integrations"
	KBArticles             Table = "kb_articles"
	NotificationLogs       Table = "notification_logs"
)

// registry maps every table to a constructor for its row model.
var registry = map[Table]func() interface{}{
	Profiles:               func() interface{} { return &models.Profile{} },
	Leads:                  func() interface{} { return &models.Lead{} },
	PipelineStages:         func() interface{} { return &models.PipelineStage{} },
	LeadActivities:         func() interface{} { return &models.LeadActivity{} },
	Projects:               func() interface{} { return &models.Project{} },
	Tickets:                func() interface{} { return &models.Ticket{} },
	TicketCategories:       func() interface{} { return &models.TicketCategory{} },
	TicketMessages:         func() interface{} { return &models.TicketMessage{} },
	Invoices:               func() interface{} { return &models.Invoice{} },
	Domains:                func() interface{} { return &models.Domain{} },
	HostingAccounts:        func() interface{} { return &models.HostingAccount{} },
	DomainPricing:          func() interface{} { return &models.DomainPricing{} },
	ServicePricingDefaults: func() interface{} { return &models.ServicePricingDefault{} },
	APIIntegrations:        func() interface{} { return &models.APIIntegration{} },
	KBArticles:             func() interface{} { return &models.KBArticle{} },
	NotificationLogs:       func() interface{} { return &models.NotificationLog{} },
}

// dependent is a child table whose rows point at a parent through column.
type dependent struct {
	table  Table
	column string
}

// dependents lists the rows that block deleting a parent row.
var dependents = map[Table][]dependent{
	Profiles: {
		{Invoices, "customer_id"},
		{Projects, "customer_id"},
		{Tickets, "customer_id"},
		{Domains, "customer_id"},
		{HostingAccounts, "customer_id"},
	},
	PipelineStages:   {{Leads, "pipeline_stage_id"}},
	TicketCategories: {{Tickets, "category_id"}},
	Tickets:          {{TicketMessages, "ticket_id"}},
	Projects:         {{Invoices, "project_id"}},
}

func (t Table) valid() bool {
	_, ok := registry[t]
	return ok
}

func (t Table) newRow() interface{} {
	return registry[t]()
}
