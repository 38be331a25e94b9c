package models

// All lists every table model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&PipelineStage{},
		&Lead{},
		&LeadActivity{},
		&Project{},
		&TicketCategory{},
		&Ticket{},
		&TicketMessage{},
		&Invoice{},
		&Domain{},
		&HostingAccount{},
		&DomainPricing{},
		&ServicePricingDefault{},
		&APIIntegration{},
		&KBArticle{},
		&NotificationLog{},
	}
}
