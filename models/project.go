package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProjectPlanning   = "planning"
	ProjectInProgress = "in_progress"
	ProjectReview     = "review"
	ProjectCompleted  = "completed"
	ProjectOnHold     = "on_hold"
)

type Project struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID      *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	LeadID          *uuid.UUID `gorm:"type:uuid;index" json:"lead_id"`
	Title           string     `gorm:"not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	Type            string     `gorm:"type:varchar(40)" json:"type"` // website, hosting, seo, maintenance...
	Status          string     `gorm:"type:varchar(20);default:'planning';index" json:"status"`
	EstimatedBudget float64    `gorm:"type:decimal(12,2);default:0" json:"estimated_budget"`
	StartDate       *time.Time `json:"start_date"`
	DueDate         *time.Time `json:"due_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProjectPlanning
	}
	return
}
