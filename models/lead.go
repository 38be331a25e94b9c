package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lead struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string     `gorm:"not null" json:"name"`
	Email               string     `gorm:"index" json:"email"`
	Phone               string     `json:"phone"`
	Company             string     `json:"company"`
	Source              string     `gorm:"type:varchar(40);default:'manual'" json:"source"`
	Notes               string     `gorm:"type:text" json:"notes"`
	DealValue           float64    `gorm:"type:decimal(12,2);default:0" json:"deal_value"`
	PipelineStageID     *uuid.UUID `gorm:"type:uuid;index" json:"pipeline_stage_id"`
	LeadScore           int        `gorm:"default:0" json:"lead_score"`
	ConvertedToCustomer bool       `gorm:"default:false;index" json:"converted_to_customer"`
	ConvertedAt         *time.Time `json:"converted_at"`
	ConvertedProjectID  *uuid.UUID `gorm:"type:uuid" json:"converted_project_id"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}

// PipelineStage is an ordered bucket for leads. StageOrder decides column
// order; the lowest order is the default stage for new leads.
type PipelineStage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	Color      string    `gorm:"type:varchar(20)" json:"color"`
	StageOrder int       `gorm:"not null;index" json:"stage_order"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *PipelineStage) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

// LeadActivity is the audit trail for lead moves and conversions.
type LeadActivity struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"lead_id"`
	ActorID     *uuid.UUID `gorm:"type:uuid" json:"actor_id"`
	Action      string     `gorm:"type:varchar(40);not null" json:"action"` // stage_changed, converted
	FromStageID *uuid.UUID `gorm:"type:uuid" json:"from_stage_id"`
	ToStageID   *uuid.UUID `gorm:"type:uuid" json:"to_stage_id"`
	Details     string     `gorm:"type:text" json:"details"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (a *LeadActivity) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
