package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Domain struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	DomainName   string     `gorm:"uniqueIndex;not null" json:"domain_name"`
	Registrar    string     `json:"registrar"`
	Status       string     `gorm:"type:varchar(20);default:'active';index" json:"status"` // active, pending, expired, transferring, cancelled
	RegisteredAt *time.Time `json:"registered_at"`
	ExpiryDate   *time.Time `gorm:"index" json:"expiry_date"`
	AutoRenew    bool       `gorm:"default:true" json:"auto_renew"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (d *Domain) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = "active"
	}
	return
}

type HostingAccount struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	PlanName      string     `gorm:"not null" json:"plan_name"`
	PrimaryDomain string     `json:"primary_domain"`
	Status        string     `gorm:"type:varchar(20);default:'pending';index" json:"status"` // pending, active, suspended, cancelled
	MonthlyPrice  float64    `gorm:"type:decimal(10,2);default:0" json:"monthly_price"`
	RenewalDate   *time.Time `gorm:"index" json:"renewal_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (h *HostingAccount) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.Status == "" {
		h.Status = "pending"
	}
	return
}
