package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	InvoiceDraft     = "draft"
	InvoiceSent      = "sent"
	InvoicePaid      = "paid"
	InvoiceOverdue   = "overdue"
	InvoiceCancelled = "cancelled"
)

type Invoice struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber string     `gorm:"uniqueIndex;not null" json:"invoice_number"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	ProjectID     *uuid.UUID `gorm:"type:uuid;index" json:"project_id"`
	Description   string     `gorm:"type:text" json:"description"`
	Amount        float64    `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency      string     `gorm:"type:varchar(3);default:'GBP'" json:"currency"`
	Status        string     `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       *time.Time `json:"due_date"`
	PaidAt        *time.Time `json:"paid_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = InvoiceDraft
	}
	if i.Currency == "" {
		i.Currency = "GBP"
	}
	if i.IssueDate.IsZero() {
		i.IssueDate = time.Now()
	}
	return
}
