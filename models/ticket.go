package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

var TicketStatuses = []string{TicketOpen, TicketInProgress, TicketResolved, TicketClosed}

var TicketPriorities = []string{"low", "medium", "high", "urgent"}

type Ticket struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TicketNumber    string     `gorm:"uniqueIndex;not null" json:"ticket_number"`
	CustomerID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"customer_id"`
	Subject         string     `gorm:"not null" json:"subject"`
	Description     string     `gorm:"type:text" json:"description"`
	Status          string     `gorm:"type:varchar(20);default:'open';index" json:"status"`
	Priority        string     `gorm:"type:varchar(20);default:'medium';index" json:"priority"`
	CategoryID      *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	AssignedTo      *uuid.UUID `gorm:"type:uuid" json:"assigned_to"`
	DueDate         *time.Time `json:"due_date"`
	FirstResponseAt *time.Time `json:"first_response_at"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TicketOpen
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	return
}

type TicketCategory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"type:varchar(20)" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *TicketCategory) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// TicketMessage is a reply on a ticket thread. Internal notes are hidden
// from customers.
type TicketMessage struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID   uuid.UUID `gorm:"type:uuid;index;not null" json:"ticket_id"`
	SenderID   uuid.UUID `gorm:"type:uuid;index;not null" json:"sender_id"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	IsInternal bool      `gorm:"default:false" json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m *TicketMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
