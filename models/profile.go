package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Profile is a dashboard identity. Customers and admins share the table and
// are told apart by Role.
type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName    string    `gorm:"not null" json:"full_name"`
	CompanyName string    `json:"company_name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Role        string    `gorm:"type:varchar(20);not null;default:'customer';index" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Role == "" {
		p.Role = RoleCustomer
	}
	return
}
