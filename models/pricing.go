package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DomainPricing holds the sell prices for one TLD, in GBP.
type DomainPricing struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TLD           string    `gorm:"column:tld;uniqueIndex;not null" json:"tld"`
	Reg1yGBP      float64   `gorm:"column:reg_1y_gbp;type:decimal(10,2);default:0" json:"reg_1y_gbp"`
	Renew1yGBP    float64   `gorm:"column:renew_1y_gbp;type:decimal(10,2);default:0" json:"renew_1y_gbp"`
	Transfer1yGBP float64   `gorm:"column:transfer_1y_gbp;type:decimal(10,2);default:0" json:"transfer_1y_gbp"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (DomainPricing) TableName() string { return "domain_pricing" }

func (p *DomainPricing) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// ServicePricingDefault is the default quote for a service type.
type ServicePricingDefault struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceType     string    `gorm:"type:varchar(40);index;not null" json:"service_type"`
	Label           string    `gorm:"not null" json:"label"`
	BasePriceGBP    float64   `gorm:"column:base_price_gbp;type:decimal(10,2);default:0" json:"base_price_gbp"`
	MonthlyPriceGBP float64   `gorm:"column:monthly_price_gbp;type:decimal(10,2);default:0" json:"monthly_price_gbp"`
	SetupFeeGBP     float64   `gorm:"column:setup_fee_gbp;type:decimal(10,2);default:0" json:"setup_fee_gbp"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (p *ServicePricingDefault) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
