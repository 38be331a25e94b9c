package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIIntegration is one external service. Config holds whatever the admin
// entered when connecting, credentials included.
type APIIntegration struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceName string     `gorm:"uniqueIndex;not null" json:"service_name"`
	DisplayName string     `json:"display_name"`
	IsConnected bool       `gorm:"default:false" json:"is_connected"`
	Config      JSONB      `gorm:"type:jsonb" json:"config"`
	ConnectedAt *time.Time `json:"connected_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (APIIntegration) TableName() string { return "api_integrations" }

func (a *APIIntegration) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
