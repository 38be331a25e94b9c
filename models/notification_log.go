package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Template     string     `gorm:"type:varchar(40);index" json:"template"`
	Recipient    string     `json:"recipient"`
	Channel      string     `gorm:"type:varchar(20)" json:"channel"` // email, sms
	Status       string     `gorm:"type:varchar(20)" json:"status"`  // sent, failed
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
	EntityType   string     `gorm:"type:varchar(20)" json:"entity_type"`
	EntityID     *uuid.UUID `gorm:"type:uuid;index" json:"entity_id"`
	SentAt       time.Time  `json:"sent_at"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
