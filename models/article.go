package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KBArticle struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Slug        string     `gorm:"uniqueIndex;not null" json:"slug"`
	Content     string     `gorm:"type:text" json:"content"`
	Category    string     `gorm:"type:varchar(40);index" json:"category"`
	Tags        string     `json:"tags"` // comma separated
	IsPublished bool       `gorm:"default:false" json:"is_published"`
	Views       int        `gorm:"default:0" json:"views"`
	AuthorID    *uuid.UUID `gorm:"type:uuid" json:"author_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (KBArticle) TableName() string { return "kb_articles" }

func (a *KBArticle) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
