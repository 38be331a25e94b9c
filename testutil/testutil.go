// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"agencydesk-backend/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with every model
// migrated. Each test gets its own database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}
	return db
}

func CreateCustomer(t *testing.T, db *gorm.DB) models.Profile {
	t.Helper()
	p := models.Profile{
		Email:       strings.ToLower(gofakeit.Email()),
		FullName:    gofakeit.Name(),
		CompanyName: gofakeit.Company(),
		Phone:       "+447400123456",
		Role:        models.RoleCustomer,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	return p
}

func CreateAdmin(t *testing.T, db *gorm.DB) models.Profile {
	t.Helper()
	p := models.Profile{
		Email:    strings.ToLower(gofakeit.Email()),
		FullName: gofakeit.Name(),
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	return p
}

// CreateStages inserts stages with the given names in order.
func CreateStages(t *testing.T, db *gorm.DB, names ...string) []models.PipelineStage {
	t.Helper()
	stages := make([]models.PipelineStage, 0, len(names))
	for i, n := range names {
		s := models.PipelineStage{Name: n, StageOrder: i + 1, Color: "#6366f1"}
		if err := db.Create(&s).Error; err != nil {
			t.Fatalf("failed to create stage %s: %v", n, err)
		}
		stages = append(stages, s)
	}
	return stages
}

func CreateLead(t *testing.T, db *gorm.DB, stageID *uuid.UUID, dealValue float64) models.Lead {
	t.Helper()
	l := models.Lead{
		Name:            gofakeit.Name(),
		Email:           strings.ToLower(gofakeit.Email()),
		Company:         gofakeit.Company(),
		Source:          "website",
		DealValue:       dealValue,
		PipelineStageID: stageID,
	}
	if err := db.Create(&l).Error; err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	return l
}

func CreateTicket(t *testing.T, db *gorm.DB, customerID uuid.UUID, priority string, due *time.Time) models.Ticket {
	t.Helper()
	tk := models.Ticket{
		TicketNumber: "TKT-" + strings.ToUpper(gofakeit.LetterN(8)),
		CustomerID:   customerID,
		Subject:      gofakeit.Sentence(4),
		Priority:     priority,
		DueDate:      due,
	}
	if err := db.Create(&tk).Error; err != nil {
		t.Fatalf("failed to create ticket: %v", err)
	}
	return tk
}

func CreateInvoice(t *testing.T, db *gorm.DB, customerID uuid.UUID, amount float64, status string) models.Invoice {
	t.Helper()
	inv := models.Invoice{
		InvoiceNumber: "INV-" + strings.ToUpper(gofakeit.LetterN(10)),
		CustomerID:    customerID,
		Amount:        amount,
		Status:        status,
	}
	if status == models.InvoicePaid {
		now := time.Now()
		inv.PaidAt = &now
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("failed to create invoice: %v", err)
	}
	return inv
}
