package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"agencydesk-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ProcConvertLeadToProject = "convert_lead_to_project"

// FnSendEmail is the name main registers the mailer under.
const FnSendEmail = "send-email"

type ConvertLeadParams struct {
	LeadID      uuid.UUID  `json:"lead_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Budget      float64    `json:"budget"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
}

type ConvertLeadResult struct {
	ProjectID  uuid.UUID  `json:"project_id"`
	CustomerID *uuid.UUID `json:"customer_id"`
}

// convertLeadToProject turns a lead into a project for a customer profile
// matched by email (created when missing) and flags the lead converted. A
// lead whose email belongs to an admin converts without a customer.
func convertLeadToProject(ctx context.Context, tx *gorm.DB, payload json.RawMessage) (interface{}, error) {
	var p ConvertLeadParams
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if p.LeadID == uuid.Nil {
		return nil, fmt.Errorf("%w: lead_id is required", ErrInvalidArgument)
	}

	var lead models.Lead
	if err := tx.Where("id = ?", p.LeadID).Take(&lead).Error; err != nil {
		return nil, err
	}
	if lead.ConvertedToCustomer {
		return nil, ErrAlreadyConverted
	}

	var customerID *uuid.UUID
	if email := strings.ToLower(strings.TrimSpace(lead.Email)); email != "" {
		var customer models.Profile
		err := tx.Where("LOWER(email) = ?", email).Take(&customer).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			customer = models.Profile{
				Email:       email,
				FullName:    lead.Name,
				CompanyName: lead.Company,
				Phone:       lead.Phone,
				Role:        models.RoleCustomer,
			}
			if err := tx.Create(&customer).Error; err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		}
		// Emails are unique across roles; a staff address gets no customer.
		if customer.Role == models.RoleCustomer {
			customerID = &customer.ID
		}
	}

	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = lead.Company
		if title == "" {
			title = lead.Name
		}
	}
	budget := p.Budget
	if budget <= 0 {
		budget = lead.DealValue
	}

	project := models.Project{
		CustomerID:      customerID,
		LeadID:          &lead.ID,
		Title:           title,
		Description:     p.Description,
		Type:            p.Type,
		EstimatedBudget: budget,
	}
	if err := tx.Create(&project).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	err := tx.Model(&models.Lead{}).Where("id = ?", lead.ID).Updates(map[string]interface{}{
		"converted_to_customer": true,
		"converted_at":          now,
		"converted_project_id":  project.ID,
	}).Error
	if err != nil {
		return nil, err
	}

	activity := models.LeadActivity{
		LeadID:      lead.ID,
		ActorID:     p.ActorID,
		Action:      "converted",
		FromStageID: lead.PipelineStageID,
		Details:     fmt.Sprintf("converted to project %s", project.ID),
	}
	if err := tx.Create(&activity).Error; err != nil {
		return nil, err
	}

	return ConvertLeadResult{ProjectID: project.ID, CustomerID: customerID}, nil
}
