package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"agencydesk-backend/apperr"
	"agencydesk-backend/listview"
	"agencydesk-backend/models"
	"agencydesk-backend/screen"
	"agencydesk-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProjectRow struct {
	models.Project
	CustomerName string `json:"customer_name"`
}

var projectSpec = listview.Spec[ProjectRow]{
	Search: []func(ProjectRow) string{
		func(r ProjectRow) string { return r.Title },
		func(r ProjectRow) string { return r.CustomerName },
		func(r ProjectRow) string { return r.Type },
	},
	Filters: map[string]func(ProjectRow) string{
		"status": func(r ProjectRow) string { return r.Status },
		"type":   func(r ProjectRow) string { return r.Type },
	},
	Sorts: map[string]func(a, b ProjectRow) int{
		"created_at":       listview.ByTime(func(r ProjectRow) time.Time { return r.CreatedAt }),
		"title":            listview.ByString(func(r ProjectRow) string { return r.Title }),
		"estimated_budget": listview.ByFloat(func(r ProjectRow) float64 { return r.EstimatedBudget }),
	},
	DefaultSort: "created_at",
	DefaultDesc: true,
}

type CreateProjectInput struct {
	CustomerID      *uuid.UUID `json:"customer_id"`
	Title           string     `json:"title" binding:"required"`
	Description     string     `json:"description"`
	Type            string     `json:"type"`
	Status          string     `json:"status" binding:"omitempty,oneof=planning in_progress review completed on_hold"`
	EstimatedBudget float64    `json:"estimated_budget" binding:"gte=0"`
	StartDate       *time.Time `json:"start_date"`
	DueDate         *time.Time `json:"due_date"`
}

type UpdateProjectInput struct {
	CustomerID      *uuid.UUID `json:"customer_id"`
	Title           *string    `json:"title" binding:"omitempty,min=1"`
	Description     *string    `json:"description"`
	Type            *string    `json:"type"`
	Status          *string    `json:"status" binding:"omitempty,oneof=planning in_progress review completed on_hold"`
	EstimatedBudget *float64   `json:"estimated_budget" binding:"omitempty,gte=0"`
	StartDate       *time.Time `json:"start_date"`
	DueDate         *time.Time `json:"due_date"`
}

func (h *Handler) projectScreen(c *gin.Context, customers *[]models.Profile) *screen.Controller[ProjectRow] {
	return newScreen(h, c, screen.Config[ProjectRow]{
		Name: "projects",
		Fetch: func(ctx context.Context) ([]ProjectRow, error) {
			var projects []models.Project
			if err := h.store.Query(ctx, store.Projects, store.Where().Order("created_at", true).Limit(h.limit), &projects); err != nil {
				return nil, err
			}
			rows := make([]ProjectRow, len(projects))
			for i, p := range projects {
				rows[i] = ProjectRow{Project: p}
			}
			return rows, nil
		},
		Aux: []screen.Aux{h.customersAux(customers)},
		Enrich: []screen.Enricher[ProjectRow]{
			joinCustomers(customers,
				func(r ProjectRow) uuid.UUID { return optionalID(r.CustomerID) },
				func(r ProjectRow, p models.Profile) ProjectRow {
					r.CustomerName = p.FullName
					return r
				}),
		},
		Spec: projectSpec,
	})
}

func (h *Handler) ListProjects(c *gin.Context) {
	var customers []models.Profile
	respondList(c, h.projectScreen(c, &customers), projectSpec, gin.H{"customers": &customers})
}

func (h *Handler) CreateProject(c *gin.Context) {
	var input CreateProjectInput
	if !bind(c, &input) {
		return
	}
	project := models.Project{
		CustomerID:      input.CustomerID,
		Title:           strings.TrimSpace(input.Title),
		Description:     input.Description,
		Type:            input.Type,
		Status:          input.Status,
		EstimatedBudget: input.EstimatedBudget,
		StartDate:       input.StartDate,
		DueDate:         input.DueDate,
	}

	var customers []models.Profile
	respondMutation(c, h.projectScreen(c, &customers), projectSpec, http.StatusCreated, "Create project",
		func(ctx context.Context) (string, error) {
			if err := store.InsertRow(ctx, h.store, store.Projects, &project); err != nil {
				return "", err
			}
			h.emailCustomer(ctx, project.CustomerID, "project_created", map[string]string{"project_title": project.Title})
			return "Project created", nil
		})
}

func (h *Handler) UpdateProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateProjectInput
	if !bind(c, &input) {
		return
	}

	updates := map[string]interface{}{}
	if input.CustomerID != nil {
		updates["customer_id"] = *input.CustomerID
	}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Type != nil {
		updates["type"] = *input.Type
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.EstimatedBudget != nil {
		updates["estimated_budget"] = *input.EstimatedBudget
	}
	if input.StartDate != nil {
		updates["start_date"] = *input.StartDate
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}

	var customers []models.Profile
	respondMutation(c, h.projectScreen(c, &customers), projectSpec, http.StatusOK, "Update project",
		func(ctx context.Context) (string, error) {
			return "Project updated", store.UpdateByID(ctx, h.store, store.Projects, id, updates)
		})
}

func (h *Handler) DeleteProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var customers []models.Profile
	respondMutation(c, h.projectScreen(c, &customers), projectSpec, http.StatusOK, "Delete project",
		func(ctx context.Context) (string, error) {
			return "Project deleted", store.DeleteByID(ctx, h.store, store.Projects, id)
		})
}
