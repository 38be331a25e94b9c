package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agencydesk-backend/apperr"
	"agencydesk-backend/listview"
	"agencydesk-backend/models"
	"agencydesk-backend/screen"
	"agencydesk-backend/store"
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var leadSpec = listview.Spec[models.Lead]{
	Search: []func(models.Lead) string{
		func(l models.Lead) string { return l.Name },
		func(l models.Lead) string { return l.Email },
		func(l models.Lead) string { return l.Company },
	},
	Filters: map[string]func(models.Lead) string{
		"pipeline_stage_id": func(l models.Lead) string {
			if l.PipelineStageID == nil {
				return ""
			}
			return l.PipelineStageID.String()
		},
		"source":    func(l models.Lead) string { return l.Source },
		"converted": func(l models.Lead) string { return strconv.FormatBool(l.ConvertedToCustomer) },
	},
	Sorts: map[string]func(a, b models.Lead) int{
		"created_at": listview.ByTime(func(l models.Lead) time.Time { return l.CreatedAt }),
		"deal_value": listview.ByFloat(func(l models.Lead) float64 { return l.DealValue }),
		"lead_score": listview.ByInt(func(l models.Lead) int { return l.LeadScore }),
		"name":       listview.ByString(func(l models.Lead) string { return l.Name }),
	},
	DefaultSort: "created_at",
	DefaultDesc: true,
}

// BoardColumn is one kanban column: a stage and the visible leads in it.
type BoardColumn struct {
	Stage      models.PipelineStage `json:"stage"`
	Leads      []models.Lead        `json:"leads"`
	Count      int                  `json:"count"`
	TotalValue float64              `json:"total_value"`
}

// BuildBoard groups leads into stage columns in stage order. Leads whose
// stage is unknown land in a trailing Unassigned column.
func BuildBoard(stages []models.PipelineStage, leads []models.Lead) []BoardColumn {
	cols := make([]BoardColumn, len(stages))
	index := make(map[uuid.UUID]int, len(stages))
	for i, s := range stages {
		cols[i] = BoardColumn{Stage: s, Leads: []models.Lead{}}
		index[s.ID] = i
	}
	unassigned := BoardColumn{Stage: models.PipelineStage{Name: "Unassigned"}, Leads: []models.Lead{}}

	for _, l := range leads {
		col := &unassigned
		if l.PipelineStageID != nil {
			if i, ok := index[*l.PipelineStageID]; ok {
				col = &cols[i]
			}
		}
		col.Leads = append(col.Leads, l)
		col.Count++
		col.TotalValue += l.DealValue
	}
	if unassigned.Count > 0 {
		cols = append(cols, unassigned)
	}
	return cols
}

type CreateLeadInput struct {
	Name            string     `json:"name" binding:"required"`
	Email           string     `json:"email" binding:"omitempty,email"`
	Phone           string     `json:"phone" binding:"omitempty,phone"`
	Company         string     `json:"company"`
	Source          string     `json:"source"`
	Notes           string     `json:"notes"`
	DealValue       float64    `json:"deal_value" binding:"gte=0"`
	LeadScore       int        `json:"lead_score" binding:"gte=0,lte=100"`
	PipelineStageID *uuid.UUID `json:"pipeline_stage_id"`
}

type UpdateLeadInput struct {
	Name      *string  `json:"name" binding:"omitempty,min=1"`
	Email     *string  `json:"email" binding:"omitempty,email"`
	Phone     *string  `json:"phone" binding:"omitempty,phone"`
	Company   *string  `json:"company"`
	Source    *string  `json:"source"`
	Notes     *string  `json:"notes"`
	DealValue *float64 `json:"deal_value" binding:"omitempty,gte=0"`
	LeadScore *int     `json:"lead_score" binding:"omitempty,gte=0,lte=100"`
}

type MoveLeadInput struct {
	StageID uuid.UUID `json:"stage_id" binding:"required"`
}

type ConvertLeadInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Budget      float64 `json:"budget" binding:"gte=0"`
}

func (h *Handler) pipelineScreen(c *gin.Context, stages *[]models.PipelineStage) *screen.Controller[models.Lead] {
	return newScreen(h, c, screen.Config[models.Lead]{
		Name:  "pipeline",
		Fetch: fetchRows[models.Lead](h.store, store.Leads, store.Where().Order("created_at", true).Limit(h.limit)),
		Aux: []screen.Aux{
			screen.Auxiliary("stages", stages, fetchRows[models.PipelineStage](h.store,
				store.PipelineStages, store.Where().Order("stage_order", false))),
		},
		Spec: leadSpec,
	})
}

// ListLeads returns the filtered leads and the kanban board built from them.
func (h *Handler) ListLeads(c *gin.Context) {
	var stages []models.PipelineStage
	ctrl := h.pipelineScreen(c, &stages)
	if err := ctrl.Load(c.Request.Context()); err != nil {
		apperr.Respond(c, err)
		return
	}
	page := ctrl.Page(listview.ParseQuery(leadSpec, c.Request.URL.Query()))
	c.JSON(http.StatusOK, gin.H{
		"rows":           page.Rows,
		"fetched":        page.Fetched,
		"limit":          page.Limit,
		"stats_complete": page.StatsComplete,
		"state":          page.State,
		"warnings":       page.Warnings,
		"stages":         stages,
		"board":          BuildBoard(stages, page.Rows),
	})
}

// firstStage returns the lowest ordered stage, or nil when none exist.
func (h *Handler) firstStage(ctx context.Context) (*uuid.UUID, error) {
	var stages []models.PipelineStage
	if err := h.store.Query(ctx, store.PipelineStages, store.Where().Order("stage_order", false).Limit(1), &stages); err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, nil
	}
	return &stages[0].ID, nil
}

func (h *Handler) CreateLead(c *gin.Context) {
	var input CreateLeadInput
	if !bind(c, &input) {
		return
	}
	lead := models.Lead{
		Name:            strings.TrimSpace(input.Name),
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
		Company:         input.Company,
		Source:          strings.ToLower(strings.TrimSpace(input.Source)),
		Notes:           input.Notes,
		DealValue:       input.DealValue,
		LeadScore:       input.LeadScore,
		PipelineStageID: input.PipelineStageID,
	}
	if lead.Source == "" {
		lead.Source = "manual"
	}
	if input.Phone != "" {
		lead.Phone, _ = utils.NormalizePhone(input.Phone)
	}

	var stages []models.PipelineStage
	respondMutation(c, h.pipelineScreen(c, &stages), leadSpec, http.StatusCreated, "Create lead",
		func(ctx context.Context) (string, error) {
			if lead.PipelineStageID == nil {
				first, err := h.firstStage(ctx)
				if err != nil {
					return "", err
				}
				lead.PipelineStageID = first
			}
			if err := store.InsertRow(ctx, h.store, store.Leads, &lead); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s added to the pipeline", lead.Name), nil
		})
}

func (h *Handler) UpdateLead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input UpdateLeadInput
	if !bind(c, &input) {
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Phone != nil {
		phone, _ := utils.NormalizePhone(*input.Phone)
		updates["phone"] = phone
	}
	if input.Company != nil {
		updates["company"] = *input.Company
	}
	if input.Source != nil {
		updates["source"] = strings.ToLower(strings.TrimSpace(*input.Source))
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.DealValue != nil {
		updates["deal_value"] = *input.DealValue
	}
	if input.LeadScore != nil {
		updates["lead_score"] = *input.LeadScore
	}
	if len(updates) == 0 {
		apperr.Respond(c, apperr.BadRequest("No fields to update"))
		return
	}

	var stages []models.PipelineStage
	respondMutation(c, h.pipelineScreen(c, &stages), leadSpec, http.StatusOK, "Update lead",
		func(ctx context.Context) (string, error) {
			return "Lead updated", store.UpdateByID(ctx, h.store, store.Leads, id, updates)
		})
}

func (h *Handler) DeleteLead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var stages []models.PipelineStage
	respondMutation(c, h.pipelineScreen(c, &stages), leadSpec, http.StatusOK, "Delete lead",
		func(ctx context.Context) (string, error) {
			return "Lead deleted", store.DeleteByID(ctx, h.store, store.Leads, id)
		})
}

// MoveLead is the drag and drop between kanban columns: one stage update
// plus a best-effort audit row.
func (h *Handler) MoveLead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input MoveLeadInput
	if !bind(c, &input) {
		return
	}
	sess := utils.CurrentSession(c)

	var stages []models.PipelineStage
	respondMutation(c, h.pipelineScreen(c, &stages), leadSpec, http.StatusOK, "Move lead",
		func(ctx context.Context) (string, error) {
			var stage models.PipelineStage
			if err := store.Get(ctx, h.store, store.PipelineStages, input.StageID, &stage); err != nil {
				return "", err
			}
			var lead models.Lead
			if err := store.Get(ctx, h.store, store.Leads, id, &lead); err != nil {
				return "", err
			}
			if err := store.UpdateByID(ctx, h.store, store.Leads, id, map[string]interface{}{"pipeline_stage_id": stage.ID}); err != nil {
				return "", err
			}

			activity := models.LeadActivity{
				LeadID:      id,
				ActorID:     sess.ActorID(),
				Action:      "stage_changed",
				FromStageID: lead.PipelineStageID,
				ToStageID:   &stage.ID,
				Details:     "moved to " + stage.Name,
			}
			if err := store.InsertRow(ctx, h.store, store.LeadActivities, &activity); err != nil {
				h.log.WithError(err).WithField("lead_id", id).Warn("failed to record lead activity")
			}
			return fmt.Sprintf("%s moved to %s", lead.Name, stage.Name), nil
		})
}

// ConvertLead runs the conversion procedure and emails the new customer.
func (h *Handler) ConvertLead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input ConvertLeadInput
	if !bindOptional(c, &input) {
		return
	}
	sess := utils.CurrentSession(c)

	var stages []models.PipelineStage
	ctrl := h.pipelineScreen(c, &stages)
	var out store.ConvertLeadResult
	res, err := ctrl.Mutate(c.Request.Context(), "Convert lead", func(ctx context.Context) (string, error) {
		params := store.ConvertLeadParams{
			LeadID:      id,
			Title:       input.Title,
			Description: input.Description,
			Type:        input.Type,
			Budget:      input.Budget,
			ActorID:     sess.ActorID(),
		}
		if err := h.store.Invoke(ctx, store.ProcConvertLeadToProject, params, &out); err != nil {
			return "", err
		}
		var project models.Project
		if err := store.Get(ctx, h.store, store.Projects, out.ProjectID, &project); err == nil {
			h.emailCustomer(ctx, out.CustomerID, "project_created", map[string]string{"project_title": project.Title})
		}
		return "Lead converted to project", nil
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"result":      res,
		"project_id":  out.ProjectID,
		"customer_id": out.CustomerID,
		"rows":        ctrl.Page(listview.ParseQuery(leadSpec, c.Request.URL.Query())),
	})
}
