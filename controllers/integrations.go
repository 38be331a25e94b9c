package controllers

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"agencydesk-backend/apperr"
	"agencydesk-backend/listview"
	"agencydesk-backend/models"
	"agencydesk-backend/screen"
	"agencydesk-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

//go:embed integrations.yaml
var integrationsYAML []byte

// integrationLimit is the fetch prefix of the integrations screen.
const integrationLimit = 50

type IntegrationField struct {
	Name     string `yaml:"name" json:"name"`
	Label    string `yaml:"label" json:"label"`
	Secret   bool   `yaml:"secret" json:"secret"`
	Required bool   `yaml:"required" json:"required"`
}

type IntegrationService struct {
	Name        string             `yaml:"name" json:"service_name"`
	DisplayName string             `yaml:"display_name" json:"display_name"`
	Category    string             `yaml:"category" json:"category"`
	Fields      []IntegrationField `yaml:"fields" json:"fields"`
}

// IntegrationCatalog lists the services that can be connected, by name.
type IntegrationCatalog map[string]IntegrationService

func LoadIntegrationCatalog() (IntegrationCatalog, error) {
	var doc struct {
		Services []IntegrationService `yaml:"services"`
	}
	if err := yaml.Unmarshal(integrationsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse integration catalog: %w", err)
	}
	catalog := make(IntegrationCatalog, len(doc.Services))
	for _, s := range doc.Services {
		catalog[s.Name] = s
	}
	return catalog, nil
}

// Missing returns the required fields absent from config.
func (s IntegrationService) Missing(config map[string]string) map[string]string {
	missing := map[string]string{}
	for _, f := range s.Fields {
		if f.Required && strings.TrimSpace(config[f.Name]) == "" {
			missing[f.Name] = "This field is required"
		}
	}
	return missing
}

// IntegrationRow is a catalog service with its stored connection state.
type IntegrationRow struct {
	IntegrationService
	IsConnected bool              `json:"is_connected"`
	ConnectedAt *time.Time        `json:"connected_at"`
	Config      map[string]string `json:"config"`
}

var integrationSpec = listview.Spec[IntegrationRow]{
	Search: []func(IntegrationRow) string{
		func(r IntegrationRow) string { return r.Name },
		func(r IntegrationRow) string { return r.DisplayName },
	},
	Filters: map[string]func(IntegrationRow) string{
		"is_connected": func(r IntegrationRow) string { return fmt.Sprintf("%t", r.IsConnected) },
		"category":     func(r IntegrationRow) string { return r.Category },
	},
	Sorts: map[string]func(a, b IntegrationRow) int{
		"service_name": listview.ByString(func(r IntegrationRow) string { return r.Name }),
	},
	DefaultSort: "service_name",
}

// maskConfig reads each catalog field out of the stored config and hides
// secrets except for their last four characters.
func maskConfig(svc IntegrationService, cfg models.JSONB) map[string]string {
	out := map[string]string{}
	if !gjson.ValidBytes(cfg) {
		return out
	}
	for _, f := range svc.Fields {
		v := gjson.GetBytes(cfg, f.Name)
		if !v.Exists() {
			continue
		}
		s := v.String()
		if f.Secret {
			s = maskSecret(s)
		}
		out[f.Name] = s
	}
	return out
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("•", len(s))
	}
	return strings.Repeat("•", 8) + s[len(s)-4:]
}

func (h *Handler) integrationScreen(c *gin.Context) *screen.Controller[IntegrationRow] {
	return newScreen(h, c, screen.Config[IntegrationRow]{
		Name:  "integrations",
		Limit: integrationLimit,
		Fetch: func(ctx context.Context) ([]IntegrationRow, error) {
			var stored []models.APIIntegration
			err := h.store.Query(ctx, store.APIIntegrations,
				store.Where().Order("service_name", false).Limit(integrationLimit), &stored)
			if err != nil {
				return nil, err
			}
			byName := make(map[string]models.APIIntegration, len(stored))
			for _, s := range stored {
				byName[s.ServiceName] = s
			}

			names := make([]string, 0, len(h.integrations))
			for name := range h.integrations {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([]IntegrationRow, 0, len(names))
			for _, name := range names {
				svc := h.integrations[name]
				row := IntegrationRow{IntegrationService: svc, Config: map[string]string{}}
				if s, ok := byName[name]; ok {
					row.IsConnected = s.IsConnected
					row.ConnectedAt = s.ConnectedAt
					row.Config = maskConfig(svc, s.Config)
				}
				rows = append(rows, row)
			}
			return rows, nil
		},
		Spec: integrationSpec,
	})
}

func (h *Handler) ListIntegrations(c *gin.Context) {
	respondList(c, h.integrationScreen(c), integrationSpec, nil)
}

type ConnectIntegrationInput struct {
	Config map[string]string `json:"config" binding:"required"`
}

func (h *Handler) service(c *gin.Context) (IntegrationService, bool) {
	svc, ok := h.integrations[c.Param("service")]
	if !ok {
		apperr.Respond(c, apperr.NotFound("Integration"))
		return IntegrationService{}, false
	}
	return svc, true
}

// findIntegration returns the stored row for name, or nil.
func (h *Handler) findIntegration(ctx context.Context, name string) (*models.APIIntegration, error) {
	var rows []models.APIIntegration
	if err := h.store.Query(ctx, store.APIIntegrations, store.Where().Eq("service_name", name).Limit(1), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ConnectIntegration checks the credentials against the catalog and stores
// them.
func (h *Handler) ConnectIntegration(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}
	var input ConnectIntegrationInput
	if !bind(c, &input) {
		return
	}
	if missing := svc.Missing(input.Config); len(missing) > 0 {
		apperr.Respond(c, apperr.Validation("Please fill in the required credentials", missing))
		return
	}

	values := map[string]string{}
	for _, f := range svc.Fields {
		if v := strings.TrimSpace(input.Config[f.Name]); v != "" {
			values[f.Name] = v
		}
	}
	config, err := json.Marshal(values)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	respondMutation(c, h.integrationScreen(c), integrationSpec, http.StatusOK, "Connect "+svc.DisplayName,
		func(ctx context.Context) (string, error) {
			existing, err := h.findIntegration(ctx, svc.Name)
			if err != nil {
				return "", err
			}
			now := h.now()
			if existing == nil {
				row := models.APIIntegration{
					ServiceName: svc.Name,
					DisplayName: svc.DisplayName,
					IsConnected: true,
					Config:      models.JSONB(config),
					ConnectedAt: &now,
				}
				return svc.DisplayName + " connected", store.InsertRow(ctx, h.store, store.APIIntegrations, &row)
			}
			return svc.DisplayName + " connected", store.UpdateByID(ctx, h.store, store.APIIntegrations, existing.ID, map[string]interface{}{
				"is_connected": true,
				"config":       models.JSONB(config),
				"connected_at": now,
			})
		})
}

// DisconnectIntegration clears the stored credentials.
func (h *Handler) DisconnectIntegration(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}
	respondMutation(c, h.integrationScreen(c), integrationSpec, http.StatusOK, "Disconnect "+svc.DisplayName,
		func(ctx context.Context) (string, error) {
			existing, err := h.findIntegration(ctx, svc.Name)
			if err != nil {
				return "", err
			}
			if existing == nil || !existing.IsConnected {
				return "", apperr.Conflict(svc.DisplayName + " is not connected")
			}
			return svc.DisplayName + " disconnected", store.UpdateByID(ctx, h.store, store.APIIntegrations, existing.ID, map[string]interface{}{
				"is_connected": false,
				"config":       models.JSONB(nil),
				"connected_at": nil,
			})
		})
}
