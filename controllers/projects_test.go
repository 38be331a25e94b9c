package controllers

import (
	"net/http"
	"net/url"
	"testing"

	"agencydesk-backend/apperr"
	"agencydesk-backend/models"
	"agencydesk-backend/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	e := newTestEnv(t)
	cust := testutil.CreateCustomer(t, e.db)

	w := e.do(http.MethodPost, "/projects", "/projects", gin.H{
		"customer_id":      cust.ID,
		"title":            "  Brochure site ",
		"type":             "website",
		"estimated_budget": 1800,
	}, e.h.CreateProject)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode[mutationBody[ProjectRow]](t, w)
	assert.Equal(t, "Project created", body.Result.Message)
	require.Len(t, body.Rows.Rows, 1)
	p := body.Rows.Rows[0]
	assert.Equal(t, "Brochure site", p.Title)
	assert.Equal(t, models.ProjectPlanning, p.Status)
	assert.Equal(t, cust.FullName, p.CustomerName)
	assert.Equal(t, []string{"project_created"}, e.mail.templates())

	// Internal projects have no customer and send nothing.
	w = e.do(http.MethodPost, "/projects", "/projects", gin.H{"title": "Agency site"}, e.h.CreateProject)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, e.mail.templates(), 1)

	w = e.do(http.MethodPost, "/projects", "/projects", gin.H{"title": "x", "status": "abandoned"}, e.h.CreateProject)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListProjects_Filters(t *testing.T) {
	e := newTestEnv(t)
	cust := testutil.CreateCustomer(t, e.db)
	for _, p := range []models.Project{
		{CustomerID: &cust.ID, Title: "SEO audit", Type: "seo", Status: models.ProjectInProgress, EstimatedBudget: 400},
		{CustomerID: &cust.ID, Title: "Shop", Type: "website", Status: models.ProjectInProgress, EstimatedBudget: 5000},
		{Title: "Old site", Type: "website", Status: "completed"},
	} {
		require.NoError(t, e.db.Create(&p).Error)
	}

	w := e.do(http.MethodGet, "/projects", "/projects?status=in_progress&sort=estimated_budget&dir=desc", nil, e.h.ListProjects)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[pageBody[ProjectRow]](t, w).Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "Shop", rows[0].Title)
	assert.Equal(t, "SEO audit", rows[1].Title)

	w = e.do(http.MethodGet, "/projects", "/projects?search="+url.QueryEscape(cust.FullName), nil, e.h.ListProjects)
	assert.Len(t, decode[pageBody[ProjectRow]](t, w).Rows, 2)
}

func TestDeleteProject_RejectsInvoices(t *testing.T) {
	e := newTestEnv(t)
	cust := testutil.CreateCustomer(t, e.db)
	p := models.Project{CustomerID: &cust.ID, Title: "Retainer"}
	require.NoError(t, e.db.Create(&p).Error)
	inv := testutil.CreateInvoice(t, e.db, cust.ID, 500, models.InvoiceSent)
	require.NoError(t, e.db.Model(&inv).Update("project_id", p.ID).Error)

	w := e.do(http.MethodDelete, "/projects/:id", "/projects/"+p.ID.String(), nil, e.h.DeleteProject)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperr.CodeHasDependents, decode[errorBody](t, w).Code)

	w = e.do(http.MethodPut, "/projects/:id", "/projects/"+p.ID.String(), gin.H{"status": "on_hold"}, e.h.UpdateProject)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Project
	require.NoError(t, e.db.First(&got, "id = ?", p.ID).Error)
	assert.Equal(t, "on_hold", got.Status)
}
