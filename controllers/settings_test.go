package controllers

import (
	"net/http"
	"testing"

	"agencydesk-backend/models"
	"agencydesk-backend/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func findIntegrationRow(rows []IntegrationRow, name string) (IntegrationRow, bool) {
	for _, r := range rows {
		if r.Name == name {
			return r, true
		}
	}
	return IntegrationRow{}, false
}

func TestLoadIntegrationCatalog(t *testing.T) {
	catalog, err := LoadIntegrationCatalog()
	require.NoError(t, err)
	require.Contains(t, catalog, "sendgrid")

	missing := catalog["sendgrid"].Missing(map[string]string{"api_key": "  "})
	assert.Equal(t, map[string]string{
		"api_key":    "This field is required",
		"from_email": "This field is required",
	}, missing)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "••••••••6789", maskSecret("SG.123456789"))
	assert.Equal(t, "•••", maskSecret("abc"))
}

func TestMaskConfig_ReadsStoredBytes(t *testing.T) {
	svc := IntegrationService{Name: "sendgrid", Fields: []IntegrationField{
		{Name: "api_key", Secret: true},
		{Name: "from_email"},
		{Name: "port"},
		{Name: "region"},
	}}

	got := maskConfig(svc, models.JSONB(`{"api_key":"SG.123456789","from_email":"a@agency.test","port":587,"extra":"x"}`))
	assert.Equal(t, map[string]string{
		"api_key":    "••••••••6789",
		"from_email": "a@agency.test",
		"port":       "587",
	}, got)

	assert.Empty(t, maskConfig(svc, nil))
	assert.Empty(t, maskConfig(svc, models.JSONB(`{"api_key":`)))
}

func TestListIntegrations_ShowsCatalog(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/settings/integrations", "/settings/integrations", nil, e.h.ListIntegrations)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[pageBody[IntegrationRow]](t, w)
	assert.Len(t, body.Rows, len(e.h.integrations))
	assert.Equal(t, integrationLimit, body.Limit)
	for _, r := range body.Rows {
		assert.False(t, r.IsConnected, r.Name)
	}
}

func TestConnectIntegration(t *testing.T) {
	e := newTestEnv(t)
	route := "/settings/integrations/:service"

	w := e.do(http.MethodPut, route, "/settings/integrations/sendgrid",
		gin.H{"config": gin.H{"api_key": "SG.abcdef1234"}}, e.h.ConnectIntegration)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Fields, "from_email")

	w = e.do(http.MethodPut, route, "/settings/integrations/sendgrid", gin.H{"config": gin.H{
		"api_key":    "SG.abcdef1234",
		"from_email": "hello@agency.test",
		"unknown":    "dropped",
	}}, e.h.ConnectIntegration)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[mutationBody[IntegrationRow]](t, w)
	assert.Equal(t, "SendGrid connected", body.Result.Message)

	row, ok := findIntegrationRow(body.Rows.Rows, "sendgrid")
	require.True(t, ok)
	assert.True(t, row.IsConnected)
	require.NotNil(t, row.ConnectedAt)
	assert.Equal(t, map[string]string{
		"api_key":    "••••••••1234",
		"from_email": "hello@agency.test",
	}, row.Config)

	var stored models.APIIntegration
	require.NoError(t, e.db.First(&stored, "service_name = ?", "sendgrid").Error)
	assert.Equal(t, "SG.abcdef1234", gjson.GetBytes(stored.Config, "api_key").String())
	assert.False(t, gjson.GetBytes(stored.Config, "unknown").Exists())

	// Reconnecting updates the same row.
	w = e.do(http.MethodPut, route, "/settings/integrations/sendgrid", gin.H{"config": gin.H{
		"api_key":    "SG.zzzz9999",
		"from_email": "hello@agency.test",
	}}, e.h.ConnectIntegration)
	require.Equal(t, http.StatusOK, w.Code)
	var count int64
	e.db.Model(&models.APIIntegration{}).Count(&count)
	assert.Equal(t, int64(1), count)

	w = e.do(http.MethodPut, route, "/settings/integrations/myspace", gin.H{"config": gin.H{}}, e.h.ConnectIntegration)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDisconnectIntegration(t *testing.T) {
	e := newTestEnv(t)
	route := "/settings/integrations/:service"

	w := e.do(http.MethodDelete, route, "/settings/integrations/twilio", nil, e.h.DisconnectIntegration)
	require.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPut, route, "/settings/integrations/twilio", gin.H{"config": gin.H{
		"account_sid":  "AC123",
		"auth_token":   "tok-5555",
		"phone_number": "+447400123456",
	}}, e.h.ConnectIntegration)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(http.MethodDelete, route, "/settings/integrations/twilio", nil, e.h.DisconnectIntegration)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[mutationBody[IntegrationRow]](t, w)
	assert.Equal(t, "Twilio disconnected", body.Result.Message)
	row, ok := findIntegrationRow(body.Rows.Rows, "twilio")
	require.True(t, ok)
	assert.False(t, row.IsConnected)
	assert.Nil(t, row.ConnectedAt)
	assert.Empty(t, row.Config)
}

func TestCreateArticle(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/knowledge-base", "/knowledge-base", gin.H{
		"title":        "How to point your DNS?",
		"content":      "Log in to your registrar.",
		"category":     "domains",
		"tags":         " DNS, Domains ,,",
		"is_published": true,
	}, e.h.CreateArticle)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode[mutationBody[models.KBArticle]](t, w)
	assert.Equal(t, "Article created", body.Result.Message)
	require.Len(t, body.Rows.Rows, 1)
	a := body.Rows.Rows[0]
	assert.Equal(t, "how-to-point-your-dns", a.Slug)
	assert.Equal(t, "dns,domains", a.Tags)
	require.NotNil(t, a.AuthorID)
	assert.Equal(t, e.admin.ID, *a.AuthorID)

	w = e.do(http.MethodPost, "/knowledge-base", "/knowledge-base", gin.H{"title": "Other", "slug": "How to point your DNS"}, e.h.CreateArticle)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPost, "/knowledge-base", "/knowledge-base", gin.H{"content": "untitled"}, e.h.CreateArticle)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArticles_CustomersSeePublishedOnly(t *testing.T) {
	e := newTestEnv(t)
	published := models.KBArticle{Title: "Billing FAQ", Slug: "billing-faq", IsPublished: true}
	draft := models.KBArticle{Title: "Draft", Slug: "draft"}
	require.NoError(t, e.db.Create(&published).Error)
	require.NoError(t, e.db.Create(&draft).Error)

	w := e.do(http.MethodGet, "/knowledge-base", "/knowledge-base", nil, e.h.ListArticles)
	assert.Len(t, decode[pageBody[models.KBArticle]](t, w).Rows, 2)

	cust := testutil.CreateCustomer(t, e.db)
	e.as(cust)
	w = e.do(http.MethodGet, "/knowledge-base", "/knowledge-base", nil, e.h.ListArticles)
	rows := decode[pageBody[models.KBArticle]](t, w).Rows
	require.Len(t, rows, 1)
	assert.Equal(t, published.ID, rows[0].ID)

	w = e.do(http.MethodPost, "/knowledge-base/:id/view", "/knowledge-base/"+draft.ID.String()+"/view", nil, e.h.RecordArticleView)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, "/knowledge-base/:id/view", "/knowledge-base/"+published.ID.String()+"/view", nil, e.h.RecordArticleView)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[viewsBody](t, w).Views)

	w = e.do(http.MethodPost, "/knowledge-base/:id/view", "/knowledge-base/"+published.ID.String()+"/view", nil, e.h.RecordArticleView)
	assert.Equal(t, 2, decode[viewsBody](t, w).Views)

	var got models.KBArticle
	require.NoError(t, e.db.First(&got, "id = ?", published.ID).Error)
	assert.Equal(t, 2, got.Views)
}

type viewsBody struct {
	Views int `json:"views"`
}

func TestToggleArticlePublished(t *testing.T) {
	e := newTestEnv(t)
	a := models.KBArticle{Title: "Hosting limits", Slug: "hosting-limits"}
	require.NoError(t, e.db.Create(&a).Error)
	target := "/knowledge-base/" + a.ID.String() + "/publish"

	w := e.do(http.MethodPut, "/knowledge-base/:id/publish", target, nil, e.h.ToggleArticlePublished)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[mutationBody[models.KBArticle]](t, w)
	assert.Equal(t, "Article published", body.Result.Message)
	require.Len(t, body.Rows.Rows, 1)
	assert.True(t, body.Rows.Rows[0].IsPublished)

	w = e.do(http.MethodPut, "/knowledge-base/:id/publish", target, nil, e.h.ToggleArticlePublished)
	assert.Equal(t, "Article unpublished", decode[mutationBody[models.KBArticle]](t, w).Result.Message)
}

func TestUpdateArticle_NormalizesTags(t *testing.T) {
	e := newTestEnv(t)
	a := models.KBArticle{Title: "SSL", Slug: "ssl"}
	require.NoError(t, e.db.Create(&a).Error)

	w := e.do(http.MethodPut, "/knowledge-base/:id", "/knowledge-base/"+a.ID.String(),
		gin.H{"tags": "Security, SSL", "slug": "SSL Certificates"}, e.h.UpdateArticle)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.KBArticle
	require.NoError(t, e.db.First(&got, "id = ?", a.ID).Error)
	assert.Equal(t, "security,ssl", got.Tags)
	assert.Equal(t, "ssl-certificates", got.Slug)
}
