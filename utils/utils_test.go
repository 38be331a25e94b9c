package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agencydesk-backend/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSLALabel(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	in := func(d time.Duration) *time.Time { t := now.Add(d); return &t }

	tests := []struct {
		name   string
		status string
		due    *time.Time
		want   string
	}{
		{"urgent ticket without due date", "open", nil, SLANone},
		{"past due", "open", in(-time.Minute), SLAOverdue},
		{"due exactly now", "in_progress", in(0), SLAOverdue},
		{"resolved", "resolved", in(-time.Hour), SLACompleted},
		{"closed", "closed", in(time.Hour), SLACompleted},
		{"days left", "open", in(51 * time.Hour), "2d 3h left"},
		{"hours left", "open", in(3*time.Hour + 20*time.Minute), "3h 20m left"},
		{"minutes left", "open", in(15*time.Minute + 30*time.Second), "15m left"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SLALabel(tt.status, tt.due, now))
		})
	}

	_, state := SLA("open", in(2*time.Hour), now)
	assert.Equal(t, SLAStateDueSoon, state)
	_, state = SLA("open", in(48*time.Hour), now)
	assert.Equal(t, SLAStateOK, state)
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(start, time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, DaysBetween(start, start.AddDate(0, 0, 30)))
	assert.Equal(t, -7, DaysBetween(start, start.AddDate(0, 0, -7)))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+44 7400 123456"))
	assert.True(t, ValidatePhone("07400 123456"))
	assert.False(t, ValidatePhone("12345"))
	assert.False(t, ValidatePhone(""))

	e164, ok := NormalizePhone("07400 123456")
	require.True(t, ok)
	assert.Equal(t, "+447400123456", e164)
}

func TestGenerateInvoiceNumber(t *testing.T) {
	n := GenerateInvoiceNumber(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, `^INV-20261018-[A-Z2-9]{6}$`, n)
	assert.NotEqual(t, GenerateRandomString(12), GenerateRandomString(12))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "how-to-point-your-domain-at-us", Slugify("  How to point your domain at us?! "))
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "test-secret"
	sess := session.Session{UserID: uuid.New(), Email: "ops@agency.test", Role: session.RoleCustomer}
	token, err := GenerateToken(secret, sess, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(AuthMiddleware(secret))
	r.GET("/me", func(c *gin.Context) { c.JSON(http.StatusOK, CurrentSession(c)) })
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(path, auth string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do("/me", ""))
	assert.Equal(t, http.StatusUnauthorized, do("/me", "Bearer nonsense"))
	assert.Equal(t, http.StatusOK, do("/me", "Bearer "+token))
	assert.Equal(t, http.StatusOK, do("/me?access_token="+token, ""))
	assert.Equal(t, http.StatusForbidden, do("/admin", "Bearer "+token))

	other, err := GenerateToken("other-secret", sess, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do("/me", "Bearer "+other))

	expired, err := GenerateToken(secret, sess, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do("/me", "Bearer "+expired))
}
