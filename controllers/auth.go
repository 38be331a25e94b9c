package controllers

import (
	"errors"
	"net/http"

	"agencydesk-backend/apperr"
	"agencydesk-backend/models"
	"agencydesk-backend/store"
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// Me returns the signed-in user's profile.
func (h *Handler) Me(c *gin.Context) {
	sess := utils.CurrentSession(c)
	if sess.Anonymous() {
		apperr.Respond(c, apperr.Unauthorized())
		return
	}

	var p models.Profile
	if err := store.Get(c.Request.Context(), h.store, store.Profiles, sess.UserID, &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apperr.Respond(c, apperr.Unauthorized())
			return
		}
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":           p.ID,
			"email":        p.Email,
			"full_name":    p.FullName,
			"company_name": p.CompanyName,
			"role":         p.Role,
		},
	})
}
