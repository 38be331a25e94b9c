package controllers

import (
	"net/http"

	"agencydesk-backend/apperr"
	"agencydesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// Realtime upgrades to a websocket that receives the user's toasts.
func (h *Handler) Realtime(c *gin.Context) {
	sess := utils.CurrentSession(c)
	if sess.Anonymous() {
		apperr.Respond(c, apperr.Unauthorized())
		return
	}
	if h.hub == nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Realtime updates are unavailable")
		return
	}
	h.hub.Serve(c.Writer, c.Request, sess.UserID)
}
