package apperr

import (
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Respond writes err as a JSON error response and aborts the request.
// Internal errors are logged and reported; their detail never reaches the
// client.
func Respond(c *gin.Context, err error) {
	e := Classify(err)
	if e == nil {
		return
	}
	if e.Code == CodeInternal {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		if hub := sentry.CurrentHub(); hub.Client() != nil {
			hub.CaptureException(err)
		}
	}

	body := gin.H{"error": e.Message, "code": e.Code}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	c.AbortWithStatusJSON(Status(e.Code), body)
}
