package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/filedesk/internal/providers/system"
)

// Health handles the liveness check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Diagnostics reports runtime and storage capabilities. ?usage=true adds
// a full walk of the storage root.
func (h *Handlers) Diagnostics(c *gin.Context) {
	report, err := h.system.Diagnostics(c.Request.Context(), system.RequestInfo{
		Method:      c.Request.Method,
		ContentType: c.ContentType(),
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.ClientIP(),
	}, boolQuery(c, "usage"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		*system.Report
	}{true, report})
}
