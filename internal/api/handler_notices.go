package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNotices handles GET /api/notices, oldest first.
func (h *Handler) GetNotices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notices": h.feed.Active()})
}

// DismissNotice handles DELETE /api/notices/:id.
func (h *Handler) DismissNotice(c *gin.Context) {
	h.feed.Dismiss(c.Param("id"))
	c.Status(http.StatusNoContent)
}
