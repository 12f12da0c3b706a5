package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetVAPIDPublicKey returns the key browsers need to subscribe to push.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "push notifications are not configured", Level: "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
