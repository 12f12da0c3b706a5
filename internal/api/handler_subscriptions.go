package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equipment-maintenance-dashboard/internal/model"
	"equipment-maintenance-dashboard/internal/session"
	"equipment-maintenance-dashboard/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint    string `json:"endpoint" binding:"required"`
	P256DH      string `json:"p256dh" binding:"required"`
	Auth        string `json:"auth" binding:"required"`
	Role        string `json:"role"`
	PersonnelID string `json:"personnel_id"`
}

// subscriptionRole normalises the role a browser subscribes for. Empty
// means every notice.
func subscriptionRole(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", true
	}
	role := session.ParseRole(raw)
	if role == session.RoleUnknown {
		return "", false
	}
	return role.String(), true
}

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "subscriptions are not available", Level: "error"})
		return false
	}
	return true
}

// PutSubscription handles the creation or replacement of a subscription.
func (h *Handler) PutSubscription(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, ok := subscriptionRole(req.Role)
	if !ok {
		badRequest(c, errors.New("unknown role "+req.Role))
		return
	}

	sub := &model.PushSubscription{
		Endpoint:    req.Endpoint,
		P256DH:      req.P256DH,
		Auth:        req.Auth,
		Role:        role,
		PersonnelID: strings.TrimSpace(req.PersonnelID),
	}
	if err := h.store.SaveSubscription(c.Request.Context(), sub); err != nil {
		h.logger.Error().Err(err).Msg("failed to save subscription")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "failed to save subscription", Level: "error"})
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		h.logger.Error().Err(err).Msg("failed to delete subscription")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "failed to delete subscription", Level: "error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription handles the retrieval of a subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		badRequest(c, errors.New("endpoint is required"))
		return
	}

	sub, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "subscription not found", Level: "warning"})
			return
		}
		h.logger.Error().Err(err).Msg("failed to load subscription")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "failed to load subscription", Level: "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"role": sub.Role, "personnel_id": sub.PersonnelID, "created_at": sub.CreatedAt})
}
