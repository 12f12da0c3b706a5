package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"equipment-maintenance-dashboard/internal/dashboard"
)

// ScheduleMaintenance handles PUT /api/equipment/:id/schedule.
func (h *Handler) ScheduleMaintenance(c *gin.Context) {
	var form dashboard.ScheduleForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	form.EquipmentID = c.Param("id")

	resp, err := h.view.Schedule(c.Request.Context(), form)
	if err != nil {
		h.writeError(c, err, "Failed to schedule maintenance. Please try again.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CompleteMaintenance handles PUT /api/equipment/:id/complete.
func (h *Handler) CompleteMaintenance(c *gin.Context) {
	var form dashboard.CompletionForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	form.EquipmentID = c.Param("id")

	resp, err := h.view.MarkComplete(c.Request.Context(), form)
	if err != nil {
		h.writeError(c, err, "Error submitting completion. Please try again.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

type confirmRequest struct {
	ServiceRating int `json:"service_rating"`
}

// ConfirmMaintenance handles PUT /api/maintenance/:id/confirm.
func (h *Handler) ConfirmMaintenance(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.view.Confirm(c.Request.Context(), c.Param("id"), req.ServiceRating)
	if err != nil {
		h.writeError(c, err, "Failed to confirm maintenance. Please try again.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReviewMaintenance handles PUT /api/maintenance/:id/review.
func (h *Handler) ReviewMaintenance(c *gin.Context) {
	var form dashboard.ReviewForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	form.MaintenanceID = c.Param("id")

	resp, err := h.view.Review(c.Request.Context(), form)
	if err != nil {
		h.writeError(c, err, "Failed to submit review. Please try again.")
		return
	}
	c.JSON(http.StatusOK, resp)
}
