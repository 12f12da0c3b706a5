package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/dashboard"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Level  string   `json:"level"`
	Fields []string `json:"fields,omitempty"`
}

// statusFor maps an operation error onto the dashboard API's status code.
func statusFor(err error) int {
	var verr *dashboard.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotMounted):
		return http.StatusServiceUnavailable
	case errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, backend.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case backend.IsNetwork(err):
		return http.StatusBadGateway
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError aborts the request with the user-facing description of err.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	level, msg := dashboard.Describe(err, fallback)

	resp := errorResponse{Error: msg, Level: string(level)}
	var verr *dashboard.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Int("status", status).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Level: "warning"})
}
