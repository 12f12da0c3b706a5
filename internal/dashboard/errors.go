package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/notification"
)

// ErrNotPermitted is returned when the signed-in role may not perform an
// action. It matches backend.ErrForbidden so callers can treat local and
// remote refusals alike.
var ErrNotPermitted = fmt.Errorf("dashboard: action not permitted for this role: %w", backend.ErrForbidden)

// ErrNotMounted is returned by operations that need a mounted view.
var ErrNotMounted = errors.New("dashboard: view is not mounted")

// ValidationError lists the form fields that are missing or malformed.
// No request is sent when a form fails validation.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return "validation failed: " + e.Reason
	}
	return "validation failed: missing " + strings.Join(e.Fields, ", ")
}

// Message is the user-facing text for the error.
func (e *ValidationError) Message() string {
	if e.Reason != "" {
		return e.Reason
	}
	labels := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		labels = append(labels, fieldLabel(f))
	}
	return "Please fill in all required fields: " + strings.Join(labels, ", ") + "."
}

var fieldLabels = map[string]string{
	"equipment_id":      "Equipment",
	"maintenance_id":    "Maintenance ID",
	"date":              "Date",
	"issue_description": "Issue description",
	"maintenance_type":  "Maintenance type",
	"custom_type":       "Custom maintenance type",
	"downtime_hours":    "Downtime hours",
	"cost_inr":          "Cost (INR)",
	"service_rating":    "Service rating",
	"completion_status": "Completion status",
	"technician_id":     "Technician ID",
}

func fieldLabel(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

// User-facing messages for the error classes.
const (
	msgNotPermitted     = "Your role is not allowed to perform this action."
	msgSessionExpired   = "Session expired. Please login again."
	msgForbidden        = "Permission denied. Please check your role permissions."
	msgNetwork          = "Cannot connect to server. Please check if the backend is running and try again."
	msgDuplicateID      = "There was a conflict generating the maintenance ID. Please try again."
	msgBackendFailure   = "Backend Error: There is an issue with the server. Please check the backend logs for more details."
	msgRequestCancelled = "The request was cancelled before it finished."
	msgNotMounted       = "The dashboard is shutting down. Please try again shortly."
)

// Describe turns an error from a dashboard operation into a notice level
// and a message. fallback is used for errors with nothing better to say.
func Describe(err error, fallback string) (notification.Level, string) {
	var (
		verr   *ValidationError
		apiErr *backend.APIError
	)
	switch {
	case err == nil:
		return notification.LevelSuccess, fallback
	case errors.As(err, &verr):
		return notification.LevelWarning, verr.Message()
	case errors.Is(err, ErrNotMounted):
		return notification.LevelWarning, msgNotMounted
	case errors.Is(err, ErrNotPermitted):
		return notification.LevelError, msgNotPermitted
	case errors.Is(err, backend.ErrUnauthorized):
		return notification.LevelError, msgSessionExpired
	case errors.Is(err, backend.ErrForbidden):
		return notification.LevelError, msgForbidden
	case backend.IsNetwork(err):
		return notification.LevelError, msgNetwork
	case errors.As(err, &apiErr):
		return notification.LevelError, describeAPIError(apiErr, fallback)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return notification.LevelWarning, msgRequestCancelled
	default:
		return notification.LevelError, fallback
	}
}

func describeAPIError(e *backend.APIError, fallback string) string {
	if isDuplicateMaintenanceID(e.Detail) {
		return msgDuplicateID
	}
	if e.Detail != "" {
		if e.ServerError() {
			return "Server Error: " + e.Detail
		}
		return e.Detail
	}
	if e.ServerError() {
		return msgBackendFailure
	}
	return fallback
}

func isDuplicateMaintenanceID(detail string) bool {
	return strings.Contains(detail, "UNIQUE constraint") ||
		strings.Contains(detail, "Could not generate unique maintenance ID")
}
