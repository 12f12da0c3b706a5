package dashboard

import (
	"strconv"
	"strings"

	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/parse"
	"equipment-maintenance-dashboard/internal/session"
)

const (
	// OtherMaintenanceType makes the form use CustomType as the type.
	OtherMaintenanceType = "Other"
	// DefaultMaintenanceType is used for roles that do not pick a type.
	DefaultMaintenanceType = "Preventive"
)

// Completion statuses a reviewer may choose.
const (
	CompletionApproved         = "Approved"
	CompletionRequiresFollowUp = "Requires Follow-up"
	CompletionRejected         = "Rejected"
)

const (
	minRating          = 1
	maxRating          = 5
	remarksPlaceholder = "N/A"
)

// ScheduleForm is a request to schedule maintenance on one item.
type ScheduleForm struct {
	EquipmentID      string `json:"equipment_id"`
	Date             string `json:"date"`
	IssueDescription string `json:"issue_description"`
	MaintenanceType  string `json:"maintenance_type"`
	CustomType       string `json:"custom_type"`
}

// Request validates the form for role and builds the backend body.
func (f ScheduleForm) Request(role session.Role) (backend.ScheduleRequest, error) {
	if !role.CanSchedule() {
		return backend.ScheduleRequest{}, ErrNotPermitted
	}

	var missing []string
	if strings.TrimSpace(f.EquipmentID) == "" {
		missing = append(missing, "equipment_id")
	}
	date := strings.TrimSpace(f.Date)
	if date == "" {
		missing = append(missing, "date")
	}
	issue := strings.TrimSpace(f.IssueDescription)
	if issue == "" {
		missing = append(missing, "issue_description")
	}

	mtype := DefaultMaintenanceType
	if role.ChoosesMaintenanceType() {
		mtype = strings.TrimSpace(f.MaintenanceType)
		switch {
		case mtype == "":
			missing = append(missing, "maintenance_type")
		case strings.EqualFold(mtype, OtherMaintenanceType):
			mtype = strings.TrimSpace(f.CustomType)
			if mtype == "" {
				missing = append(missing, "custom_type")
			}
		}
	}

	if len(missing) > 0 {
		return backend.ScheduleRequest{}, &ValidationError{Fields: missing}
	}
	if _, err := parse.Date(date); err != nil {
		return backend.ScheduleRequest{}, &ValidationError{
			Fields: []string{"date"},
			Reason: "Date must be in YYYY-MM-DD format.",
		}
	}

	return backend.ScheduleRequest{
		MaintenanceType:  mtype,
		Date:             date,
		IssueDescription: issue,
	}, nil
}

// CompletionForm is a technician's report for finished work.
// MaintenanceID may be empty; the open scheduled log is looked up then.
type CompletionForm struct {
	EquipmentID       string   `json:"equipment_id"`
	MaintenanceID     string   `json:"maintenance_id"`
	DowntimeHours     *float64 `json:"downtime_hours"`
	CostINR           *float64 `json:"cost_inr"`
	PartsReplaced     string   `json:"parts_replaced"`
	Vendor            string   `json:"vendor"`
	ResponseTimeHours *float64 `json:"response_time_hours"`
}

// Validate checks the required numbers are present and non-negative.
func (f CompletionForm) Validate() error {
	var missing []string
	if strings.TrimSpace(f.EquipmentID) == "" && strings.TrimSpace(f.MaintenanceID) == "" {
		missing = append(missing, "equipment_id")
	}
	if f.DowntimeHours == nil || *f.DowntimeHours < 0 {
		missing = append(missing, "downtime_hours")
	}
	if f.CostINR == nil || *f.CostINR < 0 {
		missing = append(missing, "cost_inr")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Remarks packs the optional fields into the backend's free-text remarks.
func (f CompletionForm) Remarks() string {
	responseTime := remarksPlaceholder
	if f.ResponseTimeHours != nil {
		responseTime = strconv.FormatFloat(*f.ResponseTimeHours, 'f', -1, 64)
	}
	return "Parts: " + orPlaceholder(f.PartsReplaced) +
		" | Vendor: " + orPlaceholder(f.Vendor) +
		" | Response Time: " + responseTime + " hours"
}

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return remarksPlaceholder
}

// ReviewForm approves or sends back a completed maintenance entry.
type ReviewForm struct {
	MaintenanceID    string `json:"maintenance_id"`
	EquipmentID      string `json:"equipment_id"`
	ServiceRating    int    `json:"service_rating"`
	CompletionStatus string `json:"completion_status"`
}

// Request validates the form for role and builds the backend body.
func (f ReviewForm) Request(role session.Role) (backend.ReviewRequest, error) {
	if !role.CanReview() {
		return backend.ReviewRequest{}, ErrNotPermitted
	}

	var missing []string
	if strings.TrimSpace(f.MaintenanceID) == "" {
		missing = append(missing, "maintenance_id")
	}
	if !validRating(f.ServiceRating) {
		missing = append(missing, "service_rating")
	}
	status, ok := normalizeCompletionStatus(f.CompletionStatus)
	if !ok {
		missing = append(missing, "completion_status")
	}
	if len(missing) > 0 {
		return backend.ReviewRequest{}, &ValidationError{Fields: missing}
	}

	return backend.ReviewRequest{ServiceRating: f.ServiceRating, CompletionStatus: status}, nil
}

func validRating(r int) bool {
	return r >= minRating && r <= maxRating
}

func normalizeCompletionStatus(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, known := range []string{CompletionApproved, CompletionRequiresFollowUp, CompletionRejected} {
		if strings.EqualFold(s, known) {
			return known, true
		}
	}
	return "", false
}
