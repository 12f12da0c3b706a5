package backend

// Equipment mirrors one row of GET /equipments.
type Equipment struct {
	ID               string `json:"equipment_id"`
	Type             string `json:"type"`
	Manufacturer     string `json:"manufacturer"`
	Location         string `json:"location"`
	Criticality      string `json:"criticality"`
	InstallationDate string `json:"installation_date"`
}

// User mirrors one row of GET /users.
type User struct {
	PersonnelID     string  `json:"personnel_id"`
	Name            string  `json:"name"`
	Role            string  `json:"role"`
	Department      string  `json:"department"`
	ExperienceYears float64 `json:"experience_years"`
}

// Profile is the signed-in account as returned by GET /users/me.
type Profile struct {
	PersonnelID     string  `json:"personnel_id"`
	Name            string  `json:"name"`
	Role            string  `json:"role"`
	Department      string  `json:"department"`
	ExperienceYears float64 `json:"experience_years"`
	Username        string  `json:"username"`
}

// Priority is the backend's risk assessment for one equipment item.
// MaintenanceNeeds maps a category (preventive, corrective, replacement)
// to a level (Low, Medium, High).
type Priority struct {
	EquipmentID      string            `json:"equipment_id"`
	PredictedToFail  bool              `json:"predicted_to_fail"`
	MaintenanceNeeds map[string]string `json:"maintenance_needs"`
}

// Log statuses and completion statuses used by the backend.
const (
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"

	CompletionPending = "Pending"
)

// MaintenanceLog is one row of the maintenance_logs table.
type MaintenanceLog struct {
	MaintenanceID    string   `json:"maintenance_id"`
	EquipmentID      string   `json:"equipment_id"`
	Date             string   `json:"date"`
	MaintenanceType  string   `json:"maintenance_type"`
	TechnicianID     string   `json:"technician_id"`
	Status           string   `json:"status"`
	CompletionStatus string   `json:"completion_status"`
	IssueDescription string   `json:"issue_description,omitempty"`
	Remarks          string   `json:"remarks,omitempty"`
	DowntimeHours    *float64 `json:"downtime_hours,omitempty"`
	CostINR          *float64 `json:"cost_inr,omitempty"`
	ServiceRating    *float64 `json:"service_rating,omitempty"`
}

// PendingReview is a completed maintenance entry awaiting approval.
type PendingReview struct {
	MaintenanceID string   `json:"maintenance_id"`
	EquipmentID   string   `json:"equipment_id"`
	TechnicianID  string   `json:"technician_id"`
	Date          string   `json:"date"`
	DowntimeHours *float64 `json:"downtime_hours,omitempty"`
	CostINR       *float64 `json:"cost_inr,omitempty"`
}

// ScheduledTask is one entry of GET /maintenance-log/new-scheduled.
type ScheduledTask struct {
	MaintenanceID   string `json:"maintenance_id"`
	EquipmentID     string `json:"equipment_id"`
	Date            string `json:"date"`
	MaintenanceType string `json:"maintenance_type"`
}

// ScheduleRequest is the body of PUT /maintenance-log/schedule/{id}.
type ScheduleRequest struct {
	MaintenanceType  string `json:"maintenance_type"`
	Date             string `json:"date"`
	IssueDescription string `json:"issue_description"`
}

// ScheduleResponse is returned by a successful schedule call.
type ScheduleResponse struct {
	Message       string `json:"message"`
	MaintenanceID string `json:"maintenance_id"`
}

// CompletionRequest is the body of PUT /maintenance-log/mark-complete/{id}.
type CompletionRequest struct {
	DowntimeHours float64 `json:"downtime_hours"`
	CostINR       float64 `json:"cost_inr"`
	Remarks       string  `json:"remarks"`
	TechnicianID  string  `json:"technician_id"`
}

// ConfirmResponse is returned by PUT /maintenance-log/confirm/{id}.
type ConfirmResponse struct {
	Message     string `json:"message"`
	EquipmentID string `json:"equipment_id"`
}

// ReviewRequest is the body of PUT /maintenance-log/review-completion/{id}.
// The next log status is decided by the backend and never sent.
type ReviewRequest struct {
	ServiceRating    int    `json:"service_rating"`
	CompletionStatus string `json:"completion_status"`
}

// ReviewResponse is returned by a successful review call.
type ReviewResponse struct {
	Message                 string `json:"message"`
	UpdatedStatus           string `json:"updated_status"`
	UpdatedCompletionStatus string `json:"updated_completion_status"`
	EquipmentID             string `json:"equipment_id"`
}

// MessageResponse is the generic {"message": ...} reply.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse is returned by POST /login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}
