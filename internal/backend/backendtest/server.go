// Package backendtest runs an in-memory maintenance backend over HTTP for
// tests. It speaks the same routes and JSON shapes as the real service.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"

	"equipment-maintenance-dashboard/internal/backend"
)

// Credentials accepted by the fake login.
const (
	Username = "operator"
	Password = "secret"
)

// Server is a fake backend. Exported fields may be changed through Edit
// while the server runs.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	Equipment  []backend.Equipment
	Priorities map[string]*backend.Priority
	Logs       []backend.MaintenanceLog
	Users      []backend.User
	Profile    backend.Profile
	Types      []string
	// Role is what a successful login reports.
	Role string
	// ResetOnApprove clears an item's risk when its work is approved.
	ResetOnApprove bool

	token    string
	logins   int
	nextID   int
	calls    map[string]int
	failures map[string]failure
}

type failure struct {
	status int
	detail string
}

// New starts a server seeded with three items: EQ-001 at risk, EQ-002
// with scheduled work and EQ-003 healthy.
func New(role string) *Server {
	s := &Server{
		Equipment: []backend.Equipment{
			{ID: "EQ-001", Type: "Ventilator", Manufacturer: "Philips", Location: "ICU", Criticality: "High", InstallationDate: "2017-04-12"},
			{ID: "EQ-002", Type: "Infusion Pump", Manufacturer: "BD", Location: "Ward 3", Criticality: "Medium", InstallationDate: "2020-09-01"},
			{ID: "EQ-003", Type: "Defibrillator", Manufacturer: "Zoll", Location: "ER", Criticality: "High", InstallationDate: "2022-01-20"},
		},
		Priorities: map[string]*backend.Priority{
			"EQ-001": {EquipmentID: "EQ-001", PredictedToFail: true, MaintenanceNeeds: map[string]string{"preventive": "High", "corrective": "Medium", "replacement": "Low"}},
			"EQ-002": {EquipmentID: "EQ-002", MaintenanceNeeds: map[string]string{"preventive": "Medium", "corrective": "Low", "replacement": "Low"}},
			"EQ-003": {EquipmentID: "EQ-003", MaintenanceNeeds: map[string]string{"preventive": "Low", "corrective": "Low", "replacement": "Low"}},
		},
		Logs: []backend.MaintenanceLog{
			{MaintenanceID: "M-100", EquipmentID: "EQ-002", Date: "2025-02-01", MaintenanceType: "Preventive", TechnicianID: "T001", Status: backend.StatusScheduled, CompletionStatus: backend.CompletionPending},
		},
		Users: []backend.User{
			{PersonnelID: "A001", Name: "Meera", Role: "admin", Department: "Administration", ExperienceYears: 12},
			{PersonnelID: "B001", Name: "Ravi", Role: "biomedical engineer", Department: "Biomedical", ExperienceYears: 7},
			{PersonnelID: "T001", Name: "Asha", Role: "technician", Department: "Biomedical", ExperienceYears: 4},
		},
		Profile:        backend.Profile{PersonnelID: "T001", Name: "Asha", Role: role, Username: Username},
		Role:           role,
		ResetOnApprove: true,
		token:          "token-1",
		nextID:         200,
		calls:          map[string]int{},
		failures:       map[string]failure{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.login)
	s.handle(mux, "GET /equipments", s.equipments)
	s.handle(mux, "GET /users/me", s.me)
	s.handle(mux, "GET /users", s.users)
	s.handle(mux, "POST /predict", s.predict)
	s.handle(mux, "GET /maintenance-log", s.allLogs)
	s.handle(mux, "GET /maintenance-log/priority/{id}", s.priority)
	s.handle(mux, "GET /maintenance-log/by-equipment/{id}", s.logsByEquipment)
	s.handle(mux, "GET /maintenance-log/pending-reviews", s.pendingReviews)
	s.handle(mux, "GET /maintenance-log/new-scheduled", s.newScheduled)
	s.handle(mux, "GET /maintenance-log/maintenance-types", s.maintenanceTypes)
	s.handle(mux, "PUT /maintenance-log/schedule/{id}", s.schedule)
	s.handle(mux, "PUT /maintenance-log/mark-complete/{id}", s.markComplete)
	s.handle(mux, "PUT /maintenance-log/confirm/{id}", s.confirm)
	s.handle(mux, "PUT /maintenance-log/review-completion/{id}", s.review)

	s.Server = httptest.NewServer(mux)
	return s
}

// Edit runs fn with the server's data locked.
func (s *Server) Edit(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Calls reports how often a route pattern, such as "GET /equipments",
// was served.
func (s *Server) Calls(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pattern]
}

// Logins reports how many successful logins happened.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// FailWith makes a route pattern answer with status and a FastAPI detail
// until cleared with status 0.
func (s *Server) FailWith(pattern string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, pattern)
		return
	}
	s.failures[pattern] = failure{status: status, detail: detail}
}

// RotateToken invalidates the current session so the next call gets 401.
func (s *Server) RotateToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = fmt.Sprintf("token-%d", s.logins+2)
}

// Log returns a copy of one maintenance log.
func (s *Server) Log(maintenanceID string) (backend.MaintenanceLog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.Logs {
		if l.MaintenanceID == maintenanceID {
			return l, true
		}
	}
	return backend.MaintenanceLog{}, false
}

type handlerFunc func(w http.ResponseWriter, r *http.Request)

// handle registers fn behind the bearer check, call counting and
// injected failures. fn runs with s.mu held.
func (s *Server) handle(mux *http.ServeMux, pattern string, fn handlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls[pattern]++

		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if f, ok := s.failures[pattern]; ok {
			writeDetail(w, f.status, f.detail)
			return
		}
		fn(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	if detail == "" {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	writeJSON(w, http.StatusOK, map[string]string{"access_token": s.token, "token_type": "bearer", "role": s.Role})
}

func (s *Server) equipments(w http.ResponseWriter, r *http.Request) {
	rows := make([][]any, 0, len(s.Equipment))
	for _, e := range s.Equipment {
		rows = append(rows, []any{e.ID, e.Type, e.Manufacturer, e.Location, e.Criticality, e.InstallationDate})
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipments": rows})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Profile)
}

func (s *Server) users(w http.ResponseWriter, r *http.Request) {
	rows := make([][]any, 0, len(s.Users))
	for _, u := range s.Users {
		rows = append(rows, []any{u.PersonnelID, u.Name, u.Role, u.Department, u.ExperienceYears})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": rows})
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Predictions updated"})
}

func (s *Server) allLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"logs": s.Logs})
}

func (s *Server) priority(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Priorities[r.PathValue("id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Equipment not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) logsByEquipment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	logs := []backend.MaintenanceLog{}
	for _, l := range s.Logs {
		if l.EquipmentID == id {
			logs = append(logs, l)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) pendingReviews(w http.ResponseWriter, r *http.Request) {
	reviews := []backend.PendingReview{}
	for _, l := range s.Logs {
		if l.Status == backend.StatusCompleted && l.CompletionStatus == backend.CompletionPending {
			reviews = append(reviews, backend.PendingReview{
				MaintenanceID: l.MaintenanceID,
				EquipmentID:   l.EquipmentID,
				TechnicianID:  l.TechnicianID,
				Date:          l.Date,
				DowntimeHours: l.DowntimeHours,
				CostINR:       l.CostINR,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (s *Server) newScheduled(w http.ResponseWriter, r *http.Request) {
	tasks := []backend.ScheduledTask{}
	for _, l := range s.Logs {
		if l.Status == backend.StatusScheduled {
			tasks = append(tasks, backend.ScheduledTask{MaintenanceID: l.MaintenanceID, EquipmentID: l.EquipmentID, Date: l.Date, MaintenanceType: l.MaintenanceType})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"new_scheduled": tasks})
}

func (s *Server) maintenanceTypes(w http.ResponseWriter, r *http.Request) {
	types := slices.Clone(s.Types)
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"maintenance_types": types})
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.Priorities[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Equipment not found")
		return
	}
	var body backend.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Date == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid schedule request")
		return
	}
	s.nextID++
	mid := fmt.Sprintf("M-%d", s.nextID)
	s.Logs = append(s.Logs, backend.MaintenanceLog{
		MaintenanceID:    mid,
		EquipmentID:      id,
		Date:             body.Date,
		MaintenanceType:  body.MaintenanceType,
		Status:           backend.StatusScheduled,
		CompletionStatus: backend.CompletionPending,
		IssueDescription: body.IssueDescription,
	})
	writeJSON(w, http.StatusOK, backend.ScheduleResponse{Message: "Maintenance scheduled for " + id, MaintenanceID: mid})
}

func (s *Server) findLog(id string) *backend.MaintenanceLog {
	for i := range s.Logs {
		if s.Logs[i].MaintenanceID == id {
			return &s.Logs[i]
		}
	}
	return nil
}

func (s *Server) markComplete(w http.ResponseWriter, r *http.Request) {
	l := s.findLog(r.PathValue("id"))
	if l == nil {
		writeDetail(w, http.StatusNotFound, "Maintenance log not found")
		return
	}
	var body backend.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid completion")
		return
	}
	l.Status = backend.StatusCompleted
	l.CompletionStatus = backend.CompletionPending
	l.DowntimeHours = &body.DowntimeHours
	l.CostINR = &body.CostINR
	l.Remarks = body.Remarks
	l.TechnicianID = body.TechnicianID
	writeJSON(w, http.StatusOK, backend.MessageResponse{Message: "Maintenance marked as completed"})
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	l := s.findLog(r.PathValue("id"))
	if l == nil {
		writeDetail(w, http.StatusNotFound, "Maintenance log not found")
		return
	}
	var body struct {
		ServiceRating float64 `json:"service_rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid rating")
		return
	}
	l.ServiceRating = &body.ServiceRating
	writeJSON(w, http.StatusOK, backend.ConfirmResponse{Message: "Maintenance confirmed", EquipmentID: l.EquipmentID})
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	l := s.findLog(r.PathValue("id"))
	if l == nil {
		writeDetail(w, http.StatusNotFound, "Maintenance log not found")
		return
	}
	var body backend.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid review")
		return
	}
	rating := float64(body.ServiceRating)
	l.ServiceRating = &rating
	l.CompletionStatus = body.CompletionStatus
	if strings.EqualFold(body.CompletionStatus, "Approved") {
		l.Status = backend.StatusCompleted
		if p, ok := s.Priorities[l.EquipmentID]; ok && s.ResetOnApprove {
			p.PredictedToFail = false
			for k := range p.MaintenanceNeeds {
				p.MaintenanceNeeds[k] = "Low"
			}
		}
	} else {
		l.Status = backend.StatusScheduled
	}
	writeJSON(w, http.StatusOK, backend.ReviewResponse{
		Message:                 "Review recorded",
		UpdatedStatus:           l.Status,
		UpdatedCompletionStatus: l.CompletionStatus,
		EquipmentID:             l.EquipmentID,
	})
}
