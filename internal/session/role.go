package session

import "strings"

// Role is the normalized dashboard role, resolved once at sign-in.
type Role string

const (
	RoleUnknown    Role = ""
	RoleAdmin      Role = "admin"
	RoleBiomedical Role = "biomedical"
	RoleTechnician Role = "technician"
)

// ParseRole maps the backend's free-form role strings onto a Role.
// Matching ignores case, surrounding space, and the separator between
// "biomedical" and "engineer".
func ParseRole(raw string) Role {
	r := strings.ToLower(strings.TrimSpace(raw))
	r = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(r)
	switch r {
	case "admin", "administrator":
		return RoleAdmin
	case "biomedical", "biomedicalengineer":
		return RoleBiomedical
	case "technician":
		return RoleTechnician
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "unknown"
	}
	return string(r)
}

// CanReview reports whether the role may read and act on the pending-review queue.
func (r Role) CanReview() bool {
	return r == RoleAdmin || r == RoleBiomedical
}

// CanSchedule reports whether the role may schedule maintenance.
func (r Role) CanSchedule() bool {
	return r == RoleAdmin || r == RoleBiomedical
}

// ChoosesMaintenanceType reports whether schedule requests from this role
// carry a user-selected maintenance type. Admin schedules are always preventive.
func (r Role) ChoosesMaintenanceType() bool {
	return r == RoleBiomedical
}

// CanComplete reports whether the role marks scheduled work as done.
func (r Role) CanComplete() bool {
	return r == RoleTechnician
}

// PollsNewWork reports whether views for this role run the new-work poller.
func (r Role) PollsNewWork() bool {
	return r == RoleTechnician
}

// CanListUsers reports whether the backend lets the role read the user directory.
func (r Role) CanListUsers() bool {
	return r == RoleAdmin || r == RoleBiomedical
}
