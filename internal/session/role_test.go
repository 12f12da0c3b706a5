package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	testCases := []struct {
		raw      string
		expected Role
	}{
		{"admin", RoleAdmin},
		{" Admin ", RoleAdmin},
		{"biomedical", RoleBiomedical},
		{"biomedicalengineer", RoleBiomedical},
		{"biomedical engineer", RoleBiomedical},
		{"Biomedical_Engineer", RoleBiomedical},
		{"technician", RoleTechnician},
		{"TECHNICIAN", RoleTechnician},
		{"nurse", RoleUnknown},
		{"", RoleUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseRole(tc.raw))
		})
	}
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleAdmin.CanReview())
	assert.True(t, RoleBiomedical.CanReview())
	assert.False(t, RoleTechnician.CanReview())
	assert.False(t, RoleUnknown.CanReview())

	assert.True(t, RoleBiomedical.ChoosesMaintenanceType())
	assert.False(t, RoleAdmin.ChoosesMaintenanceType())

	assert.True(t, RoleTechnician.PollsNewWork())
	assert.False(t, RoleBiomedical.PollsNewWork())
	assert.True(t, RoleTechnician.CanComplete())
	assert.False(t, RoleTechnician.CanSchedule())

	assert.Equal(t, "unknown", RoleUnknown.String())
}
