package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/health"
	"equipment-maintenance-dashboard/internal/session"
)

func TestScheduleForm_Request(t *testing.T) {
	testCases := []struct {
		name string
		role session.Role
		form ScheduleForm
		want backend.ScheduleRequest
	}{
		{
			name: "biomedical picks a listed type",
			role: session.RoleBiomedical,
			form: ScheduleForm{EquipmentID: "EQ-1", Date: "2025-05-01", IssueDescription: "leak", MaintenanceType: "Corrective"},
			want: backend.ScheduleRequest{MaintenanceType: "Corrective", Date: "2025-05-01", IssueDescription: "leak"},
		},
		{
			name: "other uses the custom text",
			role: session.RoleBiomedical,
			form: ScheduleForm{EquipmentID: "EQ-1", Date: "2025-05-01", IssueDescription: "leak", MaintenanceType: "other", CustomType: " Firmware update "},
			want: backend.ScheduleRequest{MaintenanceType: "Firmware update", Date: "2025-05-01", IssueDescription: "leak"},
		},
		{
			name: "admin always schedules preventive",
			role: session.RoleAdmin,
			form: ScheduleForm{EquipmentID: "EQ-1", Date: "2025-05-01", IssueDescription: "leak", MaintenanceType: "Other"},
			want: backend.ScheduleRequest{MaintenanceType: "Preventive", Date: "2025-05-01", IssueDescription: "leak"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.form.Request(tc.role)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScheduleForm_BiomedicalNeedsType(t *testing.T) {
	_, err := ScheduleForm{EquipmentID: "EQ-1", Date: "2025-05-01", IssueDescription: "leak"}.Request(session.RoleBiomedical)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"maintenance_type"}, verr.Fields)
}

func TestCompletionForm(t *testing.T) {
	negative := -1.0
	zero := 0.0

	err := CompletionForm{EquipmentID: "EQ-1", DowntimeHours: &negative}.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"downtime_hours", "cost_inr"}, verr.Fields)

	assert.NoError(t, CompletionForm{MaintenanceID: "M-1", DowntimeHours: &zero, CostINR: &zero}.Validate())

	assert.Equal(t, "Parts: N/A | Vendor: N/A | Response Time: N/A hours", CompletionForm{}.Remarks())
	four := 4.0
	assert.Equal(t, "Parts: Filter | Vendor: Medline | Response Time: 4 hours",
		CompletionForm{PartsReplaced: "Filter", Vendor: "Medline", ResponseTimeHours: &four}.Remarks())
}

func TestReviewForm_Request(t *testing.T) {
	req, err := ReviewForm{MaintenanceID: "M-3", ServiceRating: 2, CompletionStatus: "requires follow-up"}.Request(session.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, backend.ReviewRequest{ServiceRating: 2, CompletionStatus: CompletionRequiresFollowUp}, req)

	_, err = ReviewForm{MaintenanceID: "M-3", ServiceRating: 0, CompletionStatus: "Done"}.Request(session.RoleAdmin)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"service_rating", "completion_status"}, verr.Fields)

	_, err = ReviewForm{MaintenanceID: "M-3", ServiceRating: 5, CompletionStatus: CompletionApproved}.Request(session.RoleTechnician)
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestFilter_Apply(t *testing.T) {
	st := State{
		Equipment: []backend.Equipment{
			{ID: "A", Type: "Ventilator", Location: "ICU"},
			{ID: "B", Type: "Ventilator", Location: "Ward 3"},
			{ID: "C", Type: "Monitor", Location: "ICU"},
			{ID: "D", Type: "Monitor", Location: "ER"},
		},
		Health: map[string]health.Badge{
			"A": {Label: health.LabelHighRisk},
			"B": {Label: health.LabelHealthy},
			"C": {Label: health.LabelHighRisk},
		},
	}

	ids := func(items []backend.Equipment) []string {
		out := make([]string, 0, len(items))
		for _, e := range items {
			out = append(out, e.ID)
		}
		return out
	}

	assert.Equal(t, []string{"A", "B", "C", "D"}, ids(Filter{}.Apply(st)))
	assert.Equal(t, []string{"A", "B"}, ids(Filter{Type: "ventilator"}.Apply(st)))
	assert.Equal(t, []string{"A", "C"}, ids(Filter{Location: "ICU"}.Apply(st)))
	assert.Equal(t, []string{"A", "C"}, ids(Filter{Health: "high risk"}.Apply(st)))
	assert.Equal(t, []string{"D"}, ids(Filter{Health: health.LabelLoading}.Apply(st)))
	assert.Equal(t, []string{"C"}, ids(Filter{Type: "Monitor", Health: health.LabelHighRisk}.Apply(st)))

	assert.Equal(t, []string{"Monitor", "Ventilator"}, st.Types())
	assert.Equal(t, []string{"ER", "ICU", "Ward 3"}, st.Locations())
}

func TestWithKeyCopiesMap(t *testing.T) {
	orig := map[string]bool{"EQ-1": false}
	next := withKey(orig, "EQ-1", true)
	assert.False(t, orig["EQ-1"])
	assert.True(t, next["EQ-1"])

	fromNil := withKey[string, bool](nil, "EQ-2", true)
	assert.True(t, fromNil["EQ-2"])
}
