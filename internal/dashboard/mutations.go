package dashboard

import (
	"context"
	"strings"

	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/notification"
	"equipment-maintenance-dashboard/internal/reviews"
	"equipment-maintenance-dashboard/internal/session"
)

// Fallback messages for failures with no better description.
const (
	failSchedule = "Failed to schedule maintenance. Please try again."
	failComplete = "Error submitting completion. Please try again."
	failConfirm  = "Failed to confirm maintenance. Please try again."
	failReview   = "Failed to submit review. Please try again."
)

// Schedule books maintenance for one item. On success the item shows as
// scheduled at once and a full resync follows after the resync delay.
// Every mutation returns ErrNotMounted on an unmounted view.
func (v *View) Schedule(ctx context.Context, form ScheduleForm) (*backend.ScheduleResponse, error) {
	if !v.Mounted() {
		return nil, ErrNotMounted
	}
	req, err := form.Request(v.role)
	if err != nil {
		return nil, v.fail(err, failSchedule)
	}
	id := strings.TrimSpace(form.EquipmentID)

	resp, err := v.api.Schedule(ctx, id, req)
	if err != nil {
		return nil, v.fail(err, failSchedule)
	}
	v.logger.Info().Str("equipment", id).Str("maintenance", resp.MaintenanceID).Str("type", req.MaintenanceType).Msg("maintenance scheduled")

	v.markScheduled(id)

	msg := messageOr(resp.Message, "Maintenance scheduled successfully.")
	v.notifier.Notify(notification.NewNotice(notification.LevelSuccess, msg).About(notification.KindNewWork, session.RoleTechnician.String()))

	v.resyncLater()
	return resp, nil
}

// MarkComplete reports finished work on the item's open scheduled log.
func (v *View) MarkComplete(ctx context.Context, form CompletionForm) (*backend.MessageResponse, error) {
	if !v.Mounted() {
		return nil, ErrNotMounted
	}
	if !v.role.CanComplete() {
		return nil, v.fail(ErrNotPermitted, failComplete)
	}
	if err := form.Validate(); err != nil {
		return nil, v.fail(err, failComplete)
	}

	technicianID, err := v.technicianID(ctx)
	if err != nil {
		return nil, v.fail(err, failComplete)
	}

	maintenanceID := strings.TrimSpace(form.MaintenanceID)
	if maintenanceID == "" {
		maintenanceID, err = v.openMaintenanceID(ctx, strings.TrimSpace(form.EquipmentID))
		if err != nil {
			return nil, v.fail(err, failComplete)
		}
	}

	resp, err := v.api.MarkComplete(ctx, maintenanceID, backend.CompletionRequest{
		DowntimeHours: *form.DowntimeHours,
		CostINR:       *form.CostINR,
		Remarks:       form.Remarks(),
		TechnicianID:  technicianID,
	})
	if err != nil {
		return nil, v.fail(err, failComplete)
	}
	v.logger.Info().Str("maintenance", maintenanceID).Str("technician", technicianID).Msg("maintenance marked complete")

	msg := messageOr(resp.Message, "Maintenance marked as completed! Admin will be notified for review.")
	v.notifier.Notify(notification.NewNotice(notification.LevelSuccess, msg).About(notification.KindReview, ""))

	v.resyncLater()
	return resp, nil
}

// technicianID is the signed-in technician's personnel id.
func (v *View) technicianID(ctx context.Context) (string, error) {
	if p := v.State().Profile; p != nil && p.PersonnelID != "" {
		return p.PersonnelID, nil
	}
	profile, err := v.api.Me(ctx)
	if err != nil {
		return "", err
	}
	if profile.PersonnelID == "" {
		return "", &ValidationError{
			Fields: []string{"technician_id"},
			Reason: "Personnel ID not found in profile. Please contact admin.",
		}
	}
	return profile.PersonnelID, nil
}

// openMaintenanceID finds the item's Scheduled log.
func (v *View) openMaintenanceID(ctx context.Context, equipmentID string) (string, error) {
	logs, err := v.api.LogsByEquipment(ctx, equipmentID)
	if err != nil {
		return "", err
	}
	for _, l := range logs {
		if l.Status == backend.StatusScheduled {
			return l.MaintenanceID, nil
		}
	}
	return "", &ValidationError{
		Fields: []string{"maintenance_id"},
		Reason: "No maintenance task found for this equipment.",
	}
}

// Confirm rates a maintenance entry.
func (v *View) Confirm(ctx context.Context, maintenanceID string, rating int) (*backend.ConfirmResponse, error) {
	if !v.Mounted() {
		return nil, ErrNotMounted
	}
	var missing []string
	if strings.TrimSpace(maintenanceID) == "" {
		missing = append(missing, "maintenance_id")
	}
	if !validRating(rating) {
		missing = append(missing, "service_rating")
	}
	if len(missing) > 0 {
		return nil, v.fail(&ValidationError{Fields: missing}, failConfirm)
	}

	resp, err := v.api.Confirm(ctx, strings.TrimSpace(maintenanceID), rating)
	if err != nil {
		return nil, v.fail(err, failConfirm)
	}
	v.notifier.Notify(notification.NewNotice(notification.LevelSuccess, messageOr(resp.Message, "Maintenance confirmed.")))

	v.resyncLater()
	return resp, nil
}

// Review records a reviewer's verdict on a completed entry. The pending
// list is refreshed right away. An approval also refetches the one item
// after the approve delay, and a full resync always follows.
func (v *View) Review(ctx context.Context, form ReviewForm) (*backend.ReviewResponse, error) {
	if !v.Mounted() {
		return nil, ErrNotMounted
	}
	req, err := form.Request(v.role)
	if err != nil {
		return nil, v.fail(err, failReview)
	}
	maintenanceID := strings.TrimSpace(form.MaintenanceID)

	resp, err := v.api.ReviewCompletion(ctx, maintenanceID, req)
	if err != nil {
		return nil, v.fail(err, failReview)
	}

	equipmentID := v.reviewedItem(form, resp)
	v.logger.Info().
		Str("maintenance", maintenanceID).
		Str("equipment", equipmentID).
		Str("verdict", req.CompletionStatus).
		Msg("completion reviewed")

	msg := messageOr(resp.Message, "Review submitted: "+req.CompletionStatus+".")
	v.notifier.Notify(notification.NewNotice(notification.LevelSuccess, msg))

	v.setPending(v.reviews.Fetch(ctx, v.role))

	if req.CompletionStatus == CompletionApproved && equipmentID != "" {
		v.after(v.opts.ApproveRefreshDelay, func(ctx context.Context) {
			r := v.sync.SyncOne(ctx, equipmentID)
			if ctx.Err() != nil {
				return
			}
			v.patchItem(equipmentID, r)
		})
	}
	v.resyncLater()
	return resp, nil
}

// reviewedItem works out which equipment a review touched.
func (v *View) reviewedItem(form ReviewForm, resp *backend.ReviewResponse) string {
	if resp.EquipmentID != "" {
		return resp.EquipmentID
	}
	if id := strings.TrimSpace(form.EquipmentID); id != "" {
		return id
	}
	if pr, ok := reviews.Find(v.State().PendingReviews, strings.TrimSpace(form.MaintenanceID)); ok {
		return pr.EquipmentID
	}
	return ""
}

// fail raises a notice describing err and hands err back.
func (v *View) fail(err error, fallback string) error {
	level, msg := Describe(err, fallback)
	v.logger.Warn().Err(err).Msg(msg)
	v.notifier.Notify(notification.NewNotice(level, msg))
	return err
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) != "" {
		return msg
	}
	return fallback
}
