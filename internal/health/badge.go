package health

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"equipment-maintenance-dashboard/internal/backend"
)

// Label is the badge shown next to an equipment item.
type Label string

const (
	LabelHealthy  Label = "Healthy"
	LabelHighRisk Label = "High Risk"
	// LabelUnknown marks a failed priority fetch. It is never a backend verdict.
	LabelUnknown Label = "Unknown"
	// LabelLoading marks an item that has not been synchronised yet.
	LabelLoading Label = "Loading"
)

// LevelHigh is the maintenance-need level that makes an item risky.
const LevelHigh = "High"

// Badge is the derived health status of one equipment item.
type Badge struct {
	Label  Label  `json:"label"`
	Reason string `json:"reason"`
}

var (
	unknownBadge = Badge{Label: LabelUnknown}
	loadingBadge = Badge{Label: LabelLoading}
)

// categoryOrder fixes the order categories appear in a reason.
var categoryOrder = []string{"preventive", "corrective", "replacement"}

// Classify derives a badge from the backend's priority record.
// An item is High Risk iff it is predicted to fail or any need is High.
func Classify(p *backend.Priority) Badge {
	if p == nil {
		return unknownBadge
	}

	highs := highCategories(p.MaintenanceNeeds)
	if !p.PredictedToFail && len(highs) == 0 {
		return Badge{Label: LabelHealthy}
	}

	var parts []string
	if p.PredictedToFail {
		parts = append(parts, "Predicted to Fail")
	}
	if len(highs) > 0 {
		caser := cases.Title(language.English)
		for i, c := range highs {
			highs[i] = caser.String(c)
		}
		parts = append(parts, strings.Join(highs, ", ")+" maintenance")
	}
	return Badge{Label: LabelHighRisk, Reason: strings.Join(parts, ", ")}
}

// highCategories returns the categories at level High: the known ones in
// categoryOrder, then any others sorted.
func highCategories(needs map[string]string) []string {
	var out, extra []string
	known := make(map[string]bool, len(categoryOrder))
	for _, c := range categoryOrder {
		known[c] = true
		if isHigh(needs[c]) {
			out = append(out, c)
		}
	}
	for c, level := range needs {
		if !known[c] && isHigh(level) {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func isHigh(level string) bool {
	return strings.TrimSpace(level) == LevelHigh
}

// Unknown returns the badge used when the priority fetch failed.
func Unknown() Badge { return unknownBadge }

// Loading returns the placeholder badge for not-yet-synchronised items.
func Loading() Badge { return loadingBadge }

// HasScheduled reports whether any log is in status Scheduled.
func HasScheduled(logs []backend.MaintenanceLog) bool {
	for _, l := range logs {
		if l.Status == backend.StatusScheduled {
			return true
		}
	}
	return false
}

// HasOpenWork reports whether a technician still has something to do or
// to hand over for review on this item.
func HasOpenWork(logs []backend.MaintenanceLog) bool {
	for _, l := range logs {
		if l.Status == backend.StatusScheduled {
			return true
		}
		if l.Status == backend.StatusCompleted && l.CompletionStatus == backend.CompletionPending {
			return true
		}
	}
	return false
}
