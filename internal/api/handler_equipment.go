package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/dashboard"
	"equipment-maintenance-dashboard/internal/health"
)

// equipmentRow is one item with its derived status flattened in.
type equipmentRow struct {
	backend.Equipment
	Health    health.Badge `json:"health"`
	Scheduled bool         `json:"scheduled"`
	OpenWork  bool         `json:"open_work"`
}

type equipmentListResponse struct {
	Version   uint64         `json:"version"`
	SyncedAt  time.Time      `json:"synced_at"`
	Degraded  int            `json:"degraded"`
	Equipment []equipmentRow `json:"equipment"`
	Types     []string       `json:"types"`
	Locations []string       `json:"locations"`
}

func rowFor(st dashboard.State, e backend.Equipment) equipmentRow {
	return equipmentRow{
		Equipment: e,
		Health:    st.Badge(e.ID),
		Scheduled: st.IsScheduled(e.ID),
		OpenWork:  st.OpenWork[e.ID],
	}
}

// GetSession handles GET /api/session.
func (h *Handler) GetSession(c *gin.Context) {
	st := h.view.State()
	resp := gin.H{
		"role":          h.view.Role().String(),
		"authenticated": h.session.Authenticated(),
		"profile":       st.Profile,
	}
	if exp := h.session.ExpiresAt(); !exp.IsZero() {
		resp["expires_at"] = exp
	}
	c.JSON(http.StatusOK, resp)
}

// ListEquipment handles GET /api/equipment with optional type, location
// and health filters.
func (h *Handler) ListEquipment(c *gin.Context) {
	var filter dashboard.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}

	st := h.view.State()
	items := filter.Apply(st)
	rows := make([]equipmentRow, 0, len(items))
	for _, e := range items {
		rows = append(rows, rowFor(st, e))
	}

	c.JSON(http.StatusOK, equipmentListResponse{
		Version:   st.Version,
		SyncedAt:  st.SyncedAt,
		Degraded:  st.Degraded,
		Equipment: rows,
		Types:     st.Types(),
		Locations: st.Locations(),
	})
}

// GetEquipment handles GET /api/equipment/:id. The item's logs are read
// live from the backend.
func (h *Handler) GetEquipment(c *gin.Context) {
	id := c.Param("id")
	st := h.view.State()
	item, ok := st.Item(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "equipment not found", Level: "warning"})
		return
	}

	logs, err := h.view.ItemLogs(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "Error loading maintenance details.")
		return
	}
	if logs == nil {
		logs = []backend.MaintenanceLog{}
	}

	c.JSON(http.StatusOK, gin.H{
		"equipment": rowFor(st, item),
		"logs":      logs,
	})
}

// Resync handles POST /api/resync.
func (h *Handler) Resync(c *gin.Context) {
	if err := h.view.Resync(c.Request.Context()); err != nil {
		h.writeError(c, err, "Failed to refresh the dashboard.")
		return
	}
	st := h.view.State()
	c.JSON(http.StatusOK, gin.H{"version": st.Version, "synced_at": st.SyncedAt, "degraded": st.Degraded})
}

// GetPendingReviews handles GET /api/pending-reviews.
func (h *Handler) GetPendingReviews(c *gin.Context) {
	st := h.view.State()
	summary := st.Reviews()
	c.JSON(http.StatusOK, gin.H{
		"count":         summary.Count,
		"equipment_ids": summary.EquipmentIDs,
		"reviews":       st.PendingReviews,
	})
}

// GetMaintenanceTypes handles GET /api/maintenance-types.
func (h *Handler) GetMaintenanceTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"maintenance_types": h.view.State().MaintenanceTypeOptions()})
}

// GetLogs handles GET /api/logs.
func (h *Handler) GetLogs(c *gin.Context) {
	logs, err := h.view.Logs(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to load maintenance logs.")
		return
	}
	if logs == nil {
		logs = []backend.MaintenanceLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// GetUsers handles GET /api/users.
func (h *Handler) GetUsers(c *gin.Context) {
	if !h.view.Role().CanListUsers() {
		h.writeError(c, dashboard.ErrNotPermitted, "")
		return
	}
	users := h.view.State().Users
	if users == nil {
		users = []backend.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
