package httpapi

import (
	"net/http"

	"yitro.org/internal/auth"
	"yitro.org/internal/crm"
)

type dashboardResponse struct {
	Success          bool           `json:"success"`
	Metrics          crm.Metrics    `json:"metrics"`
	RecentActivities []crm.Activity `json:"recentActivities"`
	UserRole         string         `json:"userRole"`
}

// handleDashboardMetrics serves counts and recent activity. Admins see
// organization-wide numbers; other users only what they created.
func (a *API) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	scope := crm.Scope{UserID: user.ID, All: user.IsAdmin()}
	dashboard, err := a.metrics.Dashboard(r.Context(), scope)
	if err != nil {
		logInternal("dashboard metrics", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	activities := dashboard.RecentActivities
	if activities == nil {
		activities = []crm.Activity{}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Success:          true,
		Metrics:          dashboard.Metrics,
		RecentActivities: activities,
		UserRole:         user.Role,
	})
}
