package httpd

import (
	"net/http"
)

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	dashboard, err := h.dashboardService.GetDashboard(r.Context(), role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, dashboard)
}
