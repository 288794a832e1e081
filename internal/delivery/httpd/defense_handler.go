package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/dei-rnl/thesis-service/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) ScheduleDefense(w http.ResponseWriter, r *http.Request) {
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req models.ScheduleDefenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ThesisID == "" || req.DefenseDate.IsZero() {
		writeError(w, http.StatusBadRequest, "thesis_id and defense_date are required")
		return
	}

	if _, err := uuid.Parse(req.ThesisID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid thesis_id format")
		return
	}

	defense, err := h.defenseService.ScheduleDefense(r.Context(), &req, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    defense,
	})
}

func (h *Handler) GetDefenseByID(w http.ResponseWriter, r *http.Request) {
	defenseID := chi.URLParam(r, "id")
	if defenseID == "" {
		writeError(w, http.StatusBadRequest, "Defense ID is required")
		return
	}

	defense, err := h.defenseService.GetDefenseByID(r.Context(), defenseID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, defense)
}

func (h *Handler) GetDefenseByThesis(w http.ResponseWriter, r *http.Request) {
	thesisID := chi.URLParam(r, "thesisId")
	if thesisID == "" {
		writeError(w, http.StatusBadRequest, "Thesis ID is required")
		return
	}

	defense, err := h.defenseService.GetDefenseByThesis(r.Context(), thesisID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, defense)
}

func (h *Handler) GetDefenseByStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "Student ID is required")
		return
	}

	defense, err := h.defenseService.GetDefenseByStudent(r.Context(), studentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, defense)
}

func (h *Handler) GetAllDefenses(w http.ResponseWriter, r *http.Request) {
	if statusValue := r.URL.Query().Get("status"); statusValue != "" {
		status, err := models.ParseDefenseStatus(statusValue)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}

		defenses, err := h.defenseService.GetDefensesByStatus(r.Context(), status)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		writeSuccess(w, defenses)
		return
	}

	defenses, err := h.defenseService.GetAllDefenses(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, defenses)
}

func (h *Handler) UpdateDefenseSchedule(w http.ResponseWriter, r *http.Request) {
	defenseID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req models.UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DefenseDate.IsZero() {
		writeError(w, http.StatusBadRequest, "defense_date is required")
		return
	}

	defense, err := h.defenseService.UpdateDefenseSchedule(r.Context(), defenseID, req.DefenseDate, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, defense)
}

func (h *Handler) SetDefenseUnderReview(w http.ResponseWriter, r *http.Request) {
	defenseID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	defense, err := h.defenseService.SetUnderReview(r.Context(), defenseID, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, defense)
}

func (h *Handler) AssignGrade(w http.ResponseWriter, r *http.Request) {
	defenseID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req models.AssignGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	defense, err := h.defenseService.AssignGradeAndSubmit(r.Context(), defenseID, req.Grade, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, defense)
}

func (h *Handler) RevertDefense(w http.ResponseWriter, r *http.Request) {
	defenseID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	defense, err := h.defenseService.RevertToPreviousState(r.Context(), defenseID, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, defense)
}

// UpdateDefenseStatuses triggers the same sweep the background worker runs,
// for operators who do not want to wait for the next tick.
func (h *Handler) UpdateDefenseStatuses(w http.ResponseWriter, r *http.Request) {
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if role != models.RoleCoordinator && role != models.RoleStaff {
		writeError(w, http.StatusForbidden, "requires role COORDINATOR or STAFF")
		return
	}

	updated, err := h.defenseService.UpdateDefenseStatuses(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"updated": updated,
	})
}
