package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/dei-rnl/thesis-service/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) SubmitJuryProposal(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.StudentID == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "student_id and title are required")
		return
	}

	if _, err := uuid.Parse(req.StudentID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student_id format")
		return
	}

	thesis, err := h.thesisService.SubmitJuryProposal(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    thesis,
	})
}

func (h *Handler) GetThesisByID(w http.ResponseWriter, r *http.Request) {
	thesisID := chi.URLParam(r, "id")
	if thesisID == "" {
		writeError(w, http.StatusBadRequest, "Thesis ID is required")
		return
	}

	thesis, err := h.thesisService.GetThesisByID(r.Context(), thesisID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, thesis)
}

func (h *Handler) GetThesisDetails(w http.ResponseWriter, r *http.Request) {
	thesisID := chi.URLParam(r, "id")
	if thesisID == "" {
		writeError(w, http.StatusBadRequest, "Thesis ID is required")
		return
	}

	details, err := h.thesisService.GetThesisDetails(r.Context(), thesisID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, details)
}

func (h *Handler) GetThesisByStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "Student ID is required")
		return
	}

	thesis, err := h.thesisService.GetThesisByStudent(r.Context(), studentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, thesis)
}

func (h *Handler) GetAllTheses(w http.ResponseWriter, r *http.Request) {
	if statusValue := r.URL.Query().Get("status"); statusValue != "" {
		status, err := models.ParseThesisStatus(statusValue)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}

		theses, err := h.thesisService.GetThesesByStatus(r.Context(), status)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		writeSuccess(w, theses)
		return
	}

	theses, err := h.thesisService.GetAllTheses(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, theses)
}

func (h *Handler) ApproveThesis(w http.ResponseWriter, r *http.Request) {
	thesisID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	thesis, err := h.thesisService.ApproveByScientificCommittee(r.Context(), thesisID, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, thesis)
}

func (h *Handler) AssignJuryPresident(w http.ResponseWriter, r *http.Request) {
	thesisID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req models.AssignPresidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PresidentID == "" {
		writeError(w, http.StatusBadRequest, "president_id is required")
		return
	}

	thesis, err := h.thesisService.AssignJuryPresident(r.Context(), thesisID, req.PresidentID, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, thesis)
}

func (h *Handler) UploadSignedDocument(w http.ResponseWriter, r *http.Request) {
	thesisID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req models.UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	thesis, err := h.thesisService.UploadSignedDocument(r.Context(), thesisID, req.DocumentPath, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, thesis)
}

func (h *Handler) SubmitThesisToFenix(w http.ResponseWriter, r *http.Request) {
	thesisID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	thesis, err := h.thesisService.SubmitToFenix(r.Context(), thesisID, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, thesis)
}

func (h *Handler) RevertThesis(w http.ResponseWriter, r *http.Request) {
	thesisID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	thesis, err := h.thesisService.RevertToPreviousState(r.Context(), thesisID, role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, thesis)
}

func (h *Handler) RejectThesisProposal(w http.ResponseWriter, r *http.Request) {
	thesisID := chi.URLParam(r, "id")
	role, err := roleParam(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	// The body is optional; rejection comments are logged, not stored.
	var req models.RejectProposalRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.thesisService.RejectThesisProposal(r.Context(), thesisID, role, req.Comments); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"message": "Thesis proposal rejected",
	})
}
