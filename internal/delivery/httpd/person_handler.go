package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/dei-rnl/thesis-service/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" || req.IstID == "" || req.Email == "" || req.Type == "" {
		writeError(w, http.StatusBadRequest, "name, ist_id, email and type are required")
		return
	}

	person, err := h.personService.CreatePerson(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    person,
	})
}

func (h *Handler) GetPersonByID(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "id")
	if personID == "" {
		writeError(w, http.StatusBadRequest, "Person ID is required")
		return
	}

	person, err := h.personService.GetPersonByID(r.Context(), personID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, person)
}

func (h *Handler) GetPersonByIstID(w http.ResponseWriter, r *http.Request) {
	istID := chi.URLParam(r, "istId")
	if istID == "" {
		writeError(w, http.StatusBadRequest, "IST ID is required")
		return
	}

	// An optional role filter turns the lookup into a role assertion.
	if roleValue := r.URL.Query().Get("role"); roleValue != "" {
		role, err := models.ParseRole(roleValue)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}

		person, err := h.personService.GetPersonByIstIDAndRole(r.Context(), istID, role)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		writeSuccess(w, person)
		return
	}

	person, err := h.personService.GetPersonByIstID(r.Context(), istID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, person)
}

func (h *Handler) GetAllPeople(w http.ResponseWriter, r *http.Request) {
	if roleValue := r.URL.Query().Get("role"); roleValue != "" {
		role, err := models.ParseRole(roleValue)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}

		people, err := h.personService.GetPeopleByRole(r.Context(), role)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		writeSuccess(w, people)
		return
	}

	people, err := h.personService.GetAllPeople(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, people)
}

func (h *Handler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "id")
	if personID == "" {
		writeError(w, http.StatusBadRequest, "Person ID is required")
		return
	}

	var req models.CreatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	person, err := h.personService.UpdatePerson(r.Context(), personID, &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, person)
}

func (h *Handler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "id")
	if personID == "" {
		writeError(w, http.StatusBadRequest, "Person ID is required")
		return
	}

	if err := h.personService.DeletePerson(r.Context(), personID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"message": "Person deleted successfully",
	})
}
