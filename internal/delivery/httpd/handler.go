package httpd

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dei-rnl/thesis-service/internal/apperr"
	"github.com/dei-rnl/thesis-service/internal/models"
	"github.com/dei-rnl/thesis-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	personService    service.PersonService
	thesisService    service.ThesisWorkflowService
	defenseService   service.DefenseWorkflowService
	dashboardService service.DashboardService
	logger           zerolog.Logger
}

func NewHandler(
	personService service.PersonService,
	thesisService service.ThesisWorkflowService,
	defenseService service.DefenseWorkflowService,
	dashboardService service.DashboardService,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		personService:    personService,
		thesisService:    thesisService,
		defenseService:   defenseService,
		dashboardService: dashboardService,
		logger:           logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/people", func(r chi.Router) {
			r.Post("/", h.CreatePerson)
			r.Get("/", h.GetAllPeople)
			r.Get("/{id}", h.GetPersonByID)
			r.Get("/ist/{istId}", h.GetPersonByIstID)
			r.Put("/{id}", h.UpdatePerson)
			r.Delete("/{id}", h.DeletePerson)
		})

		api.Route("/thesis", func(r chi.Router) {
			r.Post("/", h.SubmitJuryProposal)
			r.Get("/", h.GetAllTheses)
			r.Get("/{id}", h.GetThesisByID)
			r.Get("/{id}/details", h.GetThesisDetails)
			r.Get("/student/{studentId}", h.GetThesisByStudent)
			r.Put("/{id}/approve", h.ApproveThesis)
			r.Put("/{id}/assign-president", h.AssignJuryPresident)
			r.Put("/{id}/sign-document", h.UploadSignedDocument)
			r.Put("/{id}/submit-fenix", h.SubmitThesisToFenix)
			r.Put("/{id}/revert", h.RevertThesis)
			r.Post("/{id}/reject", h.RejectThesisProposal)
		})

		api.Route("/defense", func(r chi.Router) {
			r.Post("/", h.ScheduleDefense)
			r.Get("/", h.GetAllDefenses)
			r.Get("/{id}", h.GetDefenseByID)
			r.Get("/thesis/{thesisId}", h.GetDefenseByThesis)
			r.Get("/student/{studentId}", h.GetDefenseByStudent)
			r.Put("/{id}/schedule", h.UpdateDefenseSchedule)
			r.Put("/{id}/under-review", h.SetDefenseUnderReview)
			r.Put("/{id}/grade", h.AssignGrade)
			r.Put("/{id}/revert", h.RevertDefense)
			r.Post("/update-statuses", h.UpdateDefenseStatuses)
		})

		api.Get("/dashboard", h.GetDashboard)
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "thesis-service",
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response)
}

// roleParam reads the acting role from the role query parameter. There is no
// authentication; callers state the role they act under and operations
// authorize against it.
func roleParam(r *http.Request) (models.Role, error) {
	value := r.URL.Query().Get("role")
	if value == "" {
		return "", apperr.New(apperr.Validation, "role query parameter is required")
	}
	return models.ParseRole(value)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		h.logger.Error().Err(err).Msg("Service error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code.Kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindUnauthorized:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalidState:
		status = http.StatusConflict
	case apperr.KindInternal:
		h.logger.Error().Err(err).Int("code", appErr.Code.Num).Msg("Service error")
	}

	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"code":    appErr.Code.Num,
		"message": appErr.Message,
	})
}
