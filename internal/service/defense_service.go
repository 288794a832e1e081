package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dei-rnl/thesis-service/internal/apperr"
	"github.com/dei-rnl/thesis-service/internal/models"
	"github.com/dei-rnl/thesis-service/internal/repository"
	"github.com/dei-rnl/thesis-service/internal/service/integration"
)

// DefenseWorkflowService owns the defense state machine: UNSCHEDULED ->
// DEFENSE_SCHEDULED -> UNDER_REVIEW -> SUBMITTED_TO_FENIX. The scheduled to
// under-review move also happens automatically once the defense date passes.
type DefenseWorkflowService interface {
	ScheduleDefense(ctx context.Context, req *models.ScheduleDefenseRequest, role models.Role) (*models.DefenseWorkflow, error)
	UpdateDefenseSchedule(ctx context.Context, id string, defenseDate time.Time, role models.Role) (*models.DefenseWorkflow, error)
	SetUnderReview(ctx context.Context, id string, role models.Role) (*models.DefenseWorkflow, error)
	AssignGradeAndSubmit(ctx context.Context, id string, grade float64, role models.Role) (*models.DefenseWorkflow, error)
	RevertToPreviousState(ctx context.Context, id string, role models.Role) (*models.DefenseWorkflow, error)
	UpdateDefenseStatuses(ctx context.Context) (int, error)
	GetDefenseByID(ctx context.Context, id string) (*models.DefenseWorkflow, error)
	GetDefenseByThesis(ctx context.Context, thesisID string) (*models.DefenseWorkflow, error)
	GetDefenseByStudent(ctx context.Context, studentID string) (*models.DefenseWorkflow, error)
	GetDefensesByStatus(ctx context.Context, status models.DefenseStatus) ([]models.DefenseWorkflow, error)
	GetAllDefenses(ctx context.Context) ([]models.DefenseWorkflow, error)
}

type defenseService struct {
	store     repository.Store
	publisher integration.EventPublisher
	logger    zerolog.Logger
}

func NewDefenseWorkflowService(
	store repository.Store,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) DefenseWorkflowService {
	return &defenseService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *defenseService) ScheduleDefense(ctx context.Context, req *models.ScheduleDefenseRequest, role models.Role) (*models.DefenseWorkflow, error) {
	if err := requireRole(role, models.RoleCoordinator); err != nil {
		return nil, err
	}
	if !req.DefenseDate.After(time.Now()) {
		return nil, apperr.New(apperr.Validation, "defense date must be in the future")
	}

	var defense *models.DefenseWorkflow

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		thesis, err := tx.Theses().GetByID(ctx, req.ThesisID)
		if err != nil {
			return apperr.Internalf(err, "failed to get thesis workflow")
		}
		if thesis == nil {
			return apperr.New(apperr.ThesisNotFound, req.ThesisID)
		}
		if thesis.Status != models.ThesisStatusSubmittedToFenix {
			return apperr.New(apperr.InvalidThesisState, thesis.Status.Name())
		}

		// Locked read: two concurrent schedules for the same thesis must not
		// both observe UNSCHEDULED.
		defense, err = tx.Defenses().GetByThesisIDForUpdate(ctx, req.ThesisID)
		if err != nil {
			return apperr.Internalf(err, "failed to get defense workflow")
		}

		switch {
		case defense == nil:
			defense = &models.DefenseWorkflow{
				ID:          uuid.New().String(),
				StudentID:   thesis.StudentID,
				ThesisID:    thesis.ID,
				Status:      models.DefenseStatusScheduled,
				DefenseDate: &req.DefenseDate,
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}
			if err := tx.Defenses().Create(ctx, defense); err != nil {
				// The unique(thesis_id) constraint catches the insert race.
				if repository.IsUniqueViolation(err) {
					return apperr.New(apperr.DefenseExists, req.ThesisID)
				}
				return apperr.Internalf(err, "failed to create defense workflow")
			}
		case defense.Status == models.DefenseStatusUnscheduled:
			defense.Status = models.DefenseStatusScheduled
			defense.DefenseDate = &req.DefenseDate
			if err := tx.Defenses().Update(ctx, defense); err != nil {
				return apperr.Internalf(err, "failed to update defense workflow")
			}
		default:
			return apperr.New(apperr.DefenseExists, req.ThesisID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishScheduled(ctx, defense)

	s.logger.Info().
		Str("defense_id", defense.ID).
		Str("thesis_id", defense.ThesisID).
		Time("defense_date", *defense.DefenseDate).
		Msg("Defense scheduled")

	return defense, nil
}

func (s *defenseService) UpdateDefenseSchedule(ctx context.Context, id string, defenseDate time.Time, role models.Role) (*models.DefenseWorkflow, error) {
	if err := requireRole(role, models.RoleCoordinator); err != nil {
		return nil, err
	}
	if !defenseDate.After(time.Now()) {
		return nil, apperr.New(apperr.Validation, "defense date must be in the future")
	}

	var defense *models.DefenseWorkflow

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		defense, err = tx.Defenses().GetByIDForUpdate(ctx, id)
		if err != nil {
			return apperr.Internalf(err, "failed to get defense workflow")
		}
		if defense == nil {
			return apperr.New(apperr.DefenseNotFound, id)
		}

		if defense.Status != models.DefenseStatusUnscheduled {
			return apperr.New(apperr.InvalidDefenseState, defense.Status.Name())
		}

		defense.Status = models.DefenseStatusScheduled
		defense.DefenseDate = &defenseDate
		if err := tx.Defenses().Update(ctx, defense); err != nil {
			return apperr.Internalf(err, "failed to update defense workflow")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishScheduled(ctx, defense)

	return defense, nil
}

func (s *defenseService) SetUnderReview(ctx context.Context, id string, role models.Role) (*models.DefenseWorkflow, error) {
	if err := requireRole(role, models.RoleCoordinator); err != nil {
		return nil, err
	}

	var defense *models.DefenseWorkflow

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		defense, err = tx.Defenses().GetByIDForUpdate(ctx, id)
		if err != nil {
			return apperr.Internalf(err, "failed to get defense workflow")
		}
		if defense == nil {
			return apperr.New(apperr.DefenseNotFound, id)
		}

		if defense.Status != models.DefenseStatusScheduled {
			return apperr.New(apperr.InvalidDefenseState, defense.Status.Name())
		}

		defense.Status = models.DefenseStatusUnderReview
		if err := tx.Defenses().Update(ctx, defense); err != nil {
			return apperr.Internalf(err, "failed to update defense workflow")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("defense_id", defense.ID).Msg("Defense moved under review")
	return defense, nil
}

func (s *defenseService) AssignGradeAndSubmit(ctx context.Context, id string, grade float64, role models.Role) (*models.DefenseWorkflow, error) {
	if err := requireRole(role, models.RoleCoordinator); err != nil {
		return nil, err
	}
	if err := validateGrade(grade); err != nil {
		return nil, err
	}

	var defense *models.DefenseWorkflow

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		defense, err = tx.Defenses().GetByIDForUpdate(ctx, id)
		if err != nil {
			return apperr.Internalf(err, "failed to get defense workflow")
		}
		if defense == nil {
			return apperr.New(apperr.DefenseNotFound, id)
		}

		if defense.Status != models.DefenseStatusUnderReview {
			return apperr.New(apperr.InvalidDefenseState, defense.Status.Name())
		}

		defense.Grade = &grade
		defense.Status = models.DefenseStatusSubmittedToFenix
		if err := tx.Defenses().Update(ctx, defense); err != nil {
			return apperr.Internalf(err, "failed to update defense workflow")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := &models.DefenseGradedEvent{
			DefenseID: defense.ID,
			ThesisID:  defense.ThesisID,
			StudentID: defense.StudentID,
			Grade:     grade,
			Timestamp: time.Now().Unix(),
		}
		if err := s.publisher.PublishDefenseGraded(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("defense_id", defense.ID).Msg("Failed to publish defense graded event")
		}
	}

	s.logger.Info().
		Str("defense_id", defense.ID).
		Float64("grade", grade).
		Msg("Defense graded and submitted")

	return defense, nil
}

func (s *defenseService) RevertToPreviousState(ctx context.Context, id string, role models.Role) (*models.DefenseWorkflow, error) {
	var defense *models.DefenseWorkflow

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		defense, err = tx.Defenses().GetByIDForUpdate(ctx, id)
		if err != nil {
			return apperr.Internalf(err, "failed to get defense workflow")
		}
		if defense == nil {
			return apperr.New(apperr.DefenseNotFound, id)
		}

		rule, ok := models.DefenseRevertRule(defense.Status)
		if !ok {
			return apperr.New(apperr.InvalidDefenseState, "cannot revert from "+defense.Status.Name())
		}
		if err := requireRole(role, rule.Role); err != nil {
			return err
		}

		// The grade and defense date survive a revert; only the status moves.
		defense.Status = rule.To
		if err := tx.Defenses().Update(ctx, defense); err != nil {
			return apperr.Internalf(err, "failed to update defense workflow")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("defense_id", defense.ID).
		Str("status", defense.Status.Name()).
		Str("role", role.String()).
		Msg("Defense workflow reverted")

	return defense, nil
}

// UpdateDefenseStatuses moves every scheduled defense whose date has passed
// into UNDER_REVIEW. Each record gets its own transaction with a re-check
// under the row lock, so the sweep is idempotent and a failure on one record
// does not block the rest. Returns the number of defenses moved.
func (s *defenseService) UpdateDefenseStatuses(ctx context.Context) (int, error) {
	due, err := s.store.Defenses().GetDueForReview(ctx, time.Now(), models.DefenseStatusScheduled)
	if err != nil {
		return 0, apperr.Internalf(err, "failed to list due defenses")
	}

	updated := 0
	for _, candidate := range due {
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			defense, err := tx.Defenses().GetByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if defense == nil || defense.Status != models.DefenseStatusScheduled {
				return nil
			}
			if defense.DefenseDate == nil || !defense.DefenseDate.Before(time.Now()) {
				return nil
			}

			defense.Status = models.DefenseStatusUnderReview
			if err := tx.Defenses().Update(ctx, defense); err != nil {
				return err
			}
			updated++
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).Str("defense_id", candidate.ID).Msg("Failed to update due defense")
		}
	}

	if updated > 0 {
		s.logger.Info().Int("updated", updated).Msg("Due defenses moved under review")
	}
	return updated, nil
}

func (s *defenseService) GetDefenseByID(ctx context.Context, id string) (*models.DefenseWorkflow, error) {
	defense, err := s.store.Defenses().GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get defense workflow")
	}
	if defense == nil {
		return nil, apperr.New(apperr.DefenseNotFound, id)
	}

	return defense, nil
}

func (s *defenseService) GetDefenseByThesis(ctx context.Context, thesisID string) (*models.DefenseWorkflow, error) {
	defense, err := s.store.Defenses().GetByThesisID(ctx, thesisID)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get defense by thesis")
	}
	if defense == nil {
		return nil, apperr.New(apperr.DefenseNotFound, "thesis "+thesisID)
	}

	return defense, nil
}

func (s *defenseService) GetDefenseByStudent(ctx context.Context, studentID string) (*models.DefenseWorkflow, error) {
	defense, err := s.store.Defenses().GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get defense by student")
	}
	if defense == nil {
		return nil, apperr.New(apperr.DefenseNotFound, "student "+studentID)
	}

	return defense, nil
}

func (s *defenseService) GetDefensesByStatus(ctx context.Context, status models.DefenseStatus) ([]models.DefenseWorkflow, error) {
	defenses, err := s.store.Defenses().GetByStatus(ctx, status)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get defenses by status")
	}

	return defenses, nil
}

func (s *defenseService) GetAllDefenses(ctx context.Context) ([]models.DefenseWorkflow, error) {
	defenses, err := s.store.Defenses().GetAll(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get all defenses")
	}

	return defenses, nil
}

func (s *defenseService) publishScheduled(ctx context.Context, defense *models.DefenseWorkflow) {
	if s.publisher == nil || defense.DefenseDate == nil {
		return
	}

	event := &models.DefenseScheduledEvent{
		DefenseID:   defense.ID,
		ThesisID:    defense.ThesisID,
		StudentID:   defense.StudentID,
		DefenseDate: defense.DefenseDate.Format(time.RFC3339),
		Timestamp:   time.Now().Unix(),
	}
	if err := s.publisher.PublishDefenseScheduled(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("defense_id", defense.ID).Msg("Failed to publish defense scheduled event")
	}
}

// validateGrade enforces the 0 to 20 scale with at most two decimal places.
func validateGrade(grade float64) error {
	if grade < models.MinGrade || grade > models.MaxGrade {
		return apperr.New(apperr.Validation, "grade must be between 0 and 20")
	}
	scaled := grade * 100
	if math.Abs(scaled-math.Round(scaled)) > 1e-9 {
		return apperr.New(apperr.Validation, "grade must have at most two decimal places")
	}
	return nil
}
