package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dei-rnl/thesis-service/internal/apperr"
	"github.com/dei-rnl/thesis-service/internal/models"
	"github.com/dei-rnl/thesis-service/internal/repository"
	"github.com/dei-rnl/thesis-service/internal/service/integration"
)

// ThesisWorkflowService owns the thesis approval state machine:
// PROPOSAL_SUBMITTED -> APPROVED_BY_SC -> JURY_PRESIDENT_ASSIGNED ->
// DOCUMENT_SIGNED -> SUBMITTED_TO_FENIX. Completing the workflow spawns
// exactly one defense workflow in the same transaction.
type ThesisWorkflowService interface {
	SubmitJuryProposal(ctx context.Context, req *models.SubmitProposalRequest) (*models.ThesisWorkflow, error)
	ApproveByScientificCommittee(ctx context.Context, id string, role models.Role) (*models.ThesisWorkflow, error)
	AssignJuryPresident(ctx context.Context, id, presidentID string, role models.Role) (*models.ThesisWorkflow, error)
	UploadSignedDocument(ctx context.Context, id, documentPath string, role models.Role) (*models.ThesisWorkflow, error)
	SubmitToFenix(ctx context.Context, id string, role models.Role) (*models.ThesisWorkflow, error)
	RevertToPreviousState(ctx context.Context, id string, role models.Role) (*models.ThesisWorkflow, error)
	RejectThesisProposal(ctx context.Context, id string, role models.Role, comments string) error
	GetThesisByID(ctx context.Context, id string) (*models.ThesisWorkflow, error)
	GetThesisDetails(ctx context.Context, id string) (*models.ThesisDetails, error)
	GetThesisByStudent(ctx context.Context, studentID string) (*models.ThesisWorkflow, error)
	GetThesesByStatus(ctx context.Context, status models.ThesisStatus) ([]models.ThesisWorkflow, error)
	GetAllTheses(ctx context.Context) ([]models.ThesisWorkflow, error)
}

type thesisService struct {
	store     repository.Store
	publisher integration.EventPublisher
	logger    zerolog.Logger
}

func NewThesisWorkflowService(
	store repository.Store,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) ThesisWorkflowService {
	return &thesisService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *thesisService) SubmitJuryProposal(ctx context.Context, req *models.SubmitProposalRequest) (*models.ThesisWorkflow, error) {
	title := strings.TrimSpace(req.Title)
	if utf8.RuneCountInString(title) < models.MinTitleLength {
		return nil, apperr.New(apperr.Validation, "thesis title must be at least 3 characters long")
	}

	if len(req.JuryMemberIDs) == 0 || len(req.JuryMemberIDs) > models.MaxJurySize {
		return nil, apperr.New(apperr.Validation, "jury must have between 1 and 5 members")
	}
	seen := make(map[string]struct{}, len(req.JuryMemberIDs))
	for _, id := range req.JuryMemberIDs {
		if _, ok := seen[id]; ok {
			return nil, apperr.New(apperr.Validation, "jury member ids must be unique")
		}
		seen[id] = struct{}{}
	}

	var thesis *models.ThesisWorkflow

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		student, err := tx.People().GetByID(ctx, req.StudentID)
		if err != nil {
			return apperr.Internalf(err, "failed to get student")
		}
		if student == nil {
			return apperr.New(apperr.PersonNotFound, req.StudentID)
		}
		if student.Role != models.RoleStudent {
			return apperr.New(apperr.InvalidRole, student.Role)
		}

		existing, err := tx.Theses().GetByStudentID(ctx, req.StudentID)
		if err != nil {
			return apperr.Internalf(err, "failed to check existing thesis")
		}
		if existing != nil {
			return apperr.New(apperr.ThesisExists, req.StudentID)
		}

		members, err := tx.People().GetByIDs(ctx, req.JuryMemberIDs)
		if err != nil {
			return apperr.Internalf(err, "failed to resolve jury members")
		}
		if len(members) != len(req.JuryMemberIDs) {
			return apperr.New(apperr.JuryMemberNotFound)
		}
		for _, member := range members {
			if member.Role != models.RoleTeacher {
				return apperr.New(apperr.Validation, "all jury members must be teachers")
			}
		}

		thesis = &models.ThesisWorkflow{
			ID:             uuid.New().String(),
			StudentID:      req.StudentID,
			Title:          title,
			Status:         models.ThesisStatusProposalSubmitted,
			SubmissionDate: time.Now(),
			JuryMemberIDs:  req.JuryMemberIDs,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}

		if err := tx.Theses().Create(ctx, thesis); err != nil {
			return apperr.Internalf(err, "failed to create thesis workflow")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("thesis_id", thesis.ID).
		Str("student_id", thesis.StudentID).
		Int("jury_size", len(thesis.JuryMemberIDs)).
		Msg("Jury proposal submitted")

	return thesis, nil
}

func (s *thesisService) ApproveByScientificCommittee(ctx context.Context, id string, role models.Role) (*models.ThesisWorkflow, error) {
	return s.advance(ctx, id, models.ThesisStatusProposalSubmitted, role, nil)
}

func (s *thesisService) AssignJuryPresident(ctx context.Context, id, presidentID string, role models.Role) (*models.ThesisWorkflow, error) {
	return s.advance(ctx, id, models.ThesisStatusApprovedBySC, role, func(ctx context.Context, tx repository.Store, thesis *models.ThesisWorkflow) error {
		president, err := tx.People().GetByID(ctx, presidentID)
		if err != nil {
			return apperr.Internalf(err, "failed to get jury president")
		}
		if president == nil {
			return apperr.New(apperr.PersonNotFound, presidentID)
		}
		if !thesis.HasJuryMember(presidentID) {
			return apperr.New(apperr.Validation, "jury president must be a jury member")
		}

		thesis.JuryPresidentID = &presidentID
		return nil
	})
}

func (s *thesisService) UploadSignedDocument(ctx context.Context, id, documentPath string, role models.Role) (*models.ThesisWorkflow, error) {
	if strings.TrimSpace(documentPath) == "" {
		return nil, apperr.New(apperr.Validation, "document path must not be empty")
	}

	return s.advance(ctx, id, models.ThesisStatusJuryPresidentAssigned, role, func(ctx context.Context, tx repository.Store, thesis *models.ThesisWorkflow) error {
		thesis.DocumentPath = &documentPath
		return nil
	})
}

func (s *thesisService) SubmitToFenix(ctx context.Context, id string, role models.Role) (*models.ThesisWorkflow, error) {
	var createdDefense *models.DefenseWorkflow

	// The defense is spawned in the same transaction as the status write:
	// a thesis never ends SUBMITTED_TO_FENIX with zero or two defenses.
	thesis, err := s.advance(ctx, id, models.ThesisStatusDocumentSigned, role, func(ctx context.Context, tx repository.Store, thesis *models.ThesisWorkflow) error {
		existing, err := tx.Defenses().GetByThesisID(ctx, thesis.ID)
		if err != nil {
			return apperr.Internalf(err, "failed to check existing defense")
		}
		if existing != nil {
			return nil
		}

		defense := &models.DefenseWorkflow{
			ID:        uuid.New().String(),
			StudentID: thesis.StudentID,
			ThesisID:  thesis.ID,
			Status:    models.DefenseStatusUnscheduled,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := tx.Defenses().Create(ctx, defense); err != nil {
			return apperr.Internalf(err, "failed to create defense workflow")
		}
		createdDefense = defense
		return nil
	})
	if err != nil {
		return nil, err
	}

	if createdDefense != nil && s.publisher != nil {
		event := &models.ThesisCompletedEvent{
			ThesisID:  thesis.ID,
			StudentID: thesis.StudentID,
			DefenseID: createdDefense.ID,
			Timestamp: time.Now().Unix(),
		}
		if err := s.publisher.PublishThesisCompleted(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("thesis_id", thesis.ID).Msg("Failed to publish thesis completed event")
		}
	}

	return thesis, nil
}

func (s *thesisService) RevertToPreviousState(ctx context.Context, id string, role models.Role) (*models.ThesisWorkflow, error) {
	var thesis *models.ThesisWorkflow

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		thesis, err = tx.Theses().GetByIDForUpdate(ctx, id)
		if err != nil {
			return apperr.Internalf(err, "failed to get thesis workflow")
		}
		if thesis == nil {
			return apperr.New(apperr.ThesisNotFound, id)
		}

		rule, ok := models.ThesisRevertRule(thesis.Status)
		if !ok {
			return apperr.New(apperr.InvalidThesisState, "cannot revert from "+thesis.Status.Name())
		}
		if err := requireRole(role, rule.Role); err != nil {
			return err
		}

		// Accumulated fields (document path, jury president) are kept on
		// purpose: revert only rewinds the status.
		thesis.Status = rule.To
		if err := tx.Theses().Update(ctx, thesis); err != nil {
			return apperr.Internalf(err, "failed to update thesis workflow")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("thesis_id", thesis.ID).
		Str("status", thesis.Status.Name()).
		Str("role", role.String()).
		Msg("Thesis workflow reverted")

	return thesis, nil
}

func (s *thesisService) RejectThesisProposal(ctx context.Context, id string, role models.Role, comments string) error {
	if err := requireRole(role, models.RoleSC); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		thesis, err := tx.Theses().GetByIDForUpdate(ctx, id)
		if err != nil {
			return apperr.Internalf(err, "failed to get thesis workflow")
		}
		if thesis == nil {
			return apperr.New(apperr.ThesisNotFound, id)
		}

		if thesis.Status != models.ThesisStatusProposalSubmitted {
			return apperr.New(apperr.InvalidThesisState, thesis.Status.Name())
		}

		// Hard delete: the student must submit a fresh proposal.
		if err := tx.Theses().Delete(ctx, thesis.ID); err != nil {
			return apperr.Internalf(err, "failed to delete thesis workflow")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("thesis_id", id).
		Str("comments", comments).
		Msg("Thesis proposal rejected")

	return nil
}

func (s *thesisService) GetThesisByID(ctx context.Context, id string) (*models.ThesisWorkflow, error) {
	thesis, err := s.store.Theses().GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get thesis workflow")
	}
	if thesis == nil {
		return nil, apperr.New(apperr.ThesisNotFound, id)
	}

	return thesis, nil
}

func (s *thesisService) GetThesisDetails(ctx context.Context, id string) (*models.ThesisDetails, error) {
	thesis, err := s.GetThesisByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &models.ThesisDetails{ThesisWorkflow: *thesis}

	student, err := s.store.People().GetByID(ctx, thesis.StudentID)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get student")
	}
	details.Student = student

	members, err := s.store.People().GetByIDs(ctx, thesis.JuryMemberIDs)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to resolve jury members")
	}
	details.JuryMembers = members

	return details, nil
}

func (s *thesisService) GetThesisByStudent(ctx context.Context, studentID string) (*models.ThesisWorkflow, error) {
	student, err := s.store.People().GetByID(ctx, studentID)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get student")
	}
	if student == nil {
		return nil, apperr.New(apperr.PersonNotFound, studentID)
	}

	thesis, err := s.store.Theses().GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get thesis by student")
	}
	if thesis == nil {
		return nil, apperr.New(apperr.ThesisNotFound, "student "+studentID)
	}

	return thesis, nil
}

func (s *thesisService) GetThesesByStatus(ctx context.Context, status models.ThesisStatus) ([]models.ThesisWorkflow, error) {
	theses, err := s.store.Theses().GetByStatus(ctx, status)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get theses by status")
	}

	return theses, nil
}

func (s *thesisService) GetAllTheses(ctx context.Context) ([]models.ThesisWorkflow, error) {
	theses, err := s.store.Theses().GetAll(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to get all theses")
	}

	return theses, nil
}

// advance applies the single legal forward transition out of from. The role
// gate and the extra mutation both run inside the row-locked transaction.
func (s *thesisService) advance(
	ctx context.Context,
	id string,
	from models.ThesisStatus,
	role models.Role,
	mutate func(context.Context, repository.Store, *models.ThesisWorkflow) error,
) (*models.ThesisWorkflow, error) {
	rule, ok := models.ThesisForwardRule(from)
	if !ok {
		return nil, apperr.New(apperr.InvalidThesisState, from.Name())
	}
	if err := requireRole(role, rule.Role); err != nil {
		return nil, err
	}

	var thesis *models.ThesisWorkflow

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		thesis, err = tx.Theses().GetByIDForUpdate(ctx, id)
		if err != nil {
			return apperr.Internalf(err, "failed to get thesis workflow")
		}
		if thesis == nil {
			return apperr.New(apperr.ThesisNotFound, id)
		}

		if thesis.Status != from {
			return apperr.New(apperr.InvalidThesisState, thesis.Status.Name())
		}

		if mutate != nil {
			if err := mutate(ctx, tx, thesis); err != nil {
				return err
			}
		}

		thesis.Status = rule.To
		if err := tx.Theses().Update(ctx, thesis); err != nil {
			return apperr.Internalf(err, "failed to update thesis workflow")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("thesis_id", thesis.ID).
		Str("from", from.Name()).
		Str("to", thesis.Status.Name()).
		Msg("Thesis workflow advanced")

	return thesis, nil
}
