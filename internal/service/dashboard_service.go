package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dei-rnl/thesis-service/internal/apperr"
	"github.com/dei-rnl/thesis-service/internal/models"
	"github.com/dei-rnl/thesis-service/internal/repository"
)

// DashboardService builds the per-role overview: every student with their
// workflow state, plus the items the requesting role has to act on next.
type DashboardService interface {
	GetDashboard(ctx context.Context, role models.Role) (*models.Dashboard, error)
}

type dashboardService struct {
	store  repository.Store
	logger zerolog.Logger
}

func NewDashboardService(store repository.Store, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		store:  store,
		logger: logger,
	}
}

func (s *dashboardService) GetDashboard(ctx context.Context, role models.Role) (*models.Dashboard, error) {
	if err := requireRole(role, models.RoleCoordinator, models.RoleStaff, models.RoleSC); err != nil {
		return nil, err
	}

	students, err := s.studentWorkflows(ctx)
	if err != nil {
		return nil, err
	}

	dashboard := &models.Dashboard{
		Role:     role,
		Students: students,
	}

	switch role {
	case models.RoleCoordinator:
		dashboard.ThesesNeedingAction, err = s.thesesIn(ctx,
			models.ThesisStatusApprovedBySC,
			models.ThesisStatusJuryPresidentAssigned,
		)
		if err != nil {
			return nil, err
		}
		dashboard.DefensesNeedingAction, err = s.defensesIn(ctx,
			models.DefenseStatusUnscheduled,
			models.DefenseStatusUnderReview,
		)
		if err != nil {
			return nil, err
		}
	case models.RoleStaff:
		dashboard.ThesesNeedingAction, err = s.thesesIn(ctx, models.ThesisStatusDocumentSigned)
		if err != nil {
			return nil, err
		}
	case models.RoleSC:
		dashboard.ThesesNeedingAction, err = s.thesesIn(ctx, models.ThesisStatusProposalSubmitted)
		if err != nil {
			return nil, err
		}
	}

	return dashboard, nil
}

// studentWorkflows joins every student with their thesis and defense
// workflows. Students without a workflow still appear, with empty slots.
func (s *dashboardService) studentWorkflows(ctx context.Context) ([]models.StudentWorkflow, error) {
	people, err := s.store.People().GetByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to list students")
	}

	theses, err := s.store.Theses().GetAll(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to list theses")
	}
	thesesByStudent := make(map[string]*models.ThesisWorkflow, len(theses))
	for i := range theses {
		thesesByStudent[theses[i].StudentID] = &theses[i]
	}

	defenses, err := s.store.Defenses().GetAll(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "failed to list defenses")
	}
	defensesByStudent := make(map[string]*models.DefenseWorkflow, len(defenses))
	for i := range defenses {
		defensesByStudent[defenses[i].StudentID] = &defenses[i]
	}

	rows := make([]models.StudentWorkflow, 0, len(people))
	for _, student := range people {
		row := models.StudentWorkflow{Student: student}

		if thesis, ok := thesesByStudent[student.ID]; ok {
			row.ThesisID = &thesis.ID
			row.ThesisTitle = &thesis.Title
			row.ThesisStatus = &thesis.Status
		}
		if defense, ok := defensesByStudent[student.ID]; ok {
			row.DefenseID = &defense.ID
			row.DefenseStatus = &defense.Status
			row.DefenseDate = defense.DefenseDate
			row.Grade = defense.Grade
		}

		rows = append(rows, row)
	}
	return rows, nil
}

func (s *dashboardService) thesesIn(ctx context.Context, statuses ...models.ThesisStatus) ([]models.ThesisWorkflow, error) {
	var out []models.ThesisWorkflow
	for _, status := range statuses {
		theses, err := s.store.Theses().GetByStatus(ctx, status)
		if err != nil {
			return nil, apperr.Internalf(err, "failed to list theses by status")
		}
		out = append(out, theses...)
	}
	return out, nil
}

func (s *dashboardService) defensesIn(ctx context.Context, statuses ...models.DefenseStatus) ([]models.DefenseWorkflow, error) {
	var out []models.DefenseWorkflow
	for _, status := range statuses {
		defenses, err := s.store.Defenses().GetByStatus(ctx, status)
		if err != nil {
			return nil, apperr.Internalf(err, "failed to list defenses by status")
		}
		out = append(out, defenses...)
	}
	return out, nil
}
