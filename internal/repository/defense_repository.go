package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/dei-rnl/thesis-service/internal/models"
)

type DefenseRepository interface {
	Create(ctx context.Context, defense *models.DefenseWorkflow) error
	GetByID(ctx context.Context, id string) (*models.DefenseWorkflow, error)
	// GetByIDForUpdate locks the row for the remainder of the enclosing
	// transaction. Only meaningful inside Store.InTx.
	GetByIDForUpdate(ctx context.Context, id string) (*models.DefenseWorkflow, error)
	GetByThesisID(ctx context.Context, thesisID string) (*models.DefenseWorkflow, error)
	// GetByThesisIDForUpdate is the locking variant of GetByThesisID, for
	// transitions addressed by thesis rather than defense id.
	GetByThesisIDForUpdate(ctx context.Context, thesisID string) (*models.DefenseWorkflow, error)
	GetByStudentID(ctx context.Context, studentID string) (*models.DefenseWorkflow, error)
	GetByStatus(ctx context.Context, status models.DefenseStatus) ([]models.DefenseWorkflow, error)
	GetAll(ctx context.Context) ([]models.DefenseWorkflow, error)
	// GetDueForReview returns defenses in the given status whose date is
	// strictly before cutoff. Used by the sweep.
	GetDueForReview(ctx context.Context, cutoff time.Time, status models.DefenseStatus) ([]models.DefenseWorkflow, error)
	Update(ctx context.Context, defense *models.DefenseWorkflow) error
}

type defenseRepository struct {
	q      queryer
	logger zerolog.Logger
}

const defenseColumns = `id, student_id, thesis_id, status, defense_date, grade, created_at, updated_at`

func (r *defenseRepository) Create(ctx context.Context, defense *models.DefenseWorkflow) error {
	query := `
		INSERT INTO defense_workflows
			(id, student_id, thesis_id, status, defense_date, grade, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		defense.ID,
		defense.StudentID,
		defense.ThesisID,
		defense.Status,
		defense.DefenseDate,
		defense.Grade,
		defense.CreatedAt,
		defense.UpdatedAt,
	)

	return err
}

func (r *defenseRepository) GetByID(ctx context.Context, id string) (*models.DefenseWorkflow, error) {
	query := `SELECT ` + defenseColumns + ` FROM defense_workflows WHERE id = $1`
	return scanDefense(r.q.QueryRowContext(ctx, query, id))
}

func (r *defenseRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.DefenseWorkflow, error) {
	query := `SELECT ` + defenseColumns + ` FROM defense_workflows WHERE id = $1 FOR UPDATE`
	return scanDefense(r.q.QueryRowContext(ctx, query, id))
}

func (r *defenseRepository) GetByThesisID(ctx context.Context, thesisID string) (*models.DefenseWorkflow, error) {
	query := `SELECT ` + defenseColumns + ` FROM defense_workflows WHERE thesis_id = $1`
	return scanDefense(r.q.QueryRowContext(ctx, query, thesisID))
}

func (r *defenseRepository) GetByThesisIDForUpdate(ctx context.Context, thesisID string) (*models.DefenseWorkflow, error) {
	query := `SELECT ` + defenseColumns + ` FROM defense_workflows WHERE thesis_id = $1 FOR UPDATE`
	return scanDefense(r.q.QueryRowContext(ctx, query, thesisID))
}

func (r *defenseRepository) GetByStudentID(ctx context.Context, studentID string) (*models.DefenseWorkflow, error) {
	query := `SELECT ` + defenseColumns + ` FROM defense_workflows WHERE student_id = $1`
	return scanDefense(r.q.QueryRowContext(ctx, query, studentID))
}

func (r *defenseRepository) GetByStatus(ctx context.Context, status models.DefenseStatus) ([]models.DefenseWorkflow, error) {
	query := `SELECT ` + defenseColumns + ` FROM defense_workflows WHERE status = $1 ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDefenses(rows)
}

func (r *defenseRepository) GetAll(ctx context.Context) ([]models.DefenseWorkflow, error) {
	query := `SELECT ` + defenseColumns + ` FROM defense_workflows ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDefenses(rows)
}

func (r *defenseRepository) GetDueForReview(ctx context.Context, cutoff time.Time, status models.DefenseStatus) ([]models.DefenseWorkflow, error) {
	query := `SELECT ` + defenseColumns + ` FROM defense_workflows
		WHERE status = $1 AND defense_date < $2
		ORDER BY defense_date`

	rows, err := r.q.QueryContext(ctx, query, status, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDefenses(rows)
}

func (r *defenseRepository) Update(ctx context.Context, defense *models.DefenseWorkflow) error {
	query := `
		UPDATE defense_workflows
		SET status = $1, defense_date = $2, grade = $3, updated_at = $4
		WHERE id = $5
	`

	_, err := r.q.ExecContext(ctx, query,
		defense.Status,
		defense.DefenseDate,
		defense.Grade,
		time.Now(),
		defense.ID,
	)

	return err
}

func scanDefense(row *sql.Row) (*models.DefenseWorkflow, error) {
	defense := &models.DefenseWorkflow{}
	err := row.Scan(
		&defense.ID,
		&defense.StudentID,
		&defense.ThesisID,
		&defense.Status,
		&defense.DefenseDate,
		&defense.Grade,
		&defense.CreatedAt,
		&defense.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return defense, nil
}

func collectDefenses(rows *sql.Rows) ([]models.DefenseWorkflow, error) {
	var defenses []models.DefenseWorkflow
	for rows.Next() {
		var defense models.DefenseWorkflow
		err := rows.Scan(
			&defense.ID,
			&defense.StudentID,
			&defense.ThesisID,
			&defense.Status,
			&defense.DefenseDate,
			&defense.Grade,
			&defense.CreatedAt,
			&defense.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		defenses = append(defenses, defense)
	}

	return defenses, rows.Err()
}
