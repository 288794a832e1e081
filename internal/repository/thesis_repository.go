package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/dei-rnl/thesis-service/internal/models"
)

type ThesisRepository interface {
	Create(ctx context.Context, thesis *models.ThesisWorkflow) error
	GetByID(ctx context.Context, id string) (*models.ThesisWorkflow, error)
	// GetByIDForUpdate locks the row for the remainder of the enclosing
	// transaction. Only meaningful inside Store.InTx.
	GetByIDForUpdate(ctx context.Context, id string) (*models.ThesisWorkflow, error)
	GetByStudentID(ctx context.Context, studentID string) (*models.ThesisWorkflow, error)
	GetByStatus(ctx context.Context, status models.ThesisStatus) ([]models.ThesisWorkflow, error)
	GetAll(ctx context.Context) ([]models.ThesisWorkflow, error)
	Update(ctx context.Context, thesis *models.ThesisWorkflow) error
	Delete(ctx context.Context, id string) error
}

type thesisRepository struct {
	q      queryer
	logger zerolog.Logger
}

const thesisColumns = `id, student_id, title, status, submission_date,
		jury_member_ids, jury_president_id, document_path, created_at, updated_at`

func (r *thesisRepository) Create(ctx context.Context, thesis *models.ThesisWorkflow) error {
	query := `
		INSERT INTO thesis_workflows
			(id, student_id, title, status, submission_date, jury_member_ids,
			 jury_president_id, document_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		thesis.ID,
		thesis.StudentID,
		thesis.Title,
		thesis.Status,
		thesis.SubmissionDate,
		pq.Array(thesis.JuryMemberIDs),
		thesis.JuryPresidentID,
		thesis.DocumentPath,
		thesis.CreatedAt,
		thesis.UpdatedAt,
	)

	return err
}

func (r *thesisRepository) GetByID(ctx context.Context, id string) (*models.ThesisWorkflow, error) {
	query := `SELECT ` + thesisColumns + ` FROM thesis_workflows WHERE id = $1`
	return scanThesis(r.q.QueryRowContext(ctx, query, id))
}

func (r *thesisRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.ThesisWorkflow, error) {
	query := `SELECT ` + thesisColumns + ` FROM thesis_workflows WHERE id = $1 FOR UPDATE`
	return scanThesis(r.q.QueryRowContext(ctx, query, id))
}

func (r *thesisRepository) GetByStudentID(ctx context.Context, studentID string) (*models.ThesisWorkflow, error) {
	query := `SELECT ` + thesisColumns + ` FROM thesis_workflows WHERE student_id = $1`
	return scanThesis(r.q.QueryRowContext(ctx, query, studentID))
}

func (r *thesisRepository) GetByStatus(ctx context.Context, status models.ThesisStatus) ([]models.ThesisWorkflow, error) {
	query := `SELECT ` + thesisColumns + ` FROM thesis_workflows WHERE status = $1 ORDER BY submission_date`

	rows, err := r.q.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTheses(rows)
}

func (r *thesisRepository) GetAll(ctx context.Context) ([]models.ThesisWorkflow, error) {
	query := `SELECT ` + thesisColumns + ` FROM thesis_workflows ORDER BY submission_date`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTheses(rows)
}

func (r *thesisRepository) Update(ctx context.Context, thesis *models.ThesisWorkflow) error {
	query := `
		UPDATE thesis_workflows
		SET status = $1, jury_president_id = $2, document_path = $3, updated_at = $4
		WHERE id = $5
	`

	_, err := r.q.ExecContext(ctx, query,
		thesis.Status,
		thesis.JuryPresidentID,
		thesis.DocumentPath,
		time.Now(),
		thesis.ID,
	)

	return err
}

func (r *thesisRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM thesis_workflows WHERE id = $1`
	_, err := r.q.ExecContext(ctx, query, id)
	return err
}

func scanThesis(row *sql.Row) (*models.ThesisWorkflow, error) {
	thesis := &models.ThesisWorkflow{}
	err := row.Scan(
		&thesis.ID,
		&thesis.StudentID,
		&thesis.Title,
		&thesis.Status,
		&thesis.SubmissionDate,
		pq.Array(&thesis.JuryMemberIDs),
		&thesis.JuryPresidentID,
		&thesis.DocumentPath,
		&thesis.CreatedAt,
		&thesis.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return thesis, nil
}

func collectTheses(rows *sql.Rows) ([]models.ThesisWorkflow, error) {
	var theses []models.ThesisWorkflow
	for rows.Next() {
		var thesis models.ThesisWorkflow
		err := rows.Scan(
			&thesis.ID,
			&thesis.StudentID,
			&thesis.Title,
			&thesis.Status,
			&thesis.SubmissionDate,
			pq.Array(&thesis.JuryMemberIDs),
			&thesis.JuryPresidentID,
			&thesis.DocumentPath,
			&thesis.CreatedAt,
			&thesis.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		theses = append(theses, thesis)
	}

	return theses, rows.Err()
}
