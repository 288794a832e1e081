package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/dei-rnl/thesis-service/internal/models"
)

type PersonRepository interface {
	Create(ctx context.Context, person *models.Person) error
	GetByID(ctx context.Context, id string) (*models.Person, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Person, error)
	GetByIstID(ctx context.Context, istID string) (*models.Person, error)
	GetByEmail(ctx context.Context, email string) (*models.Person, error)
	GetAll(ctx context.Context) ([]models.Person, error)
	GetByRole(ctx context.Context, role models.Role) ([]models.Person, error)
	Update(ctx context.Context, person *models.Person) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
}

type personRepository struct {
	q      queryer
	logger zerolog.Logger
}

const personColumns = `id, name, ist_id, email, type, created_at, updated_at`

func scanPerson(row interface{ Scan(...interface{}) error }) (*models.Person, error) {
	person := &models.Person{}
	err := row.Scan(
		&person.ID,
		&person.Name,
		&person.IstID,
		&person.Email,
		&person.Role,
		&person.CreatedAt,
		&person.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return person, nil
}

func (r *personRepository) Create(ctx context.Context, person *models.Person) error {
	query := `
		INSERT INTO people (id, name, ist_id, email, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		person.ID,
		person.Name,
		person.IstID,
		person.Email,
		person.Role,
		person.CreatedAt,
		person.UpdatedAt,
	)

	return err
}

func (r *personRepository) GetByID(ctx context.Context, id string) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE id = $1`
	return scanPerson(r.q.QueryRowContext(ctx, query, id))
}

func (r *personRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE id = ANY($1)`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPeople(rows)
}

func (r *personRepository) GetByIstID(ctx context.Context, istID string) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE ist_id = $1`
	return scanPerson(r.q.QueryRowContext(ctx, query, istID))
}

func (r *personRepository) GetByEmail(ctx context.Context, email string) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE email = $1`
	return scanPerson(r.q.QueryRowContext(ctx, query, email))
}

func (r *personRepository) GetAll(ctx context.Context) ([]models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPeople(rows)
}

func (r *personRepository) GetByRole(ctx context.Context, role models.Role) ([]models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE type = $1 ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPeople(rows)
}

func (r *personRepository) Update(ctx context.Context, person *models.Person) error {
	query := `
		UPDATE people
		SET name = $1, email = $2, updated_at = $3
		WHERE id = $4
	`

	_, err := r.q.ExecContext(ctx, query,
		person.Name,
		person.Email,
		time.Now(),
		person.ID,
	)

	return err
}

func (r *personRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM people WHERE id = $1`
	_, err := r.q.ExecContext(ctx, query, id)
	return err
}

func (r *personRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM people WHERE id = $1)`
	var exists bool
	err := r.q.QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}

func collectPeople(rows *sql.Rows) ([]models.Person, error) {
	var people []models.Person
	for rows.Next() {
		var person models.Person
		err := rows.Scan(
			&person.ID,
			&person.Name,
			&person.IstID,
			&person.Email,
			&person.Role,
			&person.CreatedAt,
			&person.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		people = append(people, person)
	}

	return people, rows.Err()
}
