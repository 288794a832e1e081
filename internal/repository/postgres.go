package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Store groups the repositories behind a single transactional boundary.
// Every workflow transition runs guard evaluation and status mutation inside
// one InTx call so two concurrent transitions on the same id cannot both
// succeed from the same source state.
type Store interface {
	People() PersonRepository
	Theses() ThesisRepository
	Defenses() DefenseRepository
	InTx(ctx context.Context, fn func(Store) error) error
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type postgresStore struct {
	db     *sql.DB
	q      queryer
	logger zerolog.Logger
}

func NewPostgresStore(db *sql.DB, logger zerolog.Logger) Store {
	return &postgresStore{db: db, q: db, logger: logger}
}

func (s *postgresStore) People() PersonRepository {
	return &personRepository{q: s.q, logger: s.logger}
}

func (s *postgresStore) Theses() ThesisRepository {
	return &thesisRepository{q: s.q, logger: s.logger}
}

func (s *postgresStore) Defenses() DefenseRepository {
	return &defenseRepository{q: s.q, logger: s.logger}
}

func (s *postgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	// Already transaction-scoped, reuse it.
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := &postgresStore{db: s.db, q: tx, logger: s.logger}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return err
	}

	return tx.Commit()
}

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation. Services map these to their domain conflict instead of a
// generic internal error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
