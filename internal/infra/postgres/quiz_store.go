// Package postgres implements the quiz, assignment and roster stores on pgx.
package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
	"github.com/victornm/quizassign/internal/quiz"
)

const codeUniqueViolation = "23505"

type QuizStore struct {
	db *pgxpool.Pool
}

func NewQuizStore(db *pgxpool.Pool) *QuizStore {
	return &QuizStore{db: db}
}

func (s *QuizStore) Create(ctx context.Context, q domain.QuizDefinition) error {
	const stmt = `
INSERT INTO quizzes (id, owner_id, title, description, time_limit_minutes, questions, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err := s.db.Exec(ctx, stmt, q.ID, q.OwnerID, q.Title, q.Description, q.TimeLimitMinutes, q.Questions, q.CreatedAt)
	if isUniqueViolation(err) {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("quiz %s already exists", q.ID), errors.WithCause(err))
	}
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}

	return nil
}

func (s *QuizStore) Get(ctx context.Context, id string) (domain.QuizDefinition, error) {
	const stmt = `
SELECT id, owner_id, title, description, time_limit_minutes, questions, created_at
FROM quizzes
WHERE id = $1;`

	var q domain.QuizDefinition
	err := s.db.QueryRow(ctx, stmt, id).Scan(
		&q.ID, &q.OwnerID, &q.Title, &q.Description, &q.TimeLimitMinutes, &q.Questions, &q.CreatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.QuizDefinition{}, quiz.ErrNotFound
	}
	if err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("select quiz: %w", err)
	}

	q.CreatedAt = q.CreatedAt.UTC()
	return q, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
