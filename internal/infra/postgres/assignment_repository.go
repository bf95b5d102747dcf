package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/quizassign/internal/assignment"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
)

const assignmentColumns = `id, quiz_id, student_id, assigned_by_teacher_id, status, available_from, due_by, created_at,
	score, total_questions, submitted_answers, submitted_late, completed_at`

type AssignmentRepository struct {
	db *pgxpool.Pool
}

func NewAssignmentRepository(db *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, a domain.Assignment) error {
	const stmt = `
INSERT INTO assignments (id, quiz_id, student_id, assigned_by_teacher_id, status, available_from, due_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err := r.db.Exec(ctx, stmt, a.ID, a.QuizID, a.StudentID, a.AssignedByTeacherID, a.Status, a.AvailableFrom, a.DueBy, a.CreatedAt)
	if isUniqueViolation(err) {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("assignment %s already exists", a.ID), errors.WithCause(err))
	}
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	return nil
}

func (r *AssignmentRepository) Get(ctx context.Context, id string) (domain.Assignment, error) {
	stmt := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1;`

	rows, err := r.db.Query(ctx, stmt, id)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("select assignment: %w", err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAssignment)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, assignment.ErrNotFound
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("select assignment: %w", err)
	}

	return a, nil
}

// TransitionToCompleted writes the grade only while the row is still
// assigned. The status check and the write are a single statement.
func (r *AssignmentRepository) TransitionToCompleted(ctx context.Context, id string, c domain.Completion) (domain.Assignment, error) {
	stmt := `
UPDATE assignments
SET status = 'completed', score = $2, total_questions = $3, submitted_answers = $4, submitted_late = $5, completed_at = $6
WHERE id = $1 AND status = 'assigned'
RETURNING ` + assignmentColumns + `;`

	answers := c.SubmittedAnswers
	if answers == nil {
		answers = []domain.SubmittedAnswer{}
	}

	rows, err := r.db.Query(ctx, stmt, id, c.Score, c.TotalQuestions, answers, c.SubmittedLate, c.CompletedAt)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("update assignment: %w", err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAssignment)
	if stderrors.Is(err, pgx.ErrNoRows) {
		// Either the row does not exist or another writer completed it first.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return domain.Assignment{}, getErr
		}
		return domain.Assignment{}, assignment.ErrAlreadyCompleted
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("update assignment: %w", err)
	}

	return a, nil
}

func (r *AssignmentRepository) ListByStudent(ctx context.Context, studentID string) ([]domain.Assignment, error) {
	stmt := `SELECT ` + assignmentColumns + ` FROM assignments WHERE student_id = $1 ORDER BY created_at DESC, id DESC;`
	return r.list(ctx, stmt, studentID)
}

func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]domain.Assignment, error) {
	stmt := `SELECT ` + assignmentColumns + ` FROM assignments WHERE assigned_by_teacher_id = $1 ORDER BY created_at DESC, id DESC;`
	return r.list(ctx, stmt, teacherID)
}

func (r *AssignmentRepository) HasOpen(ctx context.Context, quizID, studentID string) (bool, error) {
	const stmt = `SELECT EXISTS (SELECT 1 FROM assignments WHERE quiz_id = $1 AND student_id = $2 AND status = 'assigned');`

	var open bool
	if err := r.db.QueryRow(ctx, stmt, quizID, studentID).Scan(&open); err != nil {
		return false, fmt.Errorf("select open assignment: %w", err)
	}
	return open, nil
}

func (r *AssignmentRepository) list(ctx context.Context, stmt string, arg string) ([]domain.Assignment, error) {
	rows, err := r.db.Query(ctx, stmt, arg)
	if err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}

	out, err := pgx.CollectRows(rows, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}

	return out, nil
}

func scanAssignment(row pgx.CollectableRow) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(
		&a.ID, &a.QuizID, &a.StudentID, &a.AssignedByTeacherID, &a.Status, &a.AvailableFrom, &a.DueBy, &a.CreatedAt,
		&a.Score, &a.TotalQuestions, &a.SubmittedAnswers, &a.SubmittedLate, &a.CompletedAt,
	)
	if err != nil {
		return domain.Assignment{}, err
	}

	a.CreatedAt = a.CreatedAt.UTC()
	a.AvailableFrom = utc(a.AvailableFrom)
	a.DueBy = utc(a.DueBy)
	a.CompletedAt = utc(a.CompletedAt)
	return a, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
