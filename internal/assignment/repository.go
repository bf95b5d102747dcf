package assignment

import (
	"context"
	stderrors "errors"

	"github.com/victornm/quizassign/internal/domain"
)

var (
	ErrNotFound         = stderrors.New("assignment not found")
	ErrAlreadyCompleted = stderrors.New("assignment already completed")
)

// Repository persists assignments. Assignments are never deleted.
type Repository interface {
	Create(ctx context.Context, a domain.Assignment) error
	Get(ctx context.Context, id string) (domain.Assignment, error)
	// TransitionToCompleted applies c only if the assignment is still assigned.
	// It fails with ErrAlreadyCompleted otherwise, leaving the stored grade untouched.
	TransitionToCompleted(ctx context.Context, id string, c domain.Completion) (domain.Assignment, error)
	ListByStudent(ctx context.Context, studentID string) ([]domain.Assignment, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]domain.Assignment, error)
	// HasOpen reports whether the student already holds an assigned (not yet
	// completed) assignment for the quiz.
	HasOpen(ctx context.Context, quizID, studentID string) (bool, error)
}
