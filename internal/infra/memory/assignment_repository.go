package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/victornm/quizassign/internal/assignment"
	"github.com/victornm/quizassign/internal/domain"
)

// AssignmentRepository is a mutex-guarded assignment store. The completion
// guard runs under the write lock, so concurrent transitions serialize.
type AssignmentRepository struct {
	mu          sync.RWMutex
	assignments map[string]domain.Assignment
}

func NewAssignmentRepository() *AssignmentRepository {
	return &AssignmentRepository{assignments: make(map[string]domain.Assignment)}
}

func (r *AssignmentRepository) Create(_ context.Context, a domain.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.assignments[a.ID]; ok {
		return fmt.Errorf("assignment %s already exists", a.ID)
	}
	r.assignments[a.ID] = cloneAssignment(a)
	return nil
}

func (r *AssignmentRepository) Get(_ context.Context, id string) (domain.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assignments[id]
	if !ok {
		return domain.Assignment{}, assignment.ErrNotFound
	}
	return cloneAssignment(a), nil
}

func (r *AssignmentRepository) TransitionToCompleted(_ context.Context, id string, c domain.Completion) (domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assignments[id]
	if !ok {
		return domain.Assignment{}, assignment.ErrNotFound
	}
	if a.Status != domain.StatusAssigned {
		return domain.Assignment{}, assignment.ErrAlreadyCompleted
	}

	a = c.Apply(a)
	r.assignments[id] = a
	return cloneAssignment(a), nil
}

func (r *AssignmentRepository) ListByStudent(_ context.Context, studentID string) ([]domain.Assignment, error) {
	return r.list(func(a domain.Assignment) bool { return a.StudentID == studentID }), nil
}

func (r *AssignmentRepository) ListByTeacher(_ context.Context, teacherID string) ([]domain.Assignment, error) {
	return r.list(func(a domain.Assignment) bool { return a.AssignedByTeacherID == teacherID }), nil
}

func (r *AssignmentRepository) HasOpen(_ context.Context, quizID, studentID string) (bool, error) {
	open := r.list(func(a domain.Assignment) bool {
		return a.QuizID == quizID && a.StudentID == studentID && a.Status == domain.StatusAssigned
	})
	return len(open) > 0, nil
}

// list returns matching assignments, newest first.
func (r *AssignmentRepository) list(match func(domain.Assignment) bool) []domain.Assignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Assignment, 0)
	for _, a := range r.assignments {
		if match(a) {
			out = append(out, cloneAssignment(a))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func cloneAssignment(a domain.Assignment) domain.Assignment {
	a.SubmittedAnswers = append([]domain.SubmittedAnswer(nil), a.SubmittedAnswers...)
	return a
}
