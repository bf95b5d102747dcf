// Package access decides which callers may see an assignment. Every audience
// shares the same check and differs only in the predicate picked by role.
package access

import (
	"context"
	"fmt"

	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
)

// GuardianLinks is the guardian-to-student part of the relationship store.
type GuardianLinks interface {
	IsGuardianOf(ctx context.Context, guardianID, studentID string) (bool, error)
}

// Predicate reports whether caller may view the assignment.
type Predicate func(ctx context.Context, caller domain.Identity, a domain.Assignment) (bool, error)

type Policy struct {
	predicates map[domain.Role]Predicate
}

func NewPolicy(links GuardianLinks) *Policy {
	return &Policy{
		predicates: map[domain.Role]Predicate{
			domain.RoleStudent: func(_ context.Context, caller domain.Identity, a domain.Assignment) (bool, error) {
				return a.StudentID == caller.UserID, nil
			},
			domain.RoleTeacher: func(_ context.Context, caller domain.Identity, a domain.Assignment) (bool, error) {
				return a.AssignedByTeacherID == caller.UserID, nil
			},
			domain.RoleGuardian: func(ctx context.Context, caller domain.Identity, a domain.Assignment) (bool, error) {
				return links.IsGuardianOf(ctx, caller.UserID, a.StudentID)
			},
		},
	}
}

// Authorize returns a FORBIDDEN error unless caller may view a.
func (p *Policy) Authorize(ctx context.Context, caller domain.Identity, a domain.Assignment) error {
	pred, ok := p.predicates[caller.Role]
	if !ok {
		return errors.Forbidden("role %q cannot view assignments", caller.Role)
	}

	allowed, err := pred(ctx, caller, a)
	if err != nil {
		return fmt.Errorf("access: %s %s: %w", caller.Role, caller.UserID, err)
	}
	if !allowed {
		return errors.Forbidden("assignment %s is not visible to %s %s", a.ID, caller.Role, caller.UserID)
	}

	return nil
}

// GuardianOf reports whether the guardian is linked to the student.
func (p *Policy) GuardianOf(ctx context.Context, guardian domain.Identity, studentID string) error {
	return p.Authorize(ctx, guardian, domain.Assignment{StudentID: studentID})
}
