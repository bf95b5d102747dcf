package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/quizassign/internal/access"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
)

type links map[string]string

func (l links) IsGuardianOf(_ context.Context, guardianID, studentID string) (bool, error) {
	return l[guardianID] == studentID, nil
}

func TestPolicy_Authorize(t *testing.T) {
	a := domain.Assignment{ID: "a1", StudentID: "s1", AssignedByTeacherID: "t1"}
	p := access.NewPolicy(links{"g1": "s1", "g2": "s2"})

	tests := map[string]struct {
		caller  domain.Identity
		allowed bool
	}{
		"student owner":         {caller: domain.Identity{UserID: "s1", Role: domain.RoleStudent}, allowed: true},
		"other student":         {caller: domain.Identity{UserID: "s2", Role: domain.RoleStudent}},
		"assigning teacher":     {caller: domain.Identity{UserID: "t1", Role: domain.RoleTeacher}, allowed: true},
		"other teacher":         {caller: domain.Identity{UserID: "t2", Role: domain.RoleTeacher}},
		"linked guardian":       {caller: domain.Identity{UserID: "g1", Role: domain.RoleGuardian}, allowed: true},
		"guardian of other kid": {caller: domain.Identity{UserID: "g2", Role: domain.RoleGuardian}},
		"student id as teacher": {caller: domain.Identity{UserID: "s1", Role: domain.RoleTeacher}},
		"unknown role":          {caller: domain.Identity{UserID: "s1", Role: "admin"}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := p.Authorize(context.Background(), tt.caller, a)
			if tt.allowed {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.HasReason(err, errors.ReasonForbidden), "got %v", err)
		})
	}
}
