package roster

import (
	"context"
	"fmt"
	"strings"

	"github.com/victornm/quizassign/internal/errors"
)

// Directory is the read-only roster/relationship store.
type Directory interface {
	// StudentsOf returns every student associated with the teacher.
	StudentsOf(ctx context.Context, teacherID string) ([]string, error)
	// ClassMembers returns the students of a class owned by the teacher. A class
	// the teacher does not own yields no students.
	ClassMembers(ctx context.Context, teacherID, classID string) ([]string, error)
	IsGuardianOf(ctx context.Context, guardianID, studentID string) (bool, error)
}

// Selector names the students an assignment targets. Any combination of the
// three forms may be given; the result is their union.
type Selector struct {
	StudentIDs  []string `json:"studentIds,omitempty"`
	ClassID     string   `json:"classId,omitempty"`
	AllStudents bool     `json:"allStudents,omitempty"`
}

type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve expands sel into the deduplicated students of teacherID, in
// first-seen order. Identifiers that do not belong to the teacher are dropped
// silently.
func (r *Resolver) Resolve(ctx context.Context, teacherID string, sel Selector) ([]string, error) {
	explicit := compact(sel.StudentIDs)
	classID := strings.TrimSpace(sel.ClassID)

	if len(explicit) == 0 && classID == "" && !sel.AllStudents {
		return nil, errors.InvalidSelector("selector names no students, class or all students")
	}

	owned, err := r.dir.StudentsOf(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("roster: students of %s: %w", teacherID, err)
	}
	mine := make(map[string]struct{}, len(owned))
	for _, id := range owned {
		mine[id] = struct{}{}
	}

	var (
		seen = make(map[string]struct{})
		out  []string
	)
	add := func(ids []string) {
		for _, id := range ids {
			if _, ok := mine[id]; !ok {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	add(explicit)

	if classID != "" {
		members, err := r.dir.ClassMembers(ctx, teacherID, classID)
		if err != nil {
			return nil, fmt.Errorf("roster: members of class %s: %w", classID, err)
		}
		add(members)
	}

	if sel.AllStudents {
		add(owned)
	}

	return out, nil
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
