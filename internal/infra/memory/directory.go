package memory

import (
	"context"
	"sync"
)

// Directory is an in-memory roster/relationship store.
type Directory struct {
	mu        sync.RWMutex
	students  map[string][]string
	classes   map[string]class
	guardians map[string]map[string]struct{}
}

type class struct {
	teacherID string
	members   []string
}

func NewDirectory() *Directory {
	return &Directory{
		students:  make(map[string][]string),
		classes:   make(map[string]class),
		guardians: make(map[string]map[string]struct{}),
	}
}

// AddStudents associates students with a teacher.
func (d *Directory) AddStudents(teacherID string, studentIDs ...string) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.students[teacherID] = append(d.students[teacherID], studentIDs...)
	return d
}

// AddClass registers a class owned by teacherID. Members are not implicitly
// added to the teacher's students.
func (d *Directory) AddClass(teacherID, classID string, members ...string) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.classes[classID] = class{teacherID: teacherID, members: append([]string(nil), members...)}
	return d
}

func (d *Directory) LinkGuardian(guardianID, studentID string) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.guardians[guardianID] == nil {
		d.guardians[guardianID] = make(map[string]struct{})
	}
	d.guardians[guardianID][studentID] = struct{}{}
	return d
}

func (d *Directory) StudentsOf(_ context.Context, teacherID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]string(nil), d.students[teacherID]...), nil
}

func (d *Directory) ClassMembers(_ context.Context, teacherID, classID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.classes[classID]
	if !ok || c.teacherID != teacherID {
		return nil, nil
	}
	return append([]string(nil), c.members...), nil
}

func (d *Directory) IsGuardianOf(_ context.Context, guardianID, studentID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.guardians[guardianID][studentID]
	return ok, nil
}
