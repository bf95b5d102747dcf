package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/victornm/quizassign/internal/clock"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
	"github.com/victornm/quizassign/internal/telemetry"
)

type ManagerConfig struct {
	Assignments Assignments
	Quizzes     Quizzes
	Submitter   Submitter
	Clock       clock.Clock
}

// Manager holds the active sessions of this process. Sessions are dropped as
// soon as they reach a terminal state.
type Manager struct {
	c ManagerConfig

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

func NewManager(c ManagerConfig) *Manager {
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}

	return &Manager{
		c:        c,
		sessions: make(map[string]*Session),
	}
}

// Open starts a new attempt session for the student's assignment.
func (m *Manager) Open(ctx context.Context, student domain.Identity, assignmentID string) (*Session, error) {
	if student.Role != domain.RoleStudent {
		return nil, errors.Forbidden("only students can attempt assignments")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	s := NewSession(Config{
		ID:           id.String(),
		AssignmentID: assignmentID,
		StudentID:    student.UserID,
		Assignments:  m.c.Assignments,
		Quizzes:      m.c.Quizzes,
		Submitter:    m.c.Submitter,
		Clock:        m.c.Clock,
	})

	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	telemetry.SessionOpened()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		<-s.Done()

		m.mu.Lock()
		delete(m.sessions, s.id)
		m.mu.Unlock()
		telemetry.SessionClosed()

		slog.Debug("attempt: session released", "session_id", s.id)
	}()

	return s, nil
}

// Get returns the student's active session. Sessions of other students are
// reported as not found.
func (m *Manager) Get(student domain.Identity, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok || s.studentID != student.UserID {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("attempt session not found: %s", id))
	}
	return s, nil
}

// Close tears down the student's session.
func (m *Manager) Close(student domain.Identity, id string) error {
	s, err := m.Get(student, id)
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every active session and waits for them to be released.
// In-flight submissions are allowed to finish.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	m.wg.Wait()
}
