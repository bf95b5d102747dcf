// Package attempt runs a learner's in-progress attempt: navigation, answers,
// the optional countdown, and submission. Sessions live only in memory.
package attempt

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/quizassign/internal/assignment"
	"github.com/victornm/quizassign/internal/clock"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
)

type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateError      State = "error"
	// StateClosed is entered when the session is torn down before completing.
	StateClosed State = "closed"
)

func (s State) terminal() bool {
	return s == StateCompleted || s == StateError || s == StateClosed
}

type Assignments interface {
	Lookup(ctx context.Context, id string) (*domain.Assignment, error)
}

type Quizzes interface {
	Get(ctx context.Context, id string) (*domain.QuizDefinition, error)
}

type Submitter interface {
	Complete(ctx context.Context, req assignment.CompleteRequest) (*assignment.CompleteResponse, error)
}

type Config struct {
	ID           string
	AssignmentID string
	StudentID    string
	Assignments  Assignments
	Quizzes      Quizzes
	Submitter    Submitter
	Clock        clock.Clock
}

// Session is one learner's attempt at one assignment.
type Session struct {
	id           string
	assignmentID string
	studentID    string

	assignments Assignments
	quizzes     Quizzes
	submitter   Submitter
	clock       clock.Clock

	// ctx carries request values into auto-submission without its cancellation.
	ctx context.Context

	mu         sync.Mutex
	state      State
	assignment domain.Assignment
	quiz       domain.QuizDefinition
	index      int
	answers    map[string]int
	remaining  int
	expired    bool
	closed     bool
	err        error
	result     *Result
	countdown  *countdown
	subs       map[chan Update]struct{}

	done     chan struct{}
	doneOnce sync.Once
}

func NewSession(c Config) *Session {
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}

	return &Session{
		id:           c.ID,
		assignmentID: c.AssignmentID,
		studentID:    c.StudentID,
		assignments:  c.Assignments,
		quizzes:      c.Quizzes,
		submitter:    c.Submitter,
		clock:        c.Clock,
		ctx:          context.Background(),
		state:        StateLoading,
		answers:      make(map[string]int),
		subs:         make(map[chan Update]struct{}),
		done:         make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) StudentID() string { return s.studentID }

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start loads the assignment and quiz and enters InProgress, starting the
// countdown for timed quizzes. Any failure leaves the session in Error.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("session %s already started", s.id))
	}
	s.ctx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	a, err := s.assignments.Lookup(ctx, s.assignmentID)
	if err != nil {
		return s.fail(err)
	}
	if a.StudentID != s.studentID {
		return s.fail(errors.Forbidden("assignment %s does not belong to %s", a.ID, s.studentID))
	}
	if a.Completed() {
		return s.fail(errors.AlreadyCompleted(a.ID))
	}
	if !a.AvailableAt(s.clock.Now()) {
		return s.fail(errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonNotYetAvailable),
			errors.WithMessagef("assignment %s opens at %s", a.ID, a.AvailableFrom.Format(time.RFC3339))))
	}

	q, err := s.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("session %s closed while loading", s.id))
	}

	s.assignment = *a
	s.quiz = *q
	s.state = StateInProgress
	if q.Timed() {
		s.remaining = int(q.TimeLimit() / time.Second)
		s.startCountdownLocked()
	}
	s.broadcastLocked(UpdateState)

	slog.InfoContext(ctx, "attempt: session started",
		"session_id", s.id,
		"assignment_id", s.assignmentID,
		"timed", q.Timed(),
		"remaining_seconds", s.remaining,
	)

	return nil
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.terminal() {
		return err
	}
	s.state = StateError
	s.err = err
	s.broadcastLocked(UpdateState)
	s.finishLocked()
	return err
}

// Answer records the selected option for a question, replacing any earlier
// selection for it.
func (s *Session) Answer(questionID string, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return err
	}

	q, ok := s.quiz.Question(questionID)
	if !ok {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("unknown question %q", questionID))
	}
	if !q.ValidOption(option) {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("option %d out of range for question %q", option, questionID))
	}

	s.answers[questionID] = option
	s.broadcastLocked(UpdateState)
	return nil
}

// Next moves forward; the current question must be answered first.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if _, ok := s.answers[s.quiz.Questions[s.index].ID]; !ok {
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("answer the current question first"))
	}
	if s.index >= len(s.quiz.Questions)-1 {
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("already at the last question"))
	}

	s.index++
	s.broadcastLocked(UpdateState)
	return nil
}

// Prev moves back one question. It is a no-op on the first question.
func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if s.index > 0 {
		s.index--
		s.broadcastLocked(UpdateState)
	}
	return nil
}

// Submit is the learner's manual submission. It is rejected while questions
// remain unanswered and time remains. The countdown is cancelled and stopped
// before grading starts, so it cannot fire a second submission.
func (s *Session) Submit(ctx context.Context) (*View, error) {
	s.mu.Lock()
	switch s.state {
	case StateCompleted:
		s.mu.Unlock()
		return nil, errors.AlreadyCompleted(s.assignmentID)
	case StateSubmitting:
		s.mu.Unlock()
		return nil, errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("submission already in progress"))
	}
	if err := s.requireInProgressLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if n := s.unansweredLocked(); n > 0 && !s.expired {
		s.mu.Unlock()
		return nil, errors.IncompleteAttempt(n)
	}

	c := s.countdown
	s.countdown = nil
	s.state = StateSubmitting
	answers := s.answersLocked()
	s.broadcastLocked(UpdateState)
	s.mu.Unlock()

	c.stop()

	err := s.submit(ctx, domain.TriggerManual, answers)
	v := s.Snapshot()
	return &v, err
}

// Close tears the session down, cancelling the countdown. A submission already
// in flight is allowed to finish.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	c := s.countdown
	s.countdown = nil
	if s.state == StateLoading || s.state == StateInProgress {
		s.state = StateClosed
		s.broadcastLocked(UpdateState)
		s.finishLocked()
	}
	s.mu.Unlock()

	c.stop()
}

func (s *Session) submit(ctx context.Context, trigger domain.Trigger, answers []domain.SubmittedAnswer) error {
	resp, err := s.submitter.Complete(ctx, assignment.CompleteRequest{
		AssignmentID: s.assignmentID,
		StudentID:    s.studentID,
		Answers:      answers,
		Trigger:      trigger,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err == nil:
		s.state = StateCompleted
		s.err = nil
		s.result = &Result{
			Score:          resp.Result.Score,
			TotalQuestions: resp.Result.TotalQuestions,
			SubmittedLate:  resp.Result.SubmittedLate,
			Percentage:     resp.Result.Percentage,
		}
		s.assignment = resp.Assignment
	case errors.HasReason(err, errors.ReasonAlreadyCompleted):
		// Another submission for the same assignment won the race.
		s.state = StateCompleted
		s.err = err
	case trigger == domain.TriggerManual && !s.closed:
		s.state = StateInProgress
		s.err = err
		if s.quiz.Timed() && s.remaining > 0 {
			s.startCountdownLocked()
		}
		s.broadcastLocked(UpdateState)
		return err
	default:
		s.state = StateError
		s.err = err
	}

	slog.InfoContext(ctx, "attempt: session finished",
		"session_id", s.id,
		"assignment_id", s.assignmentID,
		"trigger", trigger,
		"state", s.state,
		"error", err,
	)

	s.broadcastLocked(UpdateState)
	s.finishLocked()
	return err
}

func (s *Session) requireInProgressLocked() error {
	if s.state != StateInProgress {
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("session is %s", s.state))
	}
	return nil
}

func (s *Session) unansweredLocked() int {
	n := 0
	for _, q := range s.quiz.Questions {
		if _, ok := s.answers[q.ID]; !ok {
			n++
		}
	}
	return n
}

// answersLocked returns the recorded answers in question order.
func (s *Session) answersLocked() []domain.SubmittedAnswer {
	out := make([]domain.SubmittedAnswer, 0, len(s.answers))
	for _, q := range s.quiz.Questions {
		if i, ok := s.answers[q.ID]; ok {
			out = append(out, domain.SubmittedAnswer{QuestionID: q.ID, SelectedOptionIndex: i})
		}
	}
	return out
}

func (s *Session) finishLocked() {
	s.doneOnce.Do(func() {
		close(s.done)
		for ch := range s.subs {
			close(ch)
		}
		s.subs = nil
	})
}

// Result is the grade shown to the learner after completion.
type Result struct {
	Score          int             `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	SubmittedLate  bool            `json:"submittedLate"`
	Percentage     decimal.Decimal `json:"percentage"`
}
