package assignment

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizassign/internal/access"
	"github.com/victornm/quizassign/internal/clock"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
	"github.com/victornm/quizassign/internal/event"
	"github.com/victornm/quizassign/internal/grading"
	"github.com/victornm/quizassign/internal/roster"
	"github.com/victornm/quizassign/internal/telemetry"
)

const defaultIssueConcurrency = 16

type QuizSource interface {
	Get(ctx context.Context, id string) (*domain.QuizDefinition, error)
}

type Config struct {
	Repository Repository
	Quizzes    QuizSource
	Resolver   *roster.Resolver
	Access     *access.Policy
	EventBus   *event.Bus
	Clock      clock.Clock

	// RejectDuplicates makes issuance fail for a student who already holds an
	// open assignment for the same quiz. Duplicates are allowed by default.
	RejectDuplicates bool
	IssueConcurrency int
}

type Service struct {
	repo     Repository
	quizzes  QuizSource
	resolver *roster.Resolver
	access   *access.Policy
	eb       *event.Bus
	clock    clock.Clock

	rejectDuplicates bool
	concurrency      int
}

func NewService(c Config) *Service {
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.IssueConcurrency <= 0 {
		c.IssueConcurrency = defaultIssueConcurrency
	}

	return &Service{
		repo:             c.Repository,
		quizzes:          c.Quizzes,
		resolver:         c.Resolver,
		access:           c.Access,
		eb:               c.EventBus,
		clock:            c.Clock,
		rejectDuplicates: c.RejectDuplicates,
		concurrency:      c.IssueConcurrency,
	}
}

// IssueRequest represents a request to assign a quiz to a set of students.
type IssueRequest struct {
	Teacher       domain.Identity
	QuizID        string
	Selector      roster.Selector
	AvailableFrom *time.Time
	DueBy         *time.Time
}

type IssueFailure struct {
	StudentID string
	Err       error
}

type IssueResult struct {
	// Created is in roster resolution order.
	Created  []domain.Assignment
	Failures []IssueFailure
}

// Partial reports whether some students could not be assigned.
func (r IssueResult) Partial() bool {
	return len(r.Failures) > 0
}

// Issue creates one assigned Assignment per resolved student. Students are
// handled independently: a failure for one is reported in the result and does
// not stop the others.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	if req.Teacher.Role != domain.RoleTeacher {
		return nil, errors.Forbidden("only teachers can assign quizzes")
	}
	if req.AvailableFrom != nil && req.DueBy != nil && req.DueBy.Before(*req.AvailableFrom) {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("due date is before the availability date"))
	}

	q, err := s.quizzes.Get(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	if q.OwnerID != req.Teacher.UserID {
		return nil, errors.Forbidden("quiz %s is not owned by %s", q.ID, req.Teacher.UserID)
	}

	students, err := s.resolver.Resolve(ctx, req.Teacher.UserID, req.Selector)
	if err != nil {
		return nil, err
	}

	var (
		created = make([]*domain.Assignment, len(students))
		failed  = make([]error, len(students))
		eg      errgroup.Group
	)
	eg.SetLimit(s.concurrency)

	for i, student := range students {
		eg.Go(func() error {
			a, err := s.issueOne(ctx, req, student)
			if err != nil {
				slog.WarnContext(ctx, "assignment: issue failed",
					"quiz_id", req.QuizID,
					"student_id", student,
					"error", err,
				)
				failed[i] = err
			} else {
				created[i] = a
			}
			telemetry.AssignmentIssued(err == nil)
			return nil
		})
	}
	_ = eg.Wait()

	res := &IssueResult{Created: make([]domain.Assignment, 0, len(students))}
	for i, student := range students {
		if failed[i] != nil {
			res.Failures = append(res.Failures, IssueFailure{StudentID: student, Err: failed[i]})
			continue
		}
		res.Created = append(res.Created, *created[i])
	}

	slog.InfoContext(ctx, "assignment: issued",
		"quiz_id", req.QuizID,
		"teacher_id", req.Teacher.UserID,
		"created", len(res.Created),
		"failed", len(res.Failures),
	)

	return res, nil
}

func (s *Service) issueOne(ctx context.Context, req IssueRequest, student string) (*domain.Assignment, error) {
	if s.rejectDuplicates {
		open, err := s.repo.HasOpen(ctx, req.QuizID, student)
		if err != nil {
			return nil, fmt.Errorf("check open assignment: %w", err)
		}
		if open {
			return nil, errors.New(errors.CodeAlreadyExists,
				errors.WithReason(errors.ReasonDuplicateAssignment),
				errors.WithMessagef("student %s already has an open assignment for quiz %s", student, req.QuizID))
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate assignment ID: %w", err)
	}

	a := domain.Assignment{
		ID:                  id.String(),
		QuizID:              req.QuizID,
		StudentID:           student,
		AssignedByTeacherID: req.Teacher.UserID,
		Status:              domain.StatusAssigned,
		AvailableFrom:       req.AvailableFrom,
		DueBy:               req.DueBy,
		CreatedAt:           s.clock.Now().UTC(),
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	return &a, nil
}

// CompleteRequest carries a learner's answers for grading.
type CompleteRequest struct {
	AssignmentID string
	StudentID    string
	Answers      []domain.SubmittedAnswer
	Trigger      domain.Trigger
}

type CompleteResponse struct {
	Assignment domain.Assignment
	Result     grading.Result
}

// Complete grades the answers against the current quiz definition and moves
// the assignment to completed. Grading is pure, so a retry after a failed write
// produces the same score.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	resp, err := s.complete(ctx, req)
	if err != nil && errors.HasReason(err, errors.ReasonAlreadyCompleted) {
		slog.InfoContext(ctx, "assignment: duplicate completion ignored",
			"assignment_id", req.AssignmentID,
			"trigger", req.Trigger,
		)
		return nil, err
	}

	telemetry.SubmissionRecorded(string(req.Trigger), err == nil, err == nil && resp.Result.SubmittedLate)

	if err != nil {
		slog.ErrorContext(ctx, "assignment: completion failed",
			"assignment_id", req.AssignmentID,
			"trigger", req.Trigger,
			"error", err,
		)
		s.eb.Publish(ctx, domain.EventSubmissionFailed{
			AssignmentID: req.AssignmentID,
			StudentID:    req.StudentID,
			Trigger:      req.Trigger,
			Err:          err,
		})
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventAssignmentCompleted{
		Assignment: resp.Assignment,
		Trigger:    req.Trigger,
	})

	return resp, nil
}

func (s *Service) complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	a, err := s.load(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a.StudentID != req.StudentID {
		return nil, errors.Forbidden("assignment %s does not belong to %s", a.ID, req.StudentID)
	}
	if a.Completed() {
		return nil, errors.AlreadyCompleted(a.ID)
	}

	now := s.clock.Now().UTC()
	if !a.AvailableAt(now) {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonNotYetAvailable),
			errors.WithMessagef("assignment %s opens at %s", a.ID, a.AvailableFrom.Format(time.RFC3339)))
	}

	q, err := s.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}

	answers := grading.Normalize(q.Questions, req.Answers)
	res := grading.Evaluate(q.Questions, answers, a.DueBy, now)

	done, err := s.repo.TransitionToCompleted(ctx, a.ID, domain.Completion{
		Score:            res.Score,
		TotalQuestions:   res.TotalQuestions,
		SubmittedAnswers: answers,
		SubmittedLate:    res.SubmittedLate,
		CompletedAt:      now,
	})
	if stderrors.Is(err, ErrAlreadyCompleted) {
		return nil, errors.AlreadyCompleted(a.ID)
	}
	if stderrors.Is(err, ErrNotFound) {
		return nil, errors.FetchFailure("assignment", a.ID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("assignment: transition %s: %w", a.ID, err)
	}

	return &CompleteResponse{Assignment: done, Result: res}, nil
}

// Lookup returns an assignment without any authorization check. It is meant
// for internal collaborators that already authenticated the caller.
func (s *Service) Lookup(ctx context.Context, id string) (*domain.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Get returns an assignment visible to caller.
func (s *Service) Get(ctx context.Context, caller domain.Identity, id string) (*domain.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(ctx, caller, a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListRequest filters the assignments visible to Caller. StudentID is
// required for guardians and optional for teachers.
type ListRequest struct {
	Caller    domain.Identity
	StudentID string
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]domain.Assignment, error) {
	var (
		out []domain.Assignment
		err error
	)

	switch req.Caller.Role {
	case domain.RoleStudent:
		out, err = s.repo.ListByStudent(ctx, req.Caller.UserID)
	case domain.RoleTeacher:
		out, err = s.repo.ListByTeacher(ctx, req.Caller.UserID)
		if err == nil && req.StudentID != "" {
			filtered := out[:0]
			for _, a := range out {
				if a.StudentID == req.StudentID {
					filtered = append(filtered, a)
				}
			}
			out = filtered
		}
	case domain.RoleGuardian:
		if req.StudentID == "" {
			return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("student ID is required"))
		}
		if err := s.access.GuardianOf(ctx, req.Caller, req.StudentID); err != nil {
			return nil, err
		}
		out, err = s.repo.ListByStudent(ctx, req.StudentID)
	default:
		return nil, errors.Forbidden("role %q cannot list assignments", req.Caller.Role)
	}

	if err != nil {
		return nil, fmt.Errorf("assignment: list: %w", err)
	}

	return out, nil
}

func (s *Service) load(ctx context.Context, id string) (domain.Assignment, error) {
	a, err := s.repo.Get(ctx, id)
	if stderrors.Is(err, ErrNotFound) {
		return domain.Assignment{}, errors.FetchFailure("assignment", id, nil)
	}
	if err != nil {
		return domain.Assignment{}, errors.FetchFailure("assignment", id, err)
	}
	return a, nil
}
