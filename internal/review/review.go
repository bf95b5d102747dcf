// Package review reconstructs a completed assignment for its student, the
// issuing teacher, and linked guardians.
package review

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/quizassign/internal/access"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
	"github.com/victornm/quizassign/internal/grading"
)

type Assignments interface {
	Lookup(ctx context.Context, id string) (*domain.Assignment, error)
}

type Quizzes interface {
	Get(ctx context.Context, id string) (*domain.QuizDefinition, error)
}

type Config struct {
	Assignments Assignments
	Quizzes     Quizzes
	Access      *access.Policy
}

type Service struct {
	assignments Assignments
	quizzes     Quizzes
	access      *access.Policy
}

func NewService(c Config) *Service {
	return &Service{
		assignments: c.Assignments,
		quizzes:     c.Quizzes,
		access:      c.Access,
	}
}

type Review struct {
	AssignmentID   string           `json:"assignmentId"`
	QuizID         string           `json:"quizId"`
	QuizTitle      string           `json:"quizTitle"`
	StudentID      string           `json:"studentId"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"totalQuestions"`
	Percentage     decimal.Decimal  `json:"percentage"`
	SubmittedLate  bool             `json:"submittedLate"`
	CompletedAt    *time.Time       `json:"completedAt"`
	Questions      []QuestionReview `json:"questions"`
}

type QuestionReview struct {
	QuestionID   string         `json:"questionId"`
	QuestionText string         `json:"questionText"`
	Options      []OptionReview `json:"options"`
	Answered     bool           `json:"answered"`
	Correct      bool           `json:"correct"`
}

type OptionReview struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Correct  bool   `json:"correct"`
	Selected bool   `json:"selected"`
}

// Review returns the per-question view of a completed assignment, once caller
// passes the access check for their role.
func (s *Service) Review(ctx context.Context, caller domain.Identity, assignmentID string) (*Review, error) {
	a, err := s.assignments.Lookup(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if err := s.access.Authorize(ctx, caller, *a); err != nil {
		return nil, err
	}

	if !a.Completed() {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonNotCompleted),
			errors.WithMessagef("assignment %s has not been completed", a.ID))
	}

	q, err := s.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}

	r := Project(*a, *q)
	return &r, nil
}

// Project joins a completed assignment with its quiz. Options carry both the
// correct flag and the student's selection.
func Project(a domain.Assignment, q domain.QuizDefinition) Review {
	selected := make(map[string]int, len(a.SubmittedAnswers))
	for _, ans := range a.SubmittedAnswers {
		selected[ans.QuestionID] = ans.SelectedOptionIndex
	}

	r := Review{
		AssignmentID: a.ID,
		QuizID:       q.ID,
		QuizTitle:    q.Title,
		StudentID:    a.StudentID,
		Questions:    make([]QuestionReview, 0, len(q.Questions)),
	}
	if a.Score != nil {
		r.Score = *a.Score
	}
	if a.TotalQuestions != nil {
		r.TotalQuestions = *a.TotalQuestions
	}
	if a.SubmittedLate != nil {
		r.SubmittedLate = *a.SubmittedLate
	}
	r.CompletedAt = a.CompletedAt
	r.Percentage = grading.Percentage(r.Score, r.TotalQuestions)

	for _, question := range q.Questions {
		pick, answered := selected[question.ID]

		row := QuestionReview{
			QuestionID:   question.ID,
			QuestionText: question.QuestionText,
			Options:      make([]OptionReview, len(question.Options)),
			Answered:     answered,
			Correct:      answered && pick == question.CorrectOptionIndex,
		}
		for i, text := range question.Options {
			row.Options[i] = OptionReview{
				Index:    i,
				Text:     text,
				Correct:  i == question.CorrectOptionIndex,
				Selected: answered && i == pick,
			}
		}

		r.Questions = append(r.Questions, row)
	}

	return r
}
