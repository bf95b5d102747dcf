package review_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizassign/internal/access"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
	"github.com/victornm/quizassign/internal/infra/memory"
	"github.com/victornm/quizassign/internal/review"
)

var (
	completedAt = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

	capitals = domain.QuizDefinition{
		ID:      "quiz-1",
		OwnerID: "t1",
		Title:   "Capitals",
		Questions: []domain.Question{
			{ID: "q1", QuestionText: "France?", Options: []string{"Paris", "Rome", "Oslo"}, CorrectOptionIndex: 0},
			{ID: "q2", QuestionText: "Italy?", Options: []string{"Paris", "Rome"}, CorrectOptionIndex: 1},
			{ID: "q3", QuestionText: "Norway?", Options: []string{"Oslo", "Bern"}, CorrectOptionIndex: 0},
		},
	}
)

func completed(id, studentID string) domain.Assignment {
	return domain.Completion{
		Score:          1,
		TotalQuestions: 3,
		SubmittedAnswers: []domain.SubmittedAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 0},
			{QuestionID: "q2", SelectedOptionIndex: 0},
		},
		CompletedAt: completedAt,
	}.Apply(domain.Assignment{
		ID:                  id,
		QuizID:              capitals.ID,
		StudentID:           studentID,
		AssignedByTeacherID: "t1",
		Status:              domain.StatusAssigned,
	})
}

func TestProject(t *testing.T) {
	r := review.Project(completed("a1", "s1"), capitals)

	assert.Equal(t, "a1", r.AssignmentID)
	assert.Equal(t, "Capitals", r.QuizTitle)
	assert.Equal(t, 1, r.Score)
	assert.Equal(t, 3, r.TotalQuestions)
	assert.Equal(t, "33.33", r.Percentage.StringFixed(2))
	assert.Equal(t, completedAt, *r.CompletedAt)
	require.Len(t, r.Questions, 3)

	q1 := r.Questions[0]
	assert.True(t, q1.Answered)
	assert.True(t, q1.Correct)
	assert.Equal(t, []review.OptionReview{
		{Index: 0, Text: "Paris", Correct: true, Selected: true},
		{Index: 1, Text: "Rome"},
		{Index: 2, Text: "Oslo"},
	}, q1.Options)

	q2 := r.Questions[1]
	assert.True(t, q2.Answered)
	assert.False(t, q2.Correct)
	assert.Equal(t, []review.OptionReview{
		{Index: 0, Text: "Paris", Selected: true},
		{Index: 1, Text: "Rome", Correct: true},
	}, q2.Options)

	q3 := r.Questions[2]
	assert.False(t, q3.Answered, "unanswered questions are shown without a selection")
	assert.False(t, q3.Correct)
	for _, o := range q3.Options {
		assert.False(t, o.Selected)
	}
}

func TestService_Review(t *testing.T) {
	dir := memory.NewDirectory().LinkGuardian("g1", "s1")
	repo := memory.NewAssignmentRepository()
	require.NoError(t, repo.Create(context.Background(), completed("a1", "s1")))
	require.NoError(t, repo.Create(context.Background(), domain.Assignment{
		ID:                  "a2",
		QuizID:              capitals.ID,
		StudentID:           "s1",
		AssignedByTeacherID: "t1",
		Status:              domain.StatusAssigned,
	}))

	svc := review.NewService(review.Config{
		Assignments: assignments{repo},
		Quizzes:     quizzes{},
		Access:      access.NewPolicy(dir),
	})

	tests := map[string]struct {
		caller domain.Identity
		id     string
		reason errors.Reason
	}{
		"student owner":      {caller: domain.Identity{UserID: "s1", Role: domain.RoleStudent}, id: "a1"},
		"issuing teacher":    {caller: domain.Identity{UserID: "t1", Role: domain.RoleTeacher}, id: "a1"},
		"linked guardian":    {caller: domain.Identity{UserID: "g1", Role: domain.RoleGuardian}, id: "a1"},
		"other student":      {caller: domain.Identity{UserID: "s2", Role: domain.RoleStudent}, id: "a1", reason: errors.ReasonForbidden},
		"other teacher":      {caller: domain.Identity{UserID: "t2", Role: domain.RoleTeacher}, id: "a1", reason: errors.ReasonForbidden},
		"unlinked guardian":  {caller: domain.Identity{UserID: "g2", Role: domain.RoleGuardian}, id: "a1", reason: errors.ReasonForbidden},
		"unknown role":       {caller: domain.Identity{UserID: "x", Role: "admin"}, id: "a1", reason: errors.ReasonForbidden},
		"not completed":      {caller: domain.Identity{UserID: "s1", Role: domain.RoleStudent}, id: "a2", reason: errors.ReasonNotCompleted},
		"unknown assignment": {caller: domain.Identity{UserID: "s1", Role: domain.RoleStudent}, id: "nope", reason: errors.ReasonFetchFailure},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := svc.Review(context.Background(), tt.caller, tt.id)
			if tt.reason != "" {
				assert.True(t, errors.HasReason(err, tt.reason), "got %v", err)
				assert.Nil(t, r)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, review.Project(completed("a1", "s1"), capitals), *r, "every audience sees the same projection")
		})
	}
}

type assignments struct {
	repo *memory.AssignmentRepository
}

func (a assignments) Lookup(ctx context.Context, id string) (*domain.Assignment, error) {
	got, err := a.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.FetchFailure("assignment", id, nil)
	}
	return &got, nil
}

type quizzes struct{}

func (quizzes) Get(_ context.Context, id string) (*domain.QuizDefinition, error) {
	if id != capitals.ID {
		return nil, errors.FetchFailure("quiz", id, nil)
	}
	q := capitals
	return &q, nil
}
