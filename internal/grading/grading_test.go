package grading_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/grading"
)

func TestEvaluate(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		questions   []domain.Question
		answers     []domain.SubmittedAnswer
		dueBy       *time.Time
		completedAt time.Time
		want        grading.Result
	}{
		"two of three correct": {
			questions: questions(1, 0, 2),
			answers: []domain.SubmittedAnswer{
				{QuestionID: "q1", SelectedOptionIndex: 1},
				{QuestionID: "q2", SelectedOptionIndex: 1},
				{QuestionID: "q3", SelectedOptionIndex: 2},
			},
			completedAt: due,
			want:        grading.Result{Score: 2, TotalQuestions: 3, Percentage: decimal.RequireFromString("66.67")},
		},
		"unanswered question counts as incorrect": {
			questions: questions(1, 0, 2),
			answers: []domain.SubmittedAnswer{
				{QuestionID: "q1", SelectedOptionIndex: 1},
				{QuestionID: "q2", SelectedOptionIndex: 0},
			},
			completedAt: due,
			want:        grading.Result{Score: 2, TotalQuestions: 3, Percentage: decimal.RequireFromString("66.67")},
		},
		"answers to unknown questions never score": {
			questions: questions(0),
			answers: []domain.SubmittedAnswer{
				{QuestionID: "other", SelectedOptionIndex: 0},
			},
			completedAt: due,
			want:        grading.Result{Score: 0, TotalQuestions: 1, Percentage: decimal.Zero},
		},
		"one second after due date is late": {
			questions:   questions(0),
			answers:     []domain.SubmittedAnswer{{QuestionID: "q1", SelectedOptionIndex: 0}},
			dueBy:       &due,
			completedAt: due.Add(time.Second),
			want:        grading.Result{Score: 1, TotalQuestions: 1, SubmittedLate: true, Percentage: decimal.NewFromInt(100)},
		},
		"one second before due date is on time": {
			questions:   questions(0),
			dueBy:       &due,
			completedAt: due.Add(-time.Second),
			want:        grading.Result{Score: 0, TotalQuestions: 1, Percentage: decimal.Zero},
		},
		"exactly at due date is on time": {
			questions:   questions(0),
			dueBy:       &due,
			completedAt: due,
			want:        grading.Result{Score: 0, TotalQuestions: 1, Percentage: decimal.Zero},
		},
		"empty quiz": {
			completedAt: due,
			want:        grading.Result{Percentage: decimal.Zero},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := grading.Evaluate(tt.questions, tt.answers, tt.dueBy, tt.completedAt)

			assert.Equal(t, tt.want.Score, got.Score)
			assert.Equal(t, tt.want.TotalQuestions, got.TotalQuestions)
			assert.Equal(t, tt.want.SubmittedLate, got.SubmittedLate)
			assert.True(t, tt.want.Percentage.Equal(got.Percentage), "percentage: want %s, got %s", tt.want.Percentage, got.Percentage)
		})
	}
}

func TestEvaluate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	at := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 500; i++ {
		qs := randomQuestions(r)
		answers := randomAnswers(r, qs)

		got := grading.Evaluate(qs, answers, nil, at.Add(time.Duration(r.Int63n(1e12))))

		// Determinism.
		require.Equal(t, got, grading.Evaluate(qs, answers, nil, at.Add(time.Duration(r.Int63n(1e12)))))
		// Bounds.
		require.GreaterOrEqual(t, got.Score, 0)
		require.LessOrEqual(t, got.Score, got.TotalQuestions)
		require.Equal(t, len(qs), got.TotalQuestions)
		// No due date, never late.
		require.False(t, got.SubmittedLate)

		// Dropping any answer never increases the score.
		if len(answers) > 0 {
			k := r.Intn(len(answers))
			fewer := append(append([]domain.SubmittedAnswer(nil), answers[:k]...), answers[k+1:]...)
			require.LessOrEqual(t, grading.Evaluate(qs, fewer, nil, at).Score, got.Score)
		}
	}
}

func TestNormalize(t *testing.T) {
	qs := questions(1, 0, 2)

	got := grading.Normalize(qs, []domain.SubmittedAnswer{
		{QuestionID: "q3", SelectedOptionIndex: 0},
		{QuestionID: "q1", SelectedOptionIndex: 1},
		{QuestionID: "q3", SelectedOptionIndex: 2},
		{QuestionID: "q2", SelectedOptionIndex: 9},
		{QuestionID: "nope", SelectedOptionIndex: 0},
	})

	require.Equal(t, []domain.SubmittedAnswer{
		{QuestionID: "q1", SelectedOptionIndex: 1},
		{QuestionID: "q3", SelectedOptionIndex: 2},
	}, got)
}

func questions(correct ...int) []domain.Question {
	qs := make([]domain.Question, 0, len(correct))
	for i, c := range correct {
		qs = append(qs, domain.Question{
			ID:                 "q" + string(rune('1'+i)),
			QuestionText:       "question",
			Options:            []string{"a", "b", "c"},
			CorrectOptionIndex: c,
		})
	}
	return qs
}

func randomQuestions(r *rand.Rand) []domain.Question {
	n := r.Intn(8)
	qs := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		opts := 2 + r.Intn(4)
		qs = append(qs, domain.Question{
			ID:                 string(rune('a' + i)),
			Options:            make([]string, opts),
			CorrectOptionIndex: r.Intn(opts),
		})
	}
	return qs
}

func randomAnswers(r *rand.Rand, qs []domain.Question) []domain.SubmittedAnswer {
	var out []domain.SubmittedAnswer
	for _, q := range qs {
		if r.Intn(3) == 0 {
			continue
		}
		out = append(out, domain.SubmittedAnswer{QuestionID: q.ID, SelectedOptionIndex: r.Intn(len(q.Options))})
	}
	return out
}
