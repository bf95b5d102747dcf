// Package grading scores a submitted answer set and flags lateness. It never
// reads a clock: the completion time is an input, so results are reproducible.
package grading

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/quizassign/internal/domain"
)

type Result struct {
	Score          int
	TotalQuestions int
	SubmittedLate  bool
	// Percentage is Score/TotalQuestions*100 rounded to two decimal places.
	Percentage decimal.Decimal
}

// Evaluate grades answers against questions. A question counts as correct only
// when an answer for it exists and selects the correct option; unanswered
// questions count as incorrect.
func Evaluate(questions []domain.Question, answers []domain.SubmittedAnswer, dueBy *time.Time, completedAt time.Time) Result {
	selected := make(map[string]int, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedOptionIndex
	}

	score := 0
	for _, q := range questions {
		if i, ok := selected[q.ID]; ok && i == q.CorrectOptionIndex {
			score++
		}
	}

	return Result{
		Score:          score,
		TotalQuestions: len(questions),
		SubmittedLate:  IsLate(dueBy, completedAt),
		Percentage:     Percentage(score, len(questions)),
	}
}

// IsLate reports whether a completion at t is strictly after dueBy. Without a
// due date nothing is late.
func IsLate(dueBy *time.Time, t time.Time) bool {
	return dueBy != nil && t.After(*dueBy)
}

// Percentage is score/total*100 rounded to two decimal places, zero when total is zero.
func Percentage(score, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(score)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 2)
}

// Normalize keeps the last answer per question, drops answers to unknown
// questions or out-of-range options, and returns them in question order.
func Normalize(questions []domain.Question, answers []domain.SubmittedAnswer) []domain.SubmittedAnswer {
	last := make(map[string]int, len(answers))
	for _, a := range answers {
		last[a.QuestionID] = a.SelectedOptionIndex
	}

	out := make([]domain.SubmittedAnswer, 0, len(last))
	for _, q := range questions {
		i, ok := last[q.ID]
		if !ok || !q.ValidOption(i) {
			continue
		}
		out = append(out, domain.SubmittedAnswer{QuestionID: q.ID, SelectedOptionIndex: i})
	}
	return out
}
