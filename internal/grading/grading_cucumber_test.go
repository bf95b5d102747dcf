//go:build cucumber

package grading_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/grading"
)

// TestGradingScenarios runs the scoring and lateness feature scenarios.
func TestGradingScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "grading",
		ScenarioInitializer: initializeGradingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{filepath.Join("testdata", "grading.feature")},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

func initializeGradingScenario(ctx *godog.ScenarioContext) {
	s := &gradingScenario{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*s = gradingScenario{}
		return ctx, nil
	})

	ctx.Step(`^a quiz with correct options "([^"]*)"$`, s.givenQuiz)
	ctx.Step(`^the student answers "([^"]*)"$`, s.givenAnswers)
	ctx.Step(`^the assignment is due by "([^"]*)"$`, s.givenDueBy)
	ctx.Step(`^the assignment is completed at "([^"]*)"$`, s.whenCompleted)
	ctx.Step(`^the score is (\d+) out of (\d+)$`, s.thenScore)
	ctx.Step(`^the submission is late$`, s.thenLate)
	ctx.Step(`^the submission is on time$`, s.thenOnTime)
}

type gradingScenario struct {
	questions []domain.Question
	answers   []domain.SubmittedAnswer
	dueBy     *time.Time
	result    grading.Result
}

func (s *gradingScenario) givenQuiz(list string) error {
	for i, raw := range strings.Split(list, ",") {
		c, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		s.questions = append(s.questions, domain.Question{
			ID:                 fmt.Sprintf("q%d", i+1),
			Options:            []string{"a", "b", "c"},
			CorrectOptionIndex: c,
		})
	}
	return nil
}

func (s *gradingScenario) givenAnswers(list string) error {
	for _, pair := range strings.Split(list, ",") {
		id, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return fmt.Errorf("malformed answer %q", pair)
		}
		i, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		s.answers = append(s.answers, domain.SubmittedAnswer{QuestionID: id, SelectedOptionIndex: i})
	}
	return nil
}

func (s *gradingScenario) givenDueBy(raw string) error {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	s.dueBy = &t
	return nil
}

func (s *gradingScenario) whenCompleted(raw string) error {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return err
	}
	s.result = grading.Evaluate(s.questions, s.answers, s.dueBy, t)
	return nil
}

func (s *gradingScenario) thenScore(score, total int) error {
	if s.result.Score != score || s.result.TotalQuestions != total {
		return fmt.Errorf("expected %d/%d, got %d/%d", score, total, s.result.Score, s.result.TotalQuestions)
	}
	return nil
}

func (s *gradingScenario) thenLate() error {
	if !s.result.SubmittedLate {
		return fmt.Errorf("expected late submission")
	}
	return nil
}

func (s *gradingScenario) thenOnTime() error {
	if s.result.SubmittedLate {
		return fmt.Errorf("expected on-time submission")
	}
	return nil
}
