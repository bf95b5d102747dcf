package quiz_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizassign/internal/clock"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
	"github.com/victornm/quizassign/internal/infra/memory"
	"github.com/victornm/quizassign/internal/quiz"
)

var (
	teacher = domain.Identity{UserID: "t1", Role: domain.RoleTeacher}
	now     = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

func validRequest() quiz.CreateRequest {
	return quiz.CreateRequest{
		Owner:            teacher,
		Title:            "  Capitals ",
		TimeLimitMinutes: 5,
		Questions: []quiz.QuestionInput{
			{ID: "q1", QuestionText: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectOptionIndex: 0},
			{QuestionText: "Capital of Italy?", Options: []string{"Paris", "Rome"}, CorrectOptionIndex: 1},
		},
	}
}

func TestService_Create(t *testing.T) {
	tests := map[string]struct {
		arrange func(r *quiz.CreateRequest)
		assert  func(t *testing.T, q *domain.QuizDefinition, err error)
	}{
		"valid quiz": {
			arrange: func(*quiz.CreateRequest) {},
			assert: func(t *testing.T, q *domain.QuizDefinition, err error) {
				require.NoError(t, err)
				assert.NotEmpty(t, q.ID)
				assert.Equal(t, "t1", q.OwnerID)
				assert.Equal(t, "Capitals", q.Title)
				assert.Equal(t, now, q.CreatedAt)
				assert.Equal(t, 5*time.Minute, q.TimeLimit())
				require.Len(t, q.Questions, 2)
				assert.Equal(t, "q1", q.Questions[0].ID)
				assert.NotEmpty(t, q.Questions[1].ID, "missing question IDs are generated")
			},
		},
		"not a teacher": {
			arrange: func(r *quiz.CreateRequest) { r.Owner.Role = domain.RoleStudent },
			assert: func(t *testing.T, _ *domain.QuizDefinition, err error) {
				assert.True(t, errors.HasReason(err, errors.ReasonForbidden))
			},
		},
		"missing title": {
			arrange: func(r *quiz.CreateRequest) { r.Title = "" },
			assert:  assertCode(errors.CodeInvalidArgument),
		},
		"no questions": {
			arrange: func(r *quiz.CreateRequest) { r.Questions = nil },
			assert:  assertCode(errors.CodeInvalidArgument),
		},
		"single option": {
			arrange: func(r *quiz.CreateRequest) { r.Questions[0].Options = []string{"Paris"} },
			assert:  assertCode(errors.CodeInvalidArgument),
		},
		"correct index out of range": {
			arrange: func(r *quiz.CreateRequest) { r.Questions[1].CorrectOptionIndex = 2 },
			assert:  assertCode(errors.CodeInvalidArgument),
		},
		"negative time limit": {
			arrange: func(r *quiz.CreateRequest) { r.TimeLimitMinutes = -1 },
			assert:  assertCode(errors.CodeInvalidArgument),
		},
		"duplicate question IDs": {
			arrange: func(r *quiz.CreateRequest) { r.Questions[1].ID = "q1" },
			assert:  assertCode(errors.CodeInvalidArgument),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc := quiz.NewService(quiz.Config{Store: memory.NewQuizStore(), Clock: clock.NewFake(now)})
			req := validRequest()
			tt.arrange(&req)

			q, err := svc.Create(context.Background(), req)
			tt.assert(t, q, err)
		})
	}
}

func TestService_Get(t *testing.T) {
	svc := quiz.NewService(quiz.Config{Store: memory.NewQuizStore(), Clock: clock.NewFake(now)})

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.Get(context.Background(), "missing")
	require.True(t, errors.HasReason(err, errors.ReasonFetchFailure))
	assert.Equal(t, errors.CodeNotFound, errors.Convert(err).Code)

	broken := quiz.NewService(quiz.Config{Store: failingStore{}})
	_, err = broken.Get(context.Background(), "q")
	require.True(t, errors.HasReason(err, errors.ReasonFetchFailure))
	assert.Equal(t, errors.CodeUnavailable, errors.Convert(err).Code)
}

func assertCode(code errors.Code) func(t *testing.T, q *domain.QuizDefinition, err error) {
	return func(t *testing.T, q *domain.QuizDefinition, err error) {
		require.Error(t, err)
		assert.Nil(t, q)
		assert.Equal(t, code, errors.Convert(err).Code)
	}
}

type failingStore struct{}

func (failingStore) Create(context.Context, domain.QuizDefinition) error {
	return stderrors.New("connection refused")
}

func (failingStore) Get(context.Context, string) (domain.QuizDefinition, error) {
	return domain.QuizDefinition{}, stderrors.New("connection refused")
}
