package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizassign/internal/assignment"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/infra/memory"
)

func TestAssignmentRepository_TransitionToCompleted(t *testing.T) {
	ctx := context.Background()
	r := memory.NewAssignmentRepository()
	require.NoError(t, r.Create(ctx, domain.Assignment{ID: "a1", QuizID: "q", StudentID: "s1", Status: domain.StatusAssigned}))

	at := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	first := domain.Completion{Score: 2, TotalQuestions: 3, CompletedAt: at,
		SubmittedAnswers: []domain.SubmittedAnswer{{QuestionID: "q1", SelectedOptionIndex: 1}}}

	got, err := r.TransitionToCompleted(ctx, "a1", first)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, got.Status)
	require.Equal(t, 2, *got.Score)

	_, err = r.TransitionToCompleted(ctx, "a1", domain.Completion{Score: 3, TotalQuestions: 3, CompletedAt: at.Add(time.Hour)})
	require.ErrorIs(t, err, assignment.ErrAlreadyCompleted)

	stored, err := r.Get(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 2, *stored.Score, "second transition must not overwrite the grade")
	require.Equal(t, at, *stored.CompletedAt)

	_, err = r.TransitionToCompleted(ctx, "missing", first)
	require.ErrorIs(t, err, assignment.ErrNotFound)
}

func TestAssignmentRepository_ConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	r := memory.NewAssignmentRepository()
	require.NoError(t, r.Create(ctx, domain.Assignment{ID: "a1", Status: domain.StatusAssigned}))

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.TransitionToCompleted(ctx, "a1", domain.Completion{Score: i})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, assignment.ErrAlreadyCompleted)
				rejected++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded)
	require.Equal(t, n-1, rejected)
}

func TestAssignmentRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := memory.NewAssignmentRepository()
	require.NoError(t, r.Create(ctx, domain.Assignment{ID: "a1", StudentID: "s1", Status: domain.StatusAssigned}))
	_, err := r.TransitionToCompleted(ctx, "a1", domain.Completion{
		SubmittedAnswers: []domain.SubmittedAnswer{{QuestionID: "q1", SelectedOptionIndex: 0}},
	})
	require.NoError(t, err)

	got, err := r.Get(ctx, "a1")
	require.NoError(t, err)
	got.SubmittedAnswers[0].SelectedOptionIndex = 9

	again, err := r.Get(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 0, again.SubmittedAnswers[0].SelectedOptionIndex)
}
