package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/quiz"
)

// QuizStore keeps quiz definitions in process memory.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.QuizDefinition
}

func NewQuizStore(seed ...domain.QuizDefinition) *QuizStore {
	s := &QuizStore{quizzes: make(map[string]domain.QuizDefinition, len(seed))}
	for _, q := range seed {
		s.quizzes[q.ID] = cloneQuiz(q)
	}
	return s
}

func (s *QuizStore) Create(_ context.Context, q domain.QuizDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[q.ID]; ok {
		return fmt.Errorf("quiz %s already exists", q.ID)
	}
	s.quizzes[q.ID] = cloneQuiz(q)
	return nil
}

func (s *QuizStore) Get(_ context.Context, id string) (domain.QuizDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return domain.QuizDefinition{}, quiz.ErrNotFound
	}
	return cloneQuiz(q), nil
}

func cloneQuiz(q domain.QuizDefinition) domain.QuizDefinition {
	qs := make([]domain.Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Options = append([]string(nil), qq.Options...)
		qs[i] = qq
	}
	q.Questions = qs
	return q
}
