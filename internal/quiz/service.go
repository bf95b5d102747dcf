package quiz

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/victornm/quizassign/internal/clock"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
)

// ErrNotFound is returned by a Store when no quiz has the requested ID.
var ErrNotFound = stderrors.New("quiz not found")

type Store interface {
	Create(ctx context.Context, q domain.QuizDefinition) error
	Get(ctx context.Context, id string) (domain.QuizDefinition, error)
}

type Config struct {
	Store Store
	Clock clock.Clock
}

type Service struct {
	store    Store
	clock    clock.Clock
	validate *validator.Validate
}

func NewService(c Config) *Service {
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}

	return &Service{
		store:    c.Store,
		clock:    c.Clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// CreateRequest represents a request to publish a quiz.
type CreateRequest struct {
	Owner            domain.Identity `validate:"-"`
	Title            string          `json:"title" validate:"required,max=200"`
	Description      *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	TimeLimitMinutes int             `json:"timeLimitMinutes,omitempty" validate:"gte=0,lte=1440"`
	Questions        []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

type QuestionInput struct {
	// ID is optional, one is generated when empty.
	ID                 string   `json:"id,omitempty" validate:"omitempty,max=64"`
	QuestionText       string   `json:"questionText" validate:"required"`
	Options            []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectOptionIndex int      `json:"correctOptionIndex" validate:"gte=0"`
}

// Create validates and stores a new quiz owned by the calling teacher.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.QuizDefinition, error) {
	if req.Owner.Role != domain.RoleTeacher {
		return nil, errors.Forbidden("only teachers can create quizzes")
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid quiz: %v", err), errors.WithCause(err))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate quiz ID: %w", err)
	}

	q := domain.QuizDefinition{
		ID:               id.String(),
		OwnerID:          req.Owner.UserID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		TimeLimitMinutes: req.TimeLimitMinutes,
		Questions:        make([]domain.Question, 0, len(req.Questions)),
		CreatedAt:        s.clock.Now().UTC(),
	}

	seen := make(map[string]struct{}, len(req.Questions))
	for i, in := range req.Questions {
		if in.CorrectOptionIndex >= len(in.Options) {
			return nil, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("question %d: correct option index %d out of range [0, %d)", i, in.CorrectOptionIndex, len(in.Options)))
		}

		qid := strings.TrimSpace(in.ID)
		if qid == "" {
			u, err := uuid.NewV7()
			if err != nil {
				return nil, fmt.Errorf("generate question ID: %w", err)
			}
			qid = u.String()
		}
		if _, ok := seen[qid]; ok {
			return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("duplicate question ID %q", qid))
		}
		seen[qid] = struct{}{}

		q.Questions = append(q.Questions, domain.Question{
			ID:                 qid,
			QuestionText:       in.QuestionText,
			Options:            append([]string(nil), in.Options...),
			CorrectOptionIndex: in.CorrectOptionIndex,
		})
	}

	if err := s.store.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("quiz: create: %w", err)
	}

	return &q, nil
}

// Get looks a quiz up by ID. Any failure is reported as a fetch failure.
func (s *Service) Get(ctx context.Context, id string) (*domain.QuizDefinition, error) {
	q, err := s.store.Get(ctx, id)
	if stderrors.Is(err, ErrNotFound) {
		return nil, errors.FetchFailure("quiz", id, nil)
	}
	if err != nil {
		return nil, errors.FetchFailure("quiz", id, err)
	}

	return &q, nil
}
