package domain

import (
	"time"
)

// QuizDefinition is the educator-authored quiz. It is immutable once created.
type QuizDefinition struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"ownerId"`
	Title            string     `json:"title"`
	Description      *string    `json:"description,omitempty"`
	TimeLimitMinutes int        `json:"timeLimitMinutes,omitempty"`
	Questions        []Question `json:"questions"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Timed reports whether attempts against the quiz run a countdown.
func (q QuizDefinition) Timed() bool {
	return q.TimeLimitMinutes > 0
}

func (q QuizDefinition) TimeLimit() time.Duration {
	if !q.Timed() {
		return 0
	}
	return time.Duration(q.TimeLimitMinutes) * time.Minute
}

// Question returns the question with the given ID.
func (q QuizDefinition) Question(id string) (Question, bool) {
	for _, qq := range q.Questions {
		if qq.ID == id {
			return qq, true
		}
	}
	return Question{}, false
}

type Question struct {
	ID                 string   `json:"id"`
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// ValidOption reports whether i indexes one of the question's options.
func (q Question) ValidOption(i int) bool {
	return i >= 0 && i < len(q.Options)
}

// Role is the caller role supplied by the identity provider.
type Role string

const (
	RoleStudent  Role = "student"
	RoleTeacher  Role = "teacher"
	RoleGuardian Role = "guardian"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleGuardian:
		return true
	}
	return false
}

// Identity is a verified caller.
type Identity struct {
	UserID string
	Role   Role
}
