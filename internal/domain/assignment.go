package domain

import "time"

type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
)

// Assignment binds one quiz to one student. Grade fields are set only on the
// transition to completed, which happens at most once.
type Assignment struct {
	ID                  string            `json:"id"`
	QuizID              string            `json:"quizId"`
	StudentID           string            `json:"studentId"`
	AssignedByTeacherID string            `json:"assignedByTeacherId"`
	Status              Status            `json:"status"`
	AvailableFrom       *time.Time        `json:"availableFrom,omitempty"`
	DueBy               *time.Time        `json:"dueBy,omitempty"`
	Score               *int              `json:"score,omitempty"`
	TotalQuestions      *int              `json:"totalQuestions,omitempty"`
	SubmittedAnswers    []SubmittedAnswer `json:"submittedAnswers,omitempty"`
	SubmittedLate       *bool             `json:"submittedLate,omitempty"`
	CompletedAt         *time.Time        `json:"completedAt,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
}

func (a Assignment) Completed() bool {
	return a.Status == StatusCompleted
}

// AvailableAt reports whether an attempt may begin at t.
func (a Assignment) AvailableAt(t time.Time) bool {
	return a.AvailableFrom == nil || !t.Before(*a.AvailableFrom)
}

type SubmittedAnswer struct {
	QuestionID          string `json:"questionId"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
}

// Completion carries the values written by the assigned -> completed transition.
type Completion struct {
	Score            int
	TotalQuestions   int
	SubmittedAnswers []SubmittedAnswer
	SubmittedLate    bool
	CompletedAt      time.Time
}

// Apply returns a copy of a in the completed state.
func (c Completion) Apply(a Assignment) Assignment {
	score, total, late, at := c.Score, c.TotalQuestions, c.SubmittedLate, c.CompletedAt
	a.Status = StatusCompleted
	a.Score = &score
	a.TotalQuestions = &total
	a.SubmittedLate = &late
	a.CompletedAt = &at
	a.SubmittedAnswers = append([]SubmittedAnswer(nil), c.SubmittedAnswers...)
	return a
}
