package attempt

import (
	"github.com/victornm/quizassign/internal/errors"
)

type UpdateKind string

const (
	UpdateTick  UpdateKind = "tick"
	UpdateState UpdateKind = "state"
)

// Update is pushed to subscribers on every countdown tick and state change.
type Update struct {
	Kind UpdateKind `json:"kind"`
	View View       `json:"view"`
}

// View is the learner-facing snapshot of a session. It never exposes the
// correct option.
type View struct {
	SessionID        string         `json:"sessionId"`
	AssignmentID     string         `json:"assignmentId"`
	State            State          `json:"state"`
	QuizTitle        string         `json:"quizTitle,omitempty"`
	Index            int            `json:"index"`
	TotalQuestions   int            `json:"totalQuestions"`
	Question         *QuestionView  `json:"question,omitempty"`
	Answers          map[string]int `json:"answers"`
	Answered         int            `json:"answered"`
	Timed            bool           `json:"timed"`
	RemainingSeconds int            `json:"remainingSeconds"`
	Result           *Result        `json:"result,omitempty"`
	Error            *errors.Error  `json:"error,omitempty"`
}

type QuestionView struct {
	ID           string   `json:"id"`
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:        s.id,
		AssignmentID:     s.assignmentID,
		State:            s.state,
		QuizTitle:        s.quiz.Title,
		Index:            s.index,
		TotalQuestions:   len(s.quiz.Questions),
		Answers:          make(map[string]int, len(s.answers)),
		Answered:         len(s.answers),
		Timed:            s.quiz.Timed(),
		RemainingSeconds: s.remaining,
	}

	for k, a := range s.answers {
		v.Answers[k] = a
	}

	if s.index < len(s.quiz.Questions) {
		q := s.quiz.Questions[s.index]
		v.Question = &QuestionView{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      append([]string(nil), q.Options...),
		}
	}

	if s.result != nil {
		r := *s.result
		v.Result = &r
	}

	if s.err != nil {
		v.Error = errors.Convert(s.err)
	}

	return v
}

// Subscribe streams updates until the session ends or cancel is called. The
// current view is delivered first. Slow subscribers lose stale updates.
func (s *Session) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)

	s.mu.Lock()
	ch <- Update{Kind: UpdateState, View: s.viewLocked()}
	if s.subs == nil {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(kind UpdateKind) {
	if len(s.subs) == 0 {
		return
	}

	u := Update{Kind: kind, View: s.viewLocked()}
	for ch := range s.subs {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}
