package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/victornm/quizassign/internal/attempt"
	"github.com/victornm/quizassign/internal/auth"
	"github.com/victornm/quizassign/internal/errors"
)

const liveWriteWait = 10 * time.Second

type LiveCommand struct {
	Type        string `json:"type"`
	QuestionID  string `json:"questionId,omitempty"`
	OptionIndex int    `json:"optionIndex,omitempty"`
}

type LiveMessage struct {
	Type   string          `json:"type"`
	Update *attempt.Update `json:"update,omitempty"`
	Error  *errors.Error   `json:"error,omitempty"`
}

// live streams countdown ticks and state changes of an attempt over a
// websocket and accepts answer, next, prev and submit commands. Dropping the
// connection while the attempt is in progress tears the session down.
func (a *API) live(c *gin.Context) {
	s, err := a.attempts.Get(auth.Identity(c), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "api: websocket upgrade failed", "session_id", s.ID(), "error", err)
		return
	}
	defer conn.Close()

	ctx := context.WithoutCancel(c.Request.Context())
	updates, cancel := s.Subscribe()
	defer cancel()

	var (
		errs       = make(chan error)
		done       = make(chan struct{})
		readerDone = make(chan struct{})
	)
	defer close(done)

	go func() {
		defer close(readerDone)
		for {
			var cmd LiveCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if err := a.apply(ctx, s, cmd); err != nil {
				select {
				case errs <- err:
				case <-done:
					return
				}
			}
		}
	}()

	write := func(m LiveMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := conn.WriteJSON(m); err != nil {
			slog.DebugContext(ctx, "api: websocket write failed", "session_id", s.ID(), "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt finished"),
					time.Now().Add(liveWriteWait))
				return
			}
			if !write(LiveMessage{Type: "update", Update: &u}) {
				s.Close()
				return
			}
		case err := <-errs:
			if !write(LiveMessage{Type: "error", Error: errors.Convert(err)}) {
				s.Close()
				return
			}
		case <-readerDone:
			s.Close()
			return
		}
	}
}

func (a *API) apply(ctx context.Context, s *attempt.Session, cmd LiveCommand) error {
	switch cmd.Type {
	case "answer":
		return s.Answer(cmd.QuestionID, cmd.OptionIndex)
	case "next":
		return s.Next()
	case "prev":
		return s.Prev()
	case "submit":
		_, err := s.Submit(ctx)
		return err
	default:
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("unknown command %q", cmd.Type))
	}
}
