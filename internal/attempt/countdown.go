package attempt

import (
	"sync"
	"time"

	"github.com/victornm/quizassign/internal/clock"
	"github.com/victornm/quizassign/internal/domain"
)

// countdown is the session-owned task that ticks once per second while the
// session is in progress.
type countdown struct {
	cancel chan struct{}
	done   chan struct{}
	once   sync.Once
}

// stop cancels the countdown and waits for its goroutine to exit. It must not
// be called with the session lock held. A nil countdown is a no-op.
func (c *countdown) stop() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.cancel) })
	<-c.done
}

func (s *Session) startCountdownLocked() {
	c := &countdown{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.countdown = c

	go s.runCountdown(c, s.clock.NewTicker(time.Second))
}

func (s *Session) runCountdown(c *countdown, t clock.Ticker) {
	defer close(c.done)
	defer t.Stop()

	for {
		select {
		case <-c.cancel:
			return
		case <-t.C():
			answers, expired, live := s.tick(c)
			if !live {
				return
			}
			if expired {
				t.Stop()
				_ = s.submit(s.ctx, domain.TriggerAuto, answers)
				return
			}
		}
	}
}

// tick decrements the remaining time. When it reaches zero the session moves to
// Submitting and the countdown owns the auto-submission. live is false when c
// is no longer the session's countdown.
func (s *Session) tick(c *countdown) (answers []domain.SubmittedAnswer, expired, live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countdown != c || s.state != StateInProgress {
		return nil, false, false
	}

	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		s.broadcastLocked(UpdateTick)
		return nil, false, true
	}

	s.expired = true
	s.countdown = nil
	s.state = StateSubmitting
	s.broadcastLocked(UpdateState)
	return s.answersLocked(), true, true
}
