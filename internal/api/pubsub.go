package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	AssignmentCompleted struct {
		AssignmentID   string         `json:"assignmentId"`
		QuizID         string         `json:"quizId"`
		StudentID      string         `json:"studentId"`
		Score          int            `json:"score"`
		TotalQuestions int            `json:"totalQuestions"`
		SubmittedLate  bool           `json:"submittedLate"`
		Trigger        domain.Trigger `json:"trigger"`
	}

	SubmissionFailed struct {
		AssignmentID string         `json:"assignmentId"`
		Trigger      domain.Trigger `json:"trigger"`
		Error        *errors.Error  `json:"error"`
	}
)

// PublishAssignmentCompleted notifies the student and the assigning teacher.
func (a *API) PublishAssignmentCompleted(ctx context.Context, e domain.EventAssignmentCompleted) error {
	as := e.Assignment

	data := AssignmentCompleted{
		AssignmentID: as.ID,
		QuizID:       as.QuizID,
		StudentID:    as.StudentID,
		Trigger:      e.Trigger,
	}
	if as.Score != nil {
		data.Score = *as.Score
	}
	if as.TotalQuestions != nil {
		data.TotalQuestions = *as.TotalQuestions
	}
	if as.SubmittedLate != nil {
		data.SubmittedLate = *as.SubmittedLate
	}

	var eg errgroup.Group
	for _, user := range []string{as.StudentID, as.AssignedByTeacherID} {
		eg.Go(func() error {
			return a.publishNotification(ctx, user, e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) PublishSubmissionFailed(ctx context.Context, e domain.EventSubmissionFailed) error {
	return a.publishNotification(ctx, e.StudentID, e.Name(), SubmissionFailed{
		AssignmentID: e.AssignmentID,
		Trigger:      e.Trigger,
		Error:        errors.Convert(e.Err),
	})
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:user:%s", a.prefix, user), b).Err()
}
