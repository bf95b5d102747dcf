package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victornm/quizassign/internal/assignment"
	"github.com/victornm/quizassign/internal/attempt"
	"github.com/victornm/quizassign/internal/auth"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
	"github.com/victornm/quizassign/internal/quiz"
	"github.com/victornm/quizassign/internal/roster"
)

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal || e.Code == errors.CodeUnavailable {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request body: %v", err),
			errors.WithCause(err)))
		return false
	}
	return true
}

func (a *API) createQuiz(c *gin.Context) {
	var req quiz.CreateRequest
	if !bind(c, &req) {
		return
	}
	req.Owner = auth.Identity(c)

	q, err := a.quizzes.Create(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, q)
}

// getQuiz returns the full definition, answers included, to its owner only.
func (a *API) getQuiz(c *gin.Context) {
	caller := auth.Identity(c)

	q, err := a.quizzes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	if caller.Role != domain.RoleTeacher || q.OwnerID != caller.UserID {
		renderError(c, errors.Forbidden("quiz %s is not owned by %s", q.ID, caller.UserID))
		return
	}

	c.JSON(http.StatusOK, q)
}

type IssueAssignmentsRequest struct {
	QuizID        string     `json:"quizId" binding:"required"`
	StudentIDs    []string   `json:"studentIds,omitempty"`
	ClassID       string     `json:"classId,omitempty"`
	AllStudents   bool       `json:"allStudents,omitempty"`
	AvailableFrom *time.Time `json:"availableFrom,omitempty"`
	DueBy         *time.Time `json:"dueBy,omitempty"`
}

type IssueAssignmentsResponse struct {
	Created  []domain.Assignment `json:"created"`
	Failures []IssueFailure      `json:"failures"`
}

type IssueFailure struct {
	StudentID string        `json:"studentId"`
	Error     *errors.Error `json:"error"`
}

func (a *API) issue(ctx context.Context, teacher domain.Identity, req *IssueAssignmentsRequest) (*IssueAssignmentsResponse, error) {
	res, err := a.assignments.Issue(ctx, assignment.IssueRequest{
		Teacher: teacher,
		QuizID:  req.QuizID,
		Selector: roster.Selector{
			StudentIDs:  req.StudentIDs,
			ClassID:     req.ClassID,
			AllStudents: req.AllStudents,
		},
		AvailableFrom: req.AvailableFrom,
		DueBy:         req.DueBy,
	})
	if err != nil {
		return nil, err
	}

	return issueResponse(res), nil
}

func issueResponse(res *assignment.IssueResult) *IssueAssignmentsResponse {
	resp := &IssueAssignmentsResponse{
		Created:  res.Created,
		Failures: make([]IssueFailure, 0, len(res.Failures)),
	}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, IssueFailure{StudentID: f.StudentID, Error: errors.Convert(f.Err)})
	}
	return resp
}

// issueAssignments answers 201 when every student was assigned and 207 when
// some failed.
func (a *API) issueAssignments(c *gin.Context) {
	var req IssueAssignmentsRequest
	if !bind(c, &req) {
		return
	}

	resp, err := a.issue(c.Request.Context(), auth.Identity(c), &req)
	if err != nil {
		renderError(c, err)
		return
	}

	code := http.StatusCreated
	if len(resp.Failures) > 0 {
		code = http.StatusMultiStatus
	}
	c.JSON(code, resp)
}

func (a *API) listAssignments(c *gin.Context) {
	out, err := a.assignments.List(c.Request.Context(), assignment.ListRequest{
		Caller:    auth.Identity(c),
		StudentID: c.Query("studentId"),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignments": out})
}

func (a *API) getAssignment(c *gin.Context) {
	out, err := a.assignments.Get(c.Request.Context(), auth.Identity(c), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (a *API) getReview(c *gin.Context) {
	out, err := a.reviews.Review(c.Request.Context(), auth.Identity(c), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

type OpenAttemptRequest struct {
	AssignmentID string `json:"assignmentId" binding:"required"`
}

func (a *API) openAttempt(c *gin.Context) {
	var req OpenAttemptRequest
	if !bind(c, &req) {
		return
	}

	s, err := a.attempts.Open(c.Request.Context(), auth.Identity(c), req.AssignmentID)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, s.Snapshot())
}

// withSession resolves the caller's session and runs fn against it,
// rendering the resulting view.
func (a *API) withSession(c *gin.Context, fn func(s *attempt.Session) error) {
	s, err := a.attempts.Get(auth.Identity(c), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	if fn != nil {
		if err := fn(s); err != nil {
			renderError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, s.Snapshot())
}

func (a *API) getAttempt(c *gin.Context) {
	a.withSession(c, nil)
}

type AnswerRequest struct {
	QuestionID  string `json:"questionId" binding:"required"`
	OptionIndex *int   `json:"optionIndex" binding:"required"`
}

func (a *API) answer(c *gin.Context) {
	var req AnswerRequest
	if !bind(c, &req) {
		return
	}

	a.withSession(c, func(s *attempt.Session) error {
		return s.Answer(req.QuestionID, *req.OptionIndex)
	})
}

func (a *API) next(c *gin.Context) {
	a.withSession(c, func(s *attempt.Session) error { return s.Next() })
}

func (a *API) prev(c *gin.Context) {
	a.withSession(c, func(s *attempt.Session) error { return s.Prev() })
}

func (a *API) submit(c *gin.Context) {
	s, err := a.attempts.Get(auth.Identity(c), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	v, err := s.Submit(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, v)
}

func (a *API) closeAttempt(c *gin.Context) {
	if err := a.attempts.Close(auth.Identity(c), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
