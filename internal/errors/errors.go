package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Code codes.Code

const (
	CodeInvalidArgument    = Code(codes.InvalidArgument)
	CodeNotFound           = Code(codes.NotFound)
	CodeAlreadyExists      = Code(codes.AlreadyExists)
	CodeFailedPrecondition = Code(codes.FailedPrecondition)
	CodePermissionDenied   = Code(codes.PermissionDenied)
	CodeUnavailable        = Code(codes.Unavailable)
	CodeInternal           = Code(codes.Internal)
	CodeUnauthenticated    = Code(codes.Unauthenticated)
)

var code2http = map[Code]int{
	CodeInvalidArgument:    http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeAlreadyExists:      http.StatusConflict,
	CodeFailedPrecondition: http.StatusBadRequest,
	CodePermissionDenied:   http.StatusForbidden,
	CodeUnavailable:        http.StatusServiceUnavailable,
	CodeInternal:           http.StatusInternalServerError,
	CodeUnauthenticated:    http.StatusUnauthorized,
}

// Reason narrows a Code down to a domain condition callers can branch on.
type Reason string

const (
	ReasonInvalidSelector     Reason = "INVALID_SELECTOR"
	ReasonIncompleteAttempt   Reason = "INCOMPLETE_ATTEMPT"
	ReasonAlreadyCompleted    Reason = "ALREADY_COMPLETED"
	ReasonFetchFailure        Reason = "FETCH_FAILURE"
	ReasonNotYetAvailable     Reason = "NOT_YET_AVAILABLE"
	ReasonNotCompleted        Reason = "NOT_COMPLETED"
	ReasonForbidden           Reason = "FORBIDDEN"
	ReasonDuplicateAssignment Reason = "DUPLICATE_ASSIGNMENT"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Reason  Reason `json:"reason,omitempty"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: codes.Code(code).String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
	if e.Reason != "" {
		s += fmt.Sprintf(", reason: %s", e.Reason)
	}
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) GRPCStatus() *status.Status {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return status.New(codes.Code(e.Code), msg)
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}

	return http.StatusInternalServerError
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

// HasReason reports whether any *Error in err's chain carries the reason.
func HasReason(err error, r Reason) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Reason == r {
			return true
		}
		err = e.err
	}
	return false
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}

func WithReason(r Reason) Option {
	return optionFunc(func(e *Error) {
		e.Reason = r
	})
}

func InvalidSelector(format string, args ...any) *Error {
	return New(CodeInvalidArgument, WithReason(ReasonInvalidSelector), WithMessagef(format, args...))
}

func IncompleteAttempt(unanswered int) *Error {
	return New(CodeFailedPrecondition, WithReason(ReasonIncompleteAttempt),
		WithMessagef("%d question(s) still unanswered", unanswered))
}

func AlreadyCompleted(assignmentID string) *Error {
	return New(CodeAlreadyExists, WithReason(ReasonAlreadyCompleted),
		WithMessagef("assignment already completed: %s", assignmentID))
}

// FetchFailure marks a failed quiz or assignment lookup. A nil cause means the record does not exist.
func FetchFailure(what, id string, cause error) *Error {
	if cause == nil {
		return New(CodeNotFound, WithReason(ReasonFetchFailure), WithMessagef("%s not found: %s", what, id))
	}
	return New(CodeUnavailable, WithReason(ReasonFetchFailure), WithMessagef("load %s %s failed", what, id), WithCause(cause))
}

func Forbidden(format string, args ...any) *Error {
	return New(CodePermissionDenied, WithReason(ReasonForbidden), WithMessagef(format, args...))
}
