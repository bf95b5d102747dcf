package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/victornm/quizassign/internal/assignment"
	"github.com/victornm/quizassign/internal/attempt"
	"github.com/victornm/quizassign/internal/auth"
	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/event"
	"github.com/victornm/quizassign/internal/quiz"
	"github.com/victornm/quizassign/internal/review"
)

type Config struct {
	GRPC         *grpc.Server
	HTTP         gin.IRouter
	EventBus     *event.Bus
	Verifier     *auth.Verifier
	Quizzes      *quiz.Service
	Assignments  *assignment.Service
	Attempts     *attempt.Manager
	Reviews      *review.Service
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	quizzes     *quiz.Service
	assignments *assignment.Service
	attempts    *attempt.Manager
	reviews     *review.Service

	upgrader websocket.Upgrader

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		quizzes:     c.Quizzes,
		assignments: c.Assignments,
		attempts:    c.Attempts,
		reviews:     c.Reviews,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// gRPC APIs
	if c.GRPC != nil {
		RegisterAssignmentServiceServer(c.GRPC, a)
	}

	// REST APIs
	if c.HTTP != nil {
		a.registerRoutes(c.HTTP.Group("/v1", c.Verifier.Middleware()))
	}

	// Register event handlers
	if c.Redis != nil {
		c.EventBus.Subscribe(domain.EventNameAssignmentCompleted, func(ctx context.Context, e event.Event) error {
			return a.PublishAssignmentCompleted(ctx, e.(domain.EventAssignmentCompleted))
		})
		c.EventBus.Subscribe(domain.EventNameSubmissionFailed, func(ctx context.Context, e event.Event) error {
			return a.PublishSubmissionFailed(ctx, e.(domain.EventSubmissionFailed))
		})
	}

	return a
}

func (a *API) registerRoutes(r gin.IRouter) {
	r.POST("/quizzes", a.createQuiz)
	r.GET("/quizzes/:id", a.getQuiz)

	r.POST("/assignments", a.issueAssignments)
	r.GET("/assignments", a.listAssignments)
	r.GET("/assignments/:id", a.getAssignment)
	r.GET("/assignments/:id/review", a.getReview)

	r.POST("/attempts", a.openAttempt)
	r.GET("/attempts/:id", a.getAttempt)
	r.PUT("/attempts/:id/answers", a.answer)
	r.POST("/attempts/:id/next", a.next)
	r.POST("/attempts/:id/prev", a.prev)
	r.POST("/attempts/:id/submit", a.submit)
	r.DELETE("/attempts/:id", a.closeAttempt)
	r.GET("/attempts/:id/live", a.live)
}
