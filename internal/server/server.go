package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/victornm/quizassign/internal/access"
	"github.com/victornm/quizassign/internal/api"
	"github.com/victornm/quizassign/internal/assignment"
	"github.com/victornm/quizassign/internal/attempt"
	"github.com/victornm/quizassign/internal/auth"
	"github.com/victornm/quizassign/internal/event"
	"github.com/victornm/quizassign/internal/infra/memory"
	"github.com/victornm/quizassign/internal/infra/postgres"
	infraredis "github.com/victornm/quizassign/internal/infra/redis"
	"github.com/victornm/quizassign/internal/quiz"
	"github.com/victornm/quizassign/internal/review"
	"github.com/victornm/quizassign/internal/roster"
	"github.com/victornm/quizassign/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Auth struct {
		Secret string
	}

	Redis struct {
		Cache struct {
			Addrs  []string
			Pass   string
			Prefix string
			TTL    time.Duration
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres PostgresConfig

	Assignment struct {
		RejectDuplicates bool
		IssueConcurrency int
	}

	// Roster seeds the in-memory directory. It is ignored when Postgres is
	// configured.
	Roster struct {
		Teachers  []RosterEntry
		Guardians []RosterEntry
		Classes   []RosterClass
	}
}

type PostgresConfig struct {
	Addr    string
	User    string
	Pass    string
	Name    string
	SSLMode string
}

// DSN returns the connection URL, or "" when Postgres is not configured.
func (c PostgresConfig) DSN() string {
	if c.Addr == "" {
		return ""
	}

	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Pass),
		Host:     c.Addr,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

// RosterEntry links one teacher or guardian to students.
type RosterEntry struct {
	ID       string
	Students []string
}

// RosterClass is a named class owned by one teacher.
type RosterClass struct {
	Teacher  string
	ID       string
	Students []string
}

type directory interface {
	roster.Directory
	access.GuardianLinks
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			cache  redis.UniversalClient
			pubsub redis.UniversalClient
		}

		postgres *pgxpool.Pool
	}

	store struct {
		quizzes     quiz.Store
		assignments assignment.Repository
		directory   directory
	}

	service struct {
		quiz       *quiz.Service
		assignment *assignment.Service
		attempt    *attempt.Manager
		review     *review.Service
	}

	http *http.Server
	grpc *grpc.Server
}

// DefaultConfig returns the values used for every key the config file omits.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Redis.Cache.Prefix = "quizassign:cache"
	c.Redis.Cache.TTL = 10 * time.Minute
	c.Redis.Pubsub.Prefix = "quizassign:pubsub"
	c.Postgres.SSLMode = "disable"
	c.Assignment.IssueConcurrency = 16
	return c
}

func (c Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret not set")
	}
	if c.HTTP.Port <= 0 || c.GRPC.Port <= 0 {
		return fmt.Errorf("HTTP and gRPC ports must be set")
	}
	if c.HTTP.Port == c.GRPC.Port {
		return fmt.Errorf("HTTP and gRPC ports must differ")
	}
	if c.Redis.Cache.TTL < 0 {
		return fmt.Errorf("negative cache TTL")
	}
	return nil
}

func Init(c Config) (*Server, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initStore()
	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(name string, addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(name, r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	if cc := s.c.Redis.Cache; len(cc.Addrs) > 0 {
		s.infra.redis.cache, err = connect("cache", cc.Addrs, cc.Pass)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}

	if pc := s.c.Redis.Pubsub; len(pc.Addrs) > 0 {
		s.infra.redis.pubsub, err = connect("pubsub", pc.Addrs, pc.Pass)
		if err != nil {
			return fmt.Errorf("pubsub: %w", err)
		}
	}

	return nil
}

func (s *Server) initPostgres() error {
	dsn := s.c.Postgres.DSN()
	if dsn == "" {
		slog.Warn("server: postgres not configured, using in-memory stores")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initStore() {
	if db := s.infra.postgres; db != nil {
		s.store.quizzes = postgres.NewQuizStore(db)
		s.store.assignments = postgres.NewAssignmentRepository(db)
		s.store.directory = postgres.NewDirectory(db)
	} else {
		dir := memory.NewDirectory()
		for _, e := range s.c.Roster.Teachers {
			dir.AddStudents(e.ID, e.Students...)
		}
		for _, e := range s.c.Roster.Guardians {
			for _, student := range e.Students {
				dir.LinkGuardian(e.ID, student)
			}
		}
		for _, c := range s.c.Roster.Classes {
			dir.AddClass(c.Teacher, c.ID, c.Students...)
		}

		s.store.quizzes = memory.NewQuizStore()
		s.store.assignments = memory.NewAssignmentRepository()
		s.store.directory = dir
	}

	if s.infra.redis.cache != nil {
		s.store.quizzes = infraredis.NewQuizCache(infraredis.QuizCacheConfig{
			Client: s.infra.redis.cache,
			Store:  s.store.quizzes,
			Prefix: s.c.Redis.Cache.Prefix,
			TTL:    s.c.Redis.Cache.TTL,
		})
	}
}

func (s *Server) initService() {
	policy := access.NewPolicy(s.store.directory)

	s.service.quiz = quiz.NewService(quiz.Config{
		Store: s.store.quizzes,
	})

	s.service.assignment = assignment.NewService(assignment.Config{
		Repository:       s.store.assignments,
		Quizzes:          s.service.quiz,
		Resolver:         roster.NewResolver(s.store.directory),
		Access:           policy,
		EventBus:         s.eb,
		RejectDuplicates: s.c.Assignment.RejectDuplicates,
		IssueConcurrency: s.c.Assignment.IssueConcurrency,
	})

	s.service.attempt = attempt.NewManager(attempt.ManagerConfig{
		Assignments: s.service.assignment,
		Quizzes:     s.service.quiz,
		Submitter:   s.service.assignment,
	})

	s.service.review = review.NewService(review.Config{
		Assignments: s.service.assignment,
		Quizzes:     s.service.quiz,
		Access:      policy,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	e.GET("/healthz", s.healthz)
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.GinLogger())

	verifier := auth.NewVerifier(s.c.Auth.Secret)
	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor(verifier.UnaryServerInterceptor()))

	c := api.Config{
		GRPC:         s.grpc,
		HTTP:         e,
		EventBus:     s.eb,
		Verifier:     verifier,
		Quizzes:      s.service.quiz,
		Assignments:  s.service.assignment,
		Attempts:     s.service.attempt,
		Reviews:      s.service.review,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	}
	// A nil client must stay a nil interface, otherwise the API would publish to it.
	if s.infra.redis.pubsub != nil {
		c.Redis = s.infra.redis.pubsub
	}
	api.New(c)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			healthy = false
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}

	if db := s.infra.postgres; db != nil {
		check("postgres", db.Ping(ctx))
	}
	if r := s.infra.redis.cache; r != nil {
		check("redis_cache", r.Ping(ctx).Err())
	}
	if r := s.infra.redis.pubsub; r != nil {
		check("redis_pubsub", r.Ping(ctx).Err())
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"healthy": healthy, "checks": checks, "activeAttempts": s.service.attempt.Len()})
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

// Shutdown stops the listeners first, then ends every active attempt and
// drains the event bus so pending notifications are published before the
// clients are closed.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.service.attempt.Shutdown()
	s.eb.Stop()

	if db := s.infra.postgres; db != nil {
		db.Close()
	}
	for name, r := range map[string]redis.UniversalClient{"cache": s.infra.redis.cache, "pubsub": s.infra.redis.pubsub} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "client", name, "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
