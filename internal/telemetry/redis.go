package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

var redisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "redis_errors_total",
	Help:      "Failed Redis commands and dials, by client.",
}, []string{"client"})

// MonitorRedis instruments r with OpenTelemetry and adds slog logging plus an
// error counter labelled with the client name ("cache", "pubsub").
func MonitorRedis(client string, r redis.UniversalClient) error {
	if err := redisotel.InstrumentTracing(r); err != nil {
		return fmt.Errorf("instrument tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(r); err != nil {
		return fmt.Errorf("instrument metrics: %w", err)
	}
	r.AddHook(redisHook{client: client})
	return nil
}

type redisHook struct {
	client string
}

func (h redisHook) DialHook(hook redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := hook(ctx, network, addr)
		if err != nil {
			redisErrors.WithLabelValues(h.client).Inc()
			slog.WarnContext(ctx, "redis: dial failed", "client", h.client, "addr", addr, "error", err)
			return nil, err
		}
		slog.DebugContext(ctx, "redis: dialed", "client", h.client, "addr", addr)
		return conn, nil
	}
}

func (h redisHook) ProcessHook(hook redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmd)
		h.observe(ctx, cmd.Name(), time.Since(start), err)
		return err
	}
}

func (h redisHook) ProcessPipelineHook(hook redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmds)
		h.observe(ctx, "pipeline", time.Since(start), err)
		return err
	}
}

// observe treats redis.Nil as a hit on a missing key, not a failure.
func (h redisHook) observe(ctx context.Context, cmd string, took time.Duration, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		redisErrors.WithLabelValues(h.client).Inc()
		slog.WarnContext(ctx, "redis: command failed", "client", h.client, "cmd", cmd, "took", took, "error", err)
		return
	}
	slog.DebugContext(ctx, "redis: command processed", "client", h.client, "cmd", cmd, "took", took)
}
