package telemetry

import (
	"context"
	"log/slog"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"google.golang.org/grpc"
)

// GRPCServerInterceptor logs every unary call and then runs next in order.
func GRPCServerInterceptor(next ...grpc.UnaryServerInterceptor) grpc.ServerOption {
	opts := []logging.Option{
		logging.WithLogOnEvents(logging.StartCall, logging.FinishCall),
	}

	chain := []grpc.UnaryServerInterceptor{
		logging.UnaryServerInterceptor(grpcServerLogger(slog.Default()), opts...),
	}

	return grpc.ChainUnaryInterceptor(append(chain, next...)...)
}

func grpcServerLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}
