package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryServerInterceptor authenticates calls from the authorization metadata.
func (v *Verifier) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var raw string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				raw = BearerToken(vals[0])
			}
		}

		id, err := v.Verify(raw)
		if err != nil {
			return nil, err
		}

		return handler(WithIdentity(ctx, id), req)
	}
}

// BearerCredentials attaches a token to every client call.
type BearerCredentials struct {
	Token string
}

func (b BearerCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.Token}, nil
}

func (BearerCredentials) RequireTransportSecurity() bool { return false }
