// Package auth turns bearer tokens into caller identities.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
)

type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses raw and returns the identity it carries. The subject is the
// user ID and the role claim must be one of the known roles.
func (v *Verifier) Verify(raw string) (domain.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Identity{}, unauthenticated("missing token", nil)
	}

	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return domain.Identity{}, unauthenticated("invalid token", err)
	}

	id := domain.Identity{UserID: strings.TrimSpace(claims.Subject), Role: claims.Role}
	if id.UserID == "" {
		return domain.Identity{}, unauthenticated("token has no subject", nil)
	}
	if !id.Role.Valid() {
		return domain.Identity{}, unauthenticated("token has an unknown role", nil)
	}

	return id, nil
}

// Issue mints a token for id that expires after ttl. A zero ttl never expires.
func Issue(secret string, id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id.UserID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(domain.Identity)
	return id, ok
}

func unauthenticated(msg string, cause error) *errors.Error {
	opts := []errors.Option{errors.WithMessagef("%s", msg)}
	if cause != nil {
		opts = append(opts, errors.WithCause(cause))
	}
	return errors.New(errors.CodeUnauthenticated, opts...)
}
