package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/victornm/quizassign/internal/auth"
	"github.com/victornm/quizassign/internal/domain"
)

const secret = "s3cret"

var student = domain.Identity{UserID: "s1", Role: domain.RoleStudent}

func TestVerifier_Verify(t *testing.T) {
	v := auth.NewVerifier(secret)

	tests := map[string]struct {
		token func(t *testing.T) string
		want  domain.Identity
		ok    bool
	}{
		"valid": {
			token: func(t *testing.T) string { return issue(t, secret, student, time.Hour) },
			want:  student,
			ok:    true,
		},
		"no expiry": {
			token: func(t *testing.T) string { return issue(t, secret, student, 0) },
			want:  student,
			ok:    true,
		},
		"wrong secret": {
			token: func(t *testing.T) string { return issue(t, "other", student, time.Hour) },
		},
		"expired": {
			token: func(t *testing.T) string { return issue(t, secret, student, -time.Minute) },
		},
		"unknown role": {
			token: func(t *testing.T) string {
				return issue(t, secret, domain.Identity{UserID: "x", Role: "admin"}, time.Hour)
			},
		},
		"missing subject": {
			token: func(t *testing.T) string {
				return issue(t, secret, domain.Identity{Role: domain.RoleTeacher}, time.Hour)
			},
		},
		"other algorithm": {
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
					Role:             domain.RoleStudent,
					RegisteredClaims: jwt.RegisteredClaims{Subject: "s1"},
				})
				s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return s
			},
		},
		"empty": {
			token: func(*testing.T) string { return "" },
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := v.Verify(tt.token(t))
			if !tt.ok {
				require.Error(t, err)
				assert.Equal(t, codes.Unauthenticated, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", auth.BearerToken("Bearer abc"))
	assert.Equal(t, "abc", auth.BearerToken("bearer  abc "))
	assert.Equal(t, "", auth.BearerToken("Basic abc"))
	assert.Equal(t, "", auth.BearerToken(""))
}

func TestVerifier_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.GET("/me", auth.NewVerifier(secret).Middleware(), func(c *gin.Context) {
		ctxID, ok := auth.FromContext(c.Request.Context())
		require.True(t, ok)
		require.Equal(t, auth.Identity(c), ctxID)
		c.JSON(http.StatusOK, auth.Identity(c))
	})

	token := issue(t, secret, student, time.Hour)

	tests := map[string]struct {
		arrange func(r *http.Request)
		code    int
	}{
		"header":       {arrange: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, code: http.StatusOK},
		"query":        {arrange: func(r *http.Request) { r.URL.RawQuery = "access_token=" + token }, code: http.StatusOK},
		"missing":      {arrange: func(*http.Request) {}, code: http.StatusUnauthorized},
		"invalid":      {arrange: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, code: http.StatusUnauthorized},
		"basic scheme": {arrange: func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, code: http.StatusUnauthorized},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.arrange(r)
			w := httptest.NewRecorder()

			e.ServeHTTP(w, r)

			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.JSONEq(t, `{"UserID":"s1","Role":"student"}`, w.Body.String())
			}
		})
	}
}

func TestVerifier_UnaryServerInterceptor(t *testing.T) {
	intercept := auth.NewVerifier(secret).UnaryServerInterceptor()
	handler := func(ctx context.Context, _ any) (any, error) {
		id, _ := auth.FromContext(ctx)
		return id, nil
	}

	ctx := metadata.NewIncomingContext(context.Background(),
		metadata.Pairs("authorization", "Bearer "+issue(t, secret, student, time.Hour)))
	got, err := intercept(ctx, nil, &grpc.UnaryServerInfo{}, handler)
	require.NoError(t, err)
	assert.Equal(t, student, got)

	_, err = intercept(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func issue(t *testing.T, key string, id domain.Identity, ttl time.Duration) string {
	t.Helper()

	if ttl < 0 {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
			Role: id.Role,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   id.UserID,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			},
		})
		s, err := tok.SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}

	s, err := auth.Issue(key, id, ttl)
	require.NoError(t, err)
	return s
}
