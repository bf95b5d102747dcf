package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/victornm/quizassign/internal/domain"
	"github.com/victornm/quizassign/internal/errors"
)

const ginIdentityKey = "auth.identity"

// Middleware authenticates the request from the Authorization header, or
// from the access_token query parameter for websocket upgrades.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = c.Query("access_token")
		}

		id, err := v.Verify(raw)
		if err != nil {
			e := errors.Convert(err)
			c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
			return
		}

		c.Set(ginIdentityKey, id)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// Identity returns the caller authenticated by Middleware.
func Identity(c *gin.Context) domain.Identity {
	id, _ := c.MustGet(ginIdentityKey).(domain.Identity)
	return id
}
