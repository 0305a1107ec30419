package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"codereview/internal/models/db_models"
	"codereview/pkg/utils"
)

const (
	ContextUserID       = "user_id"
	ContextEmail        = "email"
	ContextSessionToken = "session_token"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*db_models.User, error)
}

// SessionAuthMiddleware resolves the bearer session token to its user and
// aborts with 401 when it is missing, unknown or expired.
func SessionAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, "Authorization header missing or invalid")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			utils.HandleServiceError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextSessionToken, token)
		c.Next()
	}
}
