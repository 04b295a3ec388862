package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clubhub/client/internal/devserver/repository"
	"clubhub/client/internal/models"
	"clubhub/client/internal/security"
)

const (
	CurrentUserKey  = "current_user"
	AccessClaimsKey = "access_claims"
)

// Auth accepts a bearer access token signed with secret and loads its
// account.
func Auth(secret string, users *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "message": err.Error()})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_not_found"})
			return
		}

		if !user.Verified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not_verified"})
			return
		}

		c.Set(AccessClaimsKey, *claims)
		c.Set(CurrentUserKey, user)

		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.Account, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return models.Account{}, false
	}
	user, ok := v.(models.Account)
	return user, ok
}
