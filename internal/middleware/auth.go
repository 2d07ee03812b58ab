package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"relaychat/pkg/auth"
)

const UserIDKey = "userID"

// AuthMiddleware validates the bearer token (cookie or Authorization
// header) against the session store on every request. Nothing is cached:
// an expired or revoked session fails immediately. On failure the
// session cookie is cleared so the client drops its stale token.
func AuthMiddleware(sessions *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractToken(c.Request)
		if token == "" {
			abortUnauthenticated(c, "not authenticated")
			return
		}

		userID, err := sessions.Validate(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredSession):
				abortUnauthenticated(c, "session expired")
			case errors.Is(err, auth.ErrInvalidSession):
				abortUnauthenticated(c, "not authenticated")
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
			}
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	clearSessionCookie(c)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}

func clearSessionCookie(c *gin.Context) {
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", false, true)
}
