package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

// WebSocketAuthMiddleware reads the token from the query string since
// browsers cannot set headers on an upgrade request.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil || claims.UserID == 0 {
			c.AbortWithStatus(401)
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}
