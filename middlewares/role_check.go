package middlewares

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

const (
	RoleAdmin = "admin"
	RoleHost  = "host"
	RoleStaff = "staff"
)

// RequireRole lets the request through when the caller has one of roles.
// Admin passes every check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(CtxRole)
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}
		role, _ := userRole.(string)
		if role == RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		utils.RespondError(c, http.StatusForbidden, fmt.Errorf("%v access required", roles))
		c.Abort()
	}
}

// RestaurantScope rejects requests for a restaurant other than the one the
// token is bound to. Tokens without a restaurant are not scoped.
func RestaurantScope(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bound := c.GetUint(CtxRestaurantID)
		if bound == 0 {
			c.Next()
			return
		}
		raw := c.Param(param)
		if raw == "" {
			raw = c.Query(param)
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.Next()
			return
		}
		if uint(id) != bound {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("restaurant %d is outside this token's scope", id))
			c.Abort()
			return
		}
		c.Next()
	}
}
