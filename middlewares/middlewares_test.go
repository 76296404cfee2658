package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, role string, restaurantID uint) string {
	t.Helper()
	tok, err := utils.GenerateToken(7, role, restaurantID, time.Hour)
	require.NoError(t, err)
	return tok
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/restaurants/:rid/tables", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c)})
	})
	return r
}

func do(r http.Handler, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/restaurants/1/tables", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/restaurants/1/tables", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/restaurants/1/tables", "Bearer garbage").Code)

	w := do(r, "/restaurants/1/tables", "Bearer "+token(t, RoleHost, 0))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":7}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newRouter(AuthMiddleware(), RequireRole(RoleHost))

	assert.Equal(t, http.StatusOK, do(r, "/restaurants/1/tables", "Bearer "+token(t, RoleHost, 0)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/restaurants/1/tables", "Bearer "+token(t, RoleAdmin, 0)).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/restaurants/1/tables", "Bearer "+token(t, "guest", 0)).Code)
}

func TestRestaurantScope(t *testing.T) {
	r := newRouter(AuthMiddleware(), RestaurantScope("rid"))

	assert.Equal(t, http.StatusOK, do(r, "/restaurants/1/tables", "Bearer "+token(t, RoleHost, 1)).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/restaurants/2/tables", "Bearer "+token(t, RoleHost, 1)).Code)
	assert.Equal(t, http.StatusOK, do(r, "/restaurants/2/tables", "Bearer "+token(t, RoleAdmin, 0)).Code)
}

func TestWebSocketAuthReadsQueryToken(t *testing.T) {
	r := newRouter(WebSocketAuthMiddleware())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/restaurants/1/tables", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/restaurants/1/tables?token="+token(t, RoleStaff, 1), "").Code)
}

func TestRateLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := newRouter(rl.RateLimit())

	assert.Equal(t, http.StatusOK, do(r, "/restaurants/1/tables", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/restaurants/1/tables", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "/restaurants/1/tables", "").Code)
}

func TestSecurityHeaders(t *testing.T) {
	w := do(newRouter(SecurityHeaders()), "/restaurants/1/tables", "")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
