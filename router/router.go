package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/config"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/controllers"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/hub"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/middlewares"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/services"
)

func SetupRouter(engine *services.Engine, h *hub.Hub, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.AllowedOrigins))
	r.Use(middlewares.LoggerMiddleware())

	tableCtrl := controllers.NewTableController(engine)
	reservationCtrl := controllers.NewReservationController(engine)
	waitlistCtrl := controllers.NewWaitlistController(engine)
	notificationCtrl := controllers.NewNotificationController(engine)
	adminCtrl := controllers.NewAdminController(engine)
	wsCtrl := controllers.NewWSController(h, engine, cfg.AllowedOrigins)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Event stream; browsers pass the token as a query parameter.
	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware())
	{
		ws.GET("", wsCtrl.Stream)
	}

	limiter := middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	api := r.Group("/api/v1")
	api.Use(limiter.RateLimit())
	api.Use(middlewares.AuthMiddleware())
	api.Use(middlewares.RequireRole(middlewares.RoleHost, middlewares.RoleStaff))

	// ----------------------------------------------------------------
	//                      RESTAURANT SCOPED
	// ----------------------------------------------------------------
	rest := api.Group("/restaurants/:rid")
	rest.Use(middlewares.RestaurantScope("rid"))
	{
		// TABLES
		rest.GET("/tables", tableCtrl.GetTableStatus)
		rest.POST("/tables", middlewares.RequireRole(middlewares.RoleAdmin), tableCtrl.CreateTable)
		rest.PATCH("/tables/:table_id/status", tableCtrl.UpdateTableStatus)
		rest.GET("/tables/:table_id/history", tableCtrl.TableHistory)

		// RESERVATIONS
		rest.GET("/reservations", reservationCtrl.GetReservations)
		rest.GET("/reservations/conflicts", reservationCtrl.DetectConflicts)
		rest.POST("/reservations", reservationCtrl.CreateReservation)

		// WAITLIST
		rest.GET("/waitlist", waitlistCtrl.ListWaitlist)
		rest.POST("/waitlist", waitlistCtrl.AddToWaitlist)

		// ANALYTICS & ALERTS
		rest.GET("/analytics/reservations", adminCtrl.GetReservationAnalytics)
		rest.GET("/notifications", notificationCtrl.GetAllNotifications)
	}

	// ----------------------------------------------------------------
	//                      BY ID
	// ----------------------------------------------------------------
	api.GET("/reservations/:id", reservationCtrl.GetReservation)
	api.PATCH("/reservations/:id", reservationCtrl.Reschedule)
	api.POST("/reservations/:id/assign", reservationCtrl.AssignTable)
	api.POST("/reservations/:id/arrive", reservationCtrl.Arrive)
	api.POST("/reservations/:id/seat", reservationCtrl.Seat)
	api.POST("/reservations/:id/complete", reservationCtrl.Complete)
	api.POST("/reservations/:id/cancel", reservationCtrl.Cancel)

	api.GET("/waitlist/:id/position", waitlistCtrl.Position)
	api.POST("/waitlist/:id/promote", waitlistCtrl.Promote)
	api.DELETE("/waitlist/:id", waitlistCtrl.Remove)

	api.POST("/notifications/:id/read", notificationCtrl.MarkRead)

	return r
}
