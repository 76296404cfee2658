package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/services"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

type AdminController struct {
	Engine *services.Engine
}

func NewAdminController(engine *services.Engine) *AdminController {
	return &AdminController{Engine: engine}
}

// GetReservationAnalytics -> booking statistics for ?from=&to= (dates,
// default today)
func (ac *AdminController) GetReservationAnalytics(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	stats, err := ac.Engine.GetReservationAnalytics(c.Request.Context(), rid, c.Query("from"), c.Query("to"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation analytics", stats)
}
