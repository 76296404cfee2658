package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/services"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

type NotificationController struct {
	Engine *services.Engine
}

func NewNotificationController(engine *services.Engine) *NotificationController {
	return &NotificationController{Engine: engine}
}

// GetAllNotifications -> staff alerts, ?unread=true for unread only
func (nc *NotificationController) GetAllNotifications(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	list, err := nc.Engine.ListNotifications(c.Request.Context(), rid, c.Query("unread") == "true")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All notifications", list)
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := nc.Engine.MarkNotificationRead(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification marked as read", gin.H{"id": id})
}
