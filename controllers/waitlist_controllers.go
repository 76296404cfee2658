package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/services"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

type WaitlistController struct {
	Engine *services.Engine
}

func NewWaitlistController(engine *services.Engine) *WaitlistController {
	return &WaitlistController{Engine: engine}
}

// AddToWaitlist -> enqueue a party; the response carries its position
func (wc *WaitlistController) AddToWaitlist(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	var req struct {
		CustomerRef   string `json:"customer_ref"`
		CustomerName  string `json:"customer_name"`
		CustomerPhone string `json:"customer_phone"`
		PartySize     int    `json:"party_size" binding:"required"`
		WindowStart   string `json:"window_start"`
		WindowEnd     string `json:"window_end"`
		Priority      int    `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := wc.Engine.Enqueue(c.Request.Context(), services.WaitlistRequest{
		RestaurantID:  rid,
		CustomerRef:   req.CustomerRef,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PartySize:     req.PartySize,
		WindowStart:   req.WindowStart,
		WindowEnd:     req.WindowEnd,
		Priority:      req.Priority,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Added to waitlist", entry)
}

func (wc *WaitlistController) ListWaitlist(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	list, err := wc.Engine.ListWaitlist(c.Request.Context(), rid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waitlist", list)
}

func (wc *WaitlistController) load(c *gin.Context) (*models.WaitlistEntry, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	entry, err := wc.Engine.GetWaitlistEntry(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	if !inScope(c, entry.RestaurantID) {
		return nil, false
	}
	return entry, true
}

func (wc *WaitlistController) Position(c *gin.Context) {
	entry, ok := wc.load(c)
	if !ok {
		return
	}
	pos, err := wc.Engine.Position(c.Request.Context(), entry.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waitlist position", gin.H{"id": entry.ID, "position": pos})
}

// Promote -> seat a waiting party now, optionally at table_id
func (wc *WaitlistController) Promote(c *gin.Context) {
	entry, ok := wc.load(c)
	if !ok {
		return
	}
	var body struct {
		TableID *uint `json:"table_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := wc.Engine.Promote(c.Request.Context(), entry.ID, body.TableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Promoted from waitlist", res)
}

func (wc *WaitlistController) Remove(c *gin.Context) {
	entry, ok := wc.load(c)
	if !ok {
		return
	}
	out, err := wc.Engine.RemoveFromWaitlist(c.Request.Context(), entry.ID, c.Query("reason"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Removed from waitlist", out)
}
