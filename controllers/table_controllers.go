package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/services"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

type TableController struct {
	Engine *services.Engine
}

func NewTableController(engine *services.Engine) *TableController {
	return &TableController{Engine: engine}
}

// CreateTable -> add a table to the floor plan (admin)
func (tc *TableController) CreateTable(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	var req struct {
		Number  int           `json:"number" binding:"required"`
		Seats   int           `json:"seats" binding:"required"`
		Section string        `json:"section"`
		Shape   string        `json:"shape"`
		Layout  models.Layout `json:"layout"`
		Notes   string        `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	table, err := tc.Engine.CreateTable(c.Request.Context(), rid, services.TableInput{
		Number:  req.Number,
		Seats:   req.Seats,
		Section: req.Section,
		Shape:   req.Shape,
		Layout:  req.Layout,
		Notes:   req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created", table)
}

// GetTableStatus -> every table of the restaurant, ?status= narrows
func (tc *TableController) GetTableStatus(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	tables, err := tc.Engine.GetTableStatus(c.Request.Context(), rid, c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// UpdateTableStatus -> staff transition (seat, checkout, cleaned, out of order)
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	var body struct {
		Status          string  `json:"status" binding:"required"`
		ReservationID   *uint   `json:"reservation_id"`
		ExpectedVersion *uint64 `json:"expected_version"`
		Notes           string  `json:"notes"`
		PartySize       int     `json:"party_size"`
		CustomerName    string  `json:"customer_name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	table, err := tc.Engine.UpdateTableStatus(c.Request.Context(), rid, tableID, services.StatusChange{
		Status:          body.Status,
		ReservationID:   body.ReservationID,
		ExpectedVersion: body.ExpectedVersion,
		ActorID:         actor(c),
		Notes:           body.Notes,
		PartySize:       body.PartySize,
		CustomerName:    body.CustomerName,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table status updated", table)
}

// TableHistory -> status log of one table, newest first
func (tc *TableController) TableHistory(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	tableID, ok := paramID(c, "table_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := tc.Engine.TableHistory(c.Request.Context(), rid, tableID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table history", logs)
}
