package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/models"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/services"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

type ReservationController struct {
	Engine *services.Engine
}

func NewReservationController(engine *services.Engine) *ReservationController {
	return &ReservationController{Engine: engine}
}

type createReservationRequest struct {
	CustomerRef     string            `json:"customer_ref"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	Date            string            `json:"date" binding:"required"`
	Time            string            `json:"time" binding:"required"`
	PartySize       int               `json:"party_size" binding:"required"`
	DurationMinutes int               `json:"duration_minutes"`
	TableID         *uint             `json:"table_id"`
	SpecialRequests map[string]string `json:"special_requests"`
	Priority        int               `json:"priority"`
	Source          string            `json:"source"`
	DeferAssignment bool              `json:"defer_assignment"`
}

// CreateReservation -> book and assign a table; 409 carries conflicts and
// suggested times
func (rc *ReservationController) CreateReservation(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := rc.Engine.CreateReservation(c.Request.Context(), services.ReservationRequest{
		RestaurantID:    rid,
		CustomerRef:     req.CustomerRef,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Date:            req.Date,
		Time:            req.Time,
		PartySize:       req.PartySize,
		DurationMinutes: req.DurationMinutes,
		TableID:         req.TableID,
		SpecialRequests: req.SpecialRequests,
		Priority:        req.Priority,
		Source:          req.Source,
		DeferAssignment: req.DeferAssignment,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Reservation created", res)
}

// GetReservations -> list with ?date=&status=&table_id=&search=
func (rc *ReservationController) GetReservations(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	tableID, ok := queryID(c, "table_id")
	if !ok {
		return
	}
	list, err := rc.Engine.GetReservations(c.Request.Context(), rid, repository.ReservationFilter{
		Date:    c.Query("date"),
		Status:  c.Query("status"),
		TableID: tableID,
		Search:  c.Query("search"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if list == nil {
		list = []models.Reservation{}
	}
	utils.RespondJSON(c, http.StatusOK, "List of reservations", list)
}

// DetectConflicts -> dry run of a booking
func (rc *ReservationController) DetectConflicts(c *gin.Context) {
	rid, ok := paramID(c, "rid")
	if !ok {
		return
	}
	party, err := strconv.Atoi(c.Query("party_size"))
	if err != nil {
		badRequest(c, errPartySize)
		return
	}
	duration := 0
	if raw := c.Query("duration"); raw != "" {
		if duration, err = strconv.Atoi(raw); err != nil {
			badRequest(c, errDuration)
			return
		}
	}
	tableID, ok := queryID(c, "table_id")
	if !ok {
		return
	}
	exclude, ok := queryID(c, "exclude_id")
	if !ok {
		return
	}

	cand := services.Candidate{
		RestaurantID:         rid,
		Date:                 c.Query("date"),
		Time:                 c.Query("time"),
		PartySize:            party,
		DurationMinutes:      duration,
		ExcludeReservationID: exclude,
	}
	if tableID != 0 {
		cand.TableID = &tableID
	}
	report, err := rc.Engine.DetectConflicts(c.Request.Context(), cand)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Conflict report", report)
}

// load fetches the :id reservation and checks it belongs to the caller's
// restaurant.
func (rc *ReservationController) load(c *gin.Context) (*models.Reservation, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	res, err := rc.Engine.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	if !inScope(c, res.RestaurantID) {
		return nil, false
	}
	return res, true
}

func (rc *ReservationController) GetReservation(c *gin.Context) {
	res, ok := rc.load(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation detail", res)
}

// AssignTable -> (re)assign a table, optionally a specific one at a known
// version
func (rc *ReservationController) AssignTable(c *gin.Context) {
	res, ok := rc.load(c)
	if !ok {
		return
	}
	var body struct {
		TableID         *uint   `json:"table_id"`
		ExpectedVersion *uint64 `json:"expected_version"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}
	out, err := rc.Engine.AssignTable(c.Request.Context(), res.ID, body.TableID, body.ExpectedVersion)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table assigned", out)
}

// Reschedule -> partial update of date, time, party size, duration or table
func (rc *ReservationController) Reschedule(c *gin.Context) {
	res, ok := rc.load(c)
	if !ok {
		return
	}
	var body struct {
		Date            *string `json:"date"`
		Time            *string `json:"time"`
		PartySize       *int    `json:"party_size"`
		DurationMinutes *int    `json:"duration_minutes"`
		TableID         *uint   `json:"table_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	out, err := rc.Engine.Reschedule(c.Request.Context(), res.ID, services.ReservationChange{
		Date:            body.Date,
		Time:            body.Time,
		PartySize:       body.PartySize,
		DurationMinutes: body.DurationMinutes,
		TableID:         body.TableID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation rescheduled", out)
}

func (rc *ReservationController) Arrive(c *gin.Context) {
	res, ok := rc.load(c)
	if !ok {
		return
	}
	out, err := rc.Engine.Arrive(c.Request.Context(), res.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Guest arrived", out)
}

func (rc *ReservationController) Seat(c *gin.Context) {
	res, ok := rc.load(c)
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
	out, err := rc.Engine.Seat(c.Request.Context(), res.ID, body.TableID, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Guest seated", out)
}

func (rc *ReservationController) Complete(c *gin.Context) {
	res, ok := rc.load(c)
	if !ok {
		return
	}
	out, err := rc.Engine.Complete(c.Request.Context(), res.ID, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation completed", out)
}

func (rc *ReservationController) Cancel(c *gin.Context) {
	res, ok := rc.load(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}
	out, err := rc.Engine.Cancel(c.Request.Context(), res.ID, body.Reason, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation cancelled", out)
}
