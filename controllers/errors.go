package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/services"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

// Error codes returned in the response envelope.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeConflict          = "CONFLICT"
	CodeTableAlreadyHeld  = "TABLE_ALREADY_HELD"
	CodeNoTableAvailable  = "NO_TABLE_AVAILABLE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotFound          = "NOT_FOUND"
	CodeTransientIO       = "TRANSIENT_IO"
)

var (
	errPartySize    = errors.New("party_size must be an integer")
	errDuration     = errors.New("duration must be an integer")
	errRestaurantID = errors.New("restaurant_id must be a positive integer")
)

// ConflictResponse is the 409 body of a rejected booking.
type ConflictResponse struct {
	Conflicts       []services.Conflict `json:"conflicts"`
	SuggestedTimes  []string            `json:"suggestedTimes"`
	CanJoinWaitlist bool                `json:"canJoinWaitlist"`
}

func respondServiceError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	var cErr *services.ConflictError
	var tErr *services.TransientIOError

	switch {
	case errors.As(err, &vErr):
		utils.RespondErrorCode(c, http.StatusBadRequest, CodeValidation, err, gin.H{"field": vErr.Field})
	case errors.As(err, &cErr):
		conflicts := cErr.Conflicts
		if conflicts == nil {
			conflicts = []services.Conflict{}
		}
		suggested := cErr.SuggestedTimes
		if suggested == nil {
			suggested = []string{}
		}
		utils.RespondErrorCode(c, http.StatusConflict, CodeConflict, err, ConflictResponse{
			Conflicts:       conflicts,
			SuggestedTimes:  suggested,
			CanJoinWaitlist: true,
		})
	case errors.Is(err, services.ErrTableAlreadyHeld):
		utils.RespondErrorCode(c, http.StatusConflict, CodeTableAlreadyHeld, err, nil)
	case errors.Is(err, services.ErrNoTableAvailable):
		utils.RespondErrorCode(c, http.StatusConflict, CodeNoTableAvailable, err, gin.H{"canJoinWaitlist": true})
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondErrorCode(c, http.StatusConflict, CodeInvalidTransition, err, nil)
	case errors.Is(err, services.ErrNotFound):
		utils.RespondErrorCode(c, http.StatusNotFound, CodeNotFound, err, nil)
	case errors.As(err, &tErr):
		utils.Logger().WithError(err).Error("store unavailable")
		c.Header("Retry-After", "1")
		utils.RespondErrorCode(c, http.StatusServiceUnavailable, CodeTransientIO, errors.New("temporarily unavailable, retry"), nil)
	default:
		utils.Logger().WithError(err).Error("unhandled error")
		utils.RespondError(c, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func badRequest(c *gin.Context, err error) {
	utils.RespondErrorCode(c, http.StatusBadRequest, CodeValidation, err, nil)
}

// paramID parses a positive numeric path parameter. It writes the 400 itself.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, fmt.Errorf("%s must be a positive integer", name))
		return 0, false
	}
	return uint(id), true
}

// queryID parses an optional numeric query parameter; zero when absent.
func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(c, fmt.Errorf("%s must be a positive integer", name))
		return 0, false
	}
	return uint(id), true
}

func actor(c *gin.Context) uint {
	return c.GetUint("user_id")
}

// inScope hides records of restaurants other than the one the caller's token
// is bound to.
func inScope(c *gin.Context, restaurantID uint) bool {
	bound := c.GetUint("restaurant_id")
	if bound != 0 && bound != restaurantID {
		utils.RespondErrorCode(c, http.StatusNotFound, CodeNotFound, services.ErrNotFound, nil)
		return false
	}
	return true
}
