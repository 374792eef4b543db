// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusride/internal/maps"
	"campusride/internal/modules/pricing"
	"campusride/internal/modules/ride"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

func writeRideError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ride.ErrBadRequest),
		errors.Is(err, ride.ErrOtpMissing),
		errors.Is(err, pricing.ErrInvalidVehicleClass),
		errors.Is(err, pricing.ErrInvalidPeriod):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ride.ErrOtpMismatch):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ride.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ride.ErrRideTaken),
		errors.Is(err, ride.ErrInvalidState),
		errors.Is(err, ride.ErrAlreadyOngoing),
		errors.Is(err, ride.ErrNotOngoing),
		errors.Is(err, ride.ErrCannotCancel),
		errors.Is(err, ride.ErrNotScheduled):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, maps.ErrRouteUnavailable):
		writeError(c, http.StatusBadGateway, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
