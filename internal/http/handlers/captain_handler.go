// README: Captain-facing endpoints: browse, accept, start, end, availability.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/captain"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

type CaptainHandler struct {
	rides    *ride.Service
	captains *captain.Service
}

func NewCaptainHandler(rides *ride.Service, captains *captain.Service) *CaptainHandler {
	return &CaptainHandler{rides: rides, captains: captains}
}

func (h *CaptainHandler) ListAvailable(c *gin.Context) {
	rides, err := h.rides.ListAvailable(c.Request.Context())
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": rides})
}

func (h *CaptainHandler) Accept(c *gin.Context) {
	r, err := h.rides.Accept(c.Request.Context(), ride.AcceptCommand{
		RideID:    types.ID(c.Param("id")),
		CaptainID: middleware.Caller(c).Subject,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type startRideReq struct {
	OTP string `json:"otp"`
}

func (h *CaptainHandler) Start(c *gin.Context) {
	var req startRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.rides.Start(c.Request.Context(), ride.StartCommand{
		RideID:    types.ID(c.Param("id")),
		CaptainID: middleware.Caller(c).Subject,
		OTP:       req.OTP,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *CaptainHandler) End(c *gin.Context) {
	r, err := h.rides.End(c.Request.Context(), ride.EndCommand{
		RideID:    types.ID(c.Param("id")),
		CaptainID: middleware.Caller(c).Subject,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type availabilityReq struct {
	Status string `json:"status"`
}

func (h *CaptainHandler) SetAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := middleware.Caller(c).Subject
	if err := h.captains.UpdateStatus(c.Request.Context(), id, captain.Status(req.Status)); err != nil {
		switch err {
		case captain.ErrBadStatus:
			writeError(c, http.StatusBadRequest, err.Error())
		case captain.ErrNotFound:
			writeError(c, http.StatusNotFound, err.Error())
		default:
			writeError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation is the HTTP fallback for captains without a live
// channel session.
func (h *CaptainHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := middleware.Caller(c).Subject
	if err := h.captains.UpdateLocation(c.Request.Context(), id, types.Point{Lat: req.Lat, Lng: req.Lng}); err != nil {
		if err == captain.ErrNotFound {
			writeError(c, http.StatusNotFound, err.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.Status(http.StatusNoContent)
}
