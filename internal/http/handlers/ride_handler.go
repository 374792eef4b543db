// README: Rider-facing ride endpoints: quote, create, cancel, schedule, listings.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/pricing"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

type RideHandler struct {
	rides *ride.Service
}

func NewRideHandler(svc *ride.Service) *RideHandler {
	return &RideHandler{rides: svc}
}

type createRideReq struct {
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	VehicleClass string `json:"vehicle_class"`
}

func (h *RideHandler) Create(c *gin.Context) {
	var req createRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.rides.Create(c.Request.Context(), ride.CreateCommand{
		RiderID:      middleware.Caller(c).Subject,
		Pickup:       req.Pickup,
		Destination:  req.Destination,
		VehicleClass: pricing.Class(req.VehicleClass),
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *RideHandler) Quote(c *gin.Context) {
	pickup := c.Query("pickup")
	destination := c.Query("destination")
	quote, route, err := h.rides.QuoteFare(c.Request.Context(), pickup, destination)
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"distance_km":  route.DistanceKm,
		"duration_min": route.DurationMin,
		"fares":        quote.Fares,
		"breakdown":    quote.Breakdown,
	})
}

func (h *RideHandler) Cancel(c *gin.Context) {
	r, err := h.rides.Cancel(c.Request.Context(), ride.CancelCommand{
		RideID:  types.ID(c.Param("id")),
		RiderID: middleware.Caller(c).Subject,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *RideHandler) Get(c *gin.Context) {
	r, err := h.rides.GetAuthorized(c.Request.Context(), types.ID(c.Param("id")), middleware.Caller(c).Subject)
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *RideHandler) ListMine(c *gin.Context) {
	rides, err := h.rides.ListForRider(c.Request.Context(), middleware.Caller(c).Subject)
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": rides})
}

type scheduleReq struct {
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	VehicleClass string `json:"vehicle_class"`
	Period       string `json:"period"`
	StartDate    string `json:"start_date"` // YYYY-MM-DD
}

func (h *RideHandler) Schedule(c *gin.Context) {
	var req scheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid start_date")
		return
	}
	r, err := h.rides.Schedule(c.Request.Context(), ride.ScheduleCommand{
		RiderID:      middleware.Caller(c).Subject,
		Pickup:       req.Pickup,
		Destination:  req.Destination,
		VehicleClass: pricing.Class(req.VehicleClass),
		Period:       pricing.Period(req.Period),
		StartDate:    start,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

type editScheduleReq struct {
	Period    string `json:"period"`
	StartDate string `json:"start_date,omitempty"`
}

func (h *RideHandler) EditSchedule(c *gin.Context) {
	var req editScheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := ride.EditScheduleCommand{
		RideID:  types.ID(c.Param("id")),
		RiderID: middleware.Caller(c).Subject,
		Period:  pricing.Period(req.Period),
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid start_date")
			return
		}
		cmd.StartDate = start
	}
	r, err := h.rides.EditSchedule(c.Request.Context(), cmd)
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *RideHandler) ListScheduled(c *gin.Context) {
	rides, err := h.rides.ListScheduledForRider(c.Request.Context(), middleware.Caller(c).Subject)
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": rides})
}
