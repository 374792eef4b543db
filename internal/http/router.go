// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusride/internal/auth"
	"campusride/internal/http/handlers"
	"campusride/internal/http/middleware"
	"campusride/internal/modules/captain"
	"campusride/internal/modules/presence"
	"campusride/internal/modules/ride"
)

type RouterDeps struct {
	Rides    *ride.Service
	Captains *captain.Service
	Presence *presence.Service
	Places   handlers.PlaceSuggester
	Verifier middleware.TokenVerifier
	Log      *slog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", gin.WrapF(deps.Presence.ServeWS))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	rideHandler := handlers.NewRideHandler(deps.Rides)
	rider := api.Group("", middleware.RequireRole(auth.RoleRider))
	rider.POST("/rides", rideHandler.Create)
	rider.POST("/rides/:id/cancel", rideHandler.Cancel)
	rider.GET("/rides/mine", rideHandler.ListMine)
	rider.POST("/rides/schedule", rideHandler.Schedule)
	rider.PUT("/rides/schedule/:id", rideHandler.EditSchedule)
	rider.GET("/rides/scheduled", rideHandler.ListScheduled)

	captainHandler := handlers.NewCaptainHandler(deps.Rides, deps.Captains)
	captains := api.Group("/captain", middleware.RequireRole(auth.RoleCaptain))
	captains.GET("/rides", captainHandler.ListAvailable)
	captains.POST("/rides/:id/accept", captainHandler.Accept)
	captains.POST("/rides/:id/start", captainHandler.Start)
	captains.POST("/rides/:id/end", captainHandler.End)
	captains.PUT("/availability", captainHandler.SetAvailability)
	captains.PUT("/location", captainHandler.UpdateLocation)

	// Shared: both parties may inspect a ride they belong to; the fare
	// quote needs no booking yet.
	api.GET("/rides/fare", rideHandler.Quote)
	api.GET("/rides/:id", rideHandler.Get)

	if deps.Places != nil {
		placeHandler := handlers.NewPlaceHandler(deps.Places)
		api.GET("/places/suggest", placeHandler.Suggest)
	}

	return r
}
