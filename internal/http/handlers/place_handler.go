// README: Place suggestion endpoint backing the pickup/destination pickers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusride/internal/maps"
)

// PlaceSuggester resolves a partial query to pickup candidates.
type PlaceSuggester interface {
	Suggest(ctx context.Context, query, campus string) ([]maps.Place, error)
}

type PlaceHandler struct {
	places PlaceSuggester
}

func NewPlaceHandler(places PlaceSuggester) *PlaceHandler {
	return &PlaceHandler{places: places}
}

func (h *PlaceHandler) Suggest(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		writeError(c, http.StatusBadRequest, "missing query")
		return
	}
	results, err := h.places.Suggest(c.Request.Context(), query, c.Query("campus"))
	if err != nil {
		writeError(c, http.StatusBadGateway, "suggestion lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": results})
}
