package lookup

import (
	"log/slog"
	"net/http"

	"github.com/TomasB/geoiplite/internal/data"
	"github.com/TomasB/geoiplite/internal/handler"
	"github.com/gin-gonic/gin"
)

// LookupResponse represents the JSON response for a single address lookup.
type LookupResponse struct {
	IP      string `json:"ip"`
	Country string `json:"country,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler serves country lookups.
type Handler struct {
	lookup data.CountryLookup
}

// NewHandler creates a new lookup handler with the given CountryLookup.
func NewHandler(lookup data.CountryLookup) *Handler {
	return &Handler{lookup: lookup}
}

// Lookup handles GET /api/v1/lookup/:ip
func (h *Handler) Lookup(c *gin.Context) {
	ip := c.Param("ip")

	country, err := h.lookup.LookupCountry(ip)
	if err != nil {
		status := handler.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("country lookup failed", "ip", ip, "error", err)
		}
		c.JSON(status, LookupResponse{IP: ip, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, LookupResponse{IP: ip, Country: country})
}
