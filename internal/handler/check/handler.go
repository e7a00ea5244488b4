package check

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/TomasB/geoiplite/internal/data"
	"github.com/TomasB/geoiplite/internal/handler"
	"github.com/gin-gonic/gin"
)

// CheckRequest represents the JSON body for a country check.
type CheckRequest struct {
	IP               string   `json:"ip" binding:"required"`
	AllowedCountries []string `json:"allowed_countries" binding:"required,min=1"`
}

// CheckResponse represents the JSON response for a country check.
type CheckResponse struct {
	Allowed bool   `json:"allowed"`
	Country string `json:"country"`
	Error   string `json:"error"`
}

// Handler manages IP geolocation check endpoints.
type Handler struct {
	lookup data.CountryLookup
}

// NewHandler creates a new check handler with the given CountryLookup.
func NewHandler(lookup data.CountryLookup) *Handler {
	return &Handler{lookup: lookup}
}

// Check handles POST /api/v1/check. Country codes are compared without
// regard to case. An address outside every known block is denied.
func (h *Handler) Check(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, CheckResponse{
			Error: "invalid request: " + err.Error(),
		})
		return
	}

	slog.Debug("check request received", "ip", req.IP, "allowed_countries", req.AllowedCountries)

	country, err := h.lookup.LookupCountry(req.IP)
	if err != nil {
		status := handler.HTTPStatus(err)
		switch status {
		case http.StatusNotFound:
			c.JSON(http.StatusOK, CheckResponse{Allowed: false})
		case http.StatusBadRequest:
			c.JSON(status, CheckResponse{Error: "invalid IP address"})
		default:
			slog.Error("country lookup failed", "ip", req.IP, "error", err)
			c.JSON(status, CheckResponse{Error: "lookup failed"})
		}
		return
	}

	c.JSON(http.StatusOK, CheckResponse{
		Allowed: Allowed(country, req.AllowedCountries),
		Country: country,
	})
}

// Allowed reports whether country is in the allowed list, ignoring case.
func Allowed(country string, allowed []string) bool {
	if country == "" {
		return false
	}
	for _, ac := range allowed {
		if strings.EqualFold(ac, country) {
			return true
		}
	}
	return false
}
