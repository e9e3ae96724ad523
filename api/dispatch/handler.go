// Package dispatch serves order dispatch and fare quotes.
package dispatch

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	coredispatch "github.com/kilianp07/taxi/core/dispatch"
	"github.com/kilianp07/taxi/core/fare"
	"github.com/kilianp07/taxi/core/model"
)

// Dispatcher assigns orders.
type Dispatcher interface {
	Dispatch(ctx context.Context, pickup, destination *model.Address) (coredispatch.Assignment, error)
}

// Request is the POST /api/dispatch body. Addresses use the
// street,postalCode,city text form.
type Request struct {
	Pickup      string `json:"pickup"`
	Destination string `json:"destination"`
}

// Quote is the GET /api/fare answer.
type Quote struct {
	DistanceKm float64 `json:"distance_km"`
	Fare       float64 `json:"fare_eur"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves /api/dispatch and /api/fare.
type Handler struct {
	engine Dispatcher
	tariff fare.Tariff
}

// NewHandler creates the handler.
func NewHandler(engine Dispatcher, tariff fare.Tariff) *Handler {
	return &Handler{engine: engine, tariff: tariff}
}

// Dispatch assigns the nearest accepting vehicle.
func (h *Handler) Dispatch(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	pickup, err := model.ParseAddress(req.Pickup)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	dest, err := model.ParseAddress(req.Destination)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	asn, err := h.engine.Dispatch(c.Request.Context(), &pickup, &dest)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, asn)
	case errors.Is(err, coredispatch.ErrNoVehicle):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// Fare quotes the fare for ?km=.
func (h *Handler) Fare(c *gin.Context) {
	km, err := strconv.ParseFloat(c.Query("km"), 64)
	if err != nil || km < 0 || math.IsNaN(km) || math.IsInf(km, 0) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "km must be a non negative number"})
		return
	}
	c.JSON(http.StatusOK, Quote{DistanceKm: km, Fare: h.tariff.Price(km)})
}
