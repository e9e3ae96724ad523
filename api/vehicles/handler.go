// Package vehicles serves the fleet directory and candidate ranking.
package vehicles

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/taxi/core/dispatch"
	"github.com/kilianp07/taxi/core/fleet"
	"github.com/kilianp07/taxi/core/model"
)

// Directory is the read side of the fleet directory.
type Directory interface {
	Vehicles(f fleet.Filter) []model.Vehicle
	Vehicle(id int) (model.Vehicle, bool)
	DriverFor(vehicleID int) (model.Driver, bool)
}

// Ranker ranks free vehicles around a pickup.
type Ranker interface {
	FindCandidates(pickup *model.Address, max int) []dispatch.Candidate
}

// VehicleView is a vehicle with its paired driver.
type VehicleView struct {
	model.Vehicle
	Driver *model.Driver `json:"driver,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves /api/vehicles and /api/candidates.
type Handler struct {
	dir    Directory
	ranker Ranker
}

// NewHandler creates the handler.
func NewHandler(dir Directory, ranker Ranker) *Handler {
	return &Handler{dir: dir, ranker: ranker}
}

// List returns the vehicles, optionally filtered by ?status=.
func (h *Handler) List(c *gin.Context) {
	var f fleet.Filter
	if s := c.Query("status"); s != "" {
		st, err := model.ParseStatus(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		f = fleet.StatusFilter(st)
	}
	vs := h.dir.Vehicles(f)
	out := make([]VehicleView, 0, len(vs))
	for _, v := range vs {
		out = append(out, h.view(v))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns one vehicle.
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid vehicle id"})
		return
	}
	v, ok := h.dir.Vehicle(id)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "vehicle not found"})
		return
	}
	c.JSON(http.StatusOK, h.view(v))
}

// Candidates ranks free vehicles for ?pickup=street,postalCode,city.
func (h *Handler) Candidates(c *gin.Context) {
	pickup, err := model.ParseAddress(c.Query("pickup"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	max := dispatch.DefaultMaxCandidates
	if s := c.Query("max"); s != "" {
		if max, err = strconv.Atoi(s); err != nil || max <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid max"})
			return
		}
		if max > dispatch.DefaultMaxCandidates {
			max = dispatch.DefaultMaxCandidates
		}
	}
	cands := h.ranker.FindCandidates(&pickup, max)
	if cands == nil {
		cands = []dispatch.Candidate{}
	}
	c.JSON(http.StatusOK, cands)
}

func (h *Handler) view(v model.Vehicle) VehicleView {
	out := VehicleView{Vehicle: v}
	if d, ok := h.dir.DriverFor(v.ID); ok {
		out.Driver = &d
	}
	return out
}
