// Package trips serves the trip log.
package trips

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/taxi/core/triplog"
)

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler returns a handler exposing the trip log via GET /api/trips.
// Requests must include an Authorization header with "Bearer <token>" when
// token is non-empty. start and end are RFC3339 and bound the trip start.
func NewHandler(store triplog.Store, token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token != "" && c.GetHeader("Authorization") != "Bearer "+token {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		var q triplog.Query
		var err error
		if s := c.Query("start"); s != "" {
			if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
				c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid start"})
				return
			}
		}
		if s := c.Query("end"); s != "" {
			if q.End, err = time.Parse(time.RFC3339, s); err != nil {
				c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid end"})
				return
			}
		}
		if s := c.Query("vehicle_id"); s != "" {
			if q.VehicleID, err = strconv.Atoi(s); err != nil {
				c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid vehicle_id"})
				return
			}
		}
		if s := c.Query("driver_id"); s != "" {
			if q.DriverID, err = strconv.Atoi(s); err != nil {
				c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid driver_id"})
				return
			}
		}
		entries, err := store.Query(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		if entries == nil {
			entries = []triplog.Entry{}
		}
		c.JSON(http.StatusOK, entries)
	}
}
