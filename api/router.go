// Package api exposes the dispatch centre over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/taxi/api/dispatch"
	"github.com/kilianp07/taxi/api/trips"
	"github.com/kilianp07/taxi/api/vehicles"
	"github.com/kilianp07/taxi/core/fare"
	"github.com/kilianp07/taxi/core/logger"
	"github.com/kilianp07/taxi/core/triplog"
)

// Deps are the services behind the routes.
type Deps struct {
	Fleet  vehicles.Directory
	Ranker vehicles.Ranker
	Engine dispatch.Dispatcher
	Tariff fare.Tariff
	Trips  triplog.Store
	Token  string
	Logger logger.Logger
}

// NewRouter registers every route.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	vh := vehicles.NewHandler(d.Fleet, d.Ranker)
	r.GET("/api/vehicles", vh.List)
	r.GET("/api/vehicles/:id", vh.Get)
	r.GET("/api/candidates", vh.Candidates)

	dh := dispatch.NewHandler(d.Engine, d.Tariff)
	r.POST("/api/dispatch", dh.Dispatch)
	r.GET("/api/fare", dh.Fare)

	store := d.Trips
	if store == nil {
		store = triplog.NopStore{}
	}
	r.GET("/api/trips", trips.NewHandler(store, d.Token))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}
		log.Debugw("http request", map[string]any{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}
