package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricerank/api/handler"
	"github.com/use-agent/pricerank/api/middleware"
	"github.com/use-agent/pricerank/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger
//
// GET /scrape is kept as an alias of the rankings route for existing clients.
func NewRouter(runner handler.Runner, engineName string, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(gin.Logger())

	rankings := handler.Rankings(runner)

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(engineName, startTime))
	v1.GET("/rankings", rankings)

	r.GET("/scrape", rankings)

	return r
}
