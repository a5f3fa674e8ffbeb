// Package api exposes the pipeline over HTTP: run triggering under the busy
// gate, live run status, and the analysis refresh endpoint.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nziran/gradpipe/internal/logger"
	"github.com/nziran/gradpipe/internal/pipeline"
)

// PipelineService is the slice of the coordinator the API needs.
type PipelineService interface {
	Start(ctx context.Context) (*pipeline.RunHandle, error)
	Busy() bool
	Snapshot() pipeline.RunSnapshot
}

// AnalysisRefresher recomputes the derived analysis from stored records.
type AnalysisRefresher interface {
	Refresh(ctx context.Context) (int64, error)
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(svc PipelineService, refresher AnalysisRefresher, log logger.Interface) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	h := &handler{svc: svc, refresher: refresher, log: log}

	router.GET("/health", h.health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/runs", h.startRun)
		v1.GET("/runs/current", h.currentRun)
		v1.POST("/analysis/refresh", h.refreshAnalysis)
	}

	return router
}

// requestLogger logs each request with method, path, status, and latency.
func requestLogger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String())
	}
}
