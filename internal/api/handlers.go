package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nziran/gradpipe/internal/domain"
	"github.com/nziran/gradpipe/internal/logger"
)

type handler struct {
	svc       PipelineService
	refresher AnalysisRefresher
	log       logger.Interface
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// startRun triggers an ingest run. The decision is immediate: the run is
// accepted and started in the background, or rejected because one is active.
// The caller never waits for completion.
func (h *handler) startRun(c *gin.Context) {
	handle, err := h.svc.Start(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"busy": true})
			return
		}
		h.log.Error("run start failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"run_id": handle.ID})
}

func (h *handler) currentRun(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Snapshot())
}

// refreshAnalysis recomputes derived analysis. Refused while an ingest run
// holds the gate, so analysis never reads a half-loaded store.
func (h *handler) refreshAnalysis(c *gin.Context) {
	if h.svc.Busy() {
		c.JSON(http.StatusConflict, gin.H{"busy": true})
		return
	}

	count, err := h.refresher.Refresh(c.Request.Context())
	if err != nil {
		h.log.Error("analysis refresh failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis refresh failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"refreshed": true, "records": count})
}
