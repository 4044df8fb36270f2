package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketinni/backend/scheduler"
	"github.com/marketinni/backend/services"
)

// StreamController handles the subscriber websocket, the broadcast
// ingest endpoint and the monitor admin endpoints
type StreamController struct {
	jobScheduler *scheduler.Scheduler
}

// NewStreamController creates a new stream controller
func NewStreamController(jobScheduler *scheduler.Scheduler) *StreamController {
	return &StreamController{jobScheduler: jobScheduler}
}

// Subscribe upgrades the request into a long-lived subscriber
// connection on the broadcast hub
// GET /api/v1/ws
func (ctrl *StreamController) Subscribe(c *gin.Context) {
	if services.GlobalBroadcastHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Broadcast hub not initialized"})
		return
	}
	services.GlobalBroadcastHub.HandleWebSocket(c.Writer, c.Request)
}

// Broadcast accepts a change event pushed from a CRUD handler (in
// this or another process) and fans it out to all subscribers. 2xx
// means accepted-for-fanout; callers never block on delivery.
// POST /api/v1/broadcast
func (ctrl *StreamController) Broadcast(c *gin.Context) {
	if services.GlobalBroadcastHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Broadcast hub not initialized"})
		return
	}

	var event services.ChangeEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if event.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "type is required"})
		return
	}

	services.GlobalBroadcastHub.Publish(event)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RunCheck triggers an immediate alert check, subject to the same
// overlap prevention as scheduled ticks
// POST /api/v1/monitor/check
func (ctrl *StreamController) RunCheck(c *gin.Context) {
	if ctrl.jobScheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Monitor not running on this instance"})
		return
	}

	if ctrl.jobScheduler.RunNow() {
		c.JSON(http.StatusAccepted, gin.H{"status": "started"})
		return
	}
	c.JSON(http.StatusConflict, gin.H{"status": "skipped", "message": "A check is already running"})
}

// Status reports the monitor's recent activity and hub size
// GET /api/v1/monitor/status
func (ctrl *StreamController) Status(c *gin.Context) {
	resp := gin.H{}

	if ctrl.jobScheduler != nil {
		resp["monitor"] = ctrl.jobScheduler.Monitor().Status()
	} else {
		resp["monitor"] = nil
	}
	if services.GlobalBroadcastHub != nil {
		resp["subscribers"] = services.GlobalBroadcastHub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}
