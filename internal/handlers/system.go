package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pilo_plug/internal/models"
)

type configRequest struct {
	DeviceURL          string `json:"deviceUrl"`
	CollectionInterval int64  `json:"collectionInterval"`
	TimeoutMs          int64  `json:"timeout"`
}

// @Summary      Bridge health
// @Description  healthy only if the database, the device and the collector all are
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.HealthReport
// @Failure      503  {object}  models.HealthReport
// @Router       /api/system/health [get]
func (h *Handler) systemHealth(c *gin.Context) {
	r := h.services.Health.Check(c.Request.Context())
	c.JSON(healthCode(r.Status == models.StatusHealthy), r)
}

// @Summary      Collection counters
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Router       /api/system/collection/stats [get]
func (h *Handler) collectionStats(c *gin.Context) {
	h.respond(c, h.services.Collection.GetStats(), nil)
}

// @Summary      Run one collection cycle now
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, message"
// @Router       /api/system/collection/trigger [post]
func (h *Handler) triggerCollection(c *gin.Context) {
	if err := h.services.Collection.TriggerCollection(c.Request.Context()); err != nil {
		h.fail(c, err, "collection_trigger_failed")
		return
	}
	h.respond(c, nil, gin.H{"message": "Data collection triggered successfully"})
}

// @Summary      Runtime and configuration overview
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Router       /api/system/info [get]
func (h *Handler) systemInfo(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	deviceURL, timeout := h.services.Device.Target()
	h.respond(c, gin.H{
		"version":     h.info.Version,
		"environment": h.info.Environment,
		"uptime":      time.Since(h.started).Seconds(),
		"platform":    runtime.GOOS + "/" + runtime.GOARCH,
		"goVersion":   runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"memory": gin.H{
			"alloc": mem.Alloc,
			"sys":   mem.Sys,
		},
		"configuration": gin.H{
			"port":               h.info.Port,
			"deviceUrl":          deviceURL,
			"deviceTimeout":      timeout.Milliseconds(),
			"collectionInterval": h.info.CollectionIntervalMs,
			"retentionDays":      h.info.RetentionDays,
			"nextCleanup":        h.services.Retention.NextRun(time.Now()),
			"database":           gin.H{"path": h.info.DBPath},
		},
	}, nil)
}

// @Summary      Runtime configuration update
// @Description  deviceUrl and timeout apply to the next device call; collectionInterval needs a restart
// @Tags         system
// @Accept       json
// @Produce      json
// @Param        payload  body  configRequest  true  "fields to change"
// @Success      200  {object}  map[string]interface{}  "success, message, updated"
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/system/config [post]
func (h *Handler) updateConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errBadRequest, err), "config_bad_body")
		return
	}

	currentURL, currentTimeout := h.services.Device.Target()
	updated := []string{}

	if req.DeviceURL != "" && req.DeviceURL != currentURL {
		if err := h.services.Collection.UpdateDeviceURL(req.DeviceURL); err != nil {
			h.fail(c, err, "config_device_url_rejected", "url", req.DeviceURL)
			return
		}
		updated = append(updated, "deviceUrl: "+req.DeviceURL)
	}

	if req.TimeoutMs != 0 && req.TimeoutMs != currentTimeout.Milliseconds() {
		if err := h.services.Device.UpdateTimeout(time.Duration(req.TimeoutMs) * time.Millisecond); err != nil {
			h.fail(c, err, "config_timeout_rejected", "timeout_ms", req.TimeoutMs)
			return
		}
		updated = append(updated, fmt.Sprintf("timeout: %dms", req.TimeoutMs))
	}

	if req.CollectionInterval != 0 {
		updated = append(updated, fmt.Sprintf("collectionInterval: %dms (requires restart)", req.CollectionInterval))
	}

	msg := "No changes made"
	if len(updated) > 0 {
		msg = "Updated: " + strings.Join(updated, ", ")
		h.log.Infow("config_updated", "changes", updated)
	}
	h.respond(c, nil, gin.H{"message": msg, "updated": updated})
}

// @Summary      Store size
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Router       /api/system/database/stats [get]
func (h *Handler) databaseStats(c *gin.Context) {
	tables, err := h.services.Stats.DatabaseStats(c.Request.Context())
	if err != nil {
		h.fail(c, err, "database_stats_failed")
		return
	}
	h.respond(c, gin.H{"tables": tables, "timestamp": time.Now().UTC()}, nil)
}
