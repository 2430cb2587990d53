package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"pilo_plug/internal/models"
)

type powerRequest struct {
	PowerOn *bool `json:"power_on" binding:"required"`
}

type brightnessRequest struct {
	Brightness *int `json:"brightness" binding:"required"`
}

type lockRequest struct {
	SwitchLock *bool `json:"switch_lock" binding:"required"`
}

// @Summary      Device info
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Failure      502  {object}  map[string]interface{}
// @Failure      504  {object}  map[string]interface{}
// @Router       /api/device/info [get]
func (h *Handler) deviceInfo(c *gin.Context) {
	info, err := h.services.Device.GetInfo(c.Request.Context())
	if err != nil {
		h.fail(c, err, "device_info_failed")
		return
	}
	h.respond(c, info, nil)
}

// legacyInfo serves the bare info document for older dashboards.
func (h *Handler) legacyInfo(c *gin.Context) {
	info, err := h.services.Device.GetInfo(c.Request.Context())
	if err != nil {
		h.log.Errorw("device_info_failed", "err", err)
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, info)
}

// @Summary      Live measurement
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Router       /api/device/data [get]
func (h *Handler) deviceData(c *gin.Context) {
	m, err := h.services.Device.GetMeasurement(c.Request.Context())
	if err != nil {
		h.fail(c, err, "device_data_failed")
		return
	}
	h.respond(c, m, nil)
}

// @Summary      Switch state
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Router       /api/device/state [get]
func (h *Handler) deviceState(c *gin.Context) {
	st, err := h.services.Device.GetState(c.Request.Context())
	if err != nil {
		h.fail(c, err, "device_state_failed")
		return
	}
	h.respond(c, st, nil)
}

// @Summary      Partial state update
// @Tags         device
// @Accept       json
// @Produce      json
// @Param        payload  body  models.StatePatch  true  "fields to change"
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/device/state [put]
func (h *Handler) updateDeviceState(c *gin.Context) {
	var patch models.StatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errBadRequest, err), "device_state_bad_body")
		return
	}
	st, err := h.services.Device.UpdateState(c.Request.Context(), patch)
	if err != nil {
		h.fail(c, err, "device_state_update_failed")
		return
	}
	h.respond(c, st, nil)
}

// @Summary      Power on/off
// @Tags         device
// @Accept       json
// @Produce      json
// @Param        payload  body  powerRequest  true  "power_on"
// @Success      200  {object}  map[string]interface{}  "success, message, data"
// @Router       /api/device/power [post]
func (h *Handler) setPower(c *gin.Context) {
	var req powerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: power_on is required", errBadRequest), "device_power_bad_body")
		return
	}
	st, err := h.services.Device.SetPower(c.Request.Context(), *req.PowerOn)
	if err != nil {
		h.fail(c, err, "device_power_failed", "power_on", *req.PowerOn)
		return
	}
	word := "OFF"
	if *req.PowerOn {
		word = "ON"
	}
	h.respond(c, st, gin.H{"message": fmt.Sprintf("Power %s command sent successfully", word)})
}

// @Summary      Ring brightness
// @Tags         device
// @Accept       json
// @Produce      json
// @Param        payload  body  brightnessRequest  true  "brightness 0-255"
// @Success      200  {object}  map[string]interface{}  "success, message, data"
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/device/brightness [post]
func (h *Handler) setBrightness(c *gin.Context) {
	var req brightnessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: brightness is required", errBadRequest), "device_brightness_bad_body")
		return
	}
	st, err := h.services.Device.SetBrightness(c.Request.Context(), *req.Brightness)
	if err != nil {
		h.fail(c, err, "device_brightness_failed", "brightness", *req.Brightness)
		return
	}
	h.respond(c, st, gin.H{"message": fmt.Sprintf("Brightness set to %d", *req.Brightness)})
}

// @Summary      Switch lock
// @Tags         device
// @Accept       json
// @Produce      json
// @Param        payload  body  lockRequest  true  "switch_lock"
// @Success      200  {object}  map[string]interface{}  "success, message, data"
// @Router       /api/device/lock [post]
func (h *Handler) setSwitchLock(c *gin.Context) {
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: switch_lock is required", errBadRequest), "device_lock_bad_body")
		return
	}
	st, err := h.services.Device.SetSwitchLock(c.Request.Context(), *req.SwitchLock)
	if err != nil {
		h.fail(c, err, "device_lock_failed", "switch_lock", *req.SwitchLock)
		return
	}
	word := "DISABLED"
	if *req.SwitchLock {
		word = "ENABLED"
	}
	h.respond(c, st, gin.H{"message": fmt.Sprintf("Switch lock %s successfully", word)})
}

// @Summary      Info, measurement and state in one call
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Router       /api/device/status [get]
func (h *Handler) deviceStatus(c *gin.Context) {
	fs, err := h.services.Device.GetFullStatus(c.Request.Context())
	if err != nil {
		h.fail(c, err, "device_status_failed")
		return
	}
	ok := fs.Errors.Info == nil && fs.Errors.Measurement == nil && fs.Errors.State == nil
	c.JSON(http.StatusOK, gin.H{"success": ok, "data": fs})
}

// @Summary      Device reachability
// @Tags         device
// @Produce      json
// @Success      200  {object}  models.DeviceHealth
// @Failure      503  {object}  models.DeviceHealth
// @Router       /api/device/health [get]
func (h *Handler) deviceHealth(c *gin.Context) {
	dh := h.services.Device.HealthCheck(c.Request.Context())
	c.JSON(healthCode(dh.Healthy()), dh)
}
