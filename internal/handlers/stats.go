package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"pilo_plug/internal/repository"
	"pilo_plug/internal/service"
)

const (
	defaultRecentHours = 24
	defaultHourlyDays  = 7
	defaultDailyDays   = 30
	defaultPeriod      = "day"
)

// queryInt reads a positive integer query parameter, def when absent.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return v, nil
}

// @Summary      Recent samples
// @Tags         stats
// @Produce      json
// @Param        hours  query  int  false  "window in hours (default 24)"
// @Param        limit  query  int  false  "max rows (default and cap 1000)"
// @Success      200  {object}  map[string]interface{}  "success, data, count, hours"
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/stats/recent [get]
func (h *Handler) recentStats(c *gin.Context) {
	hours, err := queryInt(c, "hours", defaultRecentHours)
	if err != nil {
		h.fail(c, err, "stats_bad_query")
		return
	}
	limit, err := queryInt(c, "limit", repository.MaxRecentSamples)
	if err != nil {
		h.fail(c, err, "stats_bad_query")
		return
	}
	samples, err := h.services.Stats.Recent(c.Request.Context(), hours, limit)
	if err != nil {
		h.fail(c, err, "stats_recent_failed", "hours", hours)
		return
	}
	h.respond(c, samples, gin.H{"count": len(samples), "hours": hours})
}

// @Summary      Hourly power averages
// @Tags         stats
// @Produce      json
// @Param        days  query  int  false  "window in days (default 7)"
// @Success      200  {object}  map[string]interface{}  "success, data, count, days"
// @Router       /api/stats/hourly [get]
func (h *Handler) hourlyStats(c *gin.Context) {
	days, err := queryInt(c, "days", defaultHourlyDays)
	if err != nil {
		h.fail(c, err, "stats_bad_query")
		return
	}
	rows, err := h.services.Stats.Hourly(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err, "stats_hourly_failed", "days", days)
		return
	}
	h.respond(c, rows, gin.H{"count": len(rows), "days": days})
}

// @Summary      Daily power summary with uptime
// @Tags         stats
// @Produce      json
// @Param        days  query  int  false  "window in days (default 30)"
// @Success      200  {object}  map[string]interface{}  "success, data, count, days"
// @Router       /api/stats/daily [get]
func (h *Handler) dailyStats(c *gin.Context) {
	days, err := queryInt(c, "days", defaultDailyDays)
	if err != nil {
		h.fail(c, err, "stats_bad_query")
		return
	}
	rows, err := h.services.Stats.Daily(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err, "stats_daily_failed", "days", days)
		return
	}
	h.respond(c, rows, gin.H{"count": len(rows), "days": days})
}

// @Summary      Latest sample
// @Tags         stats
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/stats/current [get]
func (h *Handler) currentStats(c *gin.Context) {
	s, err := h.services.Stats.Latest(c.Request.Context())
	if err != nil {
		h.fail(c, err, "stats_current_failed")
		return
	}
	h.respond(c, s, nil)
}

// @Summary      Period summary
// @Tags         stats
// @Produce      json
// @Param        period  query  string  false  "day | week | month (default day)"
// @Success      200  {object}  map[string]interface{}  "success, data, period, days"
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/stats/summary [get]
func (h *Handler) summaryStats(c *gin.Context) {
	period := c.DefaultQuery("period", defaultPeriod)
	days, err := service.PeriodDays(period)
	if err != nil {
		h.fail(c, err, "stats_bad_query", "period", period)
		return
	}
	sum, err := h.services.Stats.Summary(c.Request.Context(), period)
	if err != nil {
		h.fail(c, err, "stats_summary_failed", "period", period)
		return
	}
	h.respond(c, sum, gin.H{"period": period, "days": days})
}
