package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"pilo_plug/internal/logger"
	"pilo_plug/internal/metrics"
	"pilo_plug/internal/service"
)

// SystemInfo is the static part of /api/system/info.
type SystemInfo struct {
	Version              string
	Environment          string
	Port                 string
	CollectionIntervalMs int64
	RetentionDays        int
	DBPath               string
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services       *service.Service
	log            *logger.Logger
	rec            metrics.Recorder
	info           SystemInfo
	streamInterval time.Duration
	started        time.Time
}

type Option func(*Handler)

func WithRecorder(r metrics.Recorder) Option {
	return func(h *Handler) { h.rec = r }
}

func WithSystemInfo(info SystemInfo) Option {
	return func(h *Handler) { h.info = info }
}

// WithStreamInterval sets the default /ws push period.
func WithStreamInterval(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 && d <= maxInterval {
			h.streamInterval = d
		}
	}
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{
		services:       services,
		log:            log,
		rec:            metrics.Noop{},
		streamInterval: defaultInterval,
		started:        time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestID, h.accessLog, h.observe)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(h.rec.Handler()))

	router.GET("/health", h.systemHealth)

	// Live sample stream on the same port
	router.GET("/ws", h.wsConnect)

	api := router.Group("/api")
	{
		// legacy: bare device info document
		api.GET("", h.legacyInfo)

		h.registerDeviceRoutes(api)
		h.registerStatsRoutes(api)
		h.registerSystemRoutes(api)
	}

	return router
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	dev := api.Group("/device")
	{
		dev.GET("/info", h.deviceInfo)
		dev.GET("/data", h.deviceData)
		dev.GET("/state", h.deviceState)
		// Body example: {"power_on":true,"brightness":128}
		dev.PUT("/state", h.updateDeviceState)
		dev.POST("/power", h.setPower)
		dev.POST("/brightness", h.setBrightness)
		dev.POST("/lock", h.setSwitchLock)
		dev.GET("/status", h.deviceStatus)
		dev.GET("/health", h.deviceHealth)
	}
}

func (h *Handler) registerStatsRoutes(api *gin.RouterGroup) {
	stats := api.Group("/stats")
	{
		stats.GET("/recent", h.recentStats)
		stats.GET("/hourly", h.hourlyStats)
		stats.GET("/daily", h.dailyStats)
		stats.GET("/current", h.currentStats)
		stats.GET("/summary", h.summaryStats)
	}
}

func (h *Handler) registerSystemRoutes(api *gin.RouterGroup) {
	sys := api.Group("/system")
	{
		sys.GET("/health", h.systemHealth)
		sys.GET("/collection/stats", h.collectionStats)
		sys.POST("/collection/trigger", h.triggerCollection)
		sys.GET("/info", h.systemInfo)
		// Body example: {"deviceUrl":"http://10.0.0.7","timeout":5000}
		sys.POST("/config", h.updateConfig)
		sys.GET("/database/stats", h.databaseStats)
	}
}
