package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"pilo_plug/internal/config"
	"pilo_plug/internal/device"
	"pilo_plug/internal/handlers"
	"pilo_plug/internal/logger"
	"pilo_plug/internal/metrics"
	"pilo_plug/internal/repository"
	"pilo_plug/internal/repository/db"
	"pilo_plug/internal/server"
	"pilo_plug/internal/service"
	"pilo_plug/internal/sink"
)

const (
	defaultSimTick  = 1 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	// load configs/config.yml (or $CONFIG_PATH) plus env overrides
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Get(logger.InfoLevel, config.EnvProduction).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel, cfg.Env)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalw("invalid timezone", "err", err)
	}

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer closeDB(sqlDB, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(cfg.Metrics.Enabled, reg)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newDeviceClient(ctx, cfg, rec, log)
	sinks := openSinks(cfg, rec, log)

	var publisher service.SamplePublisher
	if sinks.Len() > 0 {
		publisher = sinks
	}

	repos := repository.NewRepository(sqlDB)
	services := service.NewService(service.Deps{
		Config:    cfg,
		Repos:     repos,
		Device:    client,
		Publisher: publisher,
		Recorder:  rec,
		Log:       log,
		Location:  loc,
	})

	if err := services.Collection.Start(ctx); err != nil {
		log.Fatalw("failed to start data collection", "err", err)
	}

	apiHandler := handlers.NewHandler(services, log,
		handlers.WithRecorder(rec),
		handlers.WithStreamInterval(cfg.StreamInterval()),
		handlers.WithSystemInfo(handlers.SystemInfo{
			Version:              cfg.Version,
			Environment:          cfg.Env,
			Port:                 cfg.Port,
			CollectionIntervalMs: int64(cfg.Collection.IntervalMs),
			RetentionDays:        cfg.Collection.RetentionDays,
			DBPath:               cfg.DB.Path,
		}),
	)

	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	runHTTPServer(srv, log)
	log.Infow("server_started", "addr", srv.Addr(), "env", cfg.Env, "simulate", cfg.Device.Simulate)

	waitForShutdown(log)

	// no new cycles from here; one already running finishes on its own
	services.Collection.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	sinks.Close()
	log.Infow("server_stopped")
}

// newDeviceClient returns a client for the simulated plug or the real one.
func newDeviceClient(ctx context.Context, cfg *config.Config, rec metrics.Recorder, log *logger.Logger) *device.Client {
	if cfg.Device.Simulate {
		sim := device.NewSimulator(cfg.Device.LoadW, time.Now().UnixNano())
		go sim.Run(ctx, defaultSimTick)
		log.Infow("device_simulated", "load_w", cfg.Device.LoadW)
		return device.NewClient(sim, device.WithObserver(rec))
	}
	return device.NewClient(device.NewRemoteDevice(cfg.Device.URL, cfg.DeviceTimeout()), device.WithObserver(rec))
}

// openSinks connects the enabled sample mirrors. A sink that cannot connect
// is logged and left out.
func openSinks(cfg *config.Config, rec metrics.Recorder, log *logger.Logger) *sink.Fanout {
	var out []sink.Sink
	if cfg.MQTT.Enabled {
		m, err := sink.ConnectMQTT(cfg.MQTT)
		if err != nil {
			log.Errorw("mqtt_connect_failed", "err", err, "broker", cfg.MQTT.Broker)
		} else {
			out = append(out, m)
		}
	}
	if cfg.Influx.Enabled {
		i, err := sink.ConnectInflux(cfg.Influx)
		if err != nil {
			log.Errorw("influx_connect_failed", "err", err, "url", cfg.Influx.URL)
		} else {
			out = append(out, i)
		}
	}
	return sink.NewFanout(log, rec, out...)
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func waitForShutdown(log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infow("shutting_down", "signal", sig.String())
}
