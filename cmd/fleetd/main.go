package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rigfleet/config"
	"rigfleet/global"
	"rigfleet/initialize"
	"rigfleet/server"
)

func main() {
	var (
		configPath = flag.String("config", "fleet.yaml", "Path to config file")
	)
	flag.Parse()

	app, err := initialize.Build(*configPath)
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("build failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Config hot-reload: hiện chỉ log level đổi được lúc runtime.
	closeWatch, err := config.Watch(*configPath, global.Logger, func(cfg *config.Config) {
		initialize.SetLogLevel(cfg.LogLevel)
	})
	if err != nil {
		global.Logger.Warn().Err(err).Msg("config watcher disabled")
	} else {
		defer func() { _ = closeWatch() }()
	}

	httpSrv := server.StartHTTPServer(app.Cfg.HTTP.Host, app.Cfg.HTTP.Port, app.Router)
	global.Logger.Info().
		Str("addr", app.Cfg.HTTP.Host).
		Int("port", app.Cfg.HTTP.Port).
		Msg("fleetd listening")

	// Scheduler tick loop
	go app.Scheduler.Run(ctx, app.Cfg.Scheduler.Tick)

	// Sweeps: async expiry + retention, snapshot cache (khi in-memory).
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				app.Async.ExpireSweep()
				app.Async.RetentionSweep(app.Cfg.Async.Retention)
				if app.Snapshots != nil {
					app.Snapshots.Sweep()
				}
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	global.Logger.Info().Msg("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	app.Async.Shutdown()
}
