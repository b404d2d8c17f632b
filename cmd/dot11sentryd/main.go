// Command dot11sentryd runs the passive 802.11 surveillance sensor: a
// channel hopper, a monitor-mode sniffer, a sampling dispatcher, and a pool
// of event workers writing observations to a GORM-backed store.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lcalzada-xor/dot11sentry/internal/adapters/geo"
	"github.com/lcalzada-xor/dot11sentry/internal/adapters/sniffer"
	"github.com/lcalzada-xor/dot11sentry/internal/adapters/storage"
	"github.com/lcalzada-xor/dot11sentry/internal/config"
	"github.com/lcalzada-xor/dot11sentry/internal/core/ports"
	"github.com/lcalzada-xor/dot11sentry/internal/core/services"
	"github.com/lcalzada-xor/dot11sentry/internal/telemetry"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	configPath := os.Getenv("DOT11SENTRY_CONFIG")
	cfg, err := config.Load(os.Args[1:], configPath)
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		logger.Fatalf("config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	telemetry.InitMetrics()
	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		logger.Printf("telemetry: tracing init failed, continuing without it: %v", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(shutdownCtx); err != nil {
				logger.Printf("telemetry: tracer shutdown error: %v", err)
			}
		}()
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer store.Close()

	tracker := geo.NewLocationTracker(log.New(os.Stdout, "[geo] ", log.LstdFlags))
	go func() {
		if err := tracker.Listen(ctx, cfg.GeoListenAddr); err != nil && ctx.Err() == nil {
			logger.Printf("geo: listener stopped: %v", err)
		}
	}()

	hopper := sniffer.NewHopper(cfg.Interface, cfg.MaxChannel, cfg.ChannelInterval, log.New(os.Stdout, "[hopper] ", log.LstdFlags))
	go func() {
		if err := hopper.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Printf("hopper: stopped: %v", err)
		}
	}()

	syncClockOrWait(ctx, tracker, logger)

	debugServer := telemetry.NewDebugServer(":8090")
	go func() {
		if err := debugServer.Run(ctx); err != nil {
			logger.Printf("telemetry: debug server stopped: %v", err)
		}
	}()

	pusher := telemetry.NewStatusPusher(store, cfg.LogInterval, log.New(os.Stdout, "[status] ", log.LstdFlags), debugServer)
	go pusher.Run(ctx)

	pcapSniffer := sniffer.NewPcapSniffer(cfg.Interface)
	defer pcapSniffer.Close()

	supervisor := services.NewSupervisor(services.Config{
		Interface:      cfg.Interface,
		EventQueueSize: cfg.EventQueueSize,
		FrameQueueSize: cfg.FrameQueueSize,
		NumEventHandlers: cfg.NumEventHandlers,
		ClassRates: services.ClassRates{
			Beacon: cfg.BeaconSampleRate,
			Mgmt:   cfg.MgmtSampleRate,
			Ctrl:   cfg.CtrlSampleRate,
			Data:   cfg.DataSampleRate,
		},
		Thresholds: services.Thresholds{
			MAC:         cfg.MACUpdateInterval,
			AP:          cfg.APUpdateInterval,
			Association: cfg.AssociationUpdateInterval,
			Geo:         cfg.GeoUpdateInterval,
		},
		EvictionInterval: 120 * time.Second,
	}, pcapSniffer, tracker, store, log.New(os.Stdout, "[supervisor] ", log.LstdFlags))

	logger.Printf("dot11sentry starting on %s", cfg.Interface)
	if err := supervisor.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatalf("supervisor: %v", err)
	}
	logger.Printf("dot11sentry stopped")
}

func openStore(cfg *config.Config) (ports.Storage, error) {
	if cfg.DBDriver == "mysql" {
		return storage.NewMySQLStore(storage.MySQLConfig{
			User:     cfg.MySQLUser,
			Password: cfg.MySQLPassword,
			Host:     cfg.MySQLHost,
			Port:     cfg.MySQLPort,
			Database: cfg.MySQLDatabase,
		})
	}
	return storage.NewSQLiteStore(cfg.SQLitePath)
}

// syncClockOrWait implements spec.md §4.2's startup gate: try one NTP
// query, and if it fails, block until a phone clock update marks the
// tracker synchronized (or ctx is canceled) before the sniffer is allowed
// to start. The NTP query is not retried.
func syncClockOrWait(ctx context.Context, tracker *geo.LocationTracker, logger *log.Logger) {
	syncer := geo.NewNTPSyncer("pool.ntp.org", log.New(os.Stdout, "[ntp] ", log.LstdFlags))
	if syncer.Sync(ctx, tracker) {
		return
	}
	if err := geo.WaitForSync(ctx, tracker, logger); err != nil {
		logger.Printf("clock sync: %v", err)
	}
}
