package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/screentime/internal/config"
	"github.com/goodtune/screentime/internal/metrics"
	"github.com/goodtune/screentime/internal/publish"
	"github.com/goodtune/screentime/internal/systemd"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracking scheduler",
	Long: `Run a tracking pass every interval, persist the report for the current
day and finalise the previous day at midnight. SIGUSR1 requests an immediate
pass.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Str("user", cfg.User.ID).
		Msg("Starting Screentime")

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().Str("type", cfg.Storage.Type).Msg("Storage initialized")

	assembler, err := newAssembler(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize assembler: %w", err)
	}

	schedCfg := usage.SchedulerConfig{
		UserID:        cfg.User.ID,
		Interval:      parseDuration(cfg.Tracking.Interval, usage.DefaultInterval),
		RetentionDays: cfg.Tracking.RetentionDays,
	}

	status := &statusPublisher{logger: logger}
	schedCfg.Publisher = status

	if cfg.Publish.Enabled {
		publisher, err := publish.NewRealPublisher(publish.Config{
			Broker:   cfg.Publish.Broker,
			ClientID: cfg.Publish.ClientID,
			Topic:    cfg.Publish.Topic,
			Timeout:  parseDuration(cfg.Publish.Timeout, 5*time.Second),
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect publisher: %w", err)
		}
		defer func() {
			_ = publisher.Close()
		}()
		status.next = publisher

		logger.Info().
			Str("broker", cfg.Publish.Broker).
			Str("topic", publish.Topic(cfg.Publish.Topic, cfg.User.ID)).
			Msg("Publisher initialized")
	}

	scheduler := usage.NewScheduler(assembler, store.Reports(), schedCfg, logger)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Address, logger)

		ln, err := systemd.MetricsListener()
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to get systemd listeners")
		} else if ln != nil {
			logger.Info().Msg("Running with systemd socket activation")
			metricsServer.SetListener(ln)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Run(ctx)
	}()

	go watchdog(ctx, logger)

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(sigChan)

	for running := true; running; {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGUSR1 {
				logger.Info().Msg("SIGUSR1 received, running tracking pass")
				scheduler.Trigger()
				continue
			}
			logger.Info().Msg("Shutdown signal received, gracefully stopping...")
			running = false
		case err := <-done:
			// Run only returns once ctx is done
			if err != nil {
				logger.Error().Err(err).Msg("Scheduler exited")
			}
			return err
		}
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Error stopping scheduler")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("Screentime stopped")
	return nil
}

// watchdog pings the systemd watchdog while ctx is alive
func watchdog(ctx context.Context, logger zerolog.Logger) {
	interval, err := systemd.WatchdogInterval()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read systemd watchdog interval")
		return
	}
	if interval == 0 {
		return
	}

	logger.Debug().Dur("interval", interval).Msg("Systemd watchdog enabled")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := systemd.NotifyWatchdog(); err != nil {
				logger.Warn().Err(err).Msg("Failed to send systemd watchdog notification")
			}
		}
	}
}

// statusPublisher reports the latest totals to systemd before handing the
// report on to the next publisher, if any.
type statusPublisher struct {
	next   usage.Publisher
	logger zerolog.Logger
}

func (p *statusPublisher) Publish(ctx context.Context, userID string, report *usage.Report) error {
	line := fmt.Sprintf("%s: %d minutes (%s)", report.Date(), report.Total(), report.Method())
	if err := systemd.NotifyStatus(line); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to send systemd status")
	}
	if p.next == nil {
		return nil
	}
	return p.next.Publish(ctx, userID, report)
}
