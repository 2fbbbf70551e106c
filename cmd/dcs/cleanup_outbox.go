package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghga-de/dcs-go/internal/cleanup"
	"github.com/ghga-de/dcs-go/internal/eventbus"
)

// cleanupLockLease bounds how long one replica may hold the outbox cleanup
// lock for a single sweep before another replica is allowed to take over.
const cleanupLockLease = 5 * time.Minute

// NewCleanupOutboxCmd runs the Outbox Cleanup Task (§4.7 cleanup_outbox,
// §2 item 8): by default it ticks hourly; --once runs a single sweep and
// exits, for deployments that prefer to trigger it from an external cron.
func NewCleanupOutboxCmd() *cobra.Command {
	var once bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup-outbox",
		Short: "Run the outbox cleanup sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanupOutbox(cmd.Context(), once, interval)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit, instead of ticking on an interval")
	cmd.Flags().DurationVar(&interval, "interval", time.Hour, "how often to sweep the outbox when not run with --once")
	return cmd
}

func runCleanupOutbox(ctx context.Context, once bool, interval time.Duration) error {
	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	lock, err := eventbus.NewCleanupLock(application.cfg.Redis)
	if err != nil {
		return err
	}
	defer lock.Close()

	task := cleanup.NewTask(application.repo, application.storageAliases(), lock, cleanupLockLease)

	if once {
		return task.Run(ctx)
	}

	scheduler, err := cleanup.NewScheduler(task.Handler(), cleanup.Config{
		Interval:   interval,
		Timeout:    10 * time.Minute,
		RetryCount: 1,
		RetryDelay: 30 * time.Second,
		RunOnStart: true,
	})
	if err != nil {
		return err
	}
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Cleanup] shutdown signal received")
	scheduler.Stop()
	log.Println("[Cleanup] shutdown complete")
	return nil
}
