package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghga-de/dcs-go/internal/eventbus"
	"github.com/ghga-de/dcs-go/internal/models"
)

// registerDedupTTL bounds how long a (topic, partition, offset) triple is
// remembered as already-applied, comfortably longer than any plausible
// consumer-group rebalance-and-redeliver window.
const registerDedupTTL = 24 * time.Hour

// NewConsumeEventsCmd runs the Event Subscriber Translator (§4.5, §6.2): it
// consumes files_to_register_type and files_to_delete_type and drives the
// Data Repository's register_new_file and delete_file operations.
func NewConsumeEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume-events",
		Short: "Consume inbound file-registry events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsumeEvents(cmd.Context())
		},
	}
}

func runConsumeEvents(ctx context.Context) error {
	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	dedup, err := eventbus.NewDedup(application.cfg.Redis, registerDedupTTL)
	if err != nil {
		return err
	}
	defer dedup.Close()

	subscriber, err := eventbus.NewSubscriber(application.cfg.Kafka, dedup,
		func(ctx context.Context, event models.FileInternallyRegistered) error {
			base := models.DrsObjectBase{
				FileID:             event.FileID,
				DecryptionSecretID: event.DecryptionSecretID,
				DecryptedSha256:    event.DecryptedSha256,
				DecryptedSize:      event.DecryptedSize,
				CreationDate:       event.UploadDate,
			}
			if base.CreationDate.IsZero() {
				base.CreationDate = time.Now().UTC()
			}
			return application.repo.RegisterNewFile(ctx, base, event.S3EndpointAlias)
		},
		func(ctx context.Context, event models.FileDeletionRequested) error {
			return application.repo.DeleteFile(ctx, event.FileID)
		},
	)
	if err != nil {
		return err
	}
	defer subscriber.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("[Consumer] shutdown signal received")
		cancel()
	}()

	if err := subscriber.Run(runCtx); err != nil && runCtx.Err() == nil {
		return err
	}
	log.Println("[Consumer] shutdown complete")
	return nil
}
