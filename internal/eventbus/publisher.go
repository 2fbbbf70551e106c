// Package eventbus is the outbound Event Publisher and inbound Event
// Subscriber Translator. Publishing and consuming both go over
// github.com/twmb/franz-go (the only Kafka client this retrieval pack
// exercises, in kprox's REST-to-Kafka bridge), replacing the teacher's Redis
// Streams queue.QueueProvider — this service's event contract (§6.2) is
// Kafka-shaped from the start: JSON payloads keyed by file_id on per-purpose
// topics (download_served and unstaged_download_requested share the
// downloads topic), not a worker-pool job queue.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ghga-de/dcs-go/internal/config"
	"github.com/ghga-de/dcs-go/internal/models"
)

// Publisher emits the outbound events named in §6.2: file_registered,
// download_served, unstaged_download_requested, file_deleted.
type Publisher struct {
	client         *kgo.Client
	downloadsTopic string
	registerTopic  string
	deleteTopic    string
}

// NewPublisher dials brokers and returns a ready Publisher.
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID("dcs-publisher"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &Publisher{
		client:         client,
		downloadsTopic: cfg.DownloadsTopic,
		registerTopic:  cfg.FilesToRegisterTopic,
		deleteTopic:    cfg.FilesToDeleteTopic,
	}, nil
}

// Close releases the underlying Kafka client.
func (p *Publisher) Close() {
	p.client.Close()
}

func (p *Publisher) produce(ctx context.Context, topic, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: body,
	}

	result := p.client.ProduceSync(ctx, record)
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("produce event to topic %q: %w", topic, err)
	}
	return nil
}

// PublishFileRegistered announces a newly registered DRS object.
func (p *Publisher) PublishFileRegistered(ctx context.Context, event models.FileRegistered) error {
	if err := p.produce(ctx, p.registerTopic, event.FileID, event); err != nil {
		return err
	}
	log.Printf("[EventBus] published file_registered for %s", event.FileID)
	return nil
}

// PublishDownloadServed announces that a presigned URL was successfully handed out.
func (p *Publisher) PublishDownloadServed(ctx context.Context, event models.DownloadServed) error {
	if err := p.produce(ctx, p.downloadsTopic, event.FileID, event); err != nil {
		return err
	}
	log.Printf("[EventBus] published download_served for %s", event.FileID)
	return nil
}

// PublishUnstagedDownloadRequested asks the staging worker to copy a file
// into the outbox.
func (p *Publisher) PublishUnstagedDownloadRequested(ctx context.Context, event models.UnstagedDownloadRequested) error {
	if err := p.produce(ctx, p.downloadsTopic, event.FileID, event); err != nil {
		return err
	}
	log.Printf("[EventBus] published unstaged_download_requested for %s", event.FileID)
	return nil
}

// PublishFileDeleted announces that a file has been fully torn down.
func (p *Publisher) PublishFileDeleted(ctx context.Context, event models.FileDeleted) error {
	if err := p.produce(ctx, p.deleteTopic, event.FileID, event); err != nil {
		return err
	}
	log.Printf("[EventBus] published file_deleted for %s", event.FileID)
	return nil
}

// publishTimeout is a suggested per-publish deadline. The Publish methods
// do not apply it themselves: each produce call runs under the context its
// caller passes in.
const publishTimeout = 10 * time.Second

// PublishTimeout exposes publishTimeout to callers that want to derive a
// per-publish deadline from it.
func PublishTimeout() time.Duration { return publishTimeout }
