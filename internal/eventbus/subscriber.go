package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ghga-de/dcs-go/internal/config"
	"github.com/ghga-de/dcs-go/internal/models"
)

// RegisterHandler processes an inbound FileInternallyRegistered event.
type RegisterHandler func(ctx context.Context, event models.FileInternallyRegistered) error

// DeleteHandler processes an inbound FileDeletionRequested event.
type DeleteHandler func(ctx context.Context, event models.FileDeletionRequested) error

// Subscriber is the Event Subscriber Translator: it consumes the two
// inbound topics named in §6.2 (files_to_register_type on the register
// topic, files_to_delete_type on the delete topic) and dispatches decoded,
// validated payloads to the registered handlers.
type Subscriber struct {
	client        *kgo.Client
	validate      *validator.Validate
	registerTopic string
	deleteTopic   string
	dedup         *Dedup
	onRegister    RegisterHandler
	onDelete      DeleteHandler
}

// NewSubscriber dials brokers as part of cfg.ConsumerGroup, subscribed to
// the register and delete topics.
func NewSubscriber(cfg config.KafkaConfig, dedup *Dedup, onRegister RegisterHandler, onDelete DeleteHandler) (*Subscriber, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.FilesToRegisterTopic, cfg.FilesToDeleteTopic),
		kgo.ClientID("dcs-subscriber"),
		// Commits are driven entirely by Run's own CommitUncommittedOffsets
		// call, so a processing failure can defer the commit instead of a
		// background auto-commit timer advancing past it regardless.
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	return &Subscriber{
		client:        client,
		validate:      validator.New(),
		registerTopic: cfg.FilesToRegisterTopic,
		deleteTopic:   cfg.FilesToDeleteTopic,
		dedup:         dedup,
		onRegister:    onRegister,
		onDelete:      onDelete,
	}, nil
}

// Close releases the underlying Kafka client.
func (s *Subscriber) Close() {
	s.client.Close()
}

// Run polls for records until ctx is canceled. At-least-once delivery means
// a record may be redelivered after a crash between processing and commit;
// the dedup window makes reapplying it a no-op instead of a double effect.
// A processing failure anywhere in a fetched batch defers the commit for
// the whole batch rather than advancing past the failed record: the next
// poll re-fetches the same offsets, and already-handled records in that
// batch are skipped as no-ops by the dedup window rather than reapplied.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		fetches := s.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Printf("[EventBus] fetch error on %s/%d: %v", topic, partition, err)
		})

		failed := false
		fetches.EachRecord(func(record *kgo.Record) {
			if err := s.handle(ctx, record); err != nil {
				log.Printf("[EventBus] failed to handle record from %s: %v", record.Topic, err)
				failed = true
				return
			}
		})

		if failed {
			log.Println("[EventBus] deferring offset commit: batch had a processing failure")
			continue
		}

		if err := s.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Printf("[EventBus] failed to commit offsets: %v", err)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, record *kgo.Record) error {
	seen, err := s.dedup.SeenAndMark(ctx, dedupKey(record))
	if err != nil {
		log.Printf("[EventBus] dedup check failed, processing anyway: %v", err)
	} else if seen {
		log.Printf("[EventBus] skipping already-processed record (topic=%s key=%s)", record.Topic, string(record.Key))
		return nil
	}

	switch record.Topic {
	case s.registerTopic:
		var event models.FileInternallyRegistered
		if err := json.Unmarshal(record.Value, &event); err != nil {
			return fmt.Errorf("decode file_internally_registered: %w", err)
		}
		if err := s.validate.Struct(event); err != nil {
			return fmt.Errorf("validate file_internally_registered: %w", err)
		}
		return s.onRegister(ctx, event)

	case s.deleteTopic:
		var event models.FileDeletionRequested
		if err := json.Unmarshal(record.Value, &event); err != nil {
			return fmt.Errorf("decode file_deletion_requested: %w", err)
		}
		if err := s.validate.Struct(event); err != nil {
			return fmt.Errorf("validate file_deletion_requested: %w", err)
		}
		return s.onDelete(ctx, event)

	default:
		log.Printf("[EventBus] ignoring record from unexpected topic %q", record.Topic)
		return nil
	}
}

func dedupKey(record *kgo.Record) string {
	return fmt.Sprintf("%s:%d:%d", record.Topic, record.Partition, record.Offset)
}
