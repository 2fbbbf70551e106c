package core

import (
	"context"
	"time"

	"github.com/ghga-de/dcs-go/internal/models"
)

// DrsObjectDAO is the persistence port the orchestrator depends on. It is
// satisfied by *dao.DrsObjectDAO; the interface exists so the core never
// imports a concrete driver package, and so tests can supply a fake.
type DrsObjectDAO interface {
	Insert(ctx context.Context, obj models.AccessTimeDrsObject) error
	GetByID(ctx context.Context, fileID string) (models.AccessTimeDrsObject, error)
	FindOneByObjectID(ctx context.Context, objectID string) (models.AccessTimeDrsObject, error)
	Update(ctx context.Context, obj models.AccessTimeDrsObject) error
	Delete(ctx context.Context, fileID string) error
}

// ObjectStorage is the Outbox Storage Port.
type ObjectStorage interface {
	DoesObjectExist(ctx context.Context, alias, key string) (bool, error)
	ObjectSize(ctx context.Context, alias, key string) (int64, error)
	GetObjectDownloadURL(ctx context.Context, alias, key string, expiresAfter time.Duration) (string, error)
	DeleteObject(ctx context.Context, alias, key string) error
}

// EnvelopeClient is the Envelope Client (EKSS) port.
type EnvelopeClient interface {
	GetEnvelope(ctx context.Context, secretID, clientPublicKey string) (content []byte, err error)
	DeleteSecret(ctx context.Context, secretID string) error
}

// EventPublisher is the Event Publisher port.
type EventPublisher interface {
	PublishFileRegistered(ctx context.Context, event models.FileRegistered) error
	PublishDownloadServed(ctx context.Context, event models.DownloadServed) error
	PublishUnstagedDownloadRequested(ctx context.Context, event models.UnstagedDownloadRequested) error
	PublishFileDeleted(ctx context.Context, event models.FileDeleted) error
}

// Config carries the handful of settings the orchestrator itself consults,
// narrowed down from the full application Config so the core does not
// depend on internal/config's viper-flavored struct.
type Config struct {
	OutboxBucket             string
	DrsServerURI             string
	RetryAccessAfter         time.Duration
	PresignedURLExpiresAfter time.Duration
	CacheTimeout             time.Duration
}

// Dependencies is the explicit, built-once-at-startup bundle of ports the
// orchestrator composes. Per §9's design note, it replaces the source's DI
// container singletons with a plain value passed by reference into every
// request task.
type Dependencies struct {
	DAO       DrsObjectDAO
	Storage   ObjectStorage
	Envelopes EnvelopeClient
	Publisher EventPublisher
	Config    Config
}
