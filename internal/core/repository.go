package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ghga-de/dcs-go/internal/dao"
	"github.com/ghga-de/dcs-go/internal/ekss"
	"github.com/ghga-de/dcs-go/internal/models"
	"github.com/ghga-de/dcs-go/internal/obsmetrics"
	"github.com/ghga-de/dcs-go/internal/outbox"
)

// DataRepository is the orchestrator named in §4.7: it composes the DAO,
// the outbox, EKSS, and the event publisher into the registered → staged →
// accessed → aged-out → destroyed state machine.
type DataRepository struct {
	deps Dependencies
}

// New builds a DataRepository over the given Dependencies bundle.
func New(deps Dependencies) *DataRepository {
	return &DataRepository{deps: deps}
}

// selfURI derives drs://<host>/<file_id> purely from file_id and the
// configured drs_server_uri, per the invariant in §3.
func (r *DataRepository) selfURI(fileID string) string {
	return r.deps.Config.DrsServerURI + fileID
}

// AccessDrsObject implements access_drs_object (§4.7). It never blocks
// waiting for staging: if the object isn't in the outbox it publishes a
// stage request and returns RetryAccessLater, by design.
func (r *DataRepository) AccessDrsObject(ctx context.Context, fileID string) (models.DrsObjectResponseModel, error) {
	obj, err := r.deps.DAO.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, dao.ErrResourceNotFound) {
			obsmetrics.AccessAttemptsTotal.WithLabelValues("not_found").Inc()
			return models.DrsObjectResponseModel{}, newError(KindDrsObjectNotFound, fileID, err)
		}
		obsmetrics.AccessAttemptsTotal.WithLabelValues("error").Inc()
		return models.DrsObjectResponseModel{}, fmt.Errorf("access_drs_object: lookup %s: %w", fileID, err)
	}

	staged, err := r.deps.Storage.DoesObjectExist(ctx, obj.S3EndpointAlias, obj.ObjectID)
	if err != nil {
		obsmetrics.AccessAttemptsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, outbox.ErrAliasNotConfigured) {
			return models.DrsObjectResponseModel{}, newError(KindStorageAliasNotConfigured, obj.S3EndpointAlias, err)
		}
		return models.DrsObjectResponseModel{}, fmt.Errorf("access_drs_object: presence check %s: %w", fileID, err)
	}

	if !staged {
		withURI := models.DrsObjectWithUri{DrsObject: obj.DrsObject, SelfURI: r.selfURI(fileID)}
		event := models.UnstagedDownloadRequested{
			FileID:          fileID,
			DrsURI:          withURI.SelfURI,
			S3EndpointAlias: obj.S3EndpointAlias,
			TargetBucketID:  r.deps.Config.OutboxBucket,
		}
		if pubErr := r.deps.Publisher.PublishUnstagedDownloadRequested(ctx, event); pubErr != nil {
			obsmetrics.AccessAttemptsTotal.WithLabelValues("error").Inc()
			return models.DrsObjectResponseModel{}, fmt.Errorf("access_drs_object: publish unstaged_download_requested: %w", pubErr)
		}
		obsmetrics.UnstagedDownloadsTotal.Inc()
		obsmetrics.EventsPublishedTotal.WithLabelValues("unstaged_download_requested").Inc()
		obsmetrics.AccessAttemptsTotal.WithLabelValues("retry_later").Inc()

		retryAfter := &Error{
			Kind:       KindRetryAccessLater,
			RetryAfter: int(r.deps.Config.RetryAccessAfter.Seconds()),
		}
		return models.DrsObjectResponseModel{}, retryAfter
	}

	obj.LastAccessed = time.Now().UTC()
	if err := r.deps.DAO.Update(ctx, obj); err != nil {
		obsmetrics.AccessAttemptsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, dao.ErrResourceNotFound) {
			// The row vanished between our read and this update: a
			// concurrent delete won the race. That is the delete's outcome
			// to report, not ours.
			return models.DrsObjectResponseModel{}, newError(KindDrsObjectNotFound, fileID, err)
		}
		return models.DrsObjectResponseModel{}, fmt.Errorf("access_drs_object: update last_accessed %s: %w", fileID, err)
	}

	accessURL, err := r.deps.Storage.GetObjectDownloadURL(ctx, obj.S3EndpointAlias, obj.ObjectID, r.deps.Config.PresignedURLExpiresAfter)
	if err != nil {
		obsmetrics.AccessAttemptsTotal.WithLabelValues("error").Inc()
		return models.DrsObjectResponseModel{}, fmt.Errorf("access_drs_object: presign %s: %w", fileID, err)
	}

	withAccess := models.DrsObjectWithAccess{
		DrsObjectWithUri: models.DrsObjectWithUri{DrsObject: obj.DrsObject, SelfURI: r.selfURI(fileID)},
		AccessURL:        accessURL,
	}

	if err := r.deps.Publisher.PublishDownloadServed(ctx, models.DownloadServed{
		FileID:          fileID,
		S3EndpointAlias: obj.S3EndpointAlias,
		TargetBucketID:  r.deps.Config.OutboxBucket,
	}); err != nil {
		obsmetrics.AccessAttemptsTotal.WithLabelValues("error").Inc()
		return models.DrsObjectResponseModel{}, fmt.Errorf("access_drs_object: publish download_served: %w", err)
	}
	obsmetrics.EventsPublishedTotal.WithLabelValues("download_served").Inc()

	encryptedSize, err := r.deps.Storage.ObjectSize(ctx, obj.S3EndpointAlias, obj.ObjectID)
	if err != nil {
		obsmetrics.AccessAttemptsTotal.WithLabelValues("error").Inc()
		return models.DrsObjectResponseModel{}, fmt.Errorf("access_drs_object: object size %s: %w", fileID, err)
	}

	obsmetrics.AccessAttemptsTotal.WithLabelValues("staged").Inc()
	return withAccess.ToResponseModel(encryptedSize), nil
}

// ServeEnvelope implements serve_envelope (§4.7).
func (r *DataRepository) ServeEnvelope(ctx context.Context, fileID, publicKey string) (string, error) {
	obj, err := r.deps.DAO.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, dao.ErrResourceNotFound) {
			obsmetrics.EnvelopeRequestsTotal.WithLabelValues("not_found").Inc()
			return "", newError(KindDrsObjectNotFound, fileID, err)
		}
		obsmetrics.EnvelopeRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("serve_envelope: lookup %s: %w", fileID, err)
	}

	content, err := r.deps.Envelopes.GetEnvelope(ctx, obj.DecryptionSecretID, publicKey)
	if err != nil {
		if errors.Is(err, ekss.ErrSecretNotFound) {
			obsmetrics.EnvelopeRequestsTotal.WithLabelValues("not_found").Inc()
			return "", newError(KindEnvelopeNotFound, obj.ObjectID, err)
		}
		obsmetrics.EnvelopeRequestsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, ekss.ErrRequestFailed) || errors.Is(err, ekss.ErrBadResponseCode) {
			return "", newError(KindAPICommunicationError, "ekss", err)
		}
		return "", fmt.Errorf("serve_envelope: ekss call %s: %w", fileID, err)
	}

	obsmetrics.EnvelopeRequestsTotal.WithLabelValues("ok").Inc()
	// EKSS already answers with the base64-encoded envelope; it is passed
	// through unchanged.
	return string(content), nil
}

// RegisterNewFile implements register_new_file (§4.7).
func (r *DataRepository) RegisterNewFile(ctx context.Context, base models.DrsObjectBase, s3EndpointAlias string) error {
	obj := models.AccessTimeDrsObject{
		DrsObject: models.DrsObject{
			DrsObjectBase:   base,
			ObjectID:        uuid.NewString(),
			S3EndpointAlias: s3EndpointAlias,
		},
		LastAccessed: time.Now().UTC(),
	}

	if err := r.deps.DAO.Insert(ctx, obj); err != nil {
		if errors.Is(err, dao.ErrResourceAlreadyExists) {
			obsmetrics.EventsConsumedTotal.WithLabelValues("file_registered", "duplicate").Inc()
			return newError(KindDuplicateEntry, base.FileID, err)
		}
		obsmetrics.EventsConsumedTotal.WithLabelValues("file_registered", "error").Inc()
		return fmt.Errorf("register_new_file: insert %s: %w", base.FileID, err)
	}

	if err := r.deps.Publisher.PublishFileRegistered(ctx, models.FileRegistered{
		FileID:  base.FileID,
		SelfURI: r.selfURI(base.FileID),
	}); err != nil {
		obsmetrics.EventsConsumedTotal.WithLabelValues("file_registered", "error").Inc()
		return err
	}

	obsmetrics.EventsConsumedTotal.WithLabelValues("file_registered", "ok").Inc()
	obsmetrics.EventsPublishedTotal.WithLabelValues("file_registered").Inc()
	return nil
}

// DeleteFile implements delete_file (§4.7). Ordering: secret, then blob,
// then DAO row, so a partial failure never leaves the DAO as the sole
// remaining source of truth.
func (r *DataRepository) DeleteFile(ctx context.Context, fileID string) error {
	obj, err := r.deps.DAO.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, dao.ErrResourceNotFound) {
			obsmetrics.EventsConsumedTotal.WithLabelValues("file_deleted", "already_gone").Inc()
			return nil
		}
		obsmetrics.EventsConsumedTotal.WithLabelValues("file_deleted", "error").Inc()
		return fmt.Errorf("delete_file: lookup %s: %w", fileID, err)
	}

	if err := r.deps.Envelopes.DeleteSecret(ctx, obj.DecryptionSecretID); err != nil {
		if !errors.Is(err, ekss.ErrSecretNotFound) {
			obsmetrics.EventsConsumedTotal.WithLabelValues("file_deleted", "error").Inc()
			return fmt.Errorf("delete_file: ekss delete_secret %s: %w", fileID, err)
		}
	}

	if err := r.deps.Storage.DeleteObject(ctx, obj.S3EndpointAlias, obj.ObjectID); err != nil {
		if !errors.Is(err, outbox.ErrObjectNotFound) {
			obsmetrics.EventsConsumedTotal.WithLabelValues("file_deleted", "error").Inc()
			return fmt.Errorf("delete_file: outbox delete_object %s: %w", fileID, err)
		}
	}

	if err := r.deps.DAO.Delete(ctx, fileID); err != nil {
		obsmetrics.EventsConsumedTotal.WithLabelValues("file_deleted", "error").Inc()
		return fmt.Errorf("delete_file: dao delete %s: %w", fileID, err)
	}

	if err := r.deps.Publisher.PublishFileDeleted(ctx, models.FileDeleted{FileID: fileID}); err != nil {
		obsmetrics.EventsConsumedTotal.WithLabelValues("file_deleted", "error").Inc()
		return err
	}

	obsmetrics.EventsConsumedTotal.WithLabelValues("file_deleted", "ok").Inc()
	obsmetrics.EventsPublishedTotal.WithLabelValues("file_deleted").Inc()
	return nil
}

// CleanupOutbox implements cleanup_outbox (§4.7): evicts every outbox
// object under alias whose DAO last_accessed has aged past cache_timeout.
// DAO rows are intentionally left in place so a subsequent access
// re-triggers staging.
func (r *DataRepository) CleanupOutbox(ctx context.Context, alias string) error {
	threshold := time.Now().UTC().Add(-r.deps.Config.CacheTimeout)

	lister, ok := r.deps.Storage.(listableStorage)
	if !ok {
		return fmt.Errorf("cleanup_outbox: storage port does not support listing")
	}

	objectIDs, err := lister.ListAllObjectIDs(ctx, alias)
	if err != nil {
		obsmetrics.CleanupSweepsTotal.WithLabelValues(alias, "error").Inc()
		return fmt.Errorf("cleanup_outbox: list alias %q: %w", alias, err)
	}

	for _, objectID := range objectIDs {
		obj, err := r.deps.DAO.FindOneByObjectID(ctx, objectID)
		if err != nil {
			if errors.Is(err, dao.ErrResourceNotFound) {
				obsmetrics.CleanupSweepsTotal.WithLabelValues(alias, "error").Inc()
				return newError(KindCleanupError, objectID, err)
			}
			obsmetrics.CleanupSweepsTotal.WithLabelValues(alias, "error").Inc()
			return fmt.Errorf("cleanup_outbox: find %s: %w", objectID, err)
		}

		if obj.LastAccessed.After(threshold) {
			continue
		}

		if err := r.deps.Storage.DeleteObject(ctx, alias, objectID); err != nil {
			if !errors.Is(err, outbox.ErrObjectNotFound) {
				obsmetrics.CleanupSweepsTotal.WithLabelValues(alias, "error").Inc()
				return newError(KindCleanupError, objectID, err)
			}
		}
		obsmetrics.CleanupEvictionsTotal.WithLabelValues(alias).Inc()
		log.Printf("[Core] cleanup evicted object_id=%s (alias=%s)", objectID, alias)
	}

	obsmetrics.CleanupSweepsTotal.WithLabelValues(alias, "ok").Inc()
	return nil
}

// listableStorage narrows ObjectStorage down to the listing capability
// cleanup needs, implemented concretely by *outbox.ObjectStorages.
type listableStorage interface {
	ListAllObjectIDs(ctx context.Context, alias string) ([]string, error)
}
