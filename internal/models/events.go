package models

import "time"

// FileInternallyRegistered is the inbound payload for files_to_register_type:
// a file registry has finished internal bookkeeping and this service should
// start tracking it as a DRS object.
type FileInternallyRegistered struct {
	FileID             string    `json:"file_id" validate:"required"`
	DecryptionSecretID string    `json:"decryption_secret_id" validate:"required"`
	DecryptedSha256    string    `json:"decrypted_sha256" validate:"required"`
	DecryptedSize      int64     `json:"decrypted_size" validate:"gte=0"`
	S3EndpointAlias    string    `json:"s3_endpoint_alias" validate:"required"`
	UploadDate         time.Time `json:"upload_date"`
}

// FileDeletionRequested is the inbound payload for files_to_delete_type.
type FileDeletionRequested struct {
	FileID string `json:"file_id" validate:"required"`
}

// FileRegistered is published once a file has been durably registered.
type FileRegistered struct {
	FileID  string `json:"file_id"`
	SelfURI string `json:"self_uri"`
}

// DownloadServed is published every time access_drs_object succeeds.
type DownloadServed struct {
	FileID          string `json:"file_id"`
	S3EndpointAlias string `json:"s3_endpoint_alias"`
	TargetBucketID  string `json:"target_bucket_id"`
}

// UnstagedDownloadRequested is published when access is requested for a file
// not yet present in the outbox, instructing the staging worker to copy it
// in from permanent storage.
type UnstagedDownloadRequested struct {
	FileID          string `json:"file_id"`
	DrsURI          string `json:"self_uri"`
	S3EndpointAlias string `json:"s3_endpoint_alias"`
	TargetBucketID  string `json:"target_bucket_id"`
}

// FileDeleted is published once a file has been fully torn down: secret,
// outbox blob, and DAO row all gone.
type FileDeleted struct {
	FileID string `json:"file_id"`
}
