// Package models holds the data transfer objects shared across the Download
// Controller: the registered-file metadata, its staging-side attributes, and
// the work-order token claims that authorize access to it.
package models

import "time"

// DrsObjectBase is the immutable metadata recorded when a file is registered.
type DrsObjectBase struct {
	FileID             string    `json:"file_id"`
	DecryptionSecretID string    `json:"decryption_secret_id"`
	DecryptedSha256    string    `json:"decrypted_sha256"`
	DecryptedSize      int64     `json:"decrypted_size"`
	CreationDate       time.Time `json:"creation_date"`
}

// DrsObject is a DrsObjectBase plus the staging-side attributes assigned at
// registration time: the key used inside the outbox, and which configured
// S3 endpoint alias it lives behind.
type DrsObject struct {
	DrsObjectBase
	ObjectID        string `json:"object_id"`
	S3EndpointAlias string `json:"s3_endpoint_alias"`
}

// AccessTimeDrsObject is the shape actually persisted in the DAO: a DrsObject
// plus the last time it was successfully served.
type AccessTimeDrsObject struct {
	DrsObject
	LastAccessed time.Time `json:"last_accessed"`
}

// DrsObjectWithUri adds the DRS self URI, derived on the fly from the
// file_id and the configured drs_server_uri. Never stored.
type DrsObjectWithUri struct {
	DrsObject
	SelfURI string `json:"self_uri"`
}

// DrsObjectWithAccess adds a short-lived presigned access URL to a
// DrsObjectWithUri. Derived on the fly, never stored.
type DrsObjectWithAccess struct {
	DrsObjectWithUri
	AccessURL string `json:"access_url"`
}

// Checksum is one entry of the DRS-compliant checksums array.
type Checksum struct {
	Checksum string `json:"checksum"`
	Type     string `json:"type"`
}

// AccessMethod is one entry of the DRS-compliant access_methods array.
type AccessMethod struct {
	Type      string    `json:"type"`
	AccessURL AccessURL `json:"access_url"`
}

// AccessURL wraps the presigned URL the way the DRS spec nests it.
type AccessURL struct {
	URL string `json:"url"`
}

// DrsObjectResponseModel is the client-facing, DRS-compliant response for
// GET /objects/{object_id}. Size carries the *encrypted* size, since clients
// need it to compute byte ranges over the presigned download.
type DrsObjectResponseModel struct {
	ID            string         `json:"id"`
	SelfURI       string         `json:"self_uri"`
	Size          int64          `json:"size"`
	CreatedTime   time.Time      `json:"created_time"`
	Checksums     []Checksum     `json:"checksums"`
	AccessMethods []AccessMethod `json:"access_methods"`
}

// ToResponseModel builds the DRS-compliant response for a staged,
// access-granted object, given the encrypted blob size queried from the
// outbox.
func (d DrsObjectWithAccess) ToResponseModel(encryptedSize int64) DrsObjectResponseModel {
	return DrsObjectResponseModel{
		ID:          d.FileID,
		SelfURI:     d.SelfURI,
		Size:        encryptedSize,
		CreatedTime: d.CreationDate,
		Checksums: []Checksum{
			{Checksum: d.DecryptedSha256, Type: "sha-256"},
		},
		AccessMethods: []AccessMethod{
			{Type: "s3", AccessURL: AccessURL{URL: d.AccessURL}},
		},
	}
}
