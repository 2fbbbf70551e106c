// Package dao is typed persistence for registered DRS object records. It
// follows the teacher's internal/database package in spirit (a pgxpool.Pool
// wrapped by a small set of query methods) but is backed directly by
// Postgres instead of PostgREST-over-HTTP, since this service owns its own
// schema rather than sharing Supabase's.
package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghga-de/dcs-go/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrResourceNotFound is the single lookup-failure signal from the DAO,
// mirroring dcs/ports/outbound/dao.py's ResourceNotFoundError.
var ErrResourceNotFound = errors.New("resource not found")

// ErrResourceAlreadyExists surfaces on duplicate insert.
var ErrResourceAlreadyExists = errors.New("resource already exists")

// DrsObjectDAO is typed persistence for AccessTimeDrsObject, keyed by
// file_id, with find_one by object_id.
type DrsObjectDAO struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool as a DrsObjectDAO.
func New(pool *pgxpool.Pool) *DrsObjectDAO {
	return &DrsObjectDAO{pool: pool}
}

// NewPool opens a pgxpool against dsn and pings it once to fail fast.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Insert stores a newly registered DRS object. A duplicate file_id or
// object_id yields ErrResourceAlreadyExists.
func (d *DrsObjectDAO) Insert(ctx context.Context, obj models.AccessTimeDrsObject) error {
	const query = `
		INSERT INTO drs_objects (
			file_id, object_id, s3_endpoint_alias, decryption_secret_id,
			decrypted_sha256, decrypted_size, creation_date, last_accessed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := d.pool.Exec(ctx, query,
		obj.FileID, obj.ObjectID, obj.S3EndpointAlias, obj.DecryptionSecretID,
		obj.DecryptedSha256, obj.DecryptedSize, obj.CreationDate, obj.LastAccessed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrResourceAlreadyExists
		}
		return fmt.Errorf("insert drs_object: %w", err)
	}
	return nil
}

// GetByID looks up a DRS object by file_id.
func (d *DrsObjectDAO) GetByID(ctx context.Context, fileID string) (models.AccessTimeDrsObject, error) {
	const query = `
		SELECT file_id, object_id, s3_endpoint_alias, decryption_secret_id,
		       decrypted_sha256, decrypted_size, creation_date, last_accessed
		FROM drs_objects WHERE file_id = $1
	`
	return d.scanOne(ctx, query, fileID)
}

// FindOneByObjectID looks up a DRS object by its outbox object_id, used by
// the cleanup sweep to map an outbox key back to its DAO row.
func (d *DrsObjectDAO) FindOneByObjectID(ctx context.Context, objectID string) (models.AccessTimeDrsObject, error) {
	const query = `
		SELECT file_id, object_id, s3_endpoint_alias, decryption_secret_id,
		       decrypted_sha256, decrypted_size, creation_date, last_accessed
		FROM drs_objects WHERE object_id = $1
	`
	return d.scanOne(ctx, query, objectID)
}

func (d *DrsObjectDAO) scanOne(ctx context.Context, query string, arg string) (models.AccessTimeDrsObject, error) {
	var obj models.AccessTimeDrsObject
	row := d.pool.QueryRow(ctx, query, arg)
	err := row.Scan(
		&obj.FileID, &obj.ObjectID, &obj.S3EndpointAlias, &obj.DecryptionSecretID,
		&obj.DecryptedSha256, &obj.DecryptedSize, &obj.CreationDate, &obj.LastAccessed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AccessTimeDrsObject{}, ErrResourceNotFound
		}
		return models.AccessTimeDrsObject{}, fmt.Errorf("query drs_object: %w", err)
	}
	return obj, nil
}

// Update persists obj's current last_accessed. Returns ErrResourceNotFound
// if the row has since been deleted (the race the spec calls out in §5:
// the delete wins).
func (d *DrsObjectDAO) Update(ctx context.Context, obj models.AccessTimeDrsObject) error {
	const query = `UPDATE drs_objects SET last_accessed = $2 WHERE file_id = $1`
	tag, err := d.pool.Exec(ctx, query, obj.FileID, obj.LastAccessed)
	if err != nil {
		return fmt.Errorf("update drs_object: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// Delete removes the row for file_id. Deleting an absent row is not an
// error; the delete path in the core treats this as already-done.
func (d *DrsObjectDAO) Delete(ctx context.Context, fileID string) error {
	const query = `DELETE FROM drs_objects WHERE file_id = $1`
	_, err := d.pool.Exec(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("delete drs_object: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
