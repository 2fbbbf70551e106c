// Package outbox is the Outbox Storage Port: one S3 client per configured
// endpoint alias, used to check whether a file has already been staged, to
// mint a short-lived presigned download URL, and to evict a file once its
// cache window has elapsed. It follows the shape of the teacher's
// internal/storage.StorageProvider interface, but talks to S3 through the
// real aws-sdk-go-v2 client instead of a hand-rolled SigV4 signer, since
// every alias here really is an S3-compatible endpoint.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/ghga-de/dcs-go/internal/config"
)

// ErrObjectNotFound indicates the requested key is absent from the outbox,
// i.e. the file has not been staged yet (or was aged out).
var ErrObjectNotFound = errors.New("object not found in outbox")

// ErrAliasNotConfigured indicates a DRS object names an s3_endpoint_alias
// that has no matching entry in object_storages.
var ErrAliasNotConfigured = errors.New("s3 endpoint alias not configured")

// node is one configured S3-compatible endpoint.
type node struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

// ObjectStorages is the Outbox Storage Port: an alias-keyed registry of S3
// clients, mirroring the teacher's StorageService but without a
// primary/fallback pair — the DRS object itself names which alias is
// authoritative for each file.
type ObjectStorages struct {
	nodes map[string]*node
}

// New builds one s3.Client (and matching PresignClient) per configured
// alias. Each alias gets its own static-credentials config, the way a
// multi-tenant storage fleet typically does, rather than sharing ambient
// AWS credentials across unrelated endpoints.
func New(ctx context.Context, storages config.ObjectStoragesConfig) (*ObjectStorages, error) {
	nodes := make(map[string]*node, len(storages.Storages))

	for alias, n := range storages.Storages {
		var optFns []func(*awsconfig.LoadOptions) error
		if n.Region != "" {
			optFns = append(optFns, awsconfig.WithRegion(n.Region))
		}
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(n.AccessKeyID, n.SecretAccessKey, ""),
		))

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config for alias %q: %w", alias, err)
		}

		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if n.Endpoint != "" {
				o.BaseEndpoint = aws.String(n.Endpoint)
			}
			o.UsePathStyle = true
		})

		nodes[alias] = &node{
			bucket:  n.Bucket,
			client:  client,
			presign: s3.NewPresignClient(client),
		}
		log.Printf("[Outbox] configured endpoint alias %q (bucket=%s, endpoint=%s)", alias, n.Bucket, n.Endpoint)
	}

	return &ObjectStorages{nodes: nodes}, nil
}

func (o *ObjectStorages) nodeFor(alias string) (*node, error) {
	n, ok := o.nodes[alias]
	if !ok {
		return nil, ErrAliasNotConfigured
	}
	return n, nil
}

// DoesObjectExist reports whether key is present in the outbox behind the
// given alias.
func (o *ObjectStorages) DoesObjectExist(ctx context.Context, alias, key string) (bool, error) {
	n, err := o.nodeFor(alias)
	if err != nil {
		return false, err
	}

	_, err = n.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(n.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s/%s: %w", alias, key, err)
	}
	return true, nil
}

// ObjectSize returns the encrypted size in bytes of key, used to populate
// the DRS response's size field.
func (o *ObjectStorages) ObjectSize(ctx context.Context, alias, key string) (int64, error) {
	n, err := o.nodeFor(alias)
	if err != nil {
		return 0, err
	}

	out, err := n.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(n.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, ErrObjectNotFound
		}
		return 0, fmt.Errorf("head object %s/%s: %w", alias, key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// GetObjectDownloadURL mints a presigned GET URL valid for expiresAfter.
func (o *ObjectStorages) GetObjectDownloadURL(ctx context.Context, alias, key string, expiresAfter time.Duration) (string, error) {
	n, err := o.nodeFor(alias)
	if err != nil {
		return "", err
	}

	req, err := n.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(n.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresAfter))
	if err != nil {
		return "", fmt.Errorf("presign get object %s/%s: %w", alias, key, err)
	}
	return req.URL, nil
}

// DeleteObject evicts key from the outbox. Deleting an absent key is not an
// error: AWS S3 itself answers a delete of a missing key with 204, but not
// every S3-compatible backend does (MinIO and Ceph RGW can answer 404), so
// a 404 here is folded into success the same way HeadObject's 404 is.
func (o *ObjectStorages) DeleteObject(ctx context.Context, alias, key string) error {
	n, err := o.nodeFor(alias)
	if err != nil {
		return err
	}

	_, err = n.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(n.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete object %s/%s: %w", alias, key, err)
	}
	return nil
}

// ListAllObjectIDs enumerates every object key present under alias's
// bucket, the list_all_object_ids(bucket) operation from §4.2. The cleanup
// sweep cross-references each key against the DAO's last_accessed column
// itself; listing does no time-based filtering of its own.
func (o *ObjectStorages) ListAllObjectIDs(ctx context.Context, alias string) ([]string, error) {
	n, err := o.nodeFor(alias)
	if err != nil {
		return nil, err
	}

	var ids []string
	var continuationToken *string
	for {
		out, listErr := n.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(n.bucket),
			ContinuationToken: continuationToken,
		})
		if listErr != nil {
			return nil, fmt.Errorf("list objects for alias %q: %w", alias, listErr)
		}

		for _, obj := range out.Contents {
			ids = append(ids, aws.ToString(obj.Key))
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuationToken = out.NextContinuationToken
	}

	return ids, nil
}

func isNotFound(err error) bool {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}
