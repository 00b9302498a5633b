package minio

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// LocationScheme prefixes object locations such as s3://bucket/key.
const LocationScheme = "s3://"

var (
	ErrObjectNotFound  = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrBucketNotFound  = errors.New(errors.ErrCodeNotFound, "bucket not found")
	ErrInvalidLocation = errors.New(errors.ErrCodeValidation, "invalid object location")
)

// ObjectMetadata describes a stored object.
type ObjectMetadata struct {
	Bucket       string
	ObjectKey    string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ParseLocation splits s3://bucket/key into its bucket and key.
func ParseLocation(location string) (bucket, key string, err error) {
	if !strings.HasPrefix(location, LocationScheme) {
		return "", "", ErrInvalidLocation.WithDetail(location)
	}
	parts := strings.SplitN(strings.TrimPrefix(location, LocationScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidLocation.WithDetail(location)
	}
	return parts[0], parts[1], nil
}

// ObjectReader opens objects by location for streaming reads.
type ObjectReader struct {
	client *MinIOClient
	logger logging.Logger
}

// NewObjectReader returns an ObjectReader over client.
func NewObjectReader(client *MinIOClient, log logging.Logger) *ObjectReader {
	return &ObjectReader{client: client, logger: log}
}

// Stat returns the metadata of the object at location.
func (r *ObjectReader) Stat(ctx context.Context, location string) (*ObjectMetadata, error) {
	if r.client.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	bucket, key, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	info, err := r.client.GetClient().StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		switch minio.ToErrorResponse(err).Code {
		case "NoSuchKey":
			return nil, ErrObjectNotFound.WithDetail(location)
		case "NoSuchBucket":
			return nil, ErrBucketNotFound.WithDetail(bucket)
		}
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to stat object")
	}
	return &ObjectMetadata{
		Bucket:       bucket,
		ObjectKey:    key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// Open checks that the object at location exists and returns a reader over
// its content. The caller closes the reader.
func (r *ObjectReader) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	meta, err := r.Stat(ctx, location)
	if err != nil {
		return nil, err
	}

	rc, err := r.client.getObject(ctx, meta.Bucket, meta.ObjectKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to open object")
	}
	r.logger.Debug("object opened",
		logging.String("bucket", meta.Bucket),
		logging.String("key", meta.ObjectKey),
		logging.Int64("size", meta.Size),
	)
	return rc, nil
}

//Personal.AI order the ending
