package minio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client used by this package.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

type MinIOClient struct {
	client MinIOAPI
	config config.MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool

	// getObject opens an object for reading; tests replace it.
	getObject func(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

var ErrMinIOClientClosed = errors.New(errors.ErrCodeInternal, "minio client is closed")

func NewMinIOClient(cfg config.MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Verify connection
	if _, err := client.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	log.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return newMinIOClient(client, cfg, log), nil
}

func newMinIOClient(api MinIOAPI, cfg config.MinIOConfig, log logging.Logger) *MinIOClient {
	c := &MinIOClient{client: api, config: cfg, logger: log}
	c.getObject = func(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
		return c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	}
	return c
}

func (c *MinIOClient) GetClient() MinIOAPI {
	return c.client
}

func (c *MinIOClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *MinIOClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Error   string
}

func (c *MinIOClient) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	_, err := c.client.ListBuckets(ctx)
	status := &HealthStatus{
		Healthy: err == nil,
		Latency: time.Since(start),
	}
	if err != nil {
		status.Error = err.Error()
		return status, err
	}
	return status, nil
}

//Personal.AI order the ending
