package cli

import (
	"context"
	"io"

	"github.com/turtacn/scholar-etl/internal/application/ingest"
	"github.com/turtacn/scholar-etl/internal/config"
	pgconn "github.com/turtacn/scholar-etl/internal/infrastructure/database/postgres"
	redisclient "github.com/turtacn/scholar-etl/internal/infrastructure/database/redis"
	kafkaproducer "github.com/turtacn/scholar-etl/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/scholar-etl/internal/infrastructure/source/csvfile"
	minioclient "github.com/turtacn/scholar-etl/internal/infrastructure/storage/minio"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// ingestInfrastructure holds the clients an ingest run needs. Optional
// clients are nil when disabled in config.
type ingestInfrastructure struct {
	pg       *pgconn.Connection
	redis    *redisclient.Client
	minio    *minioclient.MinIOClient
	producer *kafkaproducer.Producer
	metrics  prometheus.MetricsCollector
}

func (i *ingestInfrastructure) Close() {
	if i.producer != nil {
		i.producer.Close()
	}
	if i.redis != nil {
		i.redis.Close()
	}
	if i.minio != nil {
		i.minio.Close()
	}
	if i.pg != nil {
		i.pg.Close()
	}
}

// newSource builds the csvfile source for cfg.Source. Object locations are
// read through MinIO, connecting on first use.
func newSource(cfg *config.Config, infra *ingestInfrastructure, logger logging.Logger) (ingest.Source, error) {
	delim := []rune(cfg.Source.Delimiter)
	opts := []csvfile.Option{csvfile.WithLogger(logger)}
	if len(delim) == 1 {
		opts = append(opts, csvfile.WithDelimiter(delim[0]))
	}

	if !cfg.Source.IsObjectStore() {
		return csvfile.NewFileSource(cfg.Source.Path, opts...), nil
	}

	if _, _, err := minioclient.ParseLocation(cfg.Source.Path); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "invalid source location")
	}
	client, err := minioclient.NewMinIOClient(cfg.MinIO, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "object storage unavailable")
	}
	if infra != nil {
		infra.minio = client
	}
	reader := minioclient.NewObjectReader(client, logger)
	location := cfg.Source.Path
	open := func(ctx context.Context) (io.ReadCloser, error) {
		return reader.Open(ctx, location)
	}
	return csvfile.New(location, open, opts...), nil
}

// initIngestInfrastructure connects every enabled backend. On failure the
// clients opened so far are closed.
func initIngestInfrastructure(ctx context.Context, cfg *config.Config, logger logging.Logger) (*ingestInfrastructure, error) {
	infra := &ingestInfrastructure{}

	pg, err := pgconn.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	infra.pg = pg

	if cfg.Redis.Lock.Enabled {
		redisCli, err := redisclient.NewClient(cfg.Redis, logger)
		if err != nil {
			infra.Close()
			return nil, errors.Wrap(err, errors.ErrCodeRunLockUnavailable, "run lock backend unavailable")
		}
		infra.redis = redisCli
	}

	if cfg.Kafka.Enabled() {
		producer, err := kafkaproducer.NewProducer(cfg.Kafka, logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.producer = producer
	}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: cfg.Metrics.Namespace,
	}, logger)
	if err != nil {
		infra.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "metrics initialization failed")
	}
	infra.metrics = collector

	logger.Info("ingest infrastructure initialized",
		logging.Bool("run_lock", infra.redis != nil),
		logging.Bool("events", infra.producer != nil),
		logging.Bool("pushgateway", cfg.Metrics.PushgatewayURL != ""),
	)
	return infra, nil
}

// buildPipeline assembles the ingest pipeline over infra.
func buildPipeline(cfg *config.Config, infra *ingestInfrastructure, src ingest.Source, logger logging.Logger) *ingest.Pipeline {
	store := pgconn.NewStore(infra.pg, logger)

	reporters := ingest.MultiReporter{ingest.NewLogReporter(logger)}
	if infra.metrics != nil {
		reporters = append(reporters, ingest.NewMetricsReporter(prometheus.NewIngestMetrics(infra.metrics)))
	}
	if infra.producer != nil {
		pub := kafkaproducer.NewEventPublisher(infra.producer, cfg.Kafka.Topic)
		reporters = append(reporters, ingest.NewEventReporter(pub, logger))
	}

	opts := []ingest.Option{ingest.WithReporter(reporters)}
	if infra.redis != nil {
		opts = append(opts, ingest.WithRunLock(redisclient.NewRunLock(infra.redis, cfg.Redis.Lock, logger)))
	}
	return ingest.NewPipeline(src, store, cfg.Pipeline, logger, opts...)
}

// pushMetrics sends the run's metrics to the configured Pushgateway. A push
// failure is logged and does not fail the run.
func pushMetrics(ctx context.Context, cfg *config.Config, infra *ingestInfrastructure, logger logging.Logger) {
	if infra.metrics == nil || cfg.Metrics.PushgatewayURL == "" {
		return
	}
	if err := infra.metrics.Push(context.WithoutCancel(ctx), cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logger.Warn("failed to push metrics", logging.Err(err))
	}
}

//Personal.AI order the ending
