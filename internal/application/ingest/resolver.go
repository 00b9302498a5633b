package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/domain/paper"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// ResolveStats counts what identity resolution did for one entity kind.
type ResolveStats struct {
	Kind     paper.EntityKind
	Distinct int
	Missing  int
	Inserted int64
	Mapped   int
}

// Resolver persists entity sets insert-if-absent and maps each EntityKey to
// its stored identifier.
type Resolver struct {
	repo      paper.Repository
	retrier   *Retrier
	chunkSize int
	log       logging.Logger
}

// NewResolver returns a Resolver writing through repo. Names are inserted in
// chunks of chunkSize, each chunk under retrier.
func NewResolver(repo paper.Repository, retrier *Retrier, chunkSize int, log logging.Logger) *Resolver {
	if chunkSize <= 0 {
		chunkSize = config.DefaultEntityChunkSize
	}
	return &Resolver{repo: repo, retrier: retrier, chunkSize: chunkSize, log: log.Named("resolver")}
}

// Resolve resolves every kind in sets. A failure on any kind aborts the
// whole resolution with ErrCodeIdentityResolutionFailed; no partial maps are
// returned.
func (r *Resolver) Resolve(ctx context.Context, sets paper.EntitySets) (paper.IdentityMaps, []ResolveStats, error) {
	var maps paper.IdentityMaps
	stats := make([]ResolveStats, 0, len(paper.AllKinds))
	for _, kind := range paper.AllKinds {
		m, st, err := r.ResolveKind(ctx, sets.Get(kind))
		if err != nil {
			return paper.IdentityMaps{}, nil, err
		}
		maps.Set(m)
		stats = append(stats, st)
	}
	return maps, stats, nil
}

// ResolveKind inserts the names of set that the store does not hold yet,
// then reloads the table and builds the identity map from it.
func (r *Resolver) ResolveKind(ctx context.Context, set *paper.EntitySet) (*paper.IdentityMap, ResolveStats, error) {
	kind := set.Kind()
	start := time.Now()
	st := ResolveStats{Kind: kind, Distinct: set.Len()}
	log := r.log.With(logging.String(logging.FieldEntity, kind.String()))

	existing, err := r.load(ctx, kind)
	if err != nil {
		return nil, st, r.fail(kind, "failed to load existing entities", err)
	}

	missing := paper.BuildIdentityMap(kind, existing).Missing(set)
	st.Missing = len(missing)
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, key := range missing {
			if name, ok := set.Name(key); ok {
				names = append(names, name)
			}
		}
		for from := 0; from < len(names); from += r.chunkSize {
			to := from + r.chunkSize
			if to > len(names) {
				to = len(names)
			}
			chunk := names[from:to]
			var n int64
			_, err := r.retrier.Do(ctx, "insert "+kind.String()+"s", func(ctx context.Context) error {
				var ierr error
				n, ierr = r.repo.InsertEntities(ctx, kind, chunk)
				return ierr
			}, nil)
			if err != nil {
				return nil, st, r.fail(kind, "failed to insert entities", err)
			}
			st.Inserted += n
		}

		if existing, err = r.load(ctx, kind); err != nil {
			return nil, st, r.fail(kind, "failed to reload entities", err)
		}
	}

	m := paper.BuildIdentityMap(kind, existing)
	if unresolved := m.Missing(set); len(unresolved) > 0 {
		cause := errors.New(errors.ErrCodeNotFound,
			fmt.Sprintf("%d %ss unresolved, first %q", len(unresolved), kind, unresolved[0]))
		return nil, st, r.fail(kind, "entities missing after insert", cause)
	}
	st.Mapped = m.Len()

	log.Info("identities resolved",
		logging.Int("distinct", st.Distinct),
		logging.Int("missing", st.Missing),
		logging.Int64("inserted", st.Inserted),
		logging.Int("mapped", st.Mapped),
		logging.Duration(logging.FieldElapsed, time.Since(start)),
	)
	return m, st, nil
}

func (r *Resolver) load(ctx context.Context, kind paper.EntityKind) ([]paper.StoredEntity, error) {
	var rows []paper.StoredEntity
	_, err := r.retrier.Do(ctx, "load "+kind.String()+"s", func(ctx context.Context) error {
		var lerr error
		rows, lerr = r.repo.LoadEntities(ctx, kind)
		return lerr
	}, nil)
	return rows, err
}

func (r *Resolver) fail(kind paper.EntityKind, msg string, err error) error {
	r.log.Error(msg, logging.String(logging.FieldEntity, kind.String()), logging.Err(err))
	return errors.Wrap(err, errors.ErrCodeIdentityResolutionFailed, "identity resolution failed").
		WithDetail(kind.String() + ": " + msg)
}

//Personal.AI order the ending
