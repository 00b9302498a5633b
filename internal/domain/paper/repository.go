package paper

import "context"

// Repository is the persistence contract of the ingest pipeline. Every write
// is insert-if-absent: existing rows are never modified and a conflict is
// never an error.
type Repository interface {
	// LoadEntities returns every persisted entity of kind.
	LoadEntities(ctx context.Context, kind EntityKind) ([]StoredEntity, error)

	// InsertEntities inserts names of kind that are not yet present and
	// returns how many rows were created.
	InsertEntities(ctx context.Context, kind EntityKind, names []string) (int64, error)

	// CommitBatch writes batch in one transaction. Papers whose identifier
	// already exists are skipped together with their metrics and authors.
	CommitBatch(ctx context.Context, batch *Batch) (BatchResult, error)
}

//Personal.AI order the ending
