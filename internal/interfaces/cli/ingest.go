package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/scholar-etl/internal/application/ingest"
	"github.com/turtacn/scholar-etl/internal/config"
)

// Config override flags.
const (
	flagSource         = "source"
	flagDelimiter      = "delimiter"
	flagBatchSize      = "batch-size"
	flagMaxAttempts    = "max-attempts"
	flagRetryDelay     = "retry-delay"
	flagOnBatchFailure = "on-batch-failure"
	flagAuthorCount    = "author-count"
	flagPipelined      = "pipelined"
)

// NewIngestCmd returns the ingest command, which runs the full pipeline
// against the configured store.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the source table into the store",
		Long: "Reads the source table twice: once to collect journals, sources and\n" +
			"authors, and once to write papers in batches. Each batch commits in one\n" +
			"transaction and is retried on transient store failures.",
		Example: "  scholaretl ingest --source ./metadata.csv --batch-size 1000\n" +
			"  scholaretl ingest -c scholaretl.yaml --source s3://corpus/metadata.csv",
		RunE: runIngest,
	}

	addSourceFlags(cmd)
	f := cmd.Flags()
	f.Int(flagBatchSize, config.DefaultBatchSize, "papers per transaction")
	f.Int(flagMaxAttempts, config.DefaultMaxAttempts, "commit attempts per batch, including the first")
	f.Duration(flagRetryDelay, config.DefaultRetryDelay, "delay before the first retry")
	f.String(flagOnBatchFailure, config.DefaultOnBatchFailure, "what to do when a batch exhausts its attempts (abort, skip)")
	f.String(flagAuthorCount, config.DefaultAuthorCount, "paper_metrics.author_count policy (resolved, listed)")
	f.Bool(flagPipelined, false, "build the next batch while the current one commits")
	return cmd
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagSource, "", "source table: local path or s3://bucket/key (overrides source.path)")
	cmd.Flags().String(flagDelimiter, "", "field delimiter (overrides source.delimiter)")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, logger := cliCtx.Config, cliCtx.Logger
	defer logger.Sync()

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	infra, err := initIngestInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	src, err := newSource(cfg, infra, logger)
	if err != nil {
		return err
	}

	stats, runErr := buildPipeline(cfg, infra, src, logger).Run(ctx)
	pushMetrics(ctx, cfg, infra, logger)

	if runErr != nil {
		return runErr
	}
	return PrintResult(cmd, newRunReport(stats))
}

// commandContext applies --timeout to the command's context.
func commandContext(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if cliCtx.Timeout > 0 {
		return context.WithTimeout(ctx, cliCtx.Timeout)
	}
	return context.WithCancel(ctx)
}

// runReport is the printable summary of an ingest run.
type runReport struct {
	RunID             string           `json:"run_id"`
	Source            string           `json:"source"`
	Elapsed           string           `json:"elapsed"`
	Records           int              `json:"records"`
	Malformed         int              `json:"malformed"`
	AuthorParseErrors int              `json:"author_parse_errors"`
	UniquePapers      int              `json:"unique_papers"`
	DuplicatePapers   int              `json:"duplicate_papers"`
	Batches           int              `json:"batches"`
	CommittedBatches  int              `json:"committed_batches"`
	FailedBatches     []int            `json:"failed_batches,omitempty"`
	Retries           int              `json:"retries"`
	UnresolvedAuthors int              `json:"unresolved_authors"`
	Inserted          map[string]int64 `json:"inserted"`
}

func newRunReport(s ingest.RunStats) runReport {
	r := runReport{
		RunID:             s.RunID,
		Source:            s.Source,
		Elapsed:           s.Elapsed.Round(time.Millisecond).String(),
		Records:           s.Records,
		Malformed:         s.Malformed,
		AuthorParseErrors: s.AuthorParseErrors,
		UniquePapers:      s.UniquePapers,
		DuplicatePapers:   s.Write.DuplicatePapers,
		Batches:           s.Write.Batches,
		CommittedBatches:  s.Write.CommittedBatches,
		FailedBatches:     s.Write.FailedBatches,
		Retries:           s.Write.Retries,
		UnresolvedAuthors: s.Write.UnresolvedAuthors,
		Inserted: map[string]int64{
			"papers":        s.Write.Inserted.Papers,
			"paper_metrics": s.Write.Inserted.Metrics,
			"paper_authors": s.Write.Inserted.Authors,
		},
	}
	for _, e := range s.Entities {
		r.Inserted[e.Kind.String()+"s"] = e.Inserted
	}
	return r
}

func (r runReport) TableHeaders() []string { return []string{"METRIC", "VALUE"} }

func (r runReport) TableRows() [][]string {
	rows := [][]string{
		{"run_id", r.RunID},
		{"source", r.Source},
		{"elapsed", r.Elapsed},
		{"records", strconv.Itoa(r.Records)},
		{"malformed", strconv.Itoa(r.Malformed)},
		{"author_parse_errors", strconv.Itoa(r.AuthorParseErrors)},
		{"unique_papers", strconv.Itoa(r.UniquePapers)},
		{"batches", fmt.Sprintf("%d/%d committed", r.CommittedBatches, r.Batches)},
		{"retries", strconv.Itoa(r.Retries)},
		{"unresolved_authors", strconv.Itoa(r.UnresolvedAuthors)},
	}
	if len(r.FailedBatches) > 0 {
		rows = append(rows, []string{"failed_batches", fmt.Sprint(r.FailedBatches)})
	}
	for _, table := range insertedTables {
		if n, ok := r.Inserted[table]; ok {
			rows = append(rows, []string{"inserted." + table, strconv.FormatInt(n, 10)})
		}
	}
	return rows
}

var insertedTables = []string{"journals", "sources", "authors", "papers", "paper_metrics", "paper_authors"}

//Personal.AI order the ending
