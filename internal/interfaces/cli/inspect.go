package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/scholar-etl/internal/application/ingest"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
)

// NewInspectCmd returns the inspect command: a dry run that normalizes and
// deduplicates the source and reports counts without touching the store.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inspect",
		Short:   "Report record and entity counts of the source without writing",
		Example: "  scholaretl inspect --source ./metadata.csv -o json",
		RunE:    runInspect,
	}
	addSourceFlags(cmd)
	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, logger := cliCtx.Config, cliCtx.Logger
	defer logger.Sync()

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	infra := &ingestInfrastructure{}
	defer infra.Close()

	src, err := newSource(cfg, infra, logger)
	if err != nil {
		return err
	}

	res, err := ingest.NewPipeline(src, nil, cfg.Pipeline, logger).Scan(ctx)
	if err != nil {
		return err
	}
	logger.Info("inspection finished",
		logging.String("source", src.Name()),
		logging.Int("records", res.Records),
		logging.Int("malformed", res.Malformed),
	)
	return PrintResult(cmd, newInspectReport(src.Name(), res, cfg.Pipeline.BatchSize))
}

// inspectReport is the printable result of a dry run.
type inspectReport struct {
	Source            string `json:"source"`
	Records           int    `json:"records"`
	Malformed         int    `json:"malformed"`
	AuthorParseErrors int    `json:"author_parse_errors"`
	UniquePapers      int    `json:"unique_papers"`
	DuplicatePapers   int    `json:"duplicate_papers"`
	Journals          int    `json:"journals"`
	Sources           int    `json:"sources"`
	Authors           int    `json:"authors"`
	Batches           int    `json:"batches"`
}

func newInspectReport(source string, res ingest.ScanResult, batchSize int) inspectReport {
	return inspectReport{
		Source:            source,
		Records:           res.Records,
		Malformed:         res.Malformed,
		AuthorParseErrors: res.AuthorParseErrors,
		UniquePapers:      res.UniquePapers,
		DuplicatePapers:   res.DuplicatePapers,
		Journals:          res.Entities.Journals.Len(),
		Sources:           res.Entities.Sources.Len(),
		Authors:           res.Entities.Authors.Len(),
		Batches:           ingest.BatchCount(res.UniquePapers, batchSize),
	}
}

func (r inspectReport) TableHeaders() []string { return []string{"METRIC", "VALUE"} }

func (r inspectReport) TableRows() [][]string {
	return [][]string{
		{"source", r.Source},
		{"records", strconv.Itoa(r.Records)},
		{"malformed", strconv.Itoa(r.Malformed)},
		{"author_parse_errors", strconv.Itoa(r.AuthorParseErrors)},
		{"unique_papers", strconv.Itoa(r.UniquePapers)},
		{"duplicate_papers", strconv.Itoa(r.DuplicatePapers)},
		{"journals", strconv.Itoa(r.Journals)},
		{"sources", strconv.Itoa(r.Sources)},
		{"authors", strconv.Itoa(r.Authors)},
		{"batches", strconv.Itoa(r.Batches)},
	}
}

//Personal.AI order the ending
