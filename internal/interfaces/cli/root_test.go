package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

const inspectCSV = `paper_id,title,journal,source,authors,year
p1,First,Nature,PMC,"['Alice', 'Bob']",2020
p2,Second,Nature,WHO,"['bob', 'Carol']",2021
p1,First again,Cell,PMC,['Dave'],2020
,orphan,,,,
`

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metadata.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "scholaretl", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Version, Version)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["ingest"])
	assert.True(t, names["inspect"])

	for _, f := range []string{"config", "log-level", "output", "verbose", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(f), f)
	}
}

func TestIngestCmd_Flags(t *testing.T) {
	cmd := NewIngestCmd()
	for _, f := range []string{flagSource, flagDelimiter, flagBatchSize, flagMaxAttempts, flagRetryDelay,
		flagOnBatchFailure, flagAuthorCount, flagPipelined} {
		assert.NotNil(t, cmd.Flags().Lookup(f), f)
	}
}

func TestFlagOverrides_OnlyChangedFlags(t *testing.T) {
	cmd := NewIngestCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--source", "s3://corpus/metadata.csv",
		"--batch-size", "250",
		"--retry-delay", "100ms",
		"--on-batch-failure", "skip",
		"--pipelined",
	}))

	cfg := &config.Config{Pipeline: config.PipelineConfig{MaxAttempts: 9, AuthorCount: config.AuthorCountListed}}
	for _, o := range flagOverrides(cmd.Flags()) {
		o(cfg)
	}
	assert.Equal(t, "s3://corpus/metadata.csv", cfg.Source.Path)
	assert.Equal(t, 250, cfg.Pipeline.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Pipeline.RetryDelay)
	assert.Equal(t, config.OnBatchFailureSkip, cfg.Pipeline.OnBatchFailure)
	assert.True(t, cfg.Pipeline.Pipelined)
	assert.Equal(t, 9, cfg.Pipeline.MaxAttempts, "unset flags keep config values")
	assert.Equal(t, config.AuthorCountListed, cfg.Pipeline.AuthorCount)
}

func TestInspect_JSON(t *testing.T) {
	path := writeCSV(t, inspectCSV)

	out, _, err := runRoot(t, "inspect", "--source", path, "--log-level", "error", "-o", "json")
	require.NoError(t, err)

	var rep inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, path, rep.Source)
	assert.Equal(t, 4, rep.Records)
	assert.Equal(t, 1, rep.Malformed)
	assert.Equal(t, 2, rep.UniquePapers)
	assert.Equal(t, 1, rep.DuplicatePapers)
	assert.Equal(t, 1, rep.Journals)
	assert.Equal(t, 2, rep.Sources)
	assert.Equal(t, 3, rep.Authors, "Bob and bob collapse to one author")
	assert.Equal(t, 1, rep.Batches)
}

func TestInspect_Table(t *testing.T) {
	path := writeCSV(t, inspectCSV)

	out, _, err := runRoot(t, "inspect", "--source", path, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "METRIC")
	assert.Contains(t, out, "unique_papers")
}

func TestInspect_MissingSourceFile(t *testing.T) {
	_, _, err := runRoot(t, "inspect", "--source", filepath.Join(t.TempDir(), "nope.csv"), "--log-level", "error")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSourceUnavailable))
	assert.Equal(t, 4, errors.ExitStatusForCode(errors.GetCode(err)))
}

func TestConfigErrorsAreValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"inspect"}},
		{"bad batch policy", []string{"ingest", "--source", "x.csv", "--on-batch-failure", "retry-forever"}},
		{"bad batch size", []string{"ingest", "--source", "x.csv", "--batch-size=-1"}},
		{"missing config file", []string{"inspect", "--source", "x.csv", "--config", "/nonexistent/scholaretl.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runRoot(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), err.Error())
			assert.Equal(t, 2, errors.ExitStatusForCode(errors.GetCode(err)))
		})
	}
}

func TestInitLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := initLogger(&config.Config{}, &RootOptions{LogLevel: "chatty"})
	assert.Error(t, err)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewInspectCmd()
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"METRIC", "VALUE"}, [][]string{{"records", "10"}, {"unique_papers", "7"}})
	assert.Equal(t, ""+
		"METRIC         VALUE\n"+
		"-------------  -----\n"+
		"records        10   \n"+
		"unique_papers  7    \n", out)
	assert.Empty(t, FormatTable(nil, nil))
}

func TestRunReport_Rows(t *testing.T) {
	rep := runReport{RunID: "r1", Batches: 3, CommittedBatches: 2, FailedBatches: []int{2},
		Inserted: map[string]int64{"papers": 10, "authors": 4}}
	rows := rep.TableRows()
	assert.Contains(t, rows, []string{"batches", "2/3 committed"})
	assert.Contains(t, rows, []string{"failed_batches", "[2]"})
	assert.Contains(t, rows, []string{"inserted.authors", "4"})
	assert.Contains(t, rows, []string{"inserted.papers", "10"})
}

//Personal.AI order the ending
