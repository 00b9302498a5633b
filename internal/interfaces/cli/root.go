// Package cli implements the scholaretl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scholaretl",
		Short: "Load a scholarly paper table into a normalized relational store",
		Long: "scholaretl reads a paper metadata table, deduplicates journals, sources and\n" +
			"authors, and writes papers, paper_metrics and paper_authors in batched,\n" +
			"retried transactions. Re-running it against the same store adds no duplicates.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: SCHOLARETL_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides log.level")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "table", "summary format (table, json)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&opts.Timeout, "timeout", 0, "abort the command after this long (0 = no limit)")

	cmd.AddCommand(NewIngestCmd(), NewInspectCmd())
	return cmd
}

// persistentPreRun loads config and the logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.LoadWith(opts.ConfigPath, flagOverrides(cmd.Flags())...)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "config initialization failed")
	}

	logger, err := initLogger(cfg, opts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "logger initialization failed")
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
		Timeout:      opts.Timeout,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// flagOverrides turns the config flags that were set on the executing
// command into config overrides.
func flagOverrides(fs *pflag.FlagSet) []config.Override {
	var out []config.Override
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}

	if changed(flagSource) {
		v, _ := fs.GetString(flagSource)
		out = append(out, func(c *config.Config) { c.Source.Path = v })
	}
	if changed(flagDelimiter) {
		v, _ := fs.GetString(flagDelimiter)
		out = append(out, func(c *config.Config) { c.Source.Delimiter = v })
	}
	if changed(flagBatchSize) {
		v, _ := fs.GetInt(flagBatchSize)
		out = append(out, func(c *config.Config) { c.Pipeline.BatchSize = v })
	}
	if changed(flagMaxAttempts) {
		v, _ := fs.GetInt(flagMaxAttempts)
		out = append(out, func(c *config.Config) { c.Pipeline.MaxAttempts = v })
	}
	if changed(flagRetryDelay) {
		v, _ := fs.GetDuration(flagRetryDelay)
		out = append(out, func(c *config.Config) { c.Pipeline.RetryDelay = v })
	}
	if changed(flagOnBatchFailure) {
		v, _ := fs.GetString(flagOnBatchFailure)
		out = append(out, func(c *config.Config) { c.Pipeline.OnBatchFailure = v })
	}
	if changed(flagAuthorCount) {
		v, _ := fs.GetString(flagAuthorCount)
		out = append(out, func(c *config.Config) { c.Pipeline.AuthorCount = v })
	}
	if changed(flagPipelined) {
		v, _ := fs.GetBool(flagPipelined)
		out = append(out, func(c *config.Config) { c.Pipeline.Pipelined = v })
	}
	return out
}

// initLogger builds the logger from cfg.Log. --verbose and --log-level win
// over the configured level.
func initLogger(cfg *config.Config, opts *RootOptions) (logging.Logger, error) {
	logCfg := logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	}
	if logCfg.OutputPaths == nil {
		logCfg.OutputPaths = []string{"stderr"}
	}
	if opts.LogLevel != "" {
		if _, err := logging.ParseLevel(strings.ToLower(opts.LogLevel)); err != nil {
			return nil, err
		}
		logCfg.Level = strings.ToLower(opts.LogLevel)
	}
	if opts.Verbose {
		logCfg.Level = logging.LevelDebug
	}
	return logging.NewLogger(logCfg)
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}

	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute is the main entry point for the CLI application.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult outputs data in the format specified by CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}

	switch strings.ToLower(cliCtx.OutputFormat) {
	case "json":
		return printJSON(cmd, data)
	default:
		return printTable(cmd, data)
	}
}

// printJSON outputs data as indented JSON to stdout.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// printTable outputs data as a table if it provides one, otherwise as text.
func printTable(cmd *cobra.Command, data interface{}) error {
	type tableProvider interface {
		TableHeaders() []string
		TableRows() [][]string
	}

	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", data)
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder

	for i, h := range headers {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(padRight(h, colWidths[i]))
	}
	sb.WriteString("\n")

	for i, w := range colWidths {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteString("\n")

	for _, row := range rows {
		for i := 0; i < len(headers); i++ {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			sb.WriteString(padRight(val, colWidths[i]))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// padRight pads s with spaces to the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

//Personal.AI order the ending
