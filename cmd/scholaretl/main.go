// Command scholaretl loads a scholarly paper table into a normalized
// relational store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/scholar-etl/internal/interfaces/cli"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(errors.ExitStatusForCode(errors.GetCode(err)))
	}
}

//Personal.AI order the ending
