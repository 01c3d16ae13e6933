package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zippowriter/bigquery-dashboard/internal/app"
	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
	"github.com/zippowriter/bigquery-dashboard/internal/logging"
)

var (
	version = "0.3.0"
	verbose bool
)

// Exit codes for structured error reporting.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitAuth       = 4
	ExitNetwork    = 5
)

func main() {
	logging.Init(false)
	if app.IsFirstRun() {
		fmt.Fprint(os.Stderr, app.FirstRunHint)
	}

	root := &cobra.Command{
		Use:   "bqref",
		Short: "BigQuery table reference counter",
		Long: `bqref aggregates BigQuery table usage from INFORMATION_SCHEMA job
history and Cloud Audit Log read events into a per-table reference-count
report, so you can see which tables are actually used and which are not.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewCountCmd())
	root.AddCommand(NewDatasetsCmd())
	root.AddCommand(NewServeCmd())
	root.AddCommand(NewVersionCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(classifyError(err))
	}
}

func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch bqerr.KindOf(err) {
	case bqerr.KindValidation:
		return ExitInvalidArg
	case bqerr.KindAuthentication:
		return ExitAuth
	case bqerr.KindPermissionDenied, bqerr.KindNetwork, bqerr.KindNotEnabled:
		return ExitNetwork
	case bqerr.KindNotFound:
		return ExitNotFound
	}

	if os.IsNotExist(err) {
		return ExitNotFound
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "not a directory") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such file") {
		return ExitNotFound
	}

	if strings.Contains(msg, "dial") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "network is unreachable") {
		return ExitNetwork
	}

	if strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "must be") ||
		strings.Contains(msg, "expected") {
		return ExitInvalidArg
	}

	return ExitInternal
}
