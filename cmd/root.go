package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sonarmark/sonarmark/config"
	"github.com/sonarmark/sonarmark/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ExitError ends the process with Code. The reason has already been written to the console.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "sonarmark",
	Short: "sonarmark reports code analysis results as markdown",
	Long: `sonarmark reads the quality gate, issues and security hot-spots of an analysis
from the server and prints a summary, optionally writing a markdown report.

With --server and --project-key it queries the latest analysis of the project (and
--branch). Otherwise it looks for the report-task.txt written by the scanner under
--working-dir and waits for that analysis to finish.

Exit codes:
  0 - Results retrieved (and the quality gate passed, with --enforce)
  1 - Retrieval failed, a file could not be written, or the quality gate failed with --enforce`,
	Version:       version.GetVersion(),
	RunE:          runReport,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.String(config.KeyWorkingDir, ".", "Directory searched for the scanner's task descriptor")
	flags.String(config.KeyServer, "", "Server URL")
	flags.String(config.KeyProjectKey, "", "Project key")
	flags.String(config.KeyBranch, "", "Branch to query")
	flags.String(config.KeyToken, "", "Access token")
	flags.String(config.KeyTokenSecret, "", "AWS Secrets Manager id of a secret holding the access token")
	flags.Bool(config.KeyEnforce, false, "Fail when the quality gate reports ERROR")
	flags.String(config.KeyReport, "", "Write a markdown report to this file")
	flags.Int(config.KeyReportDepth, config.DefaultReportDepth, "Heading depth of the markdown report (1-6)")
	flags.String(config.KeySummary, "", "Write a summary to this .json or .yaml file")
	flags.Duration(config.KeyPollTimeout, config.DefaultPollTimeout, "How long to wait for the analysis task")
	flags.Duration(config.KeyPollInterval, config.DefaultPollInterval, "Delay between analysis task polls")
	flags.String(config.KeyHistoryDB, "", "Postgres connection string for recording run history")
	flags.String(config.KeyHistorySecret, "", "AWS Secrets Manager id of a secret holding the history connection string")
	flags.String(config.KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	flags.String(config.KeyLogFormat, config.LogFormatText, "Log format (text, json)")

	config.SetDefaults(v)
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Exit with a nonzero exit code if the command fails with an error
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
