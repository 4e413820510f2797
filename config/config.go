package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sonarmark/sonarmark/sonar"
	"github.com/spf13/viper"
)

type Config struct {
	WorkingDir string
	Server     ServerConfig
	Report     ReportConfig
	History    HistoryConfig

	Enforce      bool
	PollTimeout  time.Duration
	PollInterval time.Duration

	LogLevel  log.Level
	LogFormat LogFormat
}

type ServerConfig struct {
	URL        string
	ProjectKey string
	Branch     string
	Token      string
	// AWS Secrets Manager id of a secret holding the token, used when Token is empty
	TokenSecretPath string
}

type ReportConfig struct {
	// Markdown report path; empty disables the report
	Path  string
	Depth int
	// JSON or YAML summary path, chosen by extension; empty disables the summary
	SummaryPath string
}

type HistoryConfig struct {
	PostgresURL        string
	PostgresSecretPath string
}

// Enabled reports whether runs should be recorded in the history database.
func (h HistoryConfig) Enabled() bool {
	return h.PostgresURL != "" || h.PostgresSecretPath != ""
}

// DirectQuery reports whether the server and project were given explicitly, rather than
// read from a task descriptor in the working directory.
func (c Config) DirectQuery() bool {
	return c.Server.URL != "" && c.Server.ProjectKey != ""
}

type LogFormat string

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config keys. Each can be set by a flag of the same name, a SONARMARK_ environment variable
// (dashes become underscores), or an entry in a .env file in the current directory.
const (
	// Directory searched for the task descriptor in local task mode
	KeyWorkingDir = "working-dir"
	// Base URL of the server
	KeyServer = "server"
	// Project key to query
	KeyProjectKey = "project-key"
	// Branch to query; the main branch when empty
	KeyBranch = "branch"
	// Access token
	KeyToken = "token"
	// AWS Secrets Manager path where the token can be found
	KeyTokenSecret = "token-secret"
	// Fail when the quality gate reports ERROR
	KeyEnforce = "enforce"
	// Markdown report output path
	KeyReport = "report"
	// Heading depth of the markdown report (1-6)
	KeyReportDepth = "report-depth"
	// Machine-readable summary output path (.json, .yaml or .yml)
	KeySummary = "summary"
	// How long to wait for the compute engine task
	KeyPollTimeout = "poll-timeout"
	// How long to sleep between task polls
	KeyPollInterval = "poll-interval"
	// Postgres connection string for run history
	KeyHistoryDB = "history-db"
	// AWS Secrets Manager path where the history connection string can be found
	KeyHistorySecret = "history-secret"
	// Log level (e.g. "debug", "info", "warn", "error")
	KeyLogLevel = "log-level"
	// Log output format (e.g. "text", "json")
	KeyLogFormat = "log-format"
)

const (
	EnvPrefix = "SONARMARK"

	DefaultReportDepth  = 1
	DefaultPollTimeout  = sonar.DefaultPollTimeout
	DefaultPollInterval = sonar.DefaultPollInterval
)

// SetDefaults registers defaults and the environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyWorkingDir, ".")
	v.SetDefault(KeyReportDepth, DefaultReportDepth)
	v.SetDefault(KeyPollTimeout, DefaultPollTimeout)
	v.SetDefault(KeyPollInterval, DefaultPollInterval)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, LogFormatText)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// ReadEnvfile merges a .env file from dir into v. A missing file is not an error.
func ReadEnvfile(v *viper.Viper, dir string) error {
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("dotenv")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config: %w", err)
	}
	return nil
}

// FromViper builds and validates a Config from the settings in v.
func FromViper(v *viper.Viper) (Config, error) {
	logLevel, err := log.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		// Default to info level but log a warning
		log.Warnf("unable to parse log level: %v", err)
		logLevel = log.InfoLevel
	}

	logFormat, err := parseLogFormat(v.GetString(KeyLogFormat))
	if err != nil {
		// Default to text formatter but log a warning
		log.Warnf("unable to parse log format: %v", err)
		logFormat = LogFormatText
	}

	cfg := Config{
		WorkingDir: filepath.Clean(v.GetString(KeyWorkingDir)),
		Server: ServerConfig{
			URL:             strings.TrimSpace(v.GetString(KeyServer)),
			ProjectKey:      strings.TrimSpace(v.GetString(KeyProjectKey)),
			Branch:          strings.TrimSpace(v.GetString(KeyBranch)),
			Token:           v.GetString(KeyToken),
			TokenSecretPath: v.GetString(KeyTokenSecret),
		},
		Report: ReportConfig{
			Path:        v.GetString(KeyReport),
			Depth:       v.GetInt(KeyReportDepth),
			SummaryPath: v.GetString(KeySummary),
		},
		History: HistoryConfig{
			PostgresURL:        v.GetString(KeyHistoryDB),
			PostgresSecretPath: v.GetString(KeyHistorySecret),
		},
		Enforce:      v.GetBool(KeyEnforce),
		PollTimeout:  v.GetDuration(KeyPollTimeout),
		PollInterval: v.GetDuration(KeyPollInterval),
		LogLevel:     logLevel,
		LogFormat:    logFormat,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Report.Depth < 1 || c.Report.Depth > 6 {
		return fmt.Errorf("%s must be between 1 and 6, got %d", KeyReportDepth, c.Report.Depth)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %v", KeyPollTimeout, c.PollTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive, got %v", KeyPollInterval, c.PollInterval)
	}
	if (c.Server.URL == "") != (c.Server.ProjectKey == "") {
		return fmt.Errorf("%s and %s must be given together", KeyServer, KeyProjectKey)
	}
	if c.Server.Branch != "" && !c.DirectQuery() {
		return fmt.Errorf("%s requires %s and %s", KeyBranch, KeyServer, KeyProjectKey)
	}
	if c.Report.SummaryPath != "" {
		switch strings.ToLower(filepath.Ext(c.Report.SummaryPath)) {
		case ".json", ".yaml", ".yml":
		default:
			return fmt.Errorf("%s must end in .json, .yaml or .yml: %s", KeySummary, c.Report.SummaryPath)
		}
	}
	return nil
}

// ConfigureLogging applies the log level and format to the standard logger.
func (c Config) ConfigureLogging() {
	log.SetLevel(c.LogLevel)
	switch c.LogFormat {
	case LogFormatJSON:
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{})
	}
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(raw) {
	case LogFormatJSON:
		return LogFormatJSON, nil
	case LogFormatText:
		return LogFormatText, nil
	default:
		return "", fmt.Errorf("unidentified log format: %s", raw)
	}
}
