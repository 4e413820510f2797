package cmd

import (
	"context"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	log "github.com/sirupsen/logrus"
	"github.com/sonarmark/sonarmark/config"
	"github.com/sonarmark/sonarmark/console"
	"github.com/sonarmark/sonarmark/database"
	"github.com/sonarmark/sonarmark/reporter"
	"github.com/sonarmark/sonarmark/service"
	"github.com/spf13/cobra"
)

func runReport(cmd *cobra.Command, args []string) error {
	if err := config.ReadEnvfile(v, "."); err != nil {
		return err
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()

	ctx, done := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer done()

	out := console.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	secrets, err := newSecretGetter(ctx, cfg)
	if err != nil {
		out.WriteError("Unable to load AWS configuration: %v", err)
		return &ExitError{Code: 1}
	}

	token, err := service.ResolveToken(ctx, cfg.Server, secrets)
	if err != nil {
		out.WriteError("Unable to resolve access token: %v", err)
		return &ExitError{Code: 1}
	}

	var history reporter.HistoryRecorder
	if cfg.History.Enabled() {
		db, err := openHistory(ctx, cfg, secrets)
		if err != nil {
			out.WriteError("Unable to open run history: %v", err)
			return &ExitError{Code: 1}
		}
		defer db.Disconnect()
		history = db
	}

	r := reporter.NewReporter(cfg, service.NewSonarService(cfg, token), out, history)
	if err := r.Run(ctx); err != nil {
		return err
	}
	if out.HasErrors() {
		return &ExitError{Code: 1}
	}
	return nil
}

// newSecretGetter only loads AWS configuration when a secret is actually referenced.
func newSecretGetter(ctx context.Context, cfg config.Config) (service.SecretGetter, error) {
	if cfg.Server.TokenSecretPath == "" && cfg.History.PostgresSecretPath == "" {
		return nil, nil
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return secretsmanager.NewFromConfig(awsConfig), nil
}

func openHistory(ctx context.Context, cfg config.Config, secrets service.SecretGetter) (*database.Database, error) {
	databaseURL, err := service.ResolveHistoryURL(ctx, cfg.History, secrets)
	if err != nil {
		return nil, err
	}
	db := database.NewDatabase(databaseURL)
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Disconnect()
		return nil, err
	}
	log.Debug("run history enabled")
	return db, nil
}
