package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/sonarmark/sonarmark/config"
)

// SecretGetter is the part of the Secrets Manager client used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// readSecret loads the JSON secret at path into out.
func readSecret(ctx context.Context, secrets SecretGetter, path string, out any) error {
	if secrets == nil {
		return errors.New("secrets manager not configured")
	}
	result, err := secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(path)})
	if err != nil {
		return fmt.Errorf("reading secret %s: %w", path, err)
	}
	if result.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", path)
	}
	if err = json.Unmarshal([]byte(*result.SecretString), out); err != nil {
		return fmt.Errorf("secret %s read error: %w", path, err)
	}
	return nil
}

// ResolveToken returns the configured token, or reads it from Secrets Manager when only a
// secret path is given. No token at all means unauthenticated requests.
func ResolveToken(ctx context.Context, cfg config.ServerConfig, secrets SecretGetter) (string, error) {
	if cfg.Token != "" || cfg.TokenSecretPath == "" {
		return cfg.Token, nil
	}
	var tokenSecrets config.TokenSecretData
	if err := readSecret(ctx, secrets, cfg.TokenSecretPath, &tokenSecrets); err != nil {
		return "", err
	}
	if tokenSecrets.Token == "" {
		return "", fmt.Errorf("secret %s has no token", cfg.TokenSecretPath)
	}
	return tokenSecrets.Token, nil
}

// ResolveHistoryURL returns the Postgres connection string for run history, from config or
// from Secrets Manager.
func ResolveHistoryURL(ctx context.Context, cfg config.HistoryConfig, secrets SecretGetter) (string, error) {
	if cfg.PostgresURL != "" {
		return cfg.PostgresURL, nil
	}
	var pgSecrets config.PostgresSecretData
	if err := readSecret(ctx, secrets, cfg.PostgresSecretPath, &pgSecrets); err != nil {
		return "", err
	}
	if pgSecrets.ConnectionString == "" {
		return "", fmt.Errorf("secret %s has no connection string", cfg.PostgresSecretPath)
	}
	return pgSecrets.ConnectionString, nil
}
