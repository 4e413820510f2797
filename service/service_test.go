package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/sonarmark/sonarmark/config"
	"github.com/sonarmark/sonarmark/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSecretGetter struct {
	mock.Mock
}

func (m *MockSecretGetter) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, aws.ToString(params.SecretId))
	return args.Get(0).(*secretsmanager.GetSecretValueOutput), args.Error(1)
}

func secretOutput(s string) *secretsmanager.GetSecretValueOutput {
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(s)}
}

func TestResolveToken(t *testing.T) {
	t.Run("explicit token wins without touching secrets", func(t *testing.T) {
		secrets := new(MockSecretGetter)
		token, err := ResolveToken(context.TODO(), config.ServerConfig{Token: "abc", TokenSecretPath: "prod/sonar"}, secrets)
		require.NoError(t, err)
		assert.Equal(t, "abc", token)
		secrets.AssertNumberOfCalls(t, "GetSecretValue", 0)
	})

	t.Run("no token and no secret means anonymous", func(t *testing.T) {
		token, err := ResolveToken(context.TODO(), config.ServerConfig{}, nil)
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("reads the token from secrets manager", func(t *testing.T) {
		secrets := new(MockSecretGetter)
		secrets.On("GetSecretValue", context.TODO(), "prod/sonar").Return(secretOutput(`{"token":"from-secret"}`), nil)

		token, err := ResolveToken(context.TODO(), config.ServerConfig{TokenSecretPath: "prod/sonar"}, secrets)
		require.NoError(t, err)
		assert.Equal(t, "from-secret", token)
		secrets.AssertNumberOfCalls(t, "GetSecretValue", 1)
	})

	t.Run("secret without a token is an error", func(t *testing.T) {
		secrets := new(MockSecretGetter)
		secrets.On("GetSecretValue", context.TODO(), "prod/sonar").Return(secretOutput(`{}`), nil)

		_, err := ResolveToken(context.TODO(), config.ServerConfig{TokenSecretPath: "prod/sonar"}, secrets)
		assert.ErrorContains(t, err, "prod/sonar")
	})

	t.Run("secrets manager errors are returned", func(t *testing.T) {
		secrets := new(MockSecretGetter)
		secrets.On("GetSecretValue", context.TODO(), "prod/sonar").Return(&secretsmanager.GetSecretValueOutput{}, errors.New("access denied"))

		_, err := ResolveToken(context.TODO(), config.ServerConfig{TokenSecretPath: "prod/sonar"}, secrets)
		assert.ErrorContains(t, err, "access denied")
	})
}

func TestResolveHistoryURL(t *testing.T) {
	t.Run("explicit url wins", func(t *testing.T) {
		url, err := ResolveHistoryURL(context.TODO(), config.HistoryConfig{PostgresURL: "postgres://localhost/history"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost/history", url)
	})

	t.Run("reads the connection string from secrets manager", func(t *testing.T) {
		secrets := new(MockSecretGetter)
		secrets.On("GetSecretValue", context.TODO(), "prod/pg").Return(secretOutput(`{"connectionString":"postgres://db/history"}`), nil)

		url, err := ResolveHistoryURL(context.TODO(), config.HistoryConfig{PostgresSecretPath: "prod/pg"}, secrets)
		require.NoError(t, err)
		assert.Equal(t, "postgres://db/history", url)
	})
}

func TestSonarService(t *testing.T) {
	responses := map[string]string{
		"/api/ce/task":                     `{"task":{"status":"SUCCESS","analysisId":"a1"}}`,
		"/api/components/show":             `{"component":{"name":"Mock Project"}}`,
		"/api/qualitygates/project_status": `{"projectStatus":{"status":"OK","conditions":[]}}`,
		"/api/metrics/search":              `{"metrics":[]}`,
		"/api/issues/search":               `{"issues":[]}`,
		"/api/hotspots/search":             `{"hotspots":[]}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	cfg := config.Config{PollTimeout: 5 * time.Second, PollInterval: 10 * time.Millisecond}

	t.Run("fetches by branch", func(t *testing.T) {
		svc := NewSonarService(cfg, "").WithHTTPClient(server.Client())

		result, err := svc.FetchByBranch(context.Background(), server.URL, "MockProj", "main")
		require.NoError(t, err)
		assert.Equal(t, "Mock Project", result.ProjectName())
		assert.Equal(t, "OK", result.QualityGateStatus())
	})

	t.Run("fetches from a task descriptor", func(t *testing.T) {
		svc := NewSonarService(cfg, "").WithHTTPClient(server.Client())
		d := &descriptor.TaskDescriptor{ProjectKey: "MockProj", ServerURL: server.URL, CETaskID: "t1"}

		result, err := svc.FetchFromDescriptor(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, "MockProj", result.ProjectKey())
		assert.Equal(t, server.URL, result.ServerURL())
	})
}
