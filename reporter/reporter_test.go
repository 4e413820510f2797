package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sonarmark/sonarmark/config"
	"github.com/sonarmark/sonarmark/console"
	"github.com/sonarmark/sonarmark/descriptor"
	"github.com/sonarmark/sonarmark/model"
	"github.com/sonarmark/sonarmark/sonar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type MockResultFetcher struct {
	mock.Mock
}

func (m *MockResultFetcher) FetchByBranch(ctx context.Context, serverURL string, projectKey string, branch string) (*sonar.AnalysisResult, error) {
	args := m.Called(ctx, serverURL, projectKey, branch)
	return args.Get(0).(*sonar.AnalysisResult), args.Error(1)
}

func (m *MockResultFetcher) FetchFromDescriptor(ctx context.Context, d *descriptor.TaskDescriptor) (*sonar.AnalysisResult, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(*sonar.AnalysisResult), args.Error(1)
}

type MockHistoryRecorder struct {
	mock.Mock
}

func (m *MockHistoryRecorder) RecordRun(ctx context.Context, run model.AnalysisRun) (string, error) {
	args := m.Called(ctx, run)
	return args.String(0), args.Error(1)
}

func directConfig() config.Config {
	return config.Config{
		WorkingDir: ".",
		Server:     config.ServerConfig{URL: "http://localhost:9000", ProjectKey: "MockProj", Branch: "main"},
		Report:     config.ReportConfig{Depth: 1},
	}
}

func mockResult(status string) *sonar.AnalysisResult {
	return sonar.NewAnalysisResult(sonar.AnalysisResultFields{
		ServerURL:         "http://localhost:9000",
		ProjectKey:        "MockProj",
		ProjectName:       "Mock Project",
		QualityGateStatus: status,
		Issues:            []sonar.Issue{{Key: "i1", Component: "MockProj:src/Foo.cs", Severity: "MAJOR", Type: "BUG", Rule: "r", Message: "m"}},
	})
}

func newTestReporter(cfg config.Config, fetcher ResultFetcher, history HistoryRecorder) (*Reporter, *console.Console, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	c := console.New(&out, &errOut)
	return NewReporter(cfg, fetcher, c, history), c, &out, &errOut
}

func TestRun(t *testing.T) {
	t.Run("direct query prints a summary", func(t *testing.T) {
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), "http://localhost:9000", "MockProj", "main").Return(mockResult("OK"), nil)
		r, c, out, _ := newTestReporter(directConfig(), fetcher, nil)

		err := r.Run(context.TODO())
		require.NoError(t, err)
		assert.False(t, c.HasErrors())
		assert.Contains(t, out.String(), "Mock Project")
		assert.Contains(t, out.String(), "Quality Gate: OK")
		assert.Contains(t, out.String(), "Issues: 1")
		fetcher.AssertNumberOfCalls(t, "FetchByBranch", 1)
		fetcher.AssertNumberOfCalls(t, "FetchFromDescriptor", 0)
	})

	t.Run("enforce fails on a red gate", func(t *testing.T) {
		cfg := directConfig()
		cfg.Enforce = true
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).Return(mockResult("ERROR"), nil)
		r, c, _, errOut := newTestReporter(cfg, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.True(t, c.HasErrors())
		assert.Contains(t, errOut.String(), "Quality gate failed for Mock Project")
	})

	t.Run("a red gate without enforce is not an error", func(t *testing.T) {
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).Return(mockResult("ERROR"), nil)
		r, c, _, _ := newTestReporter(directConfig(), fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.False(t, c.HasErrors())
	})

	t.Run("enforce passes a warning gate", func(t *testing.T) {
		cfg := directConfig()
		cfg.Enforce = true
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).Return(mockResult("WARN"), nil)
		r, c, _, _ := newTestReporter(cfg, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.False(t, c.HasErrors())
	})

	t.Run("writes the markdown report at the requested depth", func(t *testing.T) {
		cfg := directConfig()
		cfg.Report.Path = filepath.Join(t.TempDir(), "out", "report.md")
		cfg.Report.Depth = 2
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).Return(mockResult("OK"), nil)
		r, c, _, _ := newTestReporter(cfg, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.False(t, c.HasErrors())
		data, err := os.ReadFile(cfg.Report.Path)
		require.NoError(t, err)
		expected, err := mockResult("OK").ToMarkdown(2)
		require.NoError(t, err)
		assert.Equal(t, expected, string(data))
	})

	t.Run("report write failures are reported", func(t *testing.T) {
		cfg := directConfig()
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		cfg.Report.Path = filepath.Join(blocker, "report.md")
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).Return(mockResult("OK"), nil)
		r, c, out, errOut := newTestReporter(cfg, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.True(t, c.HasErrors())
		assert.Contains(t, errOut.String(), "Unable to write report file")
		// The summary was still printed
		assert.Contains(t, out.String(), "Quality Gate: OK")
	})

	t.Run("writes a json summary", func(t *testing.T) {
		cfg := directConfig()
		cfg.Report.SummaryPath = filepath.Join(t.TempDir(), "summary.json")
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).Return(mockResult("ERROR"), nil)
		r, _, _, _ := newTestReporter(cfg, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		data, err := os.ReadFile(cfg.Report.SummaryPath)
		require.NoError(t, err)
		var summary sonar.Summary
		require.NoError(t, json.Unmarshal(data, &summary))
		assert.Equal(t, "ERROR", summary.QualityGateStatus)
		assert.Equal(t, 1, summary.IssueCount)
	})

	t.Run("writes a yaml summary", func(t *testing.T) {
		cfg := directConfig()
		cfg.Report.SummaryPath = filepath.Join(t.TempDir(), "summary.yaml")
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).Return(mockResult("OK"), nil)
		r, _, _, _ := newTestReporter(cfg, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		data, err := os.ReadFile(cfg.Report.SummaryPath)
		require.NoError(t, err)
		var summary sonar.Summary
		require.NoError(t, yaml.Unmarshal(data, &summary))
		assert.Equal(t, "Mock Project", summary.ProjectName)
	})

	t.Run("records history when configured", func(t *testing.T) {
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).Return(mockResult("OK"), nil)
		history := new(MockHistoryRecorder)
		history.On("RecordRun", context.TODO(), model.AnalysisRun{
			ServerURL:         "http://localhost:9000",
			ProjectKey:        "MockProj",
			Branch:            "main",
			QualityGateStatus: "OK",
			IssueCount:        1,
		}).Return("run1", nil)
		r, c, _, _ := newTestReporter(directConfig(), fetcher, history)

		require.NoError(t, r.Run(context.TODO()))
		assert.False(t, c.HasErrors())
		history.AssertNumberOfCalls(t, "RecordRun", 1)
	})

	t.Run("history failures are reported", func(t *testing.T) {
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).Return(mockResult("OK"), nil)
		history := new(MockHistoryRecorder)
		history.On("RecordRun", context.TODO(), mock.Anything).Return("", errors.New("connection refused"))
		r, c, _, errOut := newTestReporter(directConfig(), fetcher, history)

		require.NoError(t, r.Run(context.TODO()))
		assert.True(t, c.HasErrors())
		assert.Contains(t, errOut.String(), "connection refused")
	})

	t.Run("remote failures are reported, not returned", func(t *testing.T) {
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).
			Return((*sonar.AnalysisResult)(nil), fmt.Errorf("%w: task42", sonar.ErrTaskFailed))
		r, c, out, errOut := newTestReporter(directConfig(), fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.True(t, c.HasErrors())
		assert.Contains(t, errOut.String(), "task42")
		assert.Empty(t, out.String())
	})

	t.Run("api errors are reported, not returned", func(t *testing.T) {
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).
			Return((*sonar.AnalysisResult)(nil), &sonar.APIError{StatusCode: 401, URL: "/api/metrics/search"})
		r, c, _, errOut := newTestReporter(directConfig(), fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.True(t, c.HasErrors())
		assert.Contains(t, errOut.String(), "status=401")
	})

	t.Run("unexpected errors are returned", func(t *testing.T) {
		fetcher := new(MockResultFetcher)
		fetcher.On("FetchByBranch", context.TODO(), mock.Anything, mock.Anything, mock.Anything).
			Return((*sonar.AnalysisResult)(nil), errors.New("boom"))
		r, _, _, _ := newTestReporter(directConfig(), fetcher, nil)

		assert.EqualError(t, r.Run(context.TODO()), "boom")
	})
}

func TestRunLocalTask(t *testing.T) {
	t.Run("finds and parses the descriptor", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".scannerwork", descriptor.FileName)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("projectKey=MockProj\nserverUrl=http://localhost:9000\nceTaskId=task123\n"), 0o644))

		fetcher := new(MockResultFetcher)
		fetcher.On("FetchFromDescriptor", context.TODO(), &descriptor.TaskDescriptor{
			ProjectKey: "MockProj",
			ServerURL:  "http://localhost:9000",
			CETaskID:   "task123",
		}).Return(mockResult("OK"), nil)
		r, c, out, _ := newTestReporter(config.Config{WorkingDir: dir, Report: config.ReportConfig{Depth: 1}}, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.False(t, c.HasErrors())
		assert.Contains(t, out.String(), "Quality Gate: OK")
		fetcher.AssertNumberOfCalls(t, "FetchFromDescriptor", 1)
	})

	t.Run("missing descriptor is reported", func(t *testing.T) {
		fetcher := new(MockResultFetcher)
		r, c, _, errOut := newTestReporter(config.Config{WorkingDir: t.TempDir()}, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.True(t, c.HasErrors())
		assert.Contains(t, errOut.String(), descriptor.FileName)
		fetcher.AssertNumberOfCalls(t, "FetchFromDescriptor", 0)
	})

	t.Run("incomplete descriptor is reported with the missing field", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, descriptor.FileName), []byte("projectKey=MockProj\n"), 0o644))
		fetcher := new(MockResultFetcher)
		r, c, _, errOut := newTestReporter(config.Config{WorkingDir: dir}, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.True(t, c.HasErrors())
		assert.Contains(t, errOut.String(), "serverUrl")
	})

	t.Run("unreadable descriptor is reported, not returned", func(t *testing.T) {
		dir := t.TempDir()
		content := "projectKey=" + strings.Repeat("x", 70*1024) + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, descriptor.FileName), []byte(content), 0o644))
		fetcher := new(MockResultFetcher)
		r, c, _, errOut := newTestReporter(config.Config{WorkingDir: dir}, fetcher, nil)

		require.NoError(t, r.Run(context.TODO()))
		assert.True(t, c.HasErrors())
		assert.Contains(t, errOut.String(), "unreadable")
		fetcher.AssertNumberOfCalls(t, "FetchFromDescriptor", 0)
	})
}
