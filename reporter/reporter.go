package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucsky/cuid"
	log "github.com/sirupsen/logrus"
	"github.com/sonarmark/sonarmark/config"
	"github.com/sonarmark/sonarmark/descriptor"
	"github.com/sonarmark/sonarmark/model"
	"github.com/sonarmark/sonarmark/sonar"
	"gopkg.in/yaml.v3"
)

var errNoDescriptor = fmt.Errorf("%w: no %s", descriptor.ErrNotFound, descriptor.FileName)

type ResultFetcher interface {
	FetchByBranch(ctx context.Context, serverURL string, projectKey string, branch string) (*sonar.AnalysisResult, error)
	FetchFromDescriptor(ctx context.Context, d *descriptor.TaskDescriptor) (*sonar.AnalysisResult, error)
}

// Output is the user-facing line sink. WriteError also marks the run as failed.
type Output interface {
	WriteLine(format string, args ...any)
	WriteError(format string, args ...any)
	WriteConditions(result *sonar.AnalysisResult)
}

type HistoryRecorder interface {
	RecordRun(ctx context.Context, run model.AnalysisRun) (string, error)
}

type Reporter struct {
	cfg     config.Config
	fetcher ResultFetcher
	out     Output
	history HistoryRecorder
	logger  *log.Entry
}

// NewReporter wires a reporter. history may be nil when run history is disabled.
func NewReporter(cfg config.Config, fetcher ResultFetcher, out Output, history HistoryRecorder) *Reporter {
	return &Reporter{
		cfg:     cfg,
		fetcher: fetcher,
		out:     out,
		history: history,
		logger:  log.WithField("run", cuid.New()),
	}
}

/*
Run fetches the analysis results and acts on them: prints a summary, records history,
enforces the quality gate, and writes the report and summary files.

Expected failures (bad input, remote errors, file errors) are written to the output, which
marks the run as failed, and Run returns nil. Anything else is logged and returned.
*/
func (r *Reporter) Run(ctx context.Context) error {
	result, err := r.fetch(ctx)
	if err != nil {
		if isExpected(err) {
			r.logger.WithError(err).Debug("fetch failed")
			r.out.WriteError("%v", err)
			return nil
		}
		r.logger.Errorf("unexpected error fetching results: %v", err)
		return err
	}

	r.printSummary(result)
	run := model.AnalysisRunFromResult(result, r.cfg.Server.Branch)
	r.recordHistory(ctx, run)

	if r.cfg.Enforce && run.Failed() {
		r.out.WriteError("Quality gate failed for %s", result.ProjectName())
	}

	if r.cfg.Report.Path != "" {
		r.writeReport(result)
	}
	if r.cfg.Report.SummaryPath != "" {
		r.writeSummary(result)
	}
	return nil
}

func (r *Reporter) fetch(ctx context.Context) (*sonar.AnalysisResult, error) {
	if r.cfg.DirectQuery() {
		return r.fetcher.FetchByBranch(ctx, r.cfg.Server.URL, r.cfg.Server.ProjectKey, r.cfg.Server.Branch)
	}

	path, ok := descriptor.Find(r.cfg.WorkingDir)
	if !ok {
		return nil, fmt.Errorf("%w under %s; run the scanner first or pass --%s and --%s",
			errNoDescriptor, r.cfg.WorkingDir, config.KeyServer, config.KeyProjectKey)
	}
	r.logger.WithField("path", path).Info("found task descriptor")

	d, err := descriptor.Parse(path)
	if err != nil {
		return nil, err
	}
	return r.fetcher.FetchFromDescriptor(ctx, d)
}

func (r *Reporter) printSummary(result *sonar.AnalysisResult) {
	r.out.WriteLine("%s", result.ProjectName())
	r.out.WriteLine("  Dashboard: %s", result.DashboardURL())
	r.out.WriteLine("  Quality Gate: %s", result.QualityGateStatus())
	r.out.WriteConditions(result)
	r.out.WriteLine("  Issues: %d", len(result.Issues()))
	r.out.WriteLine("  Security Hot-Spots: %d", len(result.HotSpots()))
}

func (r *Reporter) recordHistory(ctx context.Context, run model.AnalysisRun) {
	if r.history == nil {
		return
	}
	id, err := r.history.RecordRun(ctx, run)
	if err != nil {
		r.out.WriteError("Unable to record run history: %v", err)
		return
	}
	r.logger.WithField("id", id).Debug("recorded run history")
}

func (r *Reporter) writeReport(result *sonar.AnalysisResult) {
	markdown, err := result.ToMarkdown(r.cfg.Report.Depth)
	if err != nil {
		r.out.WriteError("Unable to render report: %v", err)
		return
	}
	if err := writeFile(r.cfg.Report.Path, []byte(markdown)); err != nil {
		r.out.WriteError("Unable to write report file %s: %v", r.cfg.Report.Path, err)
		return
	}
	r.logger.WithField("path", r.cfg.Report.Path).Info("wrote report")
}

func (r *Reporter) writeSummary(result *sonar.AnalysisResult) {
	path := r.cfg.Report.SummaryPath
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(result.Summary())
	default:
		data, err = json.MarshalIndent(result.Summary(), "", "  ")
	}
	if err != nil {
		r.out.WriteError("Unable to encode summary: %v", err)
		return
	}
	if err := writeFile(path, data); err != nil {
		r.out.WriteError("Unable to write summary file %s: %v", path, err)
		return
	}
	r.logger.WithField("path", path).Info("wrote summary")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func isExpected(err error) bool {
	for _, target := range []error{
		sonar.ErrInvalidArgument,
		sonar.ErrOperation,
		descriptor.ErrNotFound,
		descriptor.ErrUnreadable,
		descriptor.ErrMissingField,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
