package sonar

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sonarmark/sonarmark/descriptor"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollTimeout  = 5 * time.Minute
	DefaultPollInterval = 10 * time.Second
)

// PollOptions bounds the wait for a compute engine task. Both durations must be positive.
type PollOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// FetchByBranch collects the latest analysis of a project, optionally on a branch. The
// sub-fetches run concurrently; the first failure cancels the rest and no partial result
// is returned.
func (c *Client) FetchByBranch(ctx context.Context, projectKey string, branch string) (*AnalysisResult, error) {
	if projectKey == "" {
		return nil, fmt.Errorf("%w: project key is required", ErrInvalidArgument)
	}

	fields := AnalysisResultFields{ServerURL: c.baseURL, ProjectKey: projectKey}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fields.QualityGateStatus, fields.Conditions, err = c.GetQualityGate(gCtx, projectKey, branch)
		return err
	})
	c.fetchDetails(gCtx, g, &fields, projectKey, branch)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewAnalysisResult(fields), nil
}

// fetchDetails queues the lookups shared by both retrieval modes. Each goroutine writes a
// distinct field, and the fields are only read after g.Wait.
func (c *Client) fetchDetails(ctx context.Context, g *errgroup.Group, fields *AnalysisResultFields, projectKey string, branch string) {
	g.Go(func() error {
		var err error
		fields.ProjectName, err = c.GetProjectName(ctx, projectKey)
		return err
	})
	g.Go(func() error {
		var err error
		fields.MetricNames, err = c.GetMetricNames(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		fields.Issues, err = c.GetIssues(ctx, projectKey, branch)
		return err
	})
	g.Go(func() error {
		var err error
		fields.HotSpots, err = c.GetHotSpots(ctx, projectKey, branch)
		return err
	})
}

// AwaitTask polls a compute engine task until it reaches a terminal state or the timeout
// passes. Only SUCCESS returns a result; FAILED and CANCELED are errors.
func (c *Client) AwaitTask(ctx context.Context, taskID string, opts PollOptions) (*TaskResult, error) {
	if opts.Timeout <= 0 || opts.Interval <= 0 {
		return nil, fmt.Errorf("%w: poll timeout and interval must be positive", ErrInvalidArgument)
	}
	if taskID == "" {
		return nil, fmt.Errorf("%w: task id is required", ErrInvalidArgument)
	}

	deadline := time.Now().Add(opts.Timeout)
	for {
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w %s after %v", ErrPollTimeout, taskID, opts.Timeout)
		}

		task, err := c.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		log.WithField("taskID", taskID).WithField("status", task.Status).Debug("polled task")

		switch task.Status {
		case TaskStatusSuccess:
			return task, nil
		case TaskStatusFailed:
			return nil, fmt.Errorf("%w: %s", ErrTaskFailed, taskID)
		case TaskStatusCanceled:
			return nil, fmt.Errorf("%w: %s", ErrTaskCanceled, taskID)
		}

		wait := min(opts.Interval, time.Until(deadline))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// FetchQualityResult waits for the task named by a descriptor, reads the quality gate of the
// analysis it produced, and fills in the project details for the descriptor's project.
// The client should point at the descriptor's server.
func (c *Client) FetchQualityResult(ctx context.Context, d *descriptor.TaskDescriptor, opts PollOptions) (*AnalysisResult, error) {
	task, err := c.AwaitTask(ctx, d.CETaskID, opts)
	if err != nil {
		return nil, err
	}
	if task.AnalysisID == nil || *task.AnalysisID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAnalysisID, d.CETaskID)
	}

	fields := AnalysisResultFields{ServerURL: c.baseURL, ProjectKey: d.ProjectKey}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fields.QualityGateStatus, fields.Conditions, err = c.GetQualityGateByAnalysis(gCtx, *task.AnalysisID)
		return err
	})
	c.fetchDetails(gCtx, g, &fields, d.ProjectKey, "")
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewAnalysisResult(fields), nil
}
