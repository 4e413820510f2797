package sonar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// Page size used for issue and hot-spot searches. Results past the first page are not fetched.
	searchPageSize = 500

	// Longest response body kept on an APIError
	maxErrorBody = 512
)

// Client talks to the quality server's web API. A client created by NewClient owns its
// transport and releases it on Close; one created by NewClientWithHTTPClient borrows the
// caller's and leaves it alone.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	ownsClient bool
}

func NewClient(serverURL string, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(serverURL, "/"),
		token:      token,
		httpClient: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone(), Timeout: time.Minute},
		ownsClient: true,
	}
}

func NewClientWithHTTPClient(serverURL string, token string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(serverURL, "/"),
		token:      token,
		httpClient: httpClient,
		ownsClient: false,
	}
}

// ServerURL returns the base URL with any trailing slash removed.
func (c *Client) ServerURL() string {
	return c.baseURL
}

// Close releases idle connections if the client owns its transport.
func (c *Client) Close() {
	if c.ownsClient {
		c.httpClient.CloseIdleConnections()
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("%w: bad server url %q: %v", ErrInvalidArgument, c.baseURL, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	req.Header.Add("Accept", "application/json")
	if c.token != "" {
		// The server takes tokens as the basic auth user name with an empty password
		req.SetBasicAuth(c.token, "")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: GET %s: %v", ErrOperation, u.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrOperation, u.Path, err)
	}
	log.WithField("url", u.String()).WithField("status", resp.StatusCode).Debug("server response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &APIError{StatusCode: resp.StatusCode, URL: u.Path, Body: string(body)}
	}

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrOperation, u.Path, err)
	}
	return nil
}

// GetProjectName returns the display name of a project, or the key itself when the server
// does not report one.
func (c *Client) GetProjectName(ctx context.Context, projectKey string) (string, error) {
	var resp componentShowResponse
	if err := c.getJSON(ctx, "/api/components/show", url.Values{"component": {projectKey}}, &resp); err != nil {
		return "", err
	}
	if resp.Component == nil || resp.Component.Name == nil || *resp.Component.Name == "" {
		return projectKey, nil
	}
	return *resp.Component.Name, nil
}

// GetQualityGate reads the quality gate of the latest analysis of a project, optionally on a branch.
func (c *Client) GetQualityGate(ctx context.Context, projectKey string, branch string) (string, []QualityCondition, error) {
	query := url.Values{"projectKey": {projectKey}}
	if branch != "" {
		query.Set("branch", branch)
	}
	return c.getQualityGate(ctx, query)
}

// GetQualityGateByAnalysis reads the quality gate of one analysis run.
func (c *Client) GetQualityGateByAnalysis(ctx context.Context, analysisID string) (string, []QualityCondition, error) {
	return c.getQualityGate(ctx, url.Values{"analysisId": {analysisID}})
}

func (c *Client) getQualityGate(ctx context.Context, query url.Values) (string, []QualityCondition, error) {
	var resp projectStatusResponse
	if err := c.getJSON(ctx, "/api/qualitygates/project_status", query, &resp); err != nil {
		return "", nil, err
	}
	status, err := requireField(resp.ProjectStatus, "projectStatus")
	if err != nil {
		return "", nil, err
	}

	conditions := make([]QualityCondition, 0, len(status.Conditions))
	for _, raw := range status.Conditions {
		conditions = append(conditions, raw.toCondition())
	}
	return valueOr(status.Status, QualityGateNone), conditions, nil
}

// GetMetricNames maps metric keys to their friendly names.
func (c *Client) GetMetricNames(ctx context.Context) (map[string]string, error) {
	var resp metricsSearchResponse
	if err := c.getJSON(ctx, "/api/metrics/search", nil, &resp); err != nil {
		return nil, err
	}
	metrics, err := requireField(resp.Metrics, "metrics")
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(*metrics))
	for _, m := range *metrics {
		if m.Key == nil || m.Name == nil {
			continue
		}
		names[*m.Key] = *m.Name
	}
	return names, nil
}

// GetIssues returns the open and confirmed issues of a project. Only the first page is read.
func (c *Client) GetIssues(ctx context.Context, projectKey string, branch string) ([]Issue, error) {
	query := url.Values{
		"componentKeys": {projectKey},
		"issueStatuses": {"OPEN,CONFIRMED"},
		"ps":            {fmt.Sprint(searchPageSize)},
	}
	if branch != "" {
		query.Set("branch", branch)
	}

	var resp issuesSearchResponse
	if err := c.getJSON(ctx, "/api/issues/search", query, &resp); err != nil {
		return nil, err
	}
	raws, err := requireField(resp.Issues, "issues")
	if err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(*raws))
	for _, raw := range *raws {
		issues = append(issues, raw.toIssue())
	}
	return issues, nil
}

// GetHotSpots returns the security hot-spots of a project. Only the first page is read.
func (c *Client) GetHotSpots(ctx context.Context, projectKey string, branch string) ([]HotSpot, error) {
	query := url.Values{
		"projectKey": {projectKey},
		"ps":         {fmt.Sprint(searchPageSize)},
	}
	if branch != "" {
		query.Set("branch", branch)
	}

	var resp hotspotsSearchResponse
	if err := c.getJSON(ctx, "/api/hotspots/search", query, &resp); err != nil {
		return nil, err
	}
	raws, err := requireField(resp.HotSpots, "hotspots")
	if err != nil {
		return nil, err
	}

	hotSpots := make([]HotSpot, 0, len(*raws))
	for _, raw := range *raws {
		hotSpots = append(hotSpots, raw.toHotSpot())
	}
	return hotSpots, nil
}

// GetTask reads the current state of a compute engine task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskResult, error) {
	var resp taskResponse
	if err := c.getJSON(ctx, "/api/ce/task", url.Values{"id": {taskID}}, &resp); err != nil {
		return nil, err
	}
	task, err := requireField(resp.Task, "task")
	if err != nil {
		return nil, err
	}
	rawStatus, err := requireField(task.Status, "task.status")
	if err != nil {
		return nil, err
	}
	status, err := ParseTaskStatus(*rawStatus)
	if err != nil {
		return nil, err
	}

	result := &TaskResult{Status: status}
	if status == TaskStatusSuccess && task.AnalysisID != nil && *task.AnalysisID != "" {
		id := *task.AnalysisID
		result.AnalysisID = &id
	}
	return result, nil
}
