package sonar

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

type TaskResult struct {
	Status TaskStatus
	// Only set when Status is TaskStatusSuccess
	AnalysisID *string
}

// QualityCondition is one metric comparison within a quality gate.
type QualityCondition struct {
	Metric         string
	Comparator     string
	ErrorThreshold *string
	ActualValue    *string
	Status         string
}

type Issue struct {
	Key       string
	Rule      string
	Severity  string
	Component string
	Line      *int
	Message   string
	Type      string
}

// HotSpot is a code location flagged for manual security review.
type HotSpot struct {
	Key                      string
	Component                string
	Line                     *int
	Message                  string
	SecurityCategory         string
	VulnerabilityProbability string
}

// AnalysisResultFields carries the values used to build an AnalysisResult.
type AnalysisResultFields struct {
	ServerURL         string
	ProjectKey        string
	ProjectName       string
	QualityGateStatus string
	Conditions        []QualityCondition
	MetricNames       map[string]string
	Issues            []Issue
	HotSpots          []HotSpot
}

/*
AnalysisResult is the combined outcome of one analysis: gate status, conditions, issues and
hot-spots. It cannot be changed after construction; accessors hand out copies and
collections are never nil.
*/
type AnalysisResult struct {
	serverURL         string
	projectKey        string
	projectName       string
	qualityGateStatus string
	conditions        []QualityCondition
	metricNames       map[string]string
	issues            []Issue
	hotSpots          []HotSpot
}

func NewAnalysisResult(f AnalysisResultFields) *AnalysisResult {
	r := &AnalysisResult{
		serverURL:         f.ServerURL,
		projectKey:        f.ProjectKey,
		projectName:       f.ProjectName,
		qualityGateStatus: f.QualityGateStatus,
		conditions:        slices.Clone(f.Conditions),
		metricNames:       maps.Clone(f.MetricNames),
		issues:            slices.Clone(f.Issues),
		hotSpots:          slices.Clone(f.HotSpots),
	}
	if r.conditions == nil {
		r.conditions = []QualityCondition{}
	}
	if r.metricNames == nil {
		r.metricNames = map[string]string{}
	}
	if r.issues == nil {
		r.issues = []Issue{}
	}
	if r.hotSpots == nil {
		r.hotSpots = []HotSpot{}
	}
	if r.projectName == "" {
		r.projectName = r.projectKey
	}
	if r.qualityGateStatus == "" {
		r.qualityGateStatus = QualityGateNone
	}
	return r
}

func (r *AnalysisResult) ServerURL() string         { return r.serverURL }
func (r *AnalysisResult) ProjectKey() string        { return r.projectKey }
func (r *AnalysisResult) ProjectName() string       { return r.projectName }
func (r *AnalysisResult) QualityGateStatus() string { return r.qualityGateStatus }

func (r *AnalysisResult) Conditions() []QualityCondition { return slices.Clone(r.conditions) }
func (r *AnalysisResult) MetricNames() map[string]string { return maps.Clone(r.metricNames) }
func (r *AnalysisResult) Issues() []Issue                { return slices.Clone(r.issues) }
func (r *AnalysisResult) HotSpots() []HotSpot            { return slices.Clone(r.hotSpots) }

// MetricName returns the friendly name of a metric, or the key when none is known.
func (r *AnalysisResult) MetricName(key string) string {
	if name, ok := r.metricNames[key]; ok {
		return name
	}
	return key
}

// DashboardURL links to the project's dashboard on the server.
func (r *AnalysisResult) DashboardURL() string {
	return fmt.Sprintf("%s/dashboard?id=%s", strings.TrimRight(r.serverURL, "/"), url.QueryEscape(r.projectKey))
}

// RelativePath strips the "<projectKey>:" prefix the server puts on component keys.
func (r *AnalysisResult) RelativePath(component string) string {
	return strings.TrimPrefix(component, r.projectKey+":")
}
