package db

import "time"

// AnalysisRun is one row of the analysis_run table.
type AnalysisRun struct {
	ID                string
	ServerURL         string
	ProjectKey        string
	Branch            string
	QualityGateStatus string
	ConditionCount    int
	IssueCount        int
	HotSpotCount      int
	Recorded          time.Time
}
