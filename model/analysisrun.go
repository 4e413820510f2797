package model

import (
	"github.com/sonarmark/sonarmark/sonar"
)

// AnalysisRun is the record kept of one report invocation.
type AnalysisRun struct {
	ServerURL         string
	ProjectKey        string
	Branch            string
	QualityGateStatus string
	ConditionCount    int
	IssueCount        int
	HotSpotCount      int
}

func AnalysisRunFromResult(result *sonar.AnalysisResult, branch string) AnalysisRun {
	return AnalysisRun{
		ServerURL:         result.ServerURL(),
		ProjectKey:        result.ProjectKey(),
		Branch:            branch,
		QualityGateStatus: result.QualityGateStatus(),
		ConditionCount:    len(result.Conditions()),
		IssueCount:        len(result.Issues()),
		HotSpotCount:      len(result.HotSpots()),
	}
}

// Failed reports whether the quality gate of the run was red.
func (r AnalysisRun) Failed() bool {
	return r.QualityGateStatus == sonar.QualityGateError
}
