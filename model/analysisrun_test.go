package model

import (
	"testing"

	"github.com/sonarmark/sonarmark/sonar"
	"github.com/stretchr/testify/assert"
)

func TestAnalysisRunFromResult(t *testing.T) {
	t.Run("copies identity and counts", func(t *testing.T) {
		result := sonar.NewAnalysisResult(sonar.AnalysisResultFields{
			ServerURL:         "http://localhost:9000",
			ProjectKey:        "MockProj",
			QualityGateStatus: sonar.QualityGateError,
			Conditions:        []sonar.QualityCondition{{Metric: "bugs"}},
			Issues:            []sonar.Issue{{Key: "1"}, {Key: "2"}},
		})

		run := AnalysisRunFromResult(result, "main")
		assert.Equal(t, AnalysisRun{
			ServerURL:         "http://localhost:9000",
			ProjectKey:        "MockProj",
			Branch:            "main",
			QualityGateStatus: "ERROR",
			ConditionCount:    1,
			IssueCount:        2,
			HotSpotCount:      0,
		}, run)
		assert.True(t, run.Failed())
	})

	t.Run("only ERROR counts as failed", func(t *testing.T) {
		for _, status := range []string{sonar.QualityGateOK, sonar.QualityGateWarn, sonar.QualityGateNone, "SOMETHING_NEW"} {
			assert.Falsef(t, AnalysisRun{QualityGateStatus: status}.Failed(), "status %s", status)
		}
	})
}
