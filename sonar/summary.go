package sonar

// Summary is the machine-readable digest of an AnalysisResult written for CI pipelines.
type Summary struct {
	ProjectKey        string             `json:"projectKey" yaml:"projectKey"`
	ProjectName       string             `json:"projectName" yaml:"projectName"`
	Dashboard         string             `json:"dashboard" yaml:"dashboard"`
	QualityGateStatus string             `json:"qualityGateStatus" yaml:"qualityGateStatus"`
	Conditions        []SummaryCondition `json:"conditions" yaml:"conditions"`
	IssueCount        int                `json:"issueCount" yaml:"issueCount"`
	HotSpotCount      int                `json:"hotSpotCount" yaml:"hotSpotCount"`
}

type SummaryCondition struct {
	Metric     string `json:"metric" yaml:"metric"`
	Status     string `json:"status" yaml:"status"`
	Comparator string `json:"comparator" yaml:"comparator"`
	Threshold  string `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Actual     string `json:"actual,omitempty" yaml:"actual,omitempty"`
}

func (r *AnalysisResult) Summary() Summary {
	conditions := make([]SummaryCondition, 0, len(r.conditions))
	for _, c := range r.conditions {
		conditions = append(conditions, SummaryCondition{
			Metric:     r.MetricName(c.Metric),
			Status:     c.Status,
			Comparator: c.Comparator,
			Threshold:  valueOr(c.ErrorThreshold, ""),
			Actual:     valueOr(c.ActualValue, ""),
		})
	}
	return Summary{
		ProjectKey:        r.projectKey,
		ProjectName:       r.projectName,
		Dashboard:         r.DashboardURL(),
		QualityGateStatus: r.qualityGateStatus,
		Conditions:        conditions,
		IssueCount:        len(r.issues),
		HotSpotCount:      len(r.hotSpots),
	}
}
