package sonar

/*
Wire shapes of the web API responses. Every field is a pointer so presence can be checked:
a missing wrapper object is an error, a missing leaf inside an array element just becomes
an empty value.
*/

type taskResponse struct {
	Task *struct {
		Status     *string `json:"status"`
		AnalysisID *string `json:"analysisId"`
	} `json:"task"`
}

type componentShowResponse struct {
	Component *struct {
		Name *string `json:"name"`
	} `json:"component"`
}

type projectStatusResponse struct {
	ProjectStatus *struct {
		Status     *string        `json:"status"`
		Conditions []rawCondition `json:"conditions"`
	} `json:"projectStatus"`
}

type rawCondition struct {
	MetricKey      *string `json:"metricKey"`
	Comparator     *string `json:"comparator"`
	ErrorThreshold *string `json:"errorThreshold"`
	ActualValue    *string `json:"actualValue"`
	Status         *string `json:"status"`
}

func (r rawCondition) toCondition() QualityCondition {
	return QualityCondition{
		Metric:         valueOr(r.MetricKey, ""),
		Comparator:     valueOr(r.Comparator, ""),
		ErrorThreshold: r.ErrorThreshold,
		ActualValue:    r.ActualValue,
		Status:         valueOr(r.Status, ""),
	}
}

type metricsSearchResponse struct {
	Metrics *[]struct {
		Key  *string `json:"key"`
		Name *string `json:"name"`
	} `json:"metrics"`
}

type issuesSearchResponse struct {
	Issues *[]rawIssue `json:"issues"`
}

type rawIssue struct {
	Key       *string `json:"key"`
	Rule      *string `json:"rule"`
	Severity  *string `json:"severity"`
	Component *string `json:"component"`
	Line      *int    `json:"line"`
	Message   *string `json:"message"`
	Type      *string `json:"type"`
}

func (r rawIssue) toIssue() Issue {
	return Issue{
		Key:       valueOr(r.Key, ""),
		Rule:      valueOr(r.Rule, ""),
		Severity:  valueOr(r.Severity, ""),
		Component: valueOr(r.Component, ""),
		Line:      r.Line,
		Message:   valueOr(r.Message, ""),
		Type:      valueOr(r.Type, ""),
	}
}

type hotspotsSearchResponse struct {
	HotSpots *[]rawHotSpot `json:"hotspots"`
}

type rawHotSpot struct {
	Key                      *string `json:"key"`
	Component                *string `json:"component"`
	Line                     *int    `json:"line"`
	Message                  *string `json:"message"`
	SecurityCategory         *string `json:"securityCategory"`
	VulnerabilityProbability *string `json:"vulnerabilityProbability"`
}

func (r rawHotSpot) toHotSpot() HotSpot {
	return HotSpot{
		Key:                      valueOr(r.Key, ""),
		Component:                valueOr(r.Component, ""),
		Line:                     r.Line,
		Message:                  valueOr(r.Message, ""),
		SecurityCategory:         valueOr(r.SecurityCategory, ""),
		VulnerabilityProbability: valueOr(r.VulnerabilityProbability, ""),
	}
}
