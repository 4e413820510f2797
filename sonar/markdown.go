package sonar

import (
	"fmt"
	"strings"
)

const (
	MinHeadingDepth = 1
	MaxHeadingDepth = 6
)

// ToMarkdown renders the result as a markdown report whose top heading has the given depth.
// The output only depends on the result, so identical results render identically.
func (r *AnalysisResult) ToMarkdown(depth int) (string, error) {
	if depth < MinHeadingDepth || depth > MaxHeadingDepth {
		return "", fmt.Errorf("%w: heading depth %d out of range [%d,%d]", ErrInvalidArgument, depth, MinHeadingDepth, MaxHeadingDepth)
	}
	heading := strings.Repeat("#", depth)
	subHeading := strings.Repeat("#", min(depth+1, MaxHeadingDepth))

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s Sonar Analysis\n\n", heading, r.projectName)
	fmt.Fprintf(&sb, "**Dashboard:** <%s>\n\n", r.DashboardURL())
	fmt.Fprintf(&sb, "**Quality Gate Status:** %s\n\n", r.qualityGateStatus)

	if len(r.conditions) > 0 {
		fmt.Fprintf(&sb, "%s Conditions\n\n", subHeading)
		sb.WriteString("| Metric | Status | Comparator | Threshold | Actual |\n")
		sb.WriteString("|:-------|:-------|:-----------|----------:|-------:|\n")
		for _, c := range r.conditions {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				r.MetricName(c.Metric), c.Status, c.Comparator, valueOr(c.ErrorThreshold, ""), valueOr(c.ActualValue, ""))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "%s Issues\n\n", subHeading)
	fmt.Fprintf(&sb, "%s\n\n", countLine(len(r.issues), "issue", "issues"))
	for _, issue := range r.issues {
		fmt.Fprintf(&sb, "%s%s: %s %s [%s] %s\n\n",
			r.RelativePath(issue.Component), lineSuffix(issue.Line), issue.Severity, issue.Type, issue.Rule, issue.Message)
	}

	fmt.Fprintf(&sb, "%s Security Hot-Spots\n\n", subHeading)
	fmt.Fprintf(&sb, "%s\n\n", countLine(len(r.hotSpots), "security hot-spot", "security hot-spots"))
	for _, hotSpot := range r.hotSpots {
		fmt.Fprintf(&sb, "%s%s: %s [%s] %s\n\n",
			r.RelativePath(hotSpot.Component), lineSuffix(hotSpot.Line), hotSpot.VulnerabilityProbability, hotSpot.SecurityCategory, hotSpot.Message)
	}

	return sb.String(), nil
}

func countLine(n int, singular string, plural string) string {
	switch n {
	case 0:
		return "Found no " + plural
	case 1:
		return "Found 1 " + singular
	default:
		return fmt.Sprintf("Found %d %s", n, plural)
	}
}

func lineSuffix(line *int) string {
	if line == nil {
		return ""
	}
	return fmt.Sprintf("(%d)", *line)
}
