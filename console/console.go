// Package console is the line-oriented output sink of the command line tool.
package console

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sonarmark/sonarmark/sonar"
)

// Console writes user-facing lines and remembers whether any error was written, so the
// process can exit with a failure status.
type Console struct {
	out       io.Writer
	errOut    io.Writer
	hasErrors bool
}

func New(out io.Writer, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

func (c *Console) WriteLine(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// WriteError writes an error line and marks the run as failed.
func (c *Console) WriteError(format string, args ...any) {
	c.hasErrors = true
	fmt.Fprintf(c.errOut, "Error: "+format+"\n", args...)
}

func (c *Console) HasErrors() bool {
	return c.hasErrors
}

// WriteConditions prints the quality gate conditions as a table, using friendly metric names.
func (c *Console) WriteConditions(result *sonar.AnalysisResult) {
	conditions := result.Conditions()
	if len(conditions) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Status", "Comparator", "Threshold", "Actual"})
	for _, cond := range conditions {
		t.AppendRow(table.Row{
			result.MetricName(cond.Metric),
			cond.Status,
			cond.Comparator,
			optional(cond.ErrorThreshold),
			optional(cond.ActualValue),
		})
	}
	t.Render()
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
