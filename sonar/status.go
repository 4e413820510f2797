package sonar

import (
	"fmt"
	"strings"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusSuccess    TaskStatus = "SUCCESS"
	TaskStatusFailed     TaskStatus = "FAILED"
	TaskStatusCanceled   TaskStatus = "CANCELED"
)

// ParseTaskStatus maps a server status string onto a TaskStatus. Unknown values are an
// error rather than being treated as still running.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case TaskStatusPending:
		return TaskStatusPending, nil
	case TaskStatusInProgress:
		return TaskStatusInProgress, nil
	case TaskStatusSuccess:
		return TaskStatusSuccess, nil
	case TaskStatusFailed:
		return TaskStatusFailed, nil
	case TaskStatusCanceled:
		return TaskStatusCanceled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTaskStatus, s)
	}
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed || s == TaskStatusCanceled
}

// Quality gate statuses reported by the server. Other values are passed through as-is.
const (
	QualityGateOK    = "OK"
	QualityGateWarn  = "WARN"
	QualityGateError = "ERROR"
	QualityGateNone  = "NONE"
)
