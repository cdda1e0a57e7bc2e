package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExportArchive archives both analytics exports for one calendar month.
	TaskExportArchive = "analytics:export_archive"
)

const monthLayout = "2006-01"

// ExportArchivePayload selects the month to archive. An empty Month means the
// calendar month before the run.
type ExportArchivePayload struct {
	Month string `json:"month,omitempty"`
}

// ParseMonth returns the first instant of the payload month in loc.
func (p ExportArchivePayload) ParseMonth(loc *time.Location) (time.Time, bool, error) {
	if p.Month == "" {
		return time.Time{}, false, nil
	}
	month, err := time.ParseInLocation(monthLayout, p.Month, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("export archive: month %q must be YYYY-MM: %w", p.Month, err)
	}
	return month, true, nil
}

// NewExportArchiveTask constructs an Asynq task for the export archive.
func NewExportArchiveTask(payload ExportArchivePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportArchive, data, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)), nil
}
