package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tallercar/tallercar/jobs"
)

// Enqueuer submits tasks to the queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector jobs.QueueInspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string, redisDB int) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr, DB: redisDB}
	client := asynq.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector, closers: []io.Closer{inspector, client}}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TriggerExportArchive enqueues an export archive for month (YYYY-MM). An
// empty month archives the previous calendar month.
func (c *JobsCLI) TriggerExportArchive(ctx context.Context, month string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	payload := jobs.ExportArchivePayload{Month: strings.TrimSpace(month)}
	if _, _, err := payload.ParseMonth(time.UTC); err != nil {
		return nil, err
	}
	task, err := jobs.NewExportArchiveTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// ArchiveOptions defines the flags of the archive command.
type ArchiveOptions struct {
	Month      string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

type archiveResult struct {
	TaskID string     `json:"taskId"`
	Month  string     `json:"month,omitempty"`
	Queue  QueueStats `json:"queue"`
}

// ArchiveCommand enqueues an export archive and prints the queue state. It
// returns the process exit code.
func (c *JobsCLI) ArchiveCommand(ctx context.Context, opts ArchiveOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	info, err := c.TriggerExportArchive(ctx, opts.Month)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "archive: %v\n", err)
		return 1
	}
	stats, err := c.InspectQueue(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "archive: inspect queue: %v\n", err)
		return 1
	}
	result := archiveResult{TaskID: info.ID, Month: strings.TrimSpace(opts.Month), Queue: stats}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "archive: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	month := result.Month
	if month == "" {
		month = "previous month"
	}
	_, _ = fmt.Fprintf(opts.Stdout, "enqueued export archive %s for %s (queue %s: %d pending)\n", result.TaskID, month, stats.Queue, stats.Pending)
	return 0
}
