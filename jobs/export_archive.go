package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/tallercar/tallercar/internal/analytics"
	jobmetrics "github.com/tallercar/tallercar/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Exporter renders one export shape over a window.
type Exporter interface {
	Export(ctx context.Context, shape analytics.Shape, window analytics.ExportWindow, writer analytics.TableWriter) (analytics.Document, error)
}

// ArchiveManifest describes one archive run. It is written next to the exports.
type ArchiveManifest struct {
	RunID       string         `json:"runId"`
	Month       string         `json:"month"`
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Files       []ArchivedFile `json:"files"`
}

// ArchivedFile is one export written by an archive run.
type ArchivedFile struct {
	Name  string          `json:"name"`
	Shape analytics.Shape `json:"shape"`
	Rows  int             `json:"rows"`
	Bytes int             `json:"bytes"`
}

// ExportArchiveJob writes the repair summary and invoice item exports of a
// calendar month to Dir/<yyyy-mm>/.
type ExportArchiveJob struct {
	Exporter Exporter
	Writer   analytics.TableWriter
	Dir      string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
	clock    func() time.Time
}

// NewExportArchiveJob wires dependencies for the archive handler.
func NewExportArchiveJob(exporter Exporter, writer analytics.TableWriter, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExportArchiveJob {
	return &ExportArchiveJob{
		Exporter: exporter,
		Writer:   writer,
		Dir:      dir,
		Logger:   logger,
		Metrics:  metrics,
		Location: time.Local,
		clock:    time.Now,
	}
}

// Handle processes TaskExportArchive tasks.
func (j *ExportArchiveJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Exporter == nil || j.Writer == nil {
		return errors.New("export archive: handler not configured")
	}
	var payload ExportArchivePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("export archive: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	month, ok, err := payload.ParseMonth(j.location())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if !ok {
		month = PreviousMonth(j.now().In(j.location()))
	}

	tracker := j.metrics().Track(TaskExportArchive)
	defer func() {
		err = tracker.End(err)
	}()

	manifest, err := j.Archive(ctx, month)
	if err != nil {
		j.logger().Error("export archive failed", slog.String("month", month.Format(monthLayout)), slog.Any("error", err))
		return err
	}
	j.logger().Info("export archive completed",
		slog.String("run_id", manifest.RunID),
		slog.String("month", manifest.Month),
		slog.Int("files", len(manifest.Files)),
	)
	return nil
}

// Archive generates both exports for the month starting at month and writes
// them with a manifest.
func (j *ExportArchiveJob) Archive(ctx context.Context, month time.Time) (ArchiveManifest, error) {
	from, to := MonthWindow(month)
	manifest := ArchiveManifest{
		RunID:       uuid.NewString(),
		Month:       from.Format(monthLayout),
		From:        from,
		To:          to,
		GeneratedAt: j.now(),
	}
	dir := filepath.Join(j.Dir, manifest.Month)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ArchiveManifest{}, fmt.Errorf("export archive: create %s: %w", dir, err)
	}

	window := analytics.ExportWindow{From: &from, To: &to}
	for _, shape := range []analytics.Shape{analytics.ShapeRepairSummary, analytics.ShapeInvoiceItemDetail} {
		doc, err := j.Exporter.Export(ctx, shape, window, j.Writer)
		if err != nil {
			return ArchiveManifest{}, fmt.Errorf("export archive: %s: %w", shape, err)
		}
		if err := writeFileAtomic(filepath.Join(dir, doc.Filename), doc.Content); err != nil {
			return ArchiveManifest{}, err
		}
		j.metrics().AddArchivedRows(string(shape), doc.Rows)
		manifest.Files = append(manifest.Files, ArchivedFile{Name: doc.Filename, Shape: shape, Rows: doc.Rows, Bytes: len(doc.Content)})
	}

	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return ArchiveManifest{}, err
	}
	if err := writeFileAtomic(filepath.Join(dir, "manifest.json"), raw); err != nil {
		return ArchiveManifest{}, err
	}
	return manifest, nil
}

// PreviousMonth returns the first instant of the month before now.
func PreviousMonth(now time.Time) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -1, 0)
}

// MonthWindow spans the calendar month of month, [first 00:00:00, last 23:59:59].
func MonthWindow(month time.Time) (time.Time, time.Time) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	to := from.AddDate(0, 1, 0).Add(-time.Second)
	return from, to
}

func writeFileAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".archive-*")
	if err != nil {
		return fmt.Errorf("export archive: temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("export archive: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export archive: rename %s: %w", path, err)
	}
	return nil
}

func (j *ExportArchiveJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

func (j *ExportArchiveJob) location() *time.Location {
	if j.Location != nil {
		return j.Location
	}
	return time.Local
}

func (j *ExportArchiveJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ExportArchiveJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
