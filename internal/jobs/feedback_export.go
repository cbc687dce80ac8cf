// Package jobs runs scheduled background work. Currently that is the periodic export of
// clinician feedback used to retune the keyword and scoring tables.
package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/feedback"
)

const exportTimeout = 5 * time.Minute

// FeedbackExporter writes the full feedback table to a timestamped JSON file.
type FeedbackExporter struct {
	store  feedback.Store
	dir    string
	logger *logrus.Logger
	now    func() time.Time
}

// NewFeedbackExporter creates an exporter writing into dir.
func NewFeedbackExporter(store feedback.Store, dir string, logger *logrus.Logger) *FeedbackExporter {
	if logger == nil {
		logger = logrus.New()
	}
	return &FeedbackExporter{store: store, dir: dir, logger: logger, now: time.Now}
}

// Export writes one export file and returns its path. The file is written under a
// temporary name and renamed so readers never see a partial export.
func (e *FeedbackExporter) Export(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	name := fmt.Sprintf("feedback-%s.json", e.now().UTC().Format("20060102-150405"))
	path := filepath.Join(e.dir, name)

	tmp, err := os.CreateTemp(e.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := e.store.ExportJSON(ctx, tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("exporting feedback: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("finalizing export file: %w", err)
	}
	return path, nil
}

// Run is the cron entry point.
func (e *FeedbackExporter) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	start := time.Now()
	path, err := e.Export(ctx)
	if err != nil {
		e.logger.WithError(err).Error("Scheduled feedback export failed")
		return
	}
	e.logger.WithFields(logrus.Fields{
		"path":        path,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Feedback exported")
}

// Scheduler wraps a cron runner with the jobs the service schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *logrus.Logger
}

// NewScheduler creates a scheduler using standard 5-field cron expressions.
func NewScheduler(logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		)), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger,
	}
}

// Schedule registers job with a cron expression. An empty schedule disables the job.
func (s *Scheduler) Schedule(name, schedule string, job cron.Job) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		s.logger.WithField("job", name).Info("Job disabled (no schedule)")
		return nil
	}
	if _, err := s.cron.AddJob(schedule, job); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}
	s.logger.WithFields(logrus.Fields{"job": name, "schedule": schedule}).Info("Job scheduled")
	return nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler until ctx is cancelled, then waits for running jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Info("Scheduler stopped")
	}()
}
