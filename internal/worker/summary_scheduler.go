package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"suryasakshi/internal/core"
	"suryasakshi/internal/sheets"

	"github.com/robfig/cron/v3"
)

// DefaultSummarySchedule runs the snapshot every day at 23:00.
const DefaultSummarySchedule = "0 23 * * *"

const snapshotTimeout = 2 * time.Minute

// RecordSource loads every collection the summary is computed from.
type RecordSource interface {
	Load(ctx context.Context) core.RecordSet
}

// SummaryScheduler writes the current-month dashboard summary to the
// spreadsheet on a cron schedule.
type SummaryScheduler struct {
	source   RecordSource
	writer   sheets.SummaryWriter
	schedule string
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

// NewSummaryScheduler validates schedule (standard 5-field cron) and returns
// a stopped scheduler.
func NewSummaryScheduler(source RecordSource, writer sheets.SummaryWriter, schedule string) (*SummaryScheduler, error) {
	if schedule == "" {
		schedule = DefaultSummarySchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid summary schedule %q: %w", schedule, err)
	}
	return &SummaryScheduler{
		source:   source,
		writer:   writer,
		schedule: schedule,
		now:      time.Now,
	}, nil
}

// Start registers the job and starts the cron runner. Returns an error if
// already running.
func (s *SummaryScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("summary scheduler is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("schedule summary: %w", err)
	}
	c.Start()
	s.cron = c
	s.running = true

	slog.InfoContext(ctx, "Summary scheduler started", "schedule", s.schedule)
	return nil
}

// Stop halts the cron runner and waits for a running snapshot to finish.
func (s *SummaryScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	done := s.cron.Stop()
	s.running = false
	s.mu.Unlock()

	select {
	case <-done.Done():
		slog.InfoContext(ctx, "Summary scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Summary scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *SummaryScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SummaryScheduler) runScheduled(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), snapshotTimeout)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled summary failed", "error", err)
	}
}

// RunOnce computes the summary for the current month and appends it.
func (s *SummaryScheduler) RunOnce(ctx context.Context) error {
	now := s.now()
	period := core.CurrentPeriod(now)
	summary := core.Summarize(s.source.Load(ctx), period)

	ref, err := s.writer.AppendSummary(ctx, summary, now)
	if err != nil {
		return fmt.Errorf("append summary: %w", err)
	}

	slog.InfoContext(ctx, "Summary snapshot written",
		"year", period.Year,
		"month", period.MonthName(),
		"sheets_ref", ref)
	return nil
}
