package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// ExecuteFunc is the callback the scheduler uses to start workflow
// executions. This breaks the import cycle: the engine provides the
// implementation backed by workflow.Engine.ExecuteWorkflow.
type ExecuteFunc func(ctx context.Context, wfID id.WorkflowID, execCtx map[string]any) (id.ExecutionID, error)

// Emitter emits trigger lifecycle events.
// hook.Registry satisfies this interface via EmitTriggerFired.
type Emitter interface {
	EmitTriggerFired(ctx context.Context, entryName string, execID id.ExecutionID)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Scheduler fires scheduled workflow triggers on a tick loop.
type Scheduler struct {
	store   Store
	execute ExecuteFunc
	emitter Emitter
	logger  *slog.Logger

	tickInterval time.Duration

	// parsed caches parsed cron expressions.
	parsedMu sync.RWMutex
	parsed   map[string]cronlib.Schedule

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(store Store, execute ExecuteFunc, emitter Emitter, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		store:        store,
		execute:      execute,
		emitter:      emitter,
		logger:       logger,
		tickInterval: 1 * time.Second,
		parsed:       make(map[string]cronlib.Schedule),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the schedule, stamps the first NextRunAt, and
// persists the entry.
func (s *Scheduler) Register(ctx context.Context, entry *Entry) error {
	sched, err := s.getOrParseSchedule(entry.Schedule)
	if err != nil {
		return fmt.Errorf("trigger %q: invalid schedule %q: %w", entry.Name, entry.Schedule, err)
	}
	if entry.ID.IsNil() {
		entry.ID = id.NewTriggerID()
	}
	next := sched.Next(time.Now().UTC())
	entry.NextRunAt = &next
	return s.store.RegisterTrigger(ctx, entry)
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("trigger scheduler started",
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop signals the scheduler to stop and waits for the tick loop to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("trigger scheduler stopped")
	return nil
}

// tickLoop fires on each tick interval and processes due trigger entries.
func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	ctx := context.Background()

	entries, err := s.store.ListTriggers(ctx)
	if err != nil {
		s.logger.Error("list triggers error", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	for _, entry := range entries {
		if !entry.Enabled {
			continue
		}
		if entry.NextRunAt == nil || entry.NextRunAt.After(now) {
			continue
		}
		s.fireEntry(ctx, entry, now)
	}
}

func (s *Scheduler) fireEntry(ctx context.Context, entry *Entry, now time.Time) {
	execID, execErr := s.execute(ctx, entry.WorkflowID, entry.Context)
	if execErr != nil {
		s.logger.Error("trigger execute error",
			slog.String("trigger_name", entry.Name),
			slog.String("workflow_id", entry.WorkflowID.String()),
			slog.String("error", execErr.Error()),
		)
	}

	if updateErr := s.store.UpdateTriggerLastRun(ctx, entry.ID, now); updateErr != nil {
		s.logger.Error("update trigger last run error",
			slog.String("trigger_id", entry.ID.String()),
			slog.String("error", updateErr.Error()),
		)
	}

	// Compute and persist NextRunAt even when the execution failed, so a
	// broken workflow cannot wedge the schedule.
	sched, parseErr := s.getOrParseSchedule(entry.Schedule)
	if parseErr != nil {
		s.logger.Error("parse trigger schedule error",
			slog.String("trigger_name", entry.Name),
			slog.String("schedule", entry.Schedule),
			slog.String("error", parseErr.Error()),
		)
	} else {
		next := sched.Next(now)
		entry.NextRunAt = &next
		if updateErr := s.store.UpdateTrigger(ctx, entry); updateErr != nil {
			s.logger.Error("update trigger next run error",
				slog.String("trigger_id", entry.ID.String()),
				slog.String("error", updateErr.Error()),
			)
		}
	}

	if execErr != nil {
		return
	}

	if s.emitter != nil {
		s.emitter.EmitTriggerFired(ctx, entry.Name, execID)
	}

	s.logger.Info("trigger fired",
		slog.String("trigger_name", entry.Name),
		slog.String("workflow_id", entry.WorkflowID.String()),
		slog.String("execution_id", execID.String()),
	)
}

// getOrParseSchedule caches parsed cron expressions.
func (s *Scheduler) getOrParseSchedule(expr string) (cronlib.Schedule, error) {
	s.parsedMu.RLock()
	sched, ok := s.parsed[expr]
	s.parsedMu.RUnlock()
	if ok {
		return sched, nil
	}

	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	s.parsedMu.Lock()
	s.parsed[expr] = sched
	s.parsedMu.Unlock()
	return sched, nil
}
