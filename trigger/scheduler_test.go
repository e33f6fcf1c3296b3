package trigger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/batch"
	"github.com/Pr0gCat/CodeHive-sub001/id"
	"github.com/Pr0gCat/CodeHive-sub001/trigger"
	"github.com/Pr0gCat/CodeHive-sub001/workflow"
)

// fakeStore is a minimal in-memory trigger.Store.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*trigger.Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*trigger.Entry)}
}

func (s *fakeStore) RegisterTrigger(_ context.Context, entry *trigger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Name == entry.Name {
			return automation.ErrDuplicateTrigger
		}
	}
	cp := *entry
	s.entries[entry.ID.String()] = &cp
	return nil
}

func (s *fakeStore) GetTrigger(_ context.Context, entryID id.TriggerID) (*trigger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID.String()]
	if !ok {
		return nil, automation.ErrTriggerNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) ListTriggers(_ context.Context) ([]*trigger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*trigger.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) UpdateTriggerLastRun(_ context.Context, entryID id.TriggerID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID.String()]
	if !ok {
		return automation.ErrTriggerNotFound
	}
	e.LastRunAt = &at
	return nil
}

func (s *fakeStore) UpdateTrigger(_ context.Context, entry *trigger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID.String()]; !ok {
		return automation.ErrTriggerNotFound
	}
	cp := *entry
	s.entries[entry.ID.String()] = &cp
	return nil
}

func (s *fakeStore) DeleteTrigger(_ context.Context, entryID id.TriggerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, entryID.String())
	return nil
}

// execRecorder records workflow execution requests.
type execRecorder struct {
	mu    sync.Mutex
	calls []id.WorkflowID
	err   error
}

func (r *execRecorder) execute(_ context.Context, wfID id.WorkflowID, _ map[string]any) (id.ExecutionID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return id.Nil, r.err
	}
	r.calls = append(r.calls, wfID)
	return id.NewExecutionID(), nil
}

func (r *execRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// firedRecorder records emitted trigger events.
type firedRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *firedRecorder) EmitTriggerFired(_ context.Context, entryName string, _ id.ExecutionID) {
	r.mu.Lock()
	r.names = append(r.names, entryName)
	r.mu.Unlock()
}

func (r *firedRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

func TestScheduler_RegisterStampsNextRun(t *testing.T) {
	store := newFakeStore()
	sched := trigger.NewScheduler(store, (&execRecorder{}).execute, nil, nil)

	entry := &trigger.Entry{
		Entity:     automation.NewEntity(),
		Name:       "hourly-sync",
		Schedule:   "@every 1h",
		WorkflowID: id.NewWorkflowID(),
		Enabled:    true,
	}
	if err := sched.Register(context.Background(), entry); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if entry.ID.IsNil() {
		t.Fatal("Register() did not assign an id")
	}
	if entry.NextRunAt == nil || !entry.NextRunAt.After(time.Now().UTC().Add(50*time.Minute)) {
		t.Fatalf("NextRunAt = %v, want roughly an hour out", entry.NextRunAt)
	}
}

func TestScheduler_RegisterRejectsBadSchedule(t *testing.T) {
	sched := trigger.NewScheduler(newFakeStore(), (&execRecorder{}).execute, nil, nil)
	entry := &trigger.Entry{Name: "broken", Schedule: "not-a-schedule", Enabled: true}
	if err := sched.Register(context.Background(), entry); err == nil {
		t.Fatal("Register() accepted an invalid schedule")
	}
}

func TestScheduler_FiresDueEntry(t *testing.T) {
	store := newFakeStore()
	rec := &execRecorder{}
	fired := &firedRecorder{}
	sched := trigger.NewScheduler(store, rec.execute, fired, nil, trigger.WithTickInterval(10*time.Millisecond))

	wfID := id.NewWorkflowID()
	past := time.Now().UTC().Add(-time.Second)
	entry := &trigger.Entry{
		Entity:     automation.NewEntity(),
		ID:         id.NewTriggerID(),
		Name:       "due-now",
		Schedule:   "@every 1h",
		WorkflowID: wfID,
		NextRunAt:  &past,
		Enabled:    true,
	}
	if err := store.RegisterTrigger(context.Background(), entry); err != nil {
		t.Fatalf("RegisterTrigger() error: %v", err)
	}

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer sched.Stop(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count() != 1 {
		t.Fatalf("execute calls = %d, want 1", rec.count())
	}
	if fired.count() != 1 {
		t.Fatalf("fired events = %d, want 1", fired.count())
	}

	// The entry must be rescheduled, not refired every tick.
	got, err := store.GetTrigger(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("GetTrigger() error: %v", err)
	}
	if got.LastRunAt == nil {
		t.Fatal("LastRunAt not recorded")
	}
	if got.NextRunAt == nil || !got.NextRunAt.After(time.Now().UTC()) {
		t.Fatalf("NextRunAt = %v, want in the future", got.NextRunAt)
	}
}

func TestScheduler_SkipsDisabledEntry(t *testing.T) {
	store := newFakeStore()
	rec := &execRecorder{}
	sched := trigger.NewScheduler(store, rec.execute, nil, nil, trigger.WithTickInterval(10*time.Millisecond))

	past := time.Now().UTC().Add(-time.Second)
	entry := &trigger.Entry{
		Entity:     automation.NewEntity(),
		ID:         id.NewTriggerID(),
		Name:       "disabled",
		Schedule:   "@every 1h",
		WorkflowID: id.NewWorkflowID(),
		NextRunAt:  &past,
	}
	if err := store.RegisterTrigger(context.Background(), entry); err != nil {
		t.Fatalf("RegisterTrigger() error: %v", err)
	}

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if err := sched.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	if rec.count() != 0 {
		t.Fatalf("execute calls = %d, want 0 for a disabled entry", rec.count())
	}
}

// staticDefs is a DefinitionLister over a fixed slice.
type staticDefs []*workflow.Definition

func (d staticDefs) GetAllWorkflows(context.Context) ([]*workflow.Definition, error) {
	return d, nil
}

func batchTriggerDef(name string, active bool, conditions map[string]string) *workflow.Definition {
	return &workflow.Definition{
		ID:       id.NewWorkflowID(),
		Name:     name,
		Triggers: []workflow.Trigger{{Type: trigger.TypeBatchCompleted, Conditions: conditions}},
		Steps:    []workflow.Step{{ID: "s", Type: "wait", Config: map[string]any{"duration": "1ms"}}},
		IsActive: active,
	}
}

func TestDispatcher_FiresMatchingWorkflows(t *testing.T) {
	rec := &execRecorder{}
	fired := &firedRecorder{}

	epicDef := batchTriggerDef("on-epic-create", true, map[string]string{
		"type":        "create",
		"target_type": "epic",
		"status":      "completed",
	})
	storyDef := batchTriggerDef("on-story-create", true, map[string]string{
		"type":        "create",
		"target_type": "story",
		"status":      "completed",
	})
	inactiveDef := batchTriggerDef("dormant", false, nil)

	d := trigger.NewDispatcher(staticDefs{epicDef, storyDef, inactiveDef}, rec.execute, fired, nil)

	op := &batch.Operation{
		ID:         id.NewOperationID(),
		Type:       automation.ActionCreate,
		TargetType: automation.TargetEpic,
		Status:     batch.StatusCompleted,
	}
	if err := d.OnBatchCompleted(context.Background(), op); err != nil {
		t.Fatalf("OnBatchCompleted() error: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("execute calls = %d, want 1 (only the epic trigger matches)", rec.count())
	}
	if rec.calls[0] != epicDef.ID {
		t.Fatalf("executed workflow = %s, want %s", rec.calls[0], epicDef.ID)
	}
	if fired.count() != 1 || fired.names[0] != "on-epic-create" {
		t.Fatalf("fired events = %v, want [on-epic-create]", fired.names)
	}
}

func TestDispatcher_NoMatchForFailedBatch(t *testing.T) {
	rec := &execRecorder{}
	def := batchTriggerDef("on-epic-create", true, map[string]string{
		"type":        "create",
		"target_type": "epic",
		"status":      "completed",
	})
	d := trigger.NewDispatcher(staticDefs{def}, rec.execute, nil, nil)

	op := &batch.Operation{
		ID:         id.NewOperationID(),
		Type:       automation.ActionCreate,
		TargetType: automation.TargetEpic,
		Status:     batch.StatusFailed,
	}
	if err := d.OnBatchCompleted(context.Background(), op); err != nil {
		t.Fatalf("OnBatchCompleted() error: %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("execute calls = %d, want 0 for a failed batch", rec.count())
	}
}

func TestDispatcher_ExecuteErrorsDoNotStopOtherTriggers(t *testing.T) {
	first := batchTriggerDef("first", true, nil)
	second := batchTriggerDef("second", true, nil)

	var mu sync.Mutex
	var executed []string
	execute := func(_ context.Context, wfID id.WorkflowID, _ map[string]any) (id.ExecutionID, error) {
		mu.Lock()
		defer mu.Unlock()
		if wfID == first.ID {
			return id.Nil, fmt.Errorf("engine unavailable")
		}
		executed = append(executed, wfID.String())
		return id.NewExecutionID(), nil
	}

	d := trigger.NewDispatcher(staticDefs{first, second}, execute, nil, nil)
	op := &batch.Operation{ID: id.NewOperationID(), Status: batch.StatusCompleted}
	if err := d.OnBatchCompleted(context.Background(), op); err != nil {
		t.Fatalf("OnBatchCompleted() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(executed) != 1 || executed[0] != second.ID.String() {
		t.Fatalf("executed = %v, want only the second workflow", executed)
	}
}
