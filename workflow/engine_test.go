package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/gateway"
	gwmemory "github.com/Pr0gCat/CodeHive-sub001/gateway/memory"
	"github.com/Pr0gCat/CodeHive-sub001/id"
	"github.com/Pr0gCat/CodeHive-sub001/workflow"
)

// fakeStore is a minimal in-memory workflow.Store.
type fakeStore struct {
	mu        sync.Mutex
	defOrder  []string
	defs      map[string]*workflow.Definition
	execOrder []string
	execs     map[string]*workflow.Execution
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		defs:  make(map[string]*workflow.Definition),
		execs: make(map[string]*workflow.Execution),
	}
}

func (s *fakeStore) PutWorkflow(_ context.Context, def *workflow.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := def.ID.String()
	if _, ok := s.defs[key]; !ok {
		s.defOrder = append(s.defOrder, key)
	}
	s.defs[key] = def.Clone()
	return nil
}

func (s *fakeStore) GetWorkflow(_ context.Context, wfID id.WorkflowID) (*workflow.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[wfID.String()]
	if !ok {
		return nil, automation.ErrWorkflowNotFound
	}
	return def.Clone(), nil
}

func (s *fakeStore) ListWorkflows(_ context.Context) ([]*workflow.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*workflow.Definition, 0, len(s.defOrder))
	for _, key := range s.defOrder {
		out = append(out, s.defs[key].Clone())
	}
	return out, nil
}

func (s *fakeStore) CreateExecution(_ context.Context, exec *workflow.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := exec.ID.String()
	s.execs[key] = exec.Clone()
	s.execOrder = append(s.execOrder, key)
	return nil
}

func (s *fakeStore) GetExecution(_ context.Context, execID id.ExecutionID) (*workflow.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[execID.String()]
	if !ok {
		return nil, automation.ErrExecutionNotFound
	}
	return exec.Clone(), nil
}

func (s *fakeStore) UpdateExecution(_ context.Context, exec *workflow.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := exec.ID.String()
	if _, ok := s.execs[key]; !ok {
		return automation.ErrExecutionNotFound
	}
	s.execs[key] = exec.Clone()
	return nil
}

func (s *fakeStore) ListExecutions(_ context.Context) ([]*workflow.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*workflow.Execution, 0, len(s.execOrder))
	for _, key := range s.execOrder {
		out = append(out, s.execs[key].Clone())
	}
	return out, nil
}

func newEngine(t *testing.T) (*workflow.Engine, *gwmemory.Gateway) {
	t.Helper()
	gw := gwmemory.New()
	registry := workflow.NewRegistry()
	workflow.RegisterBuiltinHandlers(registry, gw)
	eng := workflow.NewEngine(newFakeStore(), registry, nil, nil)
	for _, def := range workflow.BuiltinDefinitions() {
		if _, err := eng.AddWorkflow(context.Background(), def); err != nil {
			t.Fatalf("AddWorkflow(%s) error: %v", def.Name, err)
		}
	}
	return eng, gw
}

func findWorkflow(t *testing.T, eng *workflow.Engine, name string) *workflow.Definition {
	t.Helper()
	defs, err := eng.GetAllWorkflows(context.Background())
	if err != nil {
		t.Fatalf("GetAllWorkflows() error: %v", err)
	}
	for _, def := range defs {
		if def.Name == name {
			return def
		}
	}
	t.Fatalf("workflow %q not registered", name)
	return nil
}

func waitExecution(t *testing.T, eng *workflow.Engine, execID id.ExecutionID) *workflow.Execution {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		exec, err := eng.GetExecution(context.Background(), execID)
		if err != nil {
			t.Fatalf("GetExecution() error: %v", err)
		}
		if exec.Status.Terminal() {
			return exec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("execution %s did not reach a terminal status", execID)
	return nil
}

func TestEngine_AddWorkflowRejectsEmptySteps(t *testing.T) {
	eng, _ := newEngine(t)
	_, err := eng.AddWorkflow(context.Background(), &workflow.Definition{Name: "empty", IsActive: true})
	if !errors.Is(err, automation.ErrInvalidWorkflow) {
		t.Fatalf("AddWorkflow() error = %v, want ErrInvalidWorkflow", err)
	}
}

func TestEngine_CustomWorkflowImmediatelyExecutable(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	eng.Registry().Register("mark", func(_ context.Context, _ workflow.Step, _ map[string]any) (map[string]any, error) {
		return map[string]any{"marked": true}, nil
	})

	wfID, err := eng.AddWorkflow(ctx, &workflow.Definition{
		Name:     "custom-marker",
		Steps:    []workflow.Step{{ID: "only", Type: "mark"}},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("AddWorkflow() error: %v", err)
	}

	if got := findWorkflow(t, eng, "custom-marker"); got.ID != wfID {
		t.Fatalf("GetAllWorkflows() id = %s, want %s", got.ID, wfID)
	}

	execID, err := eng.ExecuteWorkflow(ctx, wfID, nil)
	if err != nil {
		t.Fatalf("ExecuteWorkflow() error: %v", err)
	}
	exec := waitExecution(t, eng, execID)
	if exec.Status != workflow.StatusCompleted {
		t.Fatalf("status = %s, want completed", exec.Status)
	}
	if len(exec.StepResults) != 1 || exec.StepResults[0].Output["marked"] != true {
		t.Fatalf("step results = %+v, want one completed step with output", exec.StepResults)
	}
}

func TestEngine_WaitStepsRunSequentially(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	wfID, err := eng.AddWorkflow(ctx, &workflow.Definition{
		Name: "three-waits",
		Steps: []workflow.Step{
			{ID: "w1", Type: workflow.StepWait, Config: map[string]any{"duration": "10ms"}},
			{ID: "w2", Type: workflow.StepWait, Config: map[string]any{"duration": "20ms"}},
			{ID: "w3", Type: workflow.StepWait, Config: map[string]any{"duration": "30ms"}},
		},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("AddWorkflow() error: %v", err)
	}

	execID, err := eng.ExecuteWorkflow(ctx, wfID, nil)
	if err != nil {
		t.Fatalf("ExecuteWorkflow() error: %v", err)
	}
	exec := waitExecution(t, eng, execID)
	if exec.Status != workflow.StatusCompleted {
		t.Fatalf("status = %s, want completed", exec.Status)
	}
	if len(exec.StepResults) != 3 {
		t.Fatalf("step results = %d, want 3", len(exec.StepResults))
	}
	for i := 1; i < len(exec.StepResults); i++ {
		prev, cur := exec.StepResults[i-1], exec.StepResults[i]
		if cur.StartedAt.Before(prev.CompletedAt) {
			t.Fatalf("step %d started at %v before step %d completed at %v", i, cur.StartedAt, i-1, prev.CompletedAt)
		}
	}
}

func TestEngine_StepFailureHaltsExecution(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	eng.Registry().Register("boom", func(_ context.Context, _ workflow.Step, _ map[string]any) (map[string]any, error) {
		return nil, fmt.Errorf("boom")
	})

	wfID, err := eng.AddWorkflow(ctx, &workflow.Definition{
		Name: "fails-midway",
		Steps: []workflow.Step{
			{ID: "ok", Type: workflow.StepWait, Config: map[string]any{"duration": "1ms"}},
			{ID: "bad", Type: "boom"},
			{ID: "never", Type: workflow.StepWait, Config: map[string]any{"duration": "1ms"}},
		},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("AddWorkflow() error: %v", err)
	}

	execID, err := eng.ExecuteWorkflow(ctx, wfID, nil)
	if err != nil {
		t.Fatalf("ExecuteWorkflow() error: %v", err)
	}
	exec := waitExecution(t, eng, execID)
	if exec.Status != workflow.StatusFailed {
		t.Fatalf("status = %s, want failed", exec.Status)
	}
	if len(exec.StepResults) != 2 {
		t.Fatalf("step results = %d, want 2 (the step after the failure must not run)", len(exec.StepResults))
	}
	last := exec.StepResults[len(exec.StepResults)-1]
	if last.Status != workflow.StepFailed || last.StepID != "bad" || last.Error == "" {
		t.Fatalf("last step result = %+v, want the failing step with its error", last)
	}
}

func TestEngine_UnknownStepTypeFailsExecution(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	wfID, err := eng.AddWorkflow(ctx, &workflow.Definition{
		Name:     "bad-step-type",
		Steps:    []workflow.Step{{ID: "mystery", Type: "no-such-handler"}},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("AddWorkflow() error: %v", err)
	}

	execID, err := eng.ExecuteWorkflow(ctx, wfID, nil)
	if err != nil {
		t.Fatalf("ExecuteWorkflow() error: %v", err)
	}
	exec := waitExecution(t, eng, execID)
	if exec.Status != workflow.StatusFailed {
		t.Fatalf("status = %s, want failed", exec.Status)
	}
}

func TestEngine_ExecuteUnknownWorkflow(t *testing.T) {
	eng, _ := newEngine(t)
	_, err := eng.ExecuteWorkflow(context.Background(), id.NewWorkflowID(), nil)
	if !errors.Is(err, automation.ErrWorkflowNotFound) {
		t.Fatalf("ExecuteWorkflow() error = %v, want ErrWorkflowNotFound", err)
	}

	execs, err := eng.ListExecutions(context.Background())
	if err != nil {
		t.Fatalf("ListExecutions() error: %v", err)
	}
	if len(execs) != 0 {
		t.Fatalf("executions = %d, want 0 after a rejected trigger", len(execs))
	}
}

func TestEngine_ExecuteInactiveWorkflow(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	wfID, err := eng.AddWorkflow(ctx, &workflow.Definition{
		Name:  "dormant",
		Steps: []workflow.Step{{ID: "w", Type: workflow.StepWait, Config: map[string]any{"duration": "1ms"}}},
	})
	if err != nil {
		t.Fatalf("AddWorkflow() error: %v", err)
	}

	if _, err := eng.ExecuteWorkflow(ctx, wfID, nil); !errors.Is(err, automation.ErrWorkflowNotFound) {
		t.Fatalf("ExecuteWorkflow() error = %v, want ErrWorkflowNotFound for inactive workflow", err)
	}
}

func TestEngine_EpicToStoriesBuiltin(t *testing.T) {
	eng, gw := newEngine(t)
	ctx := context.Background()

	epicRaw, err := gw.CreateEpic(ctx, json.RawMessage(`{"title":"Payments"}`))
	if err != nil {
		t.Fatalf("CreateEpic() error: %v", err)
	}
	var epic map[string]any
	if err := json.Unmarshal(epicRaw, &epic); err != nil {
		t.Fatalf("decode epic: %v", err)
	}

	def := findWorkflow(t, eng, "epic-to-stories")
	execID, err := eng.ExecuteWorkflow(ctx, def.ID, map[string]any{"epic": epic})
	if err != nil {
		t.Fatalf("ExecuteWorkflow() error: %v", err)
	}

	exec := waitExecution(t, eng, execID)
	if exec.Status != workflow.StatusCompleted {
		t.Fatalf("status = %s, want completed", exec.Status)
	}
	if len(exec.StepResults) != len(def.Steps) {
		t.Fatalf("step results = %d, want %d", len(exec.StepResults), len(def.Steps))
	}

	stories, err := gw.ListStories(ctx, gateway.Filter{"epic_id": epic["id"].(string)})
	if err != nil {
		t.Fatalf("ListStories() error: %v", err)
	}
	if len(stories) != len(def.Steps) {
		t.Fatalf("stories linked to epic = %d, want %d", len(stories), len(def.Steps))
	}
}

func TestEngine_OutputFlowsIntoContext(t *testing.T) {
	eng, gw := newEngine(t)
	ctx := context.Background()

	// The first step creates an epic; the second inherits epic_id from the
	// merged step output.
	wfID, err := eng.AddWorkflow(ctx, &workflow.Definition{
		Name: "chained-create",
		Steps: []workflow.Step{
			{ID: "epic", Type: workflow.StepCreateEpic, Config: map[string]any{"title": "Chained"}},
			{ID: "story", Type: workflow.StepCreateStory, Config: map[string]any{"title": "First"}},
		},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("AddWorkflow() error: %v", err)
	}

	execID, err := eng.ExecuteWorkflow(ctx, wfID, nil)
	if err != nil {
		t.Fatalf("ExecuteWorkflow() error: %v", err)
	}
	exec := waitExecution(t, eng, execID)
	if exec.Status != workflow.StatusCompleted {
		t.Fatalf("status = %s, want completed (results: %+v)", exec.Status, exec.StepResults)
	}

	epicID, ok := exec.StepResults[0].Output["epic_id"].(string)
	if !ok || epicID == "" {
		t.Fatalf("first step output = %+v, want an epic_id", exec.StepResults[0].Output)
	}
	stories, err := gw.ListStories(ctx, gateway.Filter{"epic_id": epicID})
	if err != nil {
		t.Fatalf("ListStories() error: %v", err)
	}
	if len(stories) != 1 {
		t.Fatalf("stories linked to created epic = %d, want 1", len(stories))
	}
}

func TestEngine_ContextMergedIntoCreatePayload(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	wfID, err := eng.AddWorkflow(ctx, &workflow.Definition{
		Name: "context-merge",
		Steps: []workflow.Step{
			{ID: "epic", Type: workflow.StepCreateEpic, Config: map[string]any{"title": "from-config"}},
		},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("AddWorkflow() error: %v", err)
	}

	execID, err := eng.ExecuteWorkflow(ctx, wfID, map[string]any{
		"priority": "high",
		"title":    "from-context",
	})
	if err != nil {
		t.Fatalf("ExecuteWorkflow() error: %v", err)
	}
	exec := waitExecution(t, eng, execID)
	if exec.Status != workflow.StatusCompleted {
		t.Fatalf("status = %s, want completed (results: %+v)", exec.Status, exec.StepResults)
	}

	epic, ok := exec.StepResults[0].Output["epic"].(map[string]any)
	if !ok {
		t.Fatalf("step output = %+v, want an epic entity", exec.StepResults[0].Output)
	}
	// Context keys flow into the payload; step config wins on collision.
	if got := epic["priority"]; got != "high" {
		t.Errorf("priority = %v, want %q", got, "high")
	}
	if got := epic["title"]; got != "from-config" {
		t.Errorf("title = %v, want %q", got, "from-config")
	}
}
