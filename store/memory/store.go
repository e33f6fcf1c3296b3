package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/batch"
	"github.com/Pr0gCat/CodeHive-sub001/deadletter"
	"github.com/Pr0gCat/CodeHive-sub001/id"
	"github.com/Pr0gCat/CodeHive-sub001/trigger"
	"github.com/Pr0gCat/CodeHive-sub001/workflow"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ batch.Store      = (*Store)(nil)
	_ workflow.Store   = (*Store)(nil)
	_ deadletter.Store = (*Store)(nil)
	_ trigger.Store    = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store. Safe for
// concurrent access. Every read and write copies the record, keeping each
// manager's execution loop the single writer of its records.
type Store struct {
	mu sync.RWMutex

	opOrder []string
	ops     map[string]*batch.Operation

	defOrder []string
	defs     map[string]*workflow.Definition

	execOrder []string
	execs     map[string]*workflow.Execution

	dlOrder []string
	dls     map[string]*deadletter.Entry

	triggers map[string]*trigger.Entry
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		ops:      make(map[string]*batch.Operation),
		defs:     make(map[string]*workflow.Definition),
		execs:    make(map[string]*workflow.Execution),
		dls:      make(map[string]*deadletter.Entry),
		triggers: make(map[string]*trigger.Entry),
	}
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Batch Store
// ──────────────────────────────────────────────────

// CreateOperation persists a new operation in pending state.
func (m *Store) CreateOperation(_ context.Context, op *batch.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := op.ID.String()
	if _, exists := m.ops[key]; exists {
		return automation.ErrOperationExists
	}
	m.ops[key] = op.Clone()
	m.opOrder = append(m.opOrder, key)
	return nil
}

// GetOperation retrieves an operation by ID.
func (m *Store) GetOperation(_ context.Context, opID id.OperationID) (*batch.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	op, ok := m.ops[opID.String()]
	if !ok {
		return nil, automation.ErrOperationNotFound
	}
	return op.Clone(), nil
}

// UpdateOperation persists changes to an existing operation.
func (m *Store) UpdateOperation(_ context.Context, op *batch.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := op.ID.String()
	if _, ok := m.ops[key]; !ok {
		return automation.ErrOperationNotFound
	}
	m.ops[key] = op.Clone()
	return nil
}

// ListOperations returns every tracked operation in insertion order.
func (m *Store) ListOperations(_ context.Context) ([]*batch.Operation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*batch.Operation, 0, len(m.opOrder))
	for _, key := range m.opOrder {
		out = append(out, m.ops[key].Clone())
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Workflow Store
// ──────────────────────────────────────────────────

// PutWorkflow registers or replaces a definition by id.
func (m *Store) PutWorkflow(_ context.Context, def *workflow.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := def.ID.String()
	if _, exists := m.defs[key]; !exists {
		m.defOrder = append(m.defOrder, key)
	}
	m.defs[key] = def.Clone()
	return nil
}

// GetWorkflow retrieves a definition by id.
func (m *Store) GetWorkflow(_ context.Context, wfID id.WorkflowID) (*workflow.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	def, ok := m.defs[wfID.String()]
	if !ok {
		return nil, automation.ErrWorkflowNotFound
	}
	return def.Clone(), nil
}

// ListWorkflows returns every registered definition in insertion order.
func (m *Store) ListWorkflows(_ context.Context) ([]*workflow.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*workflow.Definition, 0, len(m.defOrder))
	for _, key := range m.defOrder {
		out = append(out, m.defs[key].Clone())
	}
	return out, nil
}

// CreateExecution persists a new execution in running state.
func (m *Store) CreateExecution(_ context.Context, exec *workflow.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := exec.ID.String()
	if _, exists := m.execs[key]; exists {
		return automation.ErrInvalidState
	}
	m.execs[key] = exec.Clone()
	m.execOrder = append(m.execOrder, key)
	return nil
}

// GetExecution retrieves an execution by id.
func (m *Store) GetExecution(_ context.Context, execID id.ExecutionID) (*workflow.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exec, ok := m.execs[execID.String()]
	if !ok {
		return nil, automation.ErrExecutionNotFound
	}
	return exec.Clone(), nil
}

// UpdateExecution persists changes to an existing execution.
func (m *Store) UpdateExecution(_ context.Context, exec *workflow.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := exec.ID.String()
	if _, ok := m.execs[key]; !ok {
		return automation.ErrExecutionNotFound
	}
	m.execs[key] = exec.Clone()
	return nil
}

// ListExecutions returns every tracked execution in insertion order.
func (m *Store) ListExecutions(_ context.Context) ([]*workflow.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*workflow.Execution, 0, len(m.execOrder))
	for _, key := range m.execOrder {
		out = append(out, m.execs[key].Clone())
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Dead Letter Store
// ──────────────────────────────────────────────────

// PushDeadLetter persists a new entry.
func (m *Store) PushDeadLetter(_ context.Context, e *deadletter.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := e.ID.String()
	cp := *e
	m.dls[key] = &cp
	m.dlOrder = append(m.dlOrder, key)
	return nil
}

// GetDeadLetter retrieves an entry by ID.
func (m *Store) GetDeadLetter(_ context.Context, entryID id.DeadLetterID) (*deadletter.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.dls[entryID.String()]
	if !ok {
		return nil, automation.ErrDeadLetterNotFound
	}
	cp := *e
	return &cp, nil
}

// ListDeadLetters returns entries matching the given options, oldest first.
func (m *Store) ListDeadLetters(_ context.Context, opts deadletter.ListOpts) ([]*deadletter.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*deadletter.Entry, 0, len(m.dlOrder))
	for _, key := range m.dlOrder {
		e := m.dls[key]
		if !opts.OperationID.IsNil() && e.OperationID != opts.OperationID {
			continue
		}
		matched = append(matched, e)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	out := make([]*deadletter.Entry, len(matched))
	for i, e := range matched {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// MarkReplayed stamps an entry's ReplayedAt timestamp.
func (m *Store) MarkReplayed(_ context.Context, entryID id.DeadLetterID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.dls[entryID.String()]
	if !ok {
		return automation.ErrDeadLetterNotFound
	}
	now := time.Now().UTC()
	e.ReplayedAt = &now
	return nil
}

// PurgeDeadLetters removes all entries and returns the removed count.
func (m *Store) PurgeDeadLetters(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := int64(len(m.dls))
	m.dls = make(map[string]*deadletter.Entry)
	m.dlOrder = nil
	return count, nil
}

// ──────────────────────────────────────────────────
// Trigger Store
// ──────────────────────────────────────────────────

// RegisterTrigger persists a new trigger entry.
func (m *Store) RegisterTrigger(_ context.Context, entry *trigger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.triggers {
		if e.Name == entry.Name {
			return automation.ErrDuplicateTrigger
		}
	}
	m.triggers[entry.ID.String()] = cloneTrigger(entry)
	return nil
}

// GetTrigger retrieves a trigger entry by ID.
func (m *Store) GetTrigger(_ context.Context, entryID id.TriggerID) (*trigger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.triggers[entryID.String()]
	if !ok {
		return nil, automation.ErrTriggerNotFound
	}
	return cloneTrigger(e), nil
}

// ListTriggers returns all trigger entries.
func (m *Store) ListTriggers(_ context.Context) ([]*trigger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*trigger.Entry, 0, len(m.triggers))
	for _, e := range m.triggers {
		out = append(out, cloneTrigger(e))
	}
	return out, nil
}

// UpdateTriggerLastRun records when a trigger entry last fired.
func (m *Store) UpdateTriggerLastRun(_ context.Context, entryID id.TriggerID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.triggers[entryID.String()]
	if !ok {
		return automation.ErrTriggerNotFound
	}
	e.LastRunAt = &at
	return nil
}

// UpdateTrigger updates a trigger entry.
func (m *Store) UpdateTrigger(_ context.Context, entry *trigger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entry.ID.String()
	if _, ok := m.triggers[key]; !ok {
		return automation.ErrTriggerNotFound
	}
	m.triggers[key] = cloneTrigger(entry)
	return nil
}

// DeleteTrigger removes a trigger entry by ID.
func (m *Store) DeleteTrigger(_ context.Context, entryID id.TriggerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entryID.String()
	if _, ok := m.triggers[key]; !ok {
		return automation.ErrTriggerNotFound
	}
	delete(m.triggers, key)
	return nil
}

func cloneTrigger(e *trigger.Entry) *trigger.Entry {
	cp := *e
	cp.Context = maps.Clone(e.Context)
	if e.LastRunAt != nil {
		t := *e.LastRunAt
		cp.LastRunAt = &t
	}
	if e.NextRunAt != nil {
		t := *e.NextRunAt
		cp.NextRunAt = &t
	}
	return &cp
}
