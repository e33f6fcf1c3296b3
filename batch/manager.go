package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/actor"
	"github.com/Pr0gCat/CodeHive-sub001/deadletter"
	"github.com/Pr0gCat/CodeHive-sub001/gateway"
	"github.com/Pr0gCat/CodeHive-sub001/id"
	"github.com/Pr0gCat/CodeHive-sub001/middleware"
	"github.com/Pr0gCat/CodeHive-sub001/validate"
)

// Emitter receives batch lifecycle events. hook.Registry satisfies this
// interface via an adapter in the engine package, which breaks the import
// cycle between batch and hook.
type Emitter interface {
	EmitBatchCreated(ctx context.Context, op *Operation)
	EmitBatchProgress(ctx context.Context, op *Operation)
	EmitBatchCompleted(ctx context.Context, op *Operation)
}

// NopEmitter is an Emitter that discards all events.
type NopEmitter struct{}

func (NopEmitter) EmitBatchCreated(context.Context, *Operation)   {}
func (NopEmitter) EmitBatchProgress(context.Context, *Operation)  {}
func (NopEmitter) EmitBatchCompleted(context.Context, *Operation) {}

// Gate throttles item dispatch across all operations. The manager calls
// Acquire before dispatching an item and Release after it completes.
// limits.Manager satisfies this interface.
type Gate interface {
	Acquire(target, actor string) bool
	Release(target, actor string)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMiddleware sets the middleware chain applied to every item dispatch.
func WithMiddleware(mws ...middleware.Middleware) ManagerOption {
	return func(m *Manager) { m.mw = middleware.Chain(mws...) }
}

// WithDeadLetter captures failed items in the given dead letter service.
func WithDeadLetter(svc *deadletter.Service) ManagerOption {
	return func(m *Manager) { m.deadLetter = svc }
}

// WithGate sets the fleet-wide dispatch gate.
func WithGate(g Gate) ManagerOption {
	return func(m *Manager) { m.gate = g }
}

// WithDefaultConcurrency sets the item-level parallelism used when a
// request does not specify its own. Values below 1 are clamped to 1.
func WithDefaultConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		if n < 1 {
			n = 1
		}
		m.defaultConcurrency = n
	}
}

// errNotDispatched marks an item the operation was cancelled out from
// under before it ever reached the gateway. It is never recorded.
var errNotDispatched = errors.New("batch: item not dispatched")

// gateRetryInterval is how long a worker sleeps between gate acquisition
// attempts when the fleet-wide limits reject a dispatch.
const gateRetryInterval = 10 * time.Millisecond

// Manager owns the batch operation table and the execution of every
// submitted batch. Operations are mutated only by the manager's own
// execution loop; external callers read copies and request transitions
// through Cancel.
type Manager struct {
	store      Store
	gw         gateway.Gateway
	emitter    Emitter
	deadLetter *deadletter.Service
	gate       Gate
	mw         middleware.Middleware
	logger     *slog.Logger

	defaultConcurrency int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a batch operation manager. A nil emitter disables
// event emission; a nil logger falls back to slog.Default().
func NewManager(store Store, gw gateway.Gateway, emitter Emitter, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:              store,
		gw:                 gw,
		emitter:            emitter,
		mw:                 middleware.Chain(),
		logger:             logger,
		defaultConcurrency: 1,
		cancels:            make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create validates the request shape, registers a pending operation, and
// begins asynchronous execution. It returns the operation id immediately;
// progress is observable via Get or the batch lifecycle events.
//
// Request-shape problems return automation.ErrInvalidRequest and no
// operation is tracked.
func (m *Manager) Create(ctx context.Context, req Request) (id.OperationID, error) {
	if len(req.Items) == 0 {
		return id.Nil, fmt.Errorf("%w: items must not be empty", automation.ErrInvalidRequest)
	}
	if !req.Type.Valid() {
		return id.Nil, fmt.Errorf("%w: unknown operation type %q", automation.ErrInvalidRequest, req.Type)
	}
	if !req.TargetType.Valid() {
		return id.Nil, fmt.Errorf("%w: unknown target type %q", automation.ErrInvalidRequest, req.TargetType)
	}

	opts := req.Options
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = m.defaultConcurrency
	}

	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = actor.From(ctx)
	}

	op := &Operation{
		Entity:     automation.NewEntity(),
		ID:         id.NewOperationID(),
		Type:       req.Type,
		TargetType: req.TargetType,
		Items:      req.Items,
		Options:    opts,
		Status:     StatusPending,
		CreatedBy:  createdBy,
	}

	if err := m.store.CreateOperation(ctx, op); err != nil {
		return id.Nil, fmt.Errorf("create operation: %w", err)
	}

	m.emitter.EmitBatchCreated(ctx, op.Clone())

	// Execution is detached from the caller's context: cancelling the
	// submission request must not cancel the batch.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.track(op.ID.String(), cancel)
	m.wg.Add(1)
	go m.run(runCtx, op)

	return op.ID, nil
}

// Get returns a snapshot of the operation with the given id.
func (m *Manager) Get(ctx context.Context, opID id.OperationID) (*Operation, error) {
	return m.store.GetOperation(ctx, opID)
}

// List returns snapshots of every tracked operation in insertion order.
func (m *Manager) List(ctx context.Context) ([]*Operation, error) {
	return m.store.ListOperations(ctx)
}

// Cancel requests cooperative cancellation of a running operation. Items
// already dispatched are allowed to finish; no further items are scheduled.
// Cancelling an operation that is not running is a no-op that still
// succeeds. An unknown id returns automation.ErrOperationNotFound.
func (m *Manager) Cancel(ctx context.Context, opID id.OperationID) error {
	if _, err := m.store.GetOperation(ctx, opID); err != nil {
		return err
	}

	m.mu.Lock()
	cancel, ok := m.cancels[opID.String()]
	m.mu.Unlock()

	if ok {
		m.logger.Info("batch operation cancel requested", slog.String("operation_id", opID.String()))
		cancel()
	}
	return nil
}

// Stats aggregates fleet-wide numbers across all tracked operations.
// SuccessRate is successful items over processed items, in [0,1], and 0
// when nothing has been processed.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	ops, err := m.store.ListOperations(ctx)
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	var successful int
	for _, op := range ops {
		s.TotalOperations++
		switch op.Status {
		case StatusRunning, StatusPending:
			s.RunningOperations++
		case StatusCompleted:
			s.CompletedOperations++
		case StatusFailed:
			s.FailedOperations++
		case StatusCancelled:
			s.CancelledOperations++
		}
		successful += op.SuccessfulItems
		s.TotalItemsProcessed += op.SuccessfulItems + op.FailedItems
	}

	if s.TotalItemsProcessed > 0 {
		s.SuccessRate = float64(successful) / float64(s.TotalItemsProcessed)
	}
	return s, nil
}

// Stop waits for all running operations to finish. If the context expires
// first, every remaining operation is cancelled and Stop waits for the
// in-flight items to drain.
func (m *Manager) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.logger.Warn("batch manager shutdown timed out, cancelling running operations")
		m.cancelAll()
		<-done
		return nil
	}
}

func (m *Manager) track(key string, cancel context.CancelFunc) {
	m.mu.Lock()
	m.cancels[key] = cancel
	m.mu.Unlock()
}

func (m *Manager) untrack(key string) {
	m.mu.Lock()
	delete(m.cancels, key)
	m.mu.Unlock()
}

func (m *Manager) cancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, cancel := range m.cancels {
		m.logger.Warn("cancelling batch operation", slog.String("operation_id", key))
		cancel()
	}
}

// run is the single writer of the operation record. It owns the
// pending→running transition, item scheduling, progress accounting, and
// the terminal transition.
func (m *Manager) run(ctx context.Context, op *Operation) {
	defer m.wg.Done()
	defer m.untrack(op.ID.String())

	// Persistence and event emission must survive cancellation: the
	// cancellable ctx only gates scheduling.
	pctx := context.WithoutCancel(ctx)

	op.Status = StatusRunning
	op.Touch()
	m.persist(pctx, op)

	skip := make([]bool, len(op.Items))

	// Validate-first: check every item before dispatching any.
	if op.Options.ValidateFirst {
		var invalid []ItemError
		for i, payload := range op.Items {
			if err := validate.Item(op.Type, op.TargetType, payload); err != nil {
				invalid = append(invalid, ItemError{ItemIndex: i, Message: err.Error()})
				skip[i] = true
			}
		}

		if len(invalid) > 0 {
			if !op.Options.ContinueOnError {
				// Fatal: zero items processed, one error per invalid item.
				op.Errors = invalid
				m.finalize(pctx, op, StatusFailed)
				return
			}

			// Record and skip the invalid items; valid items still run.
			op.Errors = append(op.Errors, invalid...)
			op.FailedItems = len(invalid)
			op.Progress = float64(op.FailedItems) / float64(len(op.Items))
			op.Touch()
			m.persist(pctx, op)
			m.emitter.EmitBatchProgress(pctx, op.Clone())

			for _, ie := range invalid {
				m.pushDeadLetter(pctx, m.buildItem(op, ie.ItemIndex), fmt.Errorf("%s", ie.Message))
			}
		}
	}

	var (
		recordMu sync.Mutex
		halted   bool
	)

	var grp errgroup.Group
	grp.SetLimit(op.Options.MaxConcurrency)

	for i := range op.Items {
		// Cancellation and halt are observed between item dispatches;
		// items already dispatched run to completion.
		if ctx.Err() != nil {
			break
		}
		recordMu.Lock()
		stop := halted
		recordMu.Unlock()
		if stop {
			break
		}
		if skip[i] {
			continue
		}

		item := m.buildItem(op, i)
		prevalidated := op.Options.ValidateFirst

		grp.Go(func() error {
			// A cancel or halt that lands while this item sat in the
			// pool queue means it was never dispatched.
			if ctx.Err() != nil {
				return nil
			}
			recordMu.Lock()
			queuedBehindFailure := halted
			recordMu.Unlock()
			if queuedBehindFailure {
				return nil
			}

			err := m.processItem(ctx, item, prevalidated)
			if errors.Is(err, errNotDispatched) {
				return nil
			}

			recordMu.Lock()
			if err != nil {
				op.FailedItems++
				op.Errors = append(op.Errors, ItemError{ItemIndex: item.Index, Message: err.Error()})
				if !op.Options.ContinueOnError {
					halted = true
				}
			} else {
				op.SuccessfulItems++
			}
			op.Progress = float64(op.SuccessfulItems+op.FailedItems) / float64(len(op.Items))
			op.Touch()
			snapshot := op.Clone()
			recordMu.Unlock()

			m.persist(pctx, snapshot)
			m.emitter.EmitBatchProgress(pctx, snapshot)

			if err != nil {
				m.pushDeadLetter(pctx, item, err)
			}
			return nil
		})
	}

	_ = grp.Wait() // workers record their own outcomes and never error

	status := StatusCompleted
	switch {
	case ctx.Err() != nil:
		status = StatusCancelled
	case len(op.Errors) > 0 && !op.Options.ContinueOnError:
		status = StatusFailed
	}

	// Stable error ordering regardless of completion order.
	sort.Slice(op.Errors, func(i, j int) bool { return op.Errors[i].ItemIndex < op.Errors[j].ItemIndex })

	m.finalize(pctx, op, status)
}

// processItem waits for the fleet gate, honours the per-item delay, and
// dispatches the gateway call through the middleware chain. The context it
// executes under is detached from the operation's cancel so in-flight items
// always finish.
func (m *Manager) processItem(ctx context.Context, item *automation.Item, prevalidated bool) error {
	if !m.acquireGate(ctx, item) {
		return errNotDispatched // cancelled while throttled
	}
	if m.gate != nil {
		defer m.gate.Release(string(item.TargetType), item.Actor)
	}

	if item.Delay > 0 {
		time.Sleep(item.Delay)
	}

	if !prevalidated {
		if err := validate.Item(item.Action, item.TargetType, item.Payload); err != nil {
			return err
		}
	}

	execCtx := context.WithoutCancel(ctx)
	terminal := func(hctx context.Context) error {
		_, err := gateway.Apply(hctx, m.gw, item.Action, item.TargetType, item.Payload)
		if err != nil {
			return fmt.Errorf("%w: %w", automation.ErrGateway, err)
		}
		return nil
	}

	return m.mw(execCtx, item, terminal)
}

// acquireGate blocks until the fleet-wide gate admits the item or the
// operation is cancelled. Returns false on cancellation.
func (m *Manager) acquireGate(ctx context.Context, item *automation.Item) bool {
	if m.gate == nil {
		return true
	}
	for {
		if m.gate.Acquire(string(item.TargetType), item.Actor) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(gateRetryInterval):
		}
	}
}

func (m *Manager) buildItem(op *Operation, index int) *automation.Item {
	return &automation.Item{
		OperationID: op.ID,
		Index:       index,
		Action:      op.Type,
		TargetType:  op.TargetType,
		Payload:     op.Items[index],
		Actor:       op.CreatedBy,
		Delay:       op.Options.Delay,
		Timeout:     op.Options.ItemTimeout,
	}
}

// finalize writes the terminal state and emits the completion event.
func (m *Manager) finalize(ctx context.Context, op *Operation, status Status) {
	now := time.Now().UTC()
	op.Status = status
	op.CompletedAt = &now
	op.Touch()
	m.persist(ctx, op)

	m.logger.Info("batch operation finished",
		slog.String("operation_id", op.ID.String()),
		slog.String("status", string(status)),
		slog.Int("successful_items", op.SuccessfulItems),
		slog.Int("failed_items", op.FailedItems),
	)

	m.emitter.EmitBatchCompleted(ctx, op.Clone())
}

func (m *Manager) persist(ctx context.Context, op *Operation) {
	if err := m.store.UpdateOperation(ctx, op); err != nil {
		m.logger.Error("failed to persist batch operation",
			slog.String("operation_id", op.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Manager) pushDeadLetter(ctx context.Context, item *automation.Item, itemErr error) {
	if m.deadLetter == nil {
		return
	}
	if err := m.deadLetter.Push(ctx, item, itemErr); err != nil {
		m.logger.Error("failed to push dead letter entry",
			slog.String("operation_id", item.OperationID.String()),
			slog.Int("item_index", item.Index),
			slog.String("error", err.Error()),
		)
	}
}
