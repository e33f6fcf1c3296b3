// Package memory provides a fully in-memory entity gateway.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Pr0gCat/CodeHive-sub001/gateway"
	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Ensure Gateway implements the contract at compile time.
var _ gateway.Gateway = (*Gateway)(nil)

// Gateway stores entities as flat JSON objects keyed by their "id" field.
type Gateway struct {
	mu sync.RWMutex

	epics        map[string]map[string]any
	stories      map[string]map[string]any
	tasks        map[string]map[string]any
	instructions map[string]map[string]any
}

// New returns a new empty Gateway.
func New() *Gateway {
	return &Gateway{
		epics:        make(map[string]map[string]any),
		stories:      make(map[string]map[string]any),
		tasks:        make(map[string]map[string]any),
		instructions: make(map[string]map[string]any),
	}
}

// decode unmarshals an opaque payload into a flat object.
func decode(payload json.RawMessage) (map[string]any, error) {
	obj := make(map[string]any)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &obj); err != nil {
			return nil, fmt.Errorf("memory gateway: decode payload: %w", err)
		}
	}
	return obj, nil
}

func (g *Gateway) create(table map[string]map[string]any, payload json.RawMessage) (json.RawMessage, error) {
	obj, err := decode(payload)
	if err != nil {
		return nil, err
	}

	key, _ := obj["id"].(string)
	if key == "" {
		key = id.NewEventID().String()
		obj["id"] = key
	}

	g.mu.Lock()
	if _, exists := table[key]; exists {
		g.mu.Unlock()
		return nil, fmt.Errorf("memory gateway: entity %q already exists", key)
	}
	table[key] = obj
	g.mu.Unlock()

	return json.Marshal(obj)
}

func (g *Gateway) update(table map[string]map[string]any, payload json.RawMessage) (json.RawMessage, error) {
	obj, err := decode(payload)
	if err != nil {
		return nil, err
	}

	key, _ := obj["id"].(string)
	if key == "" {
		return nil, fmt.Errorf("memory gateway: update payload missing id")
	}

	g.mu.Lock()
	existing, ok := table[key]
	if !ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("memory gateway: entity %q not found", key)
	}
	for k, v := range obj {
		existing[k] = v
	}
	g.mu.Unlock()

	return json.Marshal(existing)
}

func (g *Gateway) remove(table map[string]map[string]any, payload json.RawMessage) error {
	obj, err := decode(payload)
	if err != nil {
		return err
	}

	key, _ := obj["id"].(string)
	if key == "" {
		return fmt.Errorf("memory gateway: delete payload missing id")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := table[key]; !ok {
		return fmt.Errorf("memory gateway: entity %q not found", key)
	}
	delete(table, key)
	return nil
}

func (g *Gateway) list(table map[string]map[string]any, filter gateway.Filter) ([]json.RawMessage, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]json.RawMessage, 0, len(table))
	for _, obj := range table {
		if !matches(obj, filter) {
			continue
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// matches reports whether every filter key equals the entity's string field.
func matches(obj map[string]any, filter gateway.Filter) bool {
	for k, want := range filter {
		got, _ := obj[k].(string)
		if got != want {
			return false
		}
	}
	return true
}

// ── Create ──────────────────────────────────────────

func (g *Gateway) CreateEpic(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return g.create(g.epics, payload)
}

func (g *Gateway) CreateStory(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return g.create(g.stories, payload)
}

func (g *Gateway) CreateTask(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return g.create(g.tasks, payload)
}

func (g *Gateway) CreateInstruction(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return g.create(g.instructions, payload)
}

// ── Update ──────────────────────────────────────────

func (g *Gateway) UpdateEpic(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return g.update(g.epics, payload)
}

func (g *Gateway) UpdateStory(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return g.update(g.stories, payload)
}

func (g *Gateway) UpdateTask(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return g.update(g.tasks, payload)
}

func (g *Gateway) UpdateInstruction(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return g.update(g.instructions, payload)
}

// ── Delete ──────────────────────────────────────────

func (g *Gateway) DeleteEpic(_ context.Context, payload json.RawMessage) error {
	return g.remove(g.epics, payload)
}

func (g *Gateway) DeleteStory(_ context.Context, payload json.RawMessage) error {
	return g.remove(g.stories, payload)
}

func (g *Gateway) DeleteTask(_ context.Context, payload json.RawMessage) error {
	return g.remove(g.tasks, payload)
}

func (g *Gateway) DeleteInstruction(_ context.Context, payload json.RawMessage) error {
	return g.remove(g.instructions, payload)
}

// ── List ────────────────────────────────────────────

func (g *Gateway) ListEpics(_ context.Context, filter gateway.Filter) ([]json.RawMessage, error) {
	return g.list(g.epics, filter)
}

func (g *Gateway) ListStories(_ context.Context, filter gateway.Filter) ([]json.RawMessage, error) {
	return g.list(g.stories, filter)
}

func (g *Gateway) ListTasks(_ context.Context, filter gateway.Filter) ([]json.RawMessage, error) {
	return g.list(g.tasks, filter)
}

// ── Test helpers ────────────────────────────────────

// CountStories returns the number of stored stories.
func (g *Gateway) CountStories() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.stories)
}

// CountTasks returns the number of stored tasks.
func (g *Gateway) CountTasks() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tasks)
}
