// Package limits provides fleet-wide dispatch gates for batch item
// processing. Each batch caps its own parallelism via maxConcurrency; the
// limits Manager sits above all operations and throttles dispatch per
// target type and per actor so a single bulk import cannot starve the
// entity gateway.
package limits

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-target-type behaviour such as rate limiting and
// concurrency.
type Config struct {
	// Target is the target type identifier (must match the item's
	// TargetType field).
	Target string

	// MaxConcurrency limits how many items of this target type may be
	// in flight simultaneously across all operations. Zero means no
	// type-specific limit (per-operation concurrency still applies).
	MaxConcurrency int

	// RateLimit is the maximum sustained items per second that may be
	// dispatched for this target type. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// targetState tracks runtime state for a single target type.
type targetState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

// ActorConfig defines rate limits and concurrency for a specific actor on
// a specific target type, identified by the item's Actor field.
type ActorConfig struct {
	// Target is the target type this config applies to.
	Target string

	// Actor is the submitting identity.
	Actor string

	// RateLimit is the sustained items per second for this actor.
	RateLimit float64

	// RateBurst is the burst size for the actor's rate limiter.
	RateBurst int

	// MaxConcurrency limits simultaneous items for this actor on this
	// target type. Zero means no actor-specific concurrency limit.
	MaxConcurrency int
}

// actorState tracks runtime state for a single target+actor pair.
type actorState struct {
	limiter        *rate.Limiter
	maxConcurrency int
	active         int
}

// actorKey builds the map key for a target+actor pair.
func actorKey(target, actor string) string {
	return fmt.Sprintf("%s:%s", target, actor)
}

// Manager controls per-target-type and per-actor rate limiting and
// concurrency. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	targets map[string]*targetState
	actors  map[string]*actorState
}

// NewManager creates a Manager with the given target configurations.
// Target types not listed here have no limits.
func NewManager(configs ...Config) *Manager {
	m := &Manager{
		targets: make(map[string]*targetState, len(configs)),
		actors:  make(map[string]*actorState),
	}
	for _, cfg := range configs {
		m.targets[cfg.Target] = newTargetState(cfg)
	}
	return m
}

func newTargetState(cfg Config) *targetState {
	ts := &targetState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ts
}

// Acquire checks rate limits and concurrency for the given target type and
// actor. If the item is allowed to proceed it increments the active
// counters and returns true. The caller MUST call Release when the item
// completes.
func (m *Manager) Acquire(target, actor string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.targets[target]
	if ts != nil {
		if ts.limiter != nil && !ts.limiter.Allow() {
			return false
		}
		if ts.config.MaxConcurrency > 0 && ts.active >= ts.config.MaxConcurrency {
			return false
		}
	}

	if actor != "" {
		as := m.actors[actorKey(target, actor)]
		if as != nil {
			if as.limiter != nil && !as.limiter.Allow() {
				return false
			}
			if as.maxConcurrency > 0 && as.active >= as.maxConcurrency {
				return false
			}
			as.active++
		}
	}

	if ts != nil {
		ts.active++
	}

	return true
}

// Release decrements the active item count for the target type and actor.
func (m *Manager) Release(target, actor string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ts := m.targets[target]; ts != nil && ts.active > 0 {
		ts.active--
	}

	if actor != "" {
		if as := m.actors[actorKey(target, actor)]; as != nil && as.active > 0 {
			as.active--
		}
	}
}

// SetTargetConfig dynamically updates (or creates) a target configuration.
func (m *Manager) SetTargetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.targets[cfg.Target]
	ts := newTargetState(cfg)

	// Preserve current active count if reconfiguring.
	if existing != nil {
		ts.active = existing.active
	}
	m.targets[cfg.Target] = ts
}

// SetActorConfig configures rate limits and concurrency for a specific
// actor on a specific target type. Calling this multiple times for the
// same pair replaces the previous configuration.
func (m *Manager) SetActorConfig(cfg ActorConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := actorKey(cfg.Target, cfg.Actor)
	existing := m.actors[key]

	as := &actorState{
		maxConcurrency: cfg.MaxConcurrency,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		as.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if existing != nil {
		as.active = existing.active
	}
	m.actors[key] = as
}

// ActiveCount returns the current number of in-flight items for a target type.
func (m *Manager) ActiveCount(target string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts := m.targets[target]; ts != nil {
		return ts.active
	}
	return 0
}

// ActorActiveCount returns the current number of in-flight items for a
// target+actor pair.
func (m *Manager) ActorActiveCount(target, actor string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if as := m.actors[actorKey(target, actor)]; as != nil {
		return as.active
	}
	return 0
}
