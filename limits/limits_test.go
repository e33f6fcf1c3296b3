package limits_test

import (
	"testing"

	"github.com/Pr0gCat/CodeHive-sub001/limits"
)

func TestManager_UnconfiguredTargetHasNoLimits(t *testing.T) {
	m := limits.NewManager()

	for range 100 {
		if !m.Acquire("task", "") {
			t.Fatal("unconfigured target should always acquire")
		}
	}
}

func TestManager_ConcurrencyLimit(t *testing.T) {
	m := limits.NewManager(limits.Config{Target: "epic", MaxConcurrency: 2})

	if !m.Acquire("epic", "") {
		t.Fatal("first acquire should succeed")
	}
	if !m.Acquire("epic", "") {
		t.Fatal("second acquire should succeed")
	}
	if m.Acquire("epic", "") {
		t.Fatal("third acquire should be rejected")
	}

	m.Release("epic", "")
	if !m.Acquire("epic", "") {
		t.Fatal("acquire after release should succeed")
	}
	if m.ActiveCount("epic") != 2 {
		t.Errorf("ActiveCount = %d, want 2", m.ActiveCount("epic"))
	}
}

func TestManager_RateLimit(t *testing.T) {
	m := limits.NewManager(limits.Config{Target: "story", RateLimit: 1, RateBurst: 1})

	if !m.Acquire("story", "") {
		t.Fatal("first acquire should consume the burst token")
	}
	// Token bucket is exhausted; the next immediate acquire must fail.
	if m.Acquire("story", "") {
		t.Fatal("second immediate acquire should be rate limited")
	}
}

func TestManager_ActorLimit(t *testing.T) {
	m := limits.NewManager()
	m.SetActorConfig(limits.ActorConfig{Target: "task", Actor: "importer", MaxConcurrency: 1})

	if !m.Acquire("task", "importer") {
		t.Fatal("first acquire should succeed")
	}
	if m.Acquire("task", "importer") {
		t.Fatal("second acquire should hit the actor limit")
	}
	// Other actors are unaffected.
	if !m.Acquire("task", "someone-else") {
		t.Fatal("different actor should acquire")
	}

	m.Release("task", "importer")
	if m.ActorActiveCount("task", "importer") != 0 {
		t.Errorf("ActorActiveCount = %d, want 0", m.ActorActiveCount("task", "importer"))
	}
}

func TestManager_SetTargetConfigPreservesActive(t *testing.T) {
	m := limits.NewManager(limits.Config{Target: "task", MaxConcurrency: 5})

	m.Acquire("task", "")
	m.Acquire("task", "")

	m.SetTargetConfig(limits.Config{Target: "task", MaxConcurrency: 2})
	if m.ActiveCount("task") != 2 {
		t.Errorf("ActiveCount = %d, want 2 after reconfigure", m.ActiveCount("task"))
	}
	if m.Acquire("task", "") {
		t.Fatal("acquire should fail at the new lower limit")
	}
}
