package deadletter_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/deadletter"
	"github.com/Pr0gCat/CodeHive-sub001/id"
)

type fakeStore struct {
	entries  map[string]*deadletter.Entry
	replayed map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:  make(map[string]*deadletter.Entry),
		replayed: make(map[string]bool),
	}
}

func (s *fakeStore) PushDeadLetter(_ context.Context, e *deadletter.Entry) error {
	s.entries[e.ID.String()] = e
	return nil
}

func (s *fakeStore) GetDeadLetter(_ context.Context, entryID id.DeadLetterID) (*deadletter.Entry, error) {
	e, ok := s.entries[entryID.String()]
	if !ok {
		return nil, automation.ErrDeadLetterNotFound
	}
	return e, nil
}

func (s *fakeStore) ListDeadLetters(_ context.Context, _ deadletter.ListOpts) ([]*deadletter.Entry, error) {
	out := make([]*deadletter.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeStore) MarkReplayed(_ context.Context, entryID id.DeadLetterID) error {
	if _, ok := s.entries[entryID.String()]; !ok {
		return automation.ErrDeadLetterNotFound
	}
	s.replayed[entryID.String()] = true
	return nil
}

func (s *fakeStore) PurgeDeadLetters(_ context.Context) (int64, error) {
	n := int64(len(s.entries))
	s.entries = make(map[string]*deadletter.Entry)
	return n, nil
}

func failedItem() *automation.Item {
	return &automation.Item{
		OperationID: id.NewOperationID(),
		Index:       3,
		Action:      automation.ActionCreate,
		TargetType:  automation.TargetStory,
		Payload:     json.RawMessage(`{"description":"missing title"}`),
		Actor:       "importer",
	}
}

func TestPushBuildsEntryFromItem(t *testing.T) {
	store := newFakeStore()
	svc := deadletter.NewService(store, nil)

	item := failedItem()
	if err := svc.Push(context.Background(), item, errors.New("validation failed")); err != nil {
		t.Fatalf("Push: %v", err)
	}

	entries, _ := store.ListDeadLetters(context.Background(), deadletter.ListOpts{})
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.OperationID != item.OperationID {
		t.Errorf("OperationID = %v, want %v", e.OperationID, item.OperationID)
	}
	if e.ItemIndex != 3 {
		t.Errorf("ItemIndex = %d, want 3", e.ItemIndex)
	}
	if e.Error != "validation failed" {
		t.Errorf("Error = %q, want %q", e.Error, "validation failed")
	}
	if e.Actor != "importer" {
		t.Errorf("Actor = %q, want %q", e.Actor, "importer")
	}
	if e.FailedAt.IsZero() {
		t.Error("FailedAt should be set")
	}
}

func TestReplayResubmitsAndMarks(t *testing.T) {
	store := newFakeStore()

	var submitted *deadletter.Entry
	newOpID := id.NewOperationID()
	svc := deadletter.NewService(store, func(_ context.Context, e *deadletter.Entry) (id.OperationID, error) {
		submitted = e
		return newOpID, nil
	})

	if err := svc.Push(context.Background(), failedItem(), errors.New("boom")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	entries, _ := store.ListDeadLetters(context.Background(), deadletter.ListOpts{})

	opID, err := svc.Replay(context.Background(), entries[0].ID)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if opID != newOpID {
		t.Errorf("opID = %v, want %v", opID, newOpID)
	}
	if submitted == nil || submitted.ID != entries[0].ID {
		t.Error("submit should receive the stored entry")
	}
	if !store.replayed[entries[0].ID.String()] {
		t.Error("entry should be marked replayed")
	}
}

func TestReplayWithoutSubmitFails(t *testing.T) {
	store := newFakeStore()
	svc := deadletter.NewService(store, nil)

	if err := svc.Push(context.Background(), failedItem(), errors.New("boom")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	entries, _ := store.ListDeadLetters(context.Background(), deadletter.ListOpts{})

	if _, err := svc.Replay(context.Background(), entries[0].ID); !errors.Is(err, automation.ErrInvalidState) {
		t.Errorf("Replay = %v, want ErrInvalidState", err)
	}
}

func TestReplayUnknownEntry(t *testing.T) {
	svc := deadletter.NewService(newFakeStore(), func(_ context.Context, _ *deadletter.Entry) (id.OperationID, error) {
		return id.Nil, fmt.Errorf("should not be called")
	})

	if _, err := svc.Replay(context.Background(), id.NewDeadLetterID()); !errors.Is(err, automation.ErrDeadLetterNotFound) {
		t.Errorf("Replay = %v, want ErrDeadLetterNotFound", err)
	}
}
