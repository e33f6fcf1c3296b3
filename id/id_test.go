package id_test

import (
	"strings"
	"testing"

	"github.com/Pr0gCat/CodeHive-sub001/id"
)

func TestNew_PrefixAndUniqueness(t *testing.T) {
	a := id.NewOperationID()
	b := id.NewOperationID()

	if a.Prefix() != id.PrefixOperation {
		t.Errorf("Prefix = %q, want %q", a.Prefix(), id.PrefixOperation)
	}
	if !strings.HasPrefix(a.String(), "batch_") {
		t.Errorf("String = %q, want batch_ prefix", a.String())
	}
	if a == b {
		t.Error("two generated IDs are equal")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	orig := id.NewExecutionID()

	parsed, err := id.Parse(orig.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != orig {
		t.Errorf("round trip = %s, want %s", parsed, orig)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestParseWithPrefix_Mismatch(t *testing.T) {
	wfID := id.NewWorkflowID()

	if _, err := id.ParseOperationID(wfID.String()); err == nil {
		t.Error("expected prefix mismatch error")
	}
}

func TestID_Nil(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Error("Nil.IsNil() = false")
	}
	if id.Nil.String() != "" {
		t.Errorf("Nil.String() = %q, want empty", id.Nil.String())
	}
}

func TestID_TextMarshaling(t *testing.T) {
	orig := id.NewEventID()

	data, err := orig.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var back id.ID
	if err := back.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != orig {
		t.Errorf("round trip = %s, want %s", back, orig)
	}

	var zero id.ID
	if err := zero.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText(nil): %v", err)
	}
	if !zero.IsNil() {
		t.Error("UnmarshalText(nil) should yield Nil ID")
	}
}
