package syncui

import (
	"testing"
	"unicode/utf8"
)

func TestProgressStateLifecycle(t *testing.T) {
	ps := NewProgressState()

	ps.StartClass("Property:RES", 1200)
	ps.RecordPage("Property:RES", 500)
	ps.RecordPage("Property:RES", 500)
	ps.RecordPage("Property:RES", 200)

	if got := ps.LoadedCount("Property:RES"); got != 1200 {
		t.Errorf("LoadedCount = %d, want 1200", got)
	}

	ps.CompleteClass("Property:RES")
	if ps.CompletedCount() != 1 {
		t.Errorf("CompletedCount = %d, want 1", ps.CompletedCount())
	}
	if ps.HasFailures() {
		t.Error("HasFailures = true, want false")
	}
}

func TestProgressStateFailure(t *testing.T) {
	ps := NewProgressState()

	ps.StartClass("Property:COM", 0)
	ps.FailClass("Property:COM", "the RETS request could not be completed")

	if !ps.HasFailures() {
		t.Error("HasFailures = false, want true")
	}
	if ps.FailedCount() != 1 {
		t.Errorf("FailedCount = %d, want 1", ps.FailedCount())
	}
	if _, active := ps.Active["Property:COM"]; active {
		t.Error("failed class should not remain active")
	}
}

func TestProgressStateOrderPreserved(t *testing.T) {
	ps := NewProgressState()
	ps.StartClass("Property:RES", 0)
	ps.StartClass("Property:COM", 0)
	ps.StartClass("Property:RES", 0) // restart must not duplicate

	if len(ps.Order) != 2 {
		t.Fatalf("Order has %d entries, want 2", len(ps.Order))
	}
	if ps.Order[0] != "Property:RES" || ps.Order[1] != "Property:COM" {
		t.Errorf("Order = %v", ps.Order)
	}
}

func TestFormatLinePadsToWidest(t *testing.T) {
	rs := NewRenderState()

	long := rs.FormatLine("syncing Property:RES 1200/5000")
	short := rs.FormatLine("done")

	if utf8.RuneCountInString(short) != utf8.RuneCountInString(long) {
		t.Errorf("short line not padded: %d != %d",
			utf8.RuneCountInString(short), utf8.RuneCountInString(long))
	}
}
