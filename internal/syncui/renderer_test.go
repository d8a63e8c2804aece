package syncui

import "testing"

// Rendering page events must drive both the progress totals and the
// animation state the in-place line is drawn from.
func TestRendererDrivesProgressLine(t *testing.T) {
	state := NewProgressState()
	r := NewRenderer(state)

	r.Render(Event{Type: EventClassStart, Class: "Property:RES", Total: 4})
	r.Render(Event{Type: EventPageLoaded, Class: "Property:RES", Records: 2})
	r.Render(Event{Type: EventPageLoaded, Class: "Property:RES", Records: 2})

	if got := state.LoadedCount("Property:RES"); got != 4 {
		t.Errorf("LoadedCount = %d, want 4", got)
	}
	if got := state.Total("Property:RES"); got != 4 {
		t.Errorf("Total = %d, want 4", got)
	}
	if got := r.render.GetFrameIdx(); got != 2 {
		t.Errorf("frame index = %d, want one advance per page", got)
	}

	r.Render(Event{Type: EventClassDone, Class: "Property:RES"})
	if state.CompletedCount() != 1 {
		t.Errorf("CompletedCount = %d, want 1", state.CompletedCount())
	}
}
