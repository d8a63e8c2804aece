package syncui

import (
	"fmt"

	"github.com/pterm/pterm"
)

// spinnerFrames animate the in-place progress line while pages load.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Renderer renders sync events to the console: a start line per class, an
// in-place progress line redrawn as pages load, and a final status line.
type Renderer struct {
	state  *ProgressState
	render *RenderState
}

// NewRenderer creates a renderer instance backed by the given state.
func NewRenderer(state *ProgressState) *Renderer {
	return &Renderer{state: state, render: NewRenderState()}
}

// Render processes a single event and updates both state and display.
func (r *Renderer) Render(ev Event) {
	switch ev.Type {
	case EventClassStart:
		r.state.StartClass(ev.Class, ev.Total)
		if ev.Total > 0 {
			pterm.Info.Printf("Syncing %s (%d records)\n", ev.Class, ev.Total)
		} else {
			pterm.Info.Printf("Syncing %s\n", ev.Class)
		}
	case EventPageLoaded:
		r.state.RecordPage(ev.Class, ev.Records)
		r.render.IncrementFrame()
		frame := spinnerFrames[r.render.GetFrameIdx()%len(spinnerFrames)]
		loaded := r.state.LoadedCount(ev.Class)
		line := fmt.Sprintf("%s %s: %d records", frame, ev.Class, loaded)
		if total := r.state.Total(ev.Class); total > 0 {
			line = fmt.Sprintf("%s %s: %d/%d records", frame, ev.Class, loaded, total)
		}
		fmt.Print("\r" + r.render.FormatLine(line))
	case EventClassDone:
		loaded := r.state.LoadedCount(ev.Class)
		r.state.CompleteClass(ev.Class)
		r.clearLine()
		pterm.Success.Printf("%s: %d records loaded\n", ev.Class, loaded)
	case EventClassFailed:
		r.state.FailClass(ev.Class, ev.Message)
		r.clearLine()
		pterm.Error.Printf("%s: %s\n", ev.Class, ev.Message)
	case EventBackoff:
		r.clearLine()
		pterm.Warning.Println(ev.Message)
	}
}

// clearLine blanks the in-place progress line so a full-width message does
// not print over leftovers.
func (r *Renderer) clearLine() {
	fmt.Print("\r" + r.render.FormatLine("") + "\r")
}

// Summary prints the final outcome after all classes have been processed.
func (r *Renderer) Summary() {
	done := r.state.CompletedCount()
	failed := r.state.FailedCount()
	if failed == 0 {
		pterm.Success.Printf("Sync complete: %d class(es)\n", done)
		return
	}
	pterm.Warning.Println(fmt.Sprintf("Sync finished with failures: %d ok, %d failed", done, failed))
	for class, reason := range r.state.Failed {
		pterm.Error.Printf("  %s: %s\n", class, reason)
	}
}
