// Package syncui provides state management for sync progress display.
package syncui

import (
	"sync"
	"unicode/utf8"
)

// ProgressState tracks sync progress for all classes in the current run.
// It maintains information about which classes are active, completed, or failed.
type ProgressState struct {
	// Active maps class names to the number of records loaded so far
	Active map[string]int
	// Totals maps class names to the expected record count, when known
	Totals map[string]int
	// Completed contains the set of successfully synced classes
	Completed map[string]struct{}
	// Failed maps class names to failure reasons
	Failed map[string]string
	// Order preserves the sequence in which classes were started
	Order []string
	// mu protects concurrent access to all fields
	mu sync.Mutex
}

// NewProgressState creates a new ProgressState with initialized maps.
func NewProgressState() *ProgressState {
	return &ProgressState{
		Active:    make(map[string]int),
		Totals:    make(map[string]int),
		Completed: make(map[string]struct{}),
		Failed:    make(map[string]string),
		Order:     []string{},
	}
}

// StartClass marks a class as active, optionally recording the expected total.
func (ps *ProgressState) StartClass(class string, total int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.Active[class]; !exists {
		ps.Order = append(ps.Order, class)
	}
	ps.Active[class] = 0
	if total > 0 {
		ps.Totals[class] = total
	}
}

// RecordPage adds a loaded page's record count to an active class.
func (ps *ProgressState) RecordPage(class string, records int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.Active[class] += records
}

// CompleteClass marks a class as successfully synced.
func (ps *ProgressState) CompleteClass(class string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.Active, class)
	ps.Completed[class] = struct{}{}
}

// FailClass marks a class as failed with a reason.
func (ps *ProgressState) FailClass(class string, reason string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.Active, class)
	ps.Failed[class] = reason
}

// LoadedCount returns the cumulative record count for a class, whether it
// is still active or already completed.
func (ps *ProgressState) LoadedCount(class string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.Active[class]
}

// Total returns the expected record count for a class, zero when unknown.
func (ps *ProgressState) Total(class string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.Totals[class]
}

// CompletedCount returns the total number of completed classes.
func (ps *ProgressState) CompletedCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.Completed)
}

// FailedCount returns the total number of failed classes.
func (ps *ProgressState) FailedCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.Failed)
}

// HasFailures returns true if any class has failed.
func (ps *ProgressState) HasFailures() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.Failed) > 0
}

// RenderState holds the UI rendering state for the sync progress display.
// It tracks animation frames and line widths to prevent flickering when
// lines shrink between redraws.
type RenderState struct {
	// FrameIdx is the current animation frame index for spinners
	FrameIdx int
	// MaxLineLen tracks the maximum line length to prevent flickering
	MaxLineLen int
	// mu protects concurrent access to rendering state
	mu sync.Mutex
}

// NewRenderState creates a new RenderState with default values.
func NewRenderState() *RenderState {
	return &RenderState{}
}

// IncrementFrame advances the animation frame index.
func (rs *RenderState) IncrementFrame() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.FrameIdx++
}

// GetFrameIdx returns the current frame index.
func (rs *RenderState) GetFrameIdx() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.FrameIdx
}

// FormatLine pads a line to the widest width seen so far, so shorter
// redraws fully overwrite their predecessors.
func (rs *RenderState) FormatLine(line string) string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	lineLen := utf8.RuneCountInString(line)
	if lineLen > rs.MaxLineLen {
		rs.MaxLineLen = lineLen
	}

	if pad := rs.MaxLineLen - lineLen; pad > 0 {
		return line + repeatSpaces(pad)
	}
	return line
}

// repeatSpaces returns a string of n spaces.
func repeatSpaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
