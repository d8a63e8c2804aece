// Package syncui defines event structures and rendering utilities used to
// display sync progress in the CLI. A sync walks one or more RETS classes
// page by page; the UI shows which class is loading, how many records have
// landed, and what failed.
package syncui

// EventType enumerates known sync event kinds.
type EventType string

const (
	// EventClassStart signals that a class began syncing.
	EventClassStart EventType = "class_start"
	// EventPageLoaded reports a page of records written to the database.
	EventPageLoaded EventType = "page_loaded"
	// EventClassDone signals that a class finished successfully.
	EventClassDone EventType = "class_done"
	// EventClassFailed signals that a class aborted with an error.
	EventClassFailed EventType = "class_failed"
	// EventBackoff reports that the server throttled us and we are waiting.
	EventBackoff EventType = "backoff"
)

// Event is a generic container for sync UI events.
// Only a subset of fields is set depending on Type.
type Event struct {
	Type EventType `json:"type"`

	// Class identifies the RETS class being synced (e.g. "Property:RES")
	Class string `json:"class,omitempty"`

	// Records is the cumulative record count for the class
	Records int `json:"records,omitempty"`

	// Total is the expected record count when the server reported one
	Total int `json:"total,omitempty"`

	// Message carries a failure reason or backoff notice
	Message string `json:"message,omitempty"`
}
