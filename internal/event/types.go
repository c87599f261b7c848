package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "context.ready", "history.navigated")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeContextStateChanged = "context.state_changed"
	TypeContextReady        = "context.ready"
	TypeContextUnloaded     = "context.unloaded"
	TypeBufferSaveFailed    = "context.buffer_save_failed"
	TypeHistoryChanged      = "history.changed"
	TypeHistoryNavigated    = "history.navigated"
	TypeFileChanged         = "vcs.file_changed"
	TypeRecentAdded         = "recent.added"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Context Lifecycle Events
// -----------------------------------------------------------------------------

// ContextStateChangedEvent is emitted on every lifecycle state transition.
type ContextStateChangedEvent struct {
	baseEvent
	ContextID string
	From      string
	To        string
}

// NewContextStateChangedEvent creates a ContextStateChangedEvent.
func NewContextStateChangedEvent(contextID, from, to string) ContextStateChangedEvent {
	return ContextStateChangedEvent{
		baseEvent: newBaseEvent(TypeContextStateChanged),
		ContextID: contextID,
		From:      from,
		To:        to,
	}
}

// ContextReadyEvent is emitted once bring-up has completed.
type ContextReadyEvent struct {
	baseEvent
	ContextID   string
	ProjectFile string
	ProjectName string
}

// NewContextReadyEvent creates a ContextReadyEvent.
func NewContextReadyEvent(contextID, projectFile, projectName string) ContextReadyEvent {
	return ContextReadyEvent{
		baseEvent:   newBaseEvent(TypeContextReady),
		ContextID:   contextID,
		ProjectFile: projectFile,
		ProjectName: projectName,
	}
}

// ContextUnloadedEvent is emitted when shutdown has finished.
type ContextUnloadedEvent struct {
	baseEvent
	ContextID string
	Warnings  int // shutdown steps or buffer saves that failed
}

// NewContextUnloadedEvent creates a ContextUnloadedEvent.
func NewContextUnloadedEvent(contextID string, warnings int) ContextUnloadedEvent {
	return ContextUnloadedEvent{
		baseEvent: newBaseEvent(TypeContextUnloaded),
		ContextID: contextID,
		Warnings:  warnings,
	}
}

// BufferSaveFailedEvent is emitted when a modified buffer could not be saved
// during shutdown.
type BufferSaveFailedEvent struct {
	baseEvent
	ContextID string
	URI       string
	Err       error
}

// NewBufferSaveFailedEvent creates a BufferSaveFailedEvent.
func NewBufferSaveFailedEvent(contextID, uri string, err error) BufferSaveFailedEvent {
	return BufferSaveFailedEvent{
		baseEvent: newBaseEvent(TypeBufferSaveFailed),
		ContextID: contextID,
		URI:       uri,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Navigation Events
// -----------------------------------------------------------------------------

// HistoryChangedEvent is emitted after a push or merge alters a history.
type HistoryChangedEvent struct {
	baseEvent
	Current  string // URI of the current item, empty if none
	Backward int
	Forward  int
}

// NewHistoryChangedEvent creates a HistoryChangedEvent.
func NewHistoryChangedEvent(current string, backward, forward int) HistoryChangedEvent {
	return HistoryChangedEvent{
		baseEvent: newBaseEvent(TypeHistoryChanged),
		Current:   current,
		Backward:  backward,
		Forward:   forward,
	}
}

// HistoryNavigatedEvent is emitted after a successful backward or forward move.
type HistoryNavigatedEvent struct {
	baseEvent
	URI       string
	Direction string // "backward" or "forward"
}

// NewHistoryNavigatedEvent creates a HistoryNavigatedEvent.
func NewHistoryNavigatedEvent(uri, direction string) HistoryNavigatedEvent {
	return HistoryNavigatedEvent{
		baseEvent: newBaseEvent(TypeHistoryNavigated),
		URI:       uri,
		Direction: direction,
	}
}

// -----------------------------------------------------------------------------
// Project Events
// -----------------------------------------------------------------------------

// FileChangedEvent is emitted by the working-tree monitor.
type FileChangedEvent struct {
	baseEvent
	Path string
	Op   string // "create", "write", "remove", "rename" or "chmod"
}

// NewFileChangedEvent creates a FileChangedEvent.
func NewFileChangedEvent(path, op string) FileChangedEvent {
	return FileChangedEvent{
		baseEvent: newBaseEvent(TypeFileChanged),
		Path:      path,
		Op:        op,
	}
}

// RecentAddedEvent is emitted when a project is recorded in the recent
// projects index.
type RecentAddedEvent struct {
	baseEvent
	Path  string
	Title string
}

// NewRecentAddedEvent creates a RecentAddedEvent.
func NewRecentAddedEvent(path, title string) RecentAddedEvent {
	return RecentAddedEvent{
		baseEvent: newBaseEvent(TypeRecentAdded),
		Path:      path,
		Title:     title,
	}
}
