// Package event provides a synchronous pub-sub bus used to announce
// project context and navigation changes.
//
// Lifecycle code publishes without knowing who listens; the CLI, metrics and
// tests subscribe without holding references to the publisher.
//
// # Main Types
//
//   - [Event]: interface with EventType() and Timestamp()
//   - [Bus]: synchronous dispatcher, safe for concurrent use
//   - [Handler]: func(Event)
//
// # Event Categories
//
// Context lifecycle:
//   - [ContextStateChangedEvent], [ContextReadyEvent], [ContextUnloadedEvent]
//   - [BufferSaveFailedEvent]: a modified buffer failed to save on shutdown
//
// Navigation:
//   - [HistoryChangedEvent], [HistoryNavigatedEvent]
//
// Project:
//   - [FileChangedEvent]: emitted by the working-tree monitor
//   - [RecentAddedEvent]
//
// # Delivery
//
// Publish calls handlers on the publishing goroutine: type-specific handlers
// first, then wildcard handlers. A panicking handler is logged and does not
// stop delivery to the others.
package event
