// Package chat implements the conversation state machine.
//
// It holds the conversation list, the active thread, and the visible
// message list, and reconciles optimistic local sends against
// asynchronously confirmed server records. Typing, presence, read
// receipts, and deletion semantics all live here.
//
// The package consumes two collaborators through interfaces: the shared
// event channel (package transport) for real-time events, and a REST API
// for history, sending, and acknowledgments. Neither is owned here; both
// are injected at construction.
//
// Every event handler is idempotent and guarded by a relevance check:
// a conversation switch may happen while a history fetch or decrypt is
// in flight, and late results for a thread that is no longer active must
// not touch the visible list.
package chat
