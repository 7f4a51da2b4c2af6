package chat

import "errors"

// Sentinel errors for chat operations.
var (
	// ErrNoActiveConversation indicates a send with no conversation selected.
	ErrNoActiveConversation = errors.New("no active conversation")

	// ErrSendFailed indicates the transport rejected an outgoing message.
	// The optimistic entry has already been rolled back when this returns.
	ErrSendFailed = errors.New("message send failed")

	// ErrMessageNotFound indicates an operation on an unknown message id.
	ErrMessageNotFound = errors.New("message not found")

	// ErrConversationNotFound indicates an unknown conversation id.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrBlocked indicates a send to a peer who has blocked this user or
	// whom this user has blocked.
	ErrBlocked = errors.New("conversation is blocked")
)
