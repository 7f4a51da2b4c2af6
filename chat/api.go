package chat

import (
	"context"
	"io"

	"github.com/hushwire/hushwire/crypto"
)

// Target identifies where message history is fetched from.
type Target struct {
	ConversationID string
	PeerID         string
	IsGroup        bool
}

// OutgoingMessage is the payload handed to the REST collaborator for a
// send. Envelope is nil for plaintext sends.
type OutgoingMessage struct {
	TempID         string
	ConversationID string
	RecipientID    string
	Content        string
	Envelope       *crypto.Envelope
}

// API is the REST collaborator consumed by the state machine. Profile,
// friend, and group CRUD live behind it and are out of scope here; the
// state machine only depends on this surface.
type API interface {
	// FetchConversations returns the conversation list summaries.
	FetchConversations(ctx context.Context) ([]*Conversation, error)

	// FetchHistory returns the message history for a target in
	// server-acknowledged order.
	FetchHistory(ctx context.Context, t Target) ([]*Message, error)

	// SendMessage persists an outgoing message and returns the
	// server-confirmed record.
	SendMessage(ctx context.Context, out OutgoingMessage) (*Message, error)

	// SendAttachment persists an outgoing message with an attachment,
	// uploaded as multipart form data.
	SendAttachment(ctx context.Context, out OutgoingMessage, filename string, r io.Reader) (*Message, error)

	// MarkRead acknowledges that this user has read a conversation.
	MarkRead(ctx context.Context, conversationID string) error

	// DeleteMessage deletes a message, remotely for everyone or from
	// this user's copy only.
	DeleteMessage(ctx context.Context, messageID string, forEveryone bool) error

	// BlockStatus reports whether a direct conversation with peerID is
	// blocked in either direction.
	BlockStatus(ctx context.Context, peerID string) (bool, error)
}
