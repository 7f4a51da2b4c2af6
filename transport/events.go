package transport

import (
	"encoding/json"
	"time"
)

// Event names consumed from the server.
const (
	EventIncomingCall     = "incoming-call"
	EventCallRinging      = "call-ringing"
	EventCallAccepted     = "call-accepted"
	EventCallRejected     = "call-rejected"
	EventCallEnded        = "call-ended"
	EventCallError        = "call-error"
	EventCallBusy         = "call-busy"
	EventWebRTCOffer      = "webrtc-offer"
	EventWebRTCAnswer     = "webrtc-answer"
	EventWebRTCICE        = "webrtc-ice-candidate"
	EventNewMessage       = "new-message"
	EventMessageSent      = "message-sent"
	EventUserTyping       = "user-typing"
	EventUserStopTyping   = "user-stop-typing"
	EventMessagesRead     = "messages-read"
	EventMessageDeleted   = "message-deleted-everyone"
	EventPresenceSnapshot = "online-users"
	EventUserOnline       = "user-online"
	EventUserOffline      = "user-offline"
)

// Event names emitted to the server.
const (
	EventRegister     = "register"
	EventInitiateCall = "initiate-call"
	EventAcceptCall   = "accept-call"
	EventRejectCall   = "reject-call"
	EventEndCall      = "end-call"
	EventTyping       = "typing"
	EventStopTyping   = "stop-typing"
)

// Identity is the register payload announcing this client on the channel.
type Identity struct {
	UserID    string `json:"userId"`
	PublicKey string `json:"publicKey,omitempty"`
}

// MessageEvent carries a chat message, either plaintext Content or the
// three envelope fields. TempID is echoed back on message-sent so the
// sender can reconcile its optimistic entry.
type MessageEvent struct {
	ID             string            `json:"id"`
	TempID         string            `json:"tempId,omitempty"`
	ConversationID string            `json:"conversationId"`
	SenderID       string            `json:"senderId"`
	Content        string            `json:"content,omitempty"`
	CipherText     string            `json:"cipherText,omitempty"`
	IV             string            `json:"iv,omitempty"`
	EncryptedKeys  map[string]string `json:"encryptedKeys,omitempty"`
	Attachment     string            `json:"attachment,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// CallInviteEvent announces or initiates a call.
type CallInviteEvent struct {
	From     string `json:"from"`
	To       string `json:"to"`
	CallType string `json:"callType"` // "audio" or "video"
}

// CallControlEvent carries accept/reject/end/busy/error notifications.
type CallControlEvent struct {
	From   string `json:"from"`
	To     string `json:"to,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SignalEvent carries WebRTC negotiation data. Payload is an SDP
// description for offers and answers, or an ICE candidate.
type SignalEvent struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

// TypingEvent names who is typing and where.
type TypingEvent struct {
	From           string `json:"from"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ReadEvent acknowledges that ReaderID has read a conversation.
type ReadEvent struct {
	ConversationID string `json:"conversationId"`
	ReaderID       string `json:"readerId"`
}

// DeleteEvent announces a message deleted for everyone.
type DeleteEvent struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	By             string `json:"by"`
}

// PresenceEvent announces one user going online or offline.
type PresenceEvent struct {
	UserID string `json:"userId"`
}

// PresenceSnapshotEvent replaces the whole online set, used after
// reconnect.
type PresenceSnapshotEvent struct {
	UserIDs []string `json:"userIds"`
}
