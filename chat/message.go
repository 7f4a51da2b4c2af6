package chat

import (
	"sync"
	"time"
)

// DeliveryState represents the delivery progress of a message.
type DeliveryState uint8

const (
	// DeliveryPending means the optimistic local entry awaits server confirmation.
	DeliveryPending DeliveryState = iota
	// DeliverySent means the server accepted the message.
	DeliverySent
	// DeliveryDelivered means the message reached the recipient's device.
	DeliveryDelivered
	// DeliverySeen means the recipient read the message.
	DeliverySeen
	// DeliveryFailed means the send failed; reachable from any state.
	DeliveryFailed
)

// String returns the lowercase wire name of the state.
func (s DeliveryState) String() string {
	switch s {
	case DeliveryPending:
		return "pending"
	case DeliverySent:
		return "sent"
	case DeliveryDelivered:
		return "delivered"
	case DeliverySeen:
		return "seen"
	case DeliveryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// canAdvance reports whether a transition to next is allowed. Delivery
// state is monotonic: pending, sent, delivered, seen, in that order,
// with failed reachable from any state. Backward transitions are ignored.
func (s DeliveryState) canAdvance(next DeliveryState) bool {
	if next == DeliveryFailed {
		return s != DeliveryFailed
	}
	if s == DeliveryFailed {
		return false
	}
	return next > s
}

// Deletion represents a message's deletion status.
type Deletion uint8

const (
	// DeletionNone means the message is intact.
	DeletionNone Deletion = iota
	// DeletedForMe means the message was removed from the local list only.
	DeletedForMe
	// DeletedForEveryone means the message was tombstoned for all
	// participants: content hidden, position preserved.
	DeletedForEveryone
)

// Message is one chat message, local or remote.
//
// An optimistic local message carries a temporary id and DeliveryPending
// until the server ack replaces it with the confirmed record; the
// decrypted local content survives that replacement, so a sender never
// re-decrypts their own outgoing ciphertext.
type Message struct {
	ID             string
	TempID         string
	ConversationID string
	SenderID       string
	Content        string
	Encrypted      bool
	Attachment     string

	// Envelope fields as returned by a history fetch; WrappedKey is this
	// user's copy of the one-time key. Empty for plaintext messages.
	CipherText string
	IV         string
	WrappedKey string

	CreatedAt time.Time
	Delivery  DeliveryState
	Deletion  Deletion

	mu sync.Mutex
}

// AdvanceDelivery applies a delivery transition if it is monotonic and
// reports whether it was applied. Events implying a backward transition
// are ignored.
func (m *Message) AdvanceDelivery(next DeliveryState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Delivery.canAdvance(next) {
		return false
	}
	m.Delivery = next
	return true
}

// DeliveryState returns the current delivery state.
func (m *Message) DeliveryState() DeliveryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Delivery
}

// Tombstone hides the message content in place, preserving its position
// in the thread.
func (m *Message) Tombstone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Content = ""
	m.Attachment = ""
	m.Deletion = DeletedForEveryone
}

// IsTombstoned reports whether the message was deleted for everyone.
func (m *Message) IsTombstoned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Deletion == DeletedForEveryone
}
