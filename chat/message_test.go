package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryStateString(t *testing.T) {
	tests := []struct {
		state DeliveryState
		want  string
	}{
		{DeliveryPending, "pending"},
		{DeliverySent, "sent"},
		{DeliveryDelivered, "delivered"},
		{DeliverySeen, "seen"},
		{DeliveryFailed, "failed"},
		{DeliveryState(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestAdvanceDeliveryMonotonic(t *testing.T) {
	msg := &Message{Delivery: DeliveryPending}

	assert.True(t, msg.AdvanceDelivery(DeliverySent))
	assert.True(t, msg.AdvanceDelivery(DeliveryDelivered))
	assert.True(t, msg.AdvanceDelivery(DeliverySeen))
	assert.Equal(t, DeliverySeen, msg.DeliveryState())

	// Backward transitions are ignored.
	assert.False(t, msg.AdvanceDelivery(DeliveryDelivered))
	assert.False(t, msg.AdvanceDelivery(DeliverySent))
	assert.Equal(t, DeliverySeen, msg.DeliveryState())
}

func TestAdvanceDeliverySkipsStates(t *testing.T) {
	// A seen receipt may arrive before the delivered receipt.
	msg := &Message{Delivery: DeliverySent}
	assert.True(t, msg.AdvanceDelivery(DeliverySeen))
	assert.Equal(t, DeliverySeen, msg.DeliveryState())
}

func TestAdvanceDeliveryFailedFromAnyState(t *testing.T) {
	for _, from := range []DeliveryState{DeliveryPending, DeliverySent, DeliveryDelivered, DeliverySeen} {
		msg := &Message{Delivery: from}
		assert.True(t, msg.AdvanceDelivery(DeliveryFailed), "from %s", from)
		assert.Equal(t, DeliveryFailed, msg.DeliveryState())
	}

	// Failed is terminal.
	msg := &Message{Delivery: DeliveryFailed}
	assert.False(t, msg.AdvanceDelivery(DeliverySent))
	assert.False(t, msg.AdvanceDelivery(DeliveryFailed))
}

func TestTombstonePreservesPosition(t *testing.T) {
	msg := &Message{ID: "m1", Content: "secret", Attachment: "photo.jpg"}
	msg.Tombstone()

	assert.True(t, msg.IsTombstoned())
	assert.Empty(t, msg.Content)
	assert.Empty(t, msg.Attachment)
	assert.Equal(t, "m1", msg.ID)
}

func TestHasKeysForAll(t *testing.T) {
	conv := &Conversation{Participants: []Participant{
		{ID: "a", PublicKey: "key-a"},
		{ID: "b", PublicKey: "key-b"},
	}}
	assert.True(t, conv.HasKeysForAll())

	conv.Participants[1].PublicKey = ""
	assert.False(t, conv.HasKeysForAll())

	empty := &Conversation{}
	assert.False(t, empty.HasKeysForAll())
}

func TestConversationTarget(t *testing.T) {
	direct := &Conversation{ID: "c1", Participants: []Participant{{ID: "me"}, {ID: "peer"}}}
	tgt := direct.Target("me")
	assert.Equal(t, "c1", tgt.ConversationID)
	assert.Equal(t, "peer", tgt.PeerID)
	assert.False(t, tgt.IsGroup)

	group := &Conversation{ID: "g1", IsGroup: true}
	tgt = group.Target("me")
	assert.Equal(t, "g1", tgt.ConversationID)
	assert.Empty(t, tgt.PeerID)
	assert.True(t, tgt.IsGroup)
}
