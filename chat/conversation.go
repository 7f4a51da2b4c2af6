package chat

// Participant is one member of a conversation. PublicKey holds the
// participant's advertised base64 public key, empty when none is known.
type Participant struct {
	ID        string
	Name      string
	PublicKey string
}

// Conversation is a summary entry in the conversation list.
type Conversation struct {
	ID           string
	Participants []Participant
	IsGroup      bool
	LastMessage  *Message
	UnreadCount  int
}

// HasKeysForAll reports whether every participant advertises a public
// key. Encryption requires all participants to be reachable; otherwise
// the send falls back to plaintext.
func (c *Conversation) HasKeysForAll() bool {
	if len(c.Participants) == 0 {
		return false
	}
	for _, p := range c.Participants {
		if p.PublicKey == "" {
			return false
		}
	}
	return true
}

// PeerID returns the other participant's id in a 1:1 conversation, or
// the empty string for groups.
func (c *Conversation) PeerID(selfID string) string {
	if c.IsGroup {
		return ""
	}
	for _, p := range c.Participants {
		if p.ID != selfID {
			return p.ID
		}
	}
	return ""
}

// Target returns the history-fetch target for this conversation: keyed
// by conversation id for groups, by peer id for direct chats.
func (c *Conversation) Target(selfID string) Target {
	if c.IsGroup {
		return Target{ConversationID: c.ID, IsGroup: true}
	}
	return Target{ConversationID: c.ID, PeerID: c.PeerID(selfID)}
}
