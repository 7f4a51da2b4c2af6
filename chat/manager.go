package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hushwire/hushwire/crypto"
	"github.com/hushwire/hushwire/transport"
)

// DefaultNoticeWindow bounds how long a transient user-visible error is
// displayed before it auto-clears.
const DefaultNoticeWindow = 4 * time.Second

// Emitter is the slice of the event channel the state machine uses.
// *transport.Channel satisfies it; tests substitute a fake.
type Emitter interface {
	Emit(event string, v interface{}) error
	On(event string, h transport.Handler)
}

// Manager is the conversation state machine.
//
// All mutating entry points take the manager lock, and every event
// handler re-checks relevance against the active conversation before
// touching the visible list, because a conversation switch may happen
// while a fetch or decrypt is in flight.
type Manager struct {
	selfID  string
	keys    *crypto.KeyPair
	encrypt bool
	channel Emitter
	api     API

	noticeWindow time.Duration

	mu            sync.RWMutex
	conversations []*Conversation
	active        *Conversation
	messages      []*Message
	pending       map[string]*Message
	fetchGen      uint64
	typing        map[string]bool
	online        map[string]time.Time
	lastSeen      map[string]time.Time
	blocked       bool
	notice        string
	noticeTimer   *time.Timer

	onMessage  func(*Message)
	onDelivery func(*Message)
	onNotice   func(string)
}

// NewManager creates the state machine and subscribes its event handlers
// on the channel.
//
// keys may be nil when keypair generation failed; the manager then runs
// with encryption disabled for the session and sends plaintext.
func NewManager(selfID string, keys *crypto.KeyPair, channel Emitter, api API, encrypt bool) *Manager {
	m := &Manager{
		selfID:       selfID,
		keys:         keys,
		encrypt:      encrypt && keys != nil,
		channel:      channel,
		api:          api,
		noticeWindow: DefaultNoticeWindow,
		pending:      make(map[string]*Message),
		typing:       make(map[string]bool),
		online:       make(map[string]time.Time),
		lastSeen:     make(map[string]time.Time),
	}
	if encrypt && keys == nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewManager",
			"user_id":  selfID,
		}).Warn("No identity keypair available, encryption disabled for this session")
	}
	m.registerHandlers()
	return m
}

func (m *Manager) registerHandlers() {
	m.channel.On(transport.EventNewMessage, m.handleNewMessage)
	m.channel.On(transport.EventMessageSent, m.handleMessageSent)
	m.channel.On(transport.EventMessagesRead, m.handleMessagesRead)
	m.channel.On(transport.EventMessageDeleted, m.handleMessageDeleted)
	m.channel.On(transport.EventUserTyping, m.handleTyping)
	m.channel.On(transport.EventUserStopTyping, m.handleStopTyping)
	m.channel.On(transport.EventUserOnline, m.handleUserOnline)
	m.channel.On(transport.EventUserOffline, m.handleUserOffline)
	m.channel.On(transport.EventPresenceSnapshot, m.handlePresenceSnapshot)
}

// OnMessage sets the callback invoked when a message is appended to the
// visible list.
func (m *Manager) OnMessage(fn func(*Message)) { m.onMessage = fn }

// OnDelivery sets the callback invoked when a message's delivery state
// advances.
func (m *Manager) OnDelivery(fn func(*Message)) { m.onDelivery = fn }

// OnNotice sets the callback invoked with transient user-visible errors.
func (m *Manager) OnNotice(fn func(string)) { m.onNotice = fn }

// LoadConversations fetches and replaces the conversation list.
func (m *Manager) LoadConversations(ctx context.Context) error {
	convs, err := m.api.FetchConversations(ctx)
	if err != nil {
		return fmt.Errorf("fetch conversations: %w", err)
	}
	m.mu.Lock()
	m.conversations = convs
	if m.active != nil {
		m.active = m.findConversationLocked(m.active.ID)
	}
	m.mu.Unlock()
	return nil
}

// SelectConversation makes a conversation the active thread.
//
// The visible list is cleared immediately and repopulated from history.
// A fetch generation guards the result: if the user switches again while
// this fetch is in flight, the late result is discarded rather than
// overwriting the newly active conversation's list. Direct chats also
// trigger a block-status check.
func (m *Manager) SelectConversation(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	conv := m.findConversationLocked(conversationID)
	if conv == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	m.active = conv
	m.messages = nil
	m.typing = make(map[string]bool)
	m.blocked = false
	m.fetchGen++
	gen := m.fetchGen
	m.mu.Unlock()

	history, err := m.api.FetchHistory(ctx, conv.Target(m.selfID))
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	for _, msg := range history {
		m.decryptInPlace(msg)
	}

	m.mu.Lock()
	if m.fetchGen == gen && m.active == conv {
		m.messages = history
	} else {
		logrus.WithFields(logrus.Fields{
			"function":        "SelectConversation",
			"conversation_id": conversationID,
		}).Debug("Discarding stale history fetch result")
	}
	m.mu.Unlock()

	if !conv.IsGroup {
		blocked, err := m.api.BlockStatus(ctx, conv.PeerID(m.selfID))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "SelectConversation",
				"error":    err,
			}).Warn("Block status check failed")
			return nil
		}
		m.mu.Lock()
		if m.active == conv {
			m.blocked = blocked
		}
		m.mu.Unlock()
	}
	return nil
}

// Send delivers text to the active conversation.
//
// An optimistic entry with a temporary id appears immediately. The
// payload is envelope-encrypted when encryption is enabled and every
// participant advertises a public key, else sent plaintext with a logged
// downgrade warning. On transport failure the optimistic entry is
// removed and the error surfaced; there is no silent retry here.
func (m *Manager) Send(ctx context.Context, text string) (*Message, error) {
	m.mu.Lock()
	conv := m.active
	if conv == nil {
		m.mu.Unlock()
		return nil, ErrNoActiveConversation
	}
	if m.blocked && !conv.IsGroup {
		m.mu.Unlock()
		return nil, ErrBlocked
	}
	temp := &Message{
		TempID:         "tmp-" + uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       m.selfID,
		Content:        text,
		CreatedAt:      time.Now(),
		Delivery:       DeliveryPending,
	}
	m.messages = append(m.messages, temp)
	m.pending[temp.TempID] = temp
	m.mu.Unlock()

	out := OutgoingMessage{
		TempID:         temp.TempID,
		ConversationID: conv.ID,
		RecipientID:    conv.PeerID(m.selfID),
		Content:        text,
	}
	if m.encrypt && conv.HasKeysForAll() {
		if env, err := m.sealFor(conv, text); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Send",
				"error":    err,
			}).Warn("Encryption failed, falling back to plaintext")
		} else {
			out.Envelope = env
			out.Content = ""
			temp.Encrypted = true
		}
	} else if m.encrypt {
		logrus.WithFields(logrus.Fields{
			"function":        "Send",
			"conversation_id": conv.ID,
		}).Warn("Not all participants advertise a key, sending plaintext")
	}

	rec, err := m.api.SendMessage(ctx, out)
	if err != nil {
		m.rollback(temp)
		m.setNotice("message could not be sent")
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	m.confirm(temp.TempID, rec)
	return temp, nil
}

// SendAttachment uploads a file to the active conversation, with the
// same optimistic lifecycle as Send. The upload itself travels as
// multipart form data and is not envelope-encrypted.
func (m *Manager) SendAttachment(ctx context.Context, filename string, r io.Reader) (*Message, error) {
	m.mu.Lock()
	conv := m.active
	if conv == nil {
		m.mu.Unlock()
		return nil, ErrNoActiveConversation
	}
	if m.blocked && !conv.IsGroup {
		m.mu.Unlock()
		return nil, ErrBlocked
	}
	temp := &Message{
		TempID:         "tmp-" + uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       m.selfID,
		Attachment:     filename,
		CreatedAt:      time.Now(),
		Delivery:       DeliveryPending,
	}
	m.messages = append(m.messages, temp)
	m.pending[temp.TempID] = temp
	m.mu.Unlock()

	out := OutgoingMessage{
		TempID:         temp.TempID,
		ConversationID: conv.ID,
		RecipientID:    conv.PeerID(m.selfID),
	}
	rec, err := m.api.SendAttachment(ctx, out, filename, r)
	if err != nil {
		m.rollback(temp)
		m.setNotice("attachment could not be sent")
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	m.confirm(temp.TempID, rec)
	return temp, nil
}

// sealFor envelope-encrypts text for every participant of conv,
// including the sender for own-device read-back.
func (m *Manager) sealFor(conv *Conversation, text string) (*crypto.Envelope, error) {
	recipients := make([]crypto.Recipient, 0, len(conv.Participants)+1)
	self := false
	for _, p := range conv.Participants {
		pub, err := crypto.ImportPublicKey(p.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", p.ID, err)
		}
		recipients = append(recipients, crypto.Recipient{ID: p.ID, PublicKey: pub})
		if p.ID == m.selfID {
			self = true
		}
	}
	if !self {
		recipients = append(recipients, crypto.Recipient{ID: m.selfID, PublicKey: m.keys.Public})
	}
	return crypto.EncryptForRecipients(text, recipients)
}

// rollback removes a failed optimistic entry from the visible list and
// the pending table.
func (m *Manager) rollback(temp *Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, temp.TempID)
	for i, msg := range m.messages {
		if msg.TempID == temp.TempID {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			break
		}
	}
}

// confirm replaces an optimistic entry with the server-confirmed record,
// matched by temporary id. The already-decrypted local content is
// preserved: a sender never re-decrypts their own outgoing ciphertext.
func (m *Manager) confirm(tempID string, rec *Message) {
	m.mu.Lock()
	p, ok := m.pending[tempID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.pending, tempID)
	p.ID = rec.ID
	if !rec.CreatedAt.IsZero() {
		p.CreatedAt = rec.CreatedAt
	}
	if rec.Attachment != "" {
		p.Attachment = rec.Attachment
	}
	p.AdvanceDelivery(DeliverySent)
	m.touchSummaryLocked(p)
	m.mu.Unlock()
	m.notifyDelivery(p)
}

// MarkRead acknowledges the conversation as read. The server call is
// fire and forget; locally it flips read state only on messages authored
// by the other party, in both the open thread and the summary list.
func (m *Manager) MarkRead(ctx context.Context, conversationID string) {
	if err := m.api.MarkRead(ctx, conversationID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":        "MarkRead",
			"conversation_id": conversationID,
			"error":           err,
		}).Warn("Read acknowledgment failed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderID != m.selfID {
			msg.AdvanceDelivery(DeliverySeen)
		}
	}
	if conv := m.findConversationLocked(conversationID); conv != nil {
		conv.UnreadCount = 0
		if conv.LastMessage != nil && conv.LastMessage.SenderID != m.selfID {
			conv.LastMessage.AdvanceDelivery(DeliverySeen)
		}
	}
}

// DeleteMessage deletes a message. forEveryone tombstones it in place
// for all participants; otherwise it is removed from the local list
// only, leaving the remote copies intact.
func (m *Manager) DeleteMessage(ctx context.Context, messageID string, forEveryone bool) error {
	if err := m.api.DeleteMessage(ctx, messageID, forEveryone); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if forEveryone {
		m.tombstoneLocked(messageID)
		return nil
	}
	for i, msg := range m.messages {
		if msg.ID == messageID {
			msg.mu.Lock()
			msg.Deletion = DeletedForMe
			msg.mu.Unlock()
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

// SendTyping emits an edge-triggered typing notification for the active
// conversation. Idle-timeout debouncing is the caller's responsibility.
func (m *Manager) SendTyping() error {
	return m.emitTyping(transport.EventTyping)
}

// StopTyping emits the matching edge-triggered stop notification.
func (m *Manager) StopTyping() error {
	return m.emitTyping(transport.EventStopTyping)
}

func (m *Manager) emitTyping(event string) error {
	m.mu.RLock()
	conv := m.active
	m.mu.RUnlock()
	if conv == nil {
		return ErrNoActiveConversation
	}
	return m.channel.Emit(event, transport.TypingEvent{
		From:           m.selfID,
		ConversationID: conv.ID,
	})
}

// handleNewMessage processes an incoming message event. The visible list
// is appended only when the event targets the active conversation; the
// conversation summary updates unconditionally so the list order and
// last message stay consistent even for background threads.
func (m *Manager) handleNewMessage(data json.RawMessage) {
	var ev transport.MessageEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleNewMessage",
			"error":    err,
		}).Warn("Dropping malformed message event")
		return
	}
	m.applyIncoming(m.messageFromEvent(ev))
}

// handleMessageSent reconciles a server confirmation. Pending optimistic
// entries are matched by temporary id first; an unmatched confirmation
// with a known server id is a duplicate and is dropped; anything else is
// treated as a new remote message.
func (m *Manager) handleMessageSent(data json.RawMessage) {
	var ev transport.MessageEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleMessageSent",
			"error":    err,
		}).Warn("Dropping malformed confirmation event")
		return
	}

	m.mu.Lock()
	if p, ok := m.pending[ev.TempID]; ev.TempID != "" && ok {
		delete(m.pending, ev.TempID)
		p.ID = ev.ID
		if !ev.CreatedAt.IsZero() {
			p.CreatedAt = ev.CreatedAt
		}
		p.AdvanceDelivery(DeliverySent)
		m.touchSummaryLocked(p)
		m.mu.Unlock()
		m.notifyDelivery(p)
		return
	}
	if ev.ID != "" && m.findMessageLocked(ev.ID) != nil {
		m.mu.Unlock()
		return // idempotent: self-echo of an already confirmed message
	}
	m.mu.Unlock()

	m.applyIncoming(m.messageFromEvent(ev))
}

// applyIncoming inserts a remote message, idempotently by server id.
func (m *Manager) applyIncoming(rec *Message) {
	m.mu.Lock()
	if rec.ID != "" && m.findMessageLocked(rec.ID) != nil {
		m.mu.Unlock()
		return
	}
	appended := false
	if m.active != nil && rec.ConversationID == m.active.ID {
		m.messages = append(m.messages, rec)
		appended = true
	}
	m.touchSummaryLocked(rec)
	m.mu.Unlock()

	if appended && m.onMessage != nil {
		m.onMessage(rec)
	}
}

// handleMessagesRead advances delivery to seen on this user's own
// messages once the other party reads them. Echoes of the current
// user's own read events are ignored to prevent self-marking.
func (m *Manager) handleMessagesRead(data json.RawMessage) {
	var ev transport.ReadEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	if ev.ReaderID == m.selfID {
		return
	}

	m.mu.Lock()
	var advanced []*Message
	for _, msg := range m.messages {
		if msg.ConversationID == ev.ConversationID && msg.SenderID == m.selfID {
			if msg.AdvanceDelivery(DeliverySeen) {
				advanced = append(advanced, msg)
			}
		}
	}
	if conv := m.findConversationLocked(ev.ConversationID); conv != nil {
		if conv.LastMessage != nil && conv.LastMessage.SenderID == m.selfID {
			conv.LastMessage.AdvanceDelivery(DeliverySeen)
		}
	}
	m.mu.Unlock()

	for _, msg := range advanced {
		m.notifyDelivery(msg)
	}
}

// handleMessageDeleted tombstones a message deleted for everyone.
func (m *Manager) handleMessageDeleted(data json.RawMessage) {
	var ev transport.DeleteEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tombstoneLocked(ev.MessageID)
}

// handleTyping applies a typing indicator only when it names the active
// conversation; stale events for a thread no longer open are dropped.
func (m *Manager) handleTyping(data json.RawMessage) {
	var ev transport.TypingEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.typingRelevantLocked(ev) {
		return
	}
	m.typing[ev.From] = true
}

func (m *Manager) handleStopTyping(data json.RawMessage) {
	var ev transport.TypingEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.typingRelevantLocked(ev) {
		return
	}
	delete(m.typing, ev.From)
}

// typingRelevantLocked reports whether a typing event names the active
// conversation or, for direct chats, the active peer.
func (m *Manager) typingRelevantLocked(ev transport.TypingEvent) bool {
	if m.active == nil || ev.From == m.selfID {
		return false
	}
	if ev.ConversationID != "" {
		return ev.ConversationID == m.active.ID
	}
	return !m.active.IsGroup && ev.From == m.active.PeerID(m.selfID)
}

func (m *Manager) handleUserOnline(data json.RawMessage) {
	var ev transport.PresenceEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[ev.UserID] = time.Now()
}

func (m *Manager) handleUserOffline(data json.RawMessage) {
	var ev transport.PresenceEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.online, ev.UserID)
	m.lastSeen[ev.UserID] = time.Now()
}

// handlePresenceSnapshot replaces the whole online set, used after a
// reconnect when incremental events may have been missed.
func (m *Manager) handlePresenceSnapshot(data json.RawMessage) {
	var ev transport.PresenceSnapshotEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = make(map[string]time.Time, len(ev.UserIDs))
	now := time.Now()
	for _, id := range ev.UserIDs {
		m.online[id] = now
	}
}

// messageFromEvent converts a wire event into a Message, decrypting the
// envelope when present and guard-checked. Legacy plaintext events pass
// through untouched.
func (m *Manager) messageFromEvent(ev transport.MessageEvent) *Message {
	msg := &Message{
		ID:             ev.ID,
		TempID:         ev.TempID,
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		Content:        ev.Content,
		Attachment:     ev.Attachment,
		CreatedAt:      ev.CreatedAt,
		Delivery:       DeliveryDelivered,
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if ev.CipherText != "" || ev.IV != "" || len(ev.EncryptedKeys) > 0 {
		msg.Encrypted = true
		msg.CipherText = ev.CipherText
		msg.IV = ev.IV
		msg.WrappedKey = ev.EncryptedKeys[m.selfID]
		m.decryptInPlace(msg)
	}
	return msg
}

// decryptInPlace resolves a message's envelope fields to plaintext
// content. Failures resolve to the visible tombstone; a single bad
// message never blocks the rest of the thread.
func (m *Manager) decryptInPlace(msg *Message) {
	if msg.CipherText == "" && msg.IV == "" && msg.WrappedKey == "" {
		return
	}
	msg.Encrypted = true
	if m.keys == nil {
		msg.Content = crypto.Tombstone
		return
	}
	msg.Content = crypto.DecryptOrTombstone(msg.CipherText, msg.WrappedKey, msg.IV, m.keys.Private)
}

// touchSummaryLocked updates the conversation summary for msg: last
// message, unread count, and list position. This runs for every message
// regardless of which conversation is active.
func (m *Manager) touchSummaryLocked(msg *Message) {
	idx := -1
	for i, c := range m.conversations {
		if c.ID == msg.ConversationID {
			idx = i
			break
		}
	}
	var conv *Conversation
	if idx == -1 {
		conv = &Conversation{ID: msg.ConversationID}
		m.conversations = append([]*Conversation{conv}, m.conversations...)
	} else {
		conv = m.conversations[idx]
		copy(m.conversations[1:idx+1], m.conversations[:idx])
		m.conversations[0] = conv
	}
	conv.LastMessage = msg
	if msg.SenderID != m.selfID && conv != m.active {
		conv.UnreadCount++
	}
}

// tombstoneLocked hides a message's content in the visible list and the
// summary list, preserving its position. Idempotent.
func (m *Manager) tombstoneLocked(messageID string) {
	if msg := m.findMessageLocked(messageID); msg != nil {
		msg.Tombstone()
	}
	for _, conv := range m.conversations {
		if conv.LastMessage != nil && conv.LastMessage.ID == messageID {
			conv.LastMessage.Tombstone()
		}
	}
}

func (m *Manager) findMessageLocked(id string) *Message {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

func (m *Manager) findConversationLocked(id string) *Conversation {
	for _, c := range m.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// setNotice records a transient user-visible error that auto-clears
// after the notice window.
func (m *Manager) setNotice(text string) {
	m.mu.Lock()
	m.notice = text
	if m.noticeTimer != nil {
		m.noticeTimer.Stop()
	}
	m.noticeTimer = time.AfterFunc(m.noticeWindow, func() {
		m.mu.Lock()
		m.notice = ""
		m.mu.Unlock()
	})
	m.mu.Unlock()

	if m.onNotice != nil {
		m.onNotice(text)
	}
}

func (m *Manager) notifyDelivery(msg *Message) {
	if m.onDelivery != nil {
		m.onDelivery(msg)
	}
}

// Notice returns the current transient error notice, empty when none.
func (m *Manager) Notice() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notice
}

// Conversations returns a snapshot of the conversation list, most
// recently active first.
func (m *Manager) Conversations() []*Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Conversation, len(m.conversations))
	copy(out, m.conversations)
	return out
}

// ActiveConversation returns the currently selected conversation, nil
// when none is open.
func (m *Manager) ActiveConversation() *Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Messages returns a snapshot of the visible message list.
func (m *Manager) Messages() []*Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// IsTyping reports whether userID is currently typing in the active
// conversation.
func (m *Manager) IsTyping(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.typing[userID]
}

// IsOnline reports whether userID is in the online set.
func (m *Manager) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.online[userID]
	return ok
}

// LastSeen returns when userID was last observed going offline in this
// session. The second return is false when the user was never seen
// leaving, including when they are online right now.
func (m *Manager) LastSeen(userID string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, online := m.online[userID]; online {
		return time.Time{}, false
	}
	t, ok := m.lastSeen[userID]
	return t, ok
}

// Blocked reports whether the active direct conversation is blocked.
func (m *Manager) Blocked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blocked
}
