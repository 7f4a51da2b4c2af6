package hushwire

import (
	"errors"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/hushwire/hushwire/av"
	"github.com/hushwire/hushwire/chat"
)

// Options configures a Client.
type Options struct {
	// ServerURL is the websocket endpoint of the event channel.
	ServerURL string

	// SelfID is this user's id, announced on register and used to tell
	// own events from the peer's.
	SelfID string

	// DataDir is where the encrypted key store lives. Empty disables
	// persistence; a fresh keypair is generated per session.
	DataDir string

	// Passphrase unlocks the key store. Ignored when DataDir is empty.
	Passphrase []byte

	// EncryptionEnabled turns envelope encryption on for outgoing
	// messages. Incoming envelopes are always decrypted when possible.
	EncryptionEnabled bool

	// API is the REST collaborator for conversations and messages.
	API chat.API

	// Devices is the local capture layer for calls. Nil disables calling.
	Devices av.Devices

	// ICEServers configures STUN/TURN for call connectivity.
	ICEServers []webrtc.ICEServer

	// OfferGraceDelay overrides how long the caller waits after an
	// accept before emitting the offer. Zero selects the default.
	OfferGraceDelay time.Duration

	// NoticeWindow overrides how long transient notices stay visible.
	// Zero selects the default.
	NoticeWindow time.Duration
}

func (o *Options) validate() error {
	if o.ServerURL == "" {
		return errors.New("server URL is required")
	}
	if o.SelfID == "" {
		return errors.New("self id is required")
	}
	if o.API == nil {
		return errors.New("API collaborator is required")
	}
	return nil
}
