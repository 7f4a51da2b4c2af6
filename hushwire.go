// Package hushwire is the real-time secure communication core of a
// social application: end-to-end encrypted messaging and WebRTC call
// signaling multiplexed over one bidirectional event channel.
//
// The Client ties the components together. The transport package owns
// the websocket event channel, chat owns the conversation state machine,
// av owns call signaling and media, and crypto owns the envelope scheme
// and the encrypted identity store.
//
//	client, err := hushwire.New(hushwire.Options{
//		ServerURL:         "wss://example.com/ws",
//		SelfID:            "user-42",
//		DataDir:           "/var/lib/app/keys",
//		Passphrase:        []byte("secret"),
//		EncryptionEnabled: true,
//		API:               restAPI,
//		Devices:           devices,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := client.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Disconnect()
package hushwire

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hushwire/hushwire/av"
	"github.com/hushwire/hushwire/chat"
	"github.com/hushwire/hushwire/crypto"
	"github.com/hushwire/hushwire/transport"
)

// Client owns one event channel, one chat state machine, and one call
// coordinator, sharing a single identity keypair.
type Client struct {
	opts    Options
	keys    *crypto.KeyPair
	channel *transport.Channel

	// Chat is the conversation state machine.
	Chat *chat.Manager

	// Calls is the call signaling coordinator, nil when no device layer
	// was configured.
	Calls *av.Coordinator
}

// New builds a client from opts.
//
// Identity handling is availability first: when the key store cannot be
// opened or created, the client still comes up with encryption disabled
// for the session rather than refusing to start, and the failure is
// logged loudly. A wrong passphrase is the exception; that is a hard
// error so a typo cannot silently produce a fresh identity.
func New(opts Options) (*Client, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	keys, err := loadIdentity(opts)
	if err != nil {
		return nil, err
	}

	c := &Client{
		opts:    opts,
		keys:    keys,
		channel: transport.NewChannel(opts.ServerURL),
	}
	c.Chat = chat.NewManager(opts.SelfID, keys, c.channel, opts.API, opts.EncryptionEnabled)
	if opts.Devices != nil {
		c.Calls = av.NewCoordinator(opts.SelfID, c.channel, opts.Devices, av.Config{
			ICEServers:      opts.ICEServers,
			OfferGraceDelay: opts.OfferGraceDelay,
			NoticeWindow:    opts.NoticeWindow,
		})
	}
	return c, nil
}

// loadIdentity resolves the keypair for this session. Store failures
// other than a bad passphrase degrade to a nil keypair.
func loadIdentity(opts Options) (*crypto.KeyPair, error) {
	if opts.DataDir == "" {
		keys, err := crypto.GenerateKeyPair()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "loadIdentity",
				"error":    err,
			}).Error("Keypair generation failed, running without encryption")
			return nil, nil
		}
		return keys, nil
	}

	keys, err := crypto.LoadOrCreateIdentity(opts.DataDir, opts.Passphrase)
	if err != nil {
		if errors.Is(err, crypto.ErrStoreAuth) {
			return nil, fmt.Errorf("open key store: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "loadIdentity",
			"data_dir": opts.DataDir,
			"error":    err,
		}).Error("Key store unavailable, running without encryption")
		return nil, nil
	}
	return keys, nil
}

// Connect dials the event channel and registers this user's identity,
// announcing the public key so peers can address envelopes to us.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.channel.Connect(ctx); err != nil {
		return fmt.Errorf("connect channel: %w", err)
	}

	identity := transport.Identity{UserID: c.opts.SelfID}
	if c.keys != nil {
		encoded, err := crypto.ExportPublicKey(c.keys.Public)
		if err == nil {
			identity.PublicKey = encoded
		}
	}
	if err := c.channel.Register(identity); err != nil {
		c.channel.Close()
		return fmt.Errorf("register identity: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Connect",
		"user_id":  c.opts.SelfID,
	}).Info("Connected and registered")
	return nil
}

// Disconnect hangs up any active call, with media teardown, and closes
// the channel.
func (c *Client) Disconnect() error {
	if c.Calls != nil {
		if sess := c.Calls.ActiveSession(); sess != nil && sess.State() != av.StateIdle {
			if err := c.Calls.End(); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Disconnect",
					"error":    err,
				}).Warn("Hangup during disconnect failed")
			}
		}
	}
	return c.channel.Close()
}

// IsConnected reports whether the event channel is up.
func (c *Client) IsConnected() bool {
	return c.channel.IsConnected()
}

// Fingerprint returns a short human-comparable digest of this user's
// public key, empty when no identity is loaded.
func (c *Client) Fingerprint() string {
	if c.keys == nil {
		return ""
	}
	fp, err := crypto.Fingerprint(c.keys.Public)
	if err != nil {
		return ""
	}
	return fp
}
