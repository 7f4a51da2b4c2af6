package hushwire

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hushwire/hushwire/chat"
	"github.com/hushwire/hushwire/crypto"
	"github.com/hushwire/hushwire/transport"
)

// stubAPI satisfies chat.API with empty results.
type stubAPI struct{}

func (stubAPI) FetchConversations(ctx context.Context) ([]*chat.Conversation, error) {
	return nil, nil
}

func (stubAPI) FetchHistory(ctx context.Context, t chat.Target) ([]*chat.Message, error) {
	return nil, nil
}

func (stubAPI) SendMessage(ctx context.Context, out chat.OutgoingMessage) (*chat.Message, error) {
	return &chat.Message{ID: "srv-1"}, nil
}

func (stubAPI) SendAttachment(ctx context.Context, out chat.OutgoingMessage, filename string, r io.Reader) (*chat.Message, error) {
	return &chat.Message{ID: "srv-1"}, nil
}

func (stubAPI) MarkRead(ctx context.Context, conversationID string) error { return nil }

func (stubAPI) DeleteMessage(ctx context.Context, messageID string, forEveryone bool) error {
	return nil
}

func (stubAPI) BlockStatus(ctx context.Context, peerID string) (bool, error) { return false, nil }

// stubConn is an in-memory connection recording written frames.
type stubConn struct {
	mu      sync.Mutex
	written []map[string]interface{}
	done    chan struct{}
	once    sync.Once
}

func newStubConn() *stubConn {
	return &stubConn{done: make(chan struct{})}
}

func (s *stubConn) ReadMessage() (int, []byte, error) {
	<-s.done
	return 0, nil, io.EOF
}

func (s *stubConn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var frame map[string]interface{}
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	s.mu.Lock()
	s.written = append(s.written, frame)
	s.mu.Unlock()
	return nil
}

func (s *stubConn) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *stubConn) frames() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, len(s.written))
	copy(out, s.written)
	return out
}

func validOptions() Options {
	return Options{
		ServerURL: "wss://example.com/ws",
		SelfID:    "user-1",
		API:       stubAPI{},
	}
}

func TestNewValidatesOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"missing server URL", func(o *Options) { o.ServerURL = "" }},
		{"missing self id", func(o *Options) { o.SelfID = "" }},
		{"missing API", func(o *Options) { o.API = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			_, err := New(opts)
			assert.Error(t, err)
		})
	}
}

func TestNewGeneratesEphemeralIdentity(t *testing.T) {
	client, err := New(validOptions())
	require.NoError(t, err)

	assert.NotEmpty(t, client.Fingerprint())
	assert.NotNil(t, client.Chat)
	assert.Nil(t, client.Calls, "no coordinator without a device layer")
}

func TestNewPersistsIdentity(t *testing.T) {
	dir := t.TempDir()
	opts := validOptions()
	opts.DataDir = dir
	opts.Passphrase = []byte("correct horse")
	opts.EncryptionEnabled = true

	first, err := New(opts)
	require.NoError(t, err)
	fp := first.Fingerprint()
	require.NotEmpty(t, fp)

	second, err := New(opts)
	require.NoError(t, err)
	assert.Equal(t, fp, second.Fingerprint(), "identity survives restart")
}

func TestNewWrongPassphraseRefused(t *testing.T) {
	dir := t.TempDir()
	opts := validOptions()
	opts.DataDir = dir
	opts.Passphrase = []byte("correct horse")

	_, err := New(opts)
	require.NoError(t, err)

	opts.Passphrase = []byte("wrong horse")
	_, err = New(opts)
	require.Error(t, err, "a typo must not mint a fresh identity")
	assert.ErrorIs(t, err, crypto.ErrStoreAuth)
}

func TestConnectRegistersIdentity(t *testing.T) {
	client, err := New(validOptions())
	require.NoError(t, err)

	conn := newStubConn()
	client.channel = transport.NewChannelWithDialer(client.opts.ServerURL,
		func(ctx context.Context, url string) (transport.Conn, error) {
			return conn, nil
		})

	require.NoError(t, client.Connect(context.Background()))
	assert.True(t, client.IsConnected())

	frames := conn.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "register", frames[0]["event"])
	data := frames[0]["data"].(map[string]interface{})
	assert.Equal(t, "user-1", data["userId"])
	assert.NotEmpty(t, data["publicKey"], "public key announced on register")

	require.NoError(t, client.Disconnect())
	assert.False(t, client.IsConnected())
}
