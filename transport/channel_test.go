package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn fed by a frame channel.
type fakeConn struct {
	frames chan []byte
	mu     sync.Mutex
	wrote  []envelope
	closed bool

	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	raw, ok := <-f.frames
	if !ok {
		return 0, nil, io.EOF
	}
	return 1, raw, nil
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.wrote = append(f.wrote, v.(envelope))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.frames)
	}
	return nil
}

func (f *fakeConn) written() []envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]envelope, len(f.wrote))
	copy(out, f.wrote)
	return out
}

// push injects a server frame.
func (f *fakeConn) push(t *testing.T, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(envelope{Event: event, Data: data})
	require.NoError(t, err)
	f.frames <- raw
}

func connectedChannel(t *testing.T) (*Channel, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	ch := NewChannelWithDialer("ws://test", func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	})
	require.NoError(t, ch.Connect(context.Background()))
	t.Cleanup(func() { ch.Close() })
	return ch, conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEmitRequiresConnection(t *testing.T) {
	ch := NewChannel("ws://test")
	err := ch.Emit(EventTyping, TypingEvent{From: "alice"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectTwice(t *testing.T) {
	ch, _ := connectedChannel(t)
	assert.ErrorIs(t, ch.Connect(context.Background()), ErrAlreadyConnected)
}

func TestConnectAfterClose(t *testing.T) {
	ch, _ := connectedChannel(t)
	require.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.Connect(context.Background()), ErrClosed)
}

func TestRegisterEmitsIdentity(t *testing.T) {
	ch, conn := connectedChannel(t)

	require.NoError(t, ch.Register(Identity{UserID: "alice", PublicKey: "a2V5"}))

	wrote := conn.written()
	require.Len(t, wrote, 1)
	assert.Equal(t, EventRegister, wrote[0].Event)

	var id Identity
	require.NoError(t, json.Unmarshal(wrote[0].Data, &id))
	assert.Equal(t, "alice", id.UserID)
	assert.Equal(t, "a2V5", id.PublicKey)
}

func TestDispatchRoutesToSubscribers(t *testing.T) {
	ch, conn := connectedChannel(t)

	var mu sync.Mutex
	var order []string
	ch.On(EventUserTyping, func(data json.RawMessage) {
		var ev TypingEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		mu.Lock()
		order = append(order, "first:"+ev.From)
		mu.Unlock()
	})
	ch.On(EventUserTyping, func(data json.RawMessage) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})

	conn.push(t, EventUserTyping, TypingEvent{From: "bob"})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	})
	mu.Lock()
	assert.Equal(t, []string{"first:bob", "second"}, order)
	mu.Unlock()
}

func TestDispatchPreservesArrivalOrder(t *testing.T) {
	ch, conn := connectedChannel(t)

	var mu sync.Mutex
	var seen []string
	ch.On(EventNewMessage, func(data json.RawMessage) {
		var ev MessageEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		mu.Lock()
		seen = append(seen, ev.ID)
		mu.Unlock()
	})

	for _, id := range []string{"m1", "m2", "m3"} {
		conn.push(t, EventNewMessage, MessageEvent{ID: id})
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	})
	mu.Lock()
	assert.Equal(t, []string{"m1", "m2", "m3"}, seen)
	mu.Unlock()
}

func TestDispatchDropsMalformedAndUnknown(t *testing.T) {
	ch, conn := connectedChannel(t)

	var mu sync.Mutex
	count := 0
	ch.On(EventNewMessage, func(json.RawMessage) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	conn.frames <- []byte("{not json")
	conn.push(t, "some-unknown-event", map[string]string{"x": "y"})
	conn.push(t, EventNewMessage, MessageEvent{ID: "ok"})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})
}

func TestEmitSurfacesWriteFailure(t *testing.T) {
	ch, conn := connectedChannel(t)
	conn.mu.Lock()
	conn.writeErr = errors.New("broken pipe")
	conn.mu.Unlock()

	err := ch.Emit(EventTyping, TypingEvent{From: "alice"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConnected)
}

func TestReadFailureMarksDisconnected(t *testing.T) {
	ch, conn := connectedChannel(t)

	conn.Close() // reader sees EOF

	waitFor(t, func() bool { return !ch.IsConnected() })
	assert.ErrorIs(t, ch.Emit(EventTyping, nil), ErrNotConnected)
}
