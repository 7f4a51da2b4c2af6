package av

import (
	"sync"
	"time"
)

// State represents the signaling state of a call session.
type State uint8

const (
	// StateIdle indicates no call is active.
	StateIdle State = iota
	// StateCalling indicates an outgoing call awaiting the peer's answer.
	StateCalling
	// StateRinging indicates an incoming call awaiting a local decision.
	StateRinging
	// StateInCall indicates media negotiation completed.
	StateInCall
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCalling:
		return "calling"
	case StateRinging:
		return "ringing"
	case StateInCall:
		return "inCall"
	default:
		return "unknown"
	}
}

// Direction distinguishes caller from callee.
type Direction uint8

const (
	// Outgoing marks a session this user initiated.
	Outgoing Direction = iota
	// Incoming marks a session initiated by the peer.
	Incoming
)

// CallType is the media profile of a call.
type CallType string

const (
	// CallTypeAudio is a voice-only call.
	CallTypeAudio CallType = "audio"
	// CallTypeVideo is a call with camera video.
	CallTypeVideo CallType = "video"
)

// Session is one call from invitation to teardown.
//
// The generation ties asynchronous signaling events to the session they
// belong to; events carrying a stale generation are dropped by the
// coordinator instead of being applied to a newer call.
type Session struct {
	PeerID     string
	Type       CallType
	Direction  Direction
	generation uint64

	mu        sync.RWMutex
	state     State
	startedAt time.Time
	endedAt   time.Time
}

// State returns the current signaling state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next == StateInCall && s.state != StateInCall {
		s.startedAt = time.Now()
	}
	if next == StateIdle && s.state == StateInCall {
		s.endedAt = time.Now()
	}
	s.state = next
}

// Duration returns how long the call has been connected, zero before the
// session reaches StateInCall. After the call ends the value is frozen.
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	if !s.endedAt.IsZero() {
		return s.endedAt.Sub(s.startedAt)
	}
	return time.Since(s.startedAt)
}
