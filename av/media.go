package av

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
)

// peerConnection is the slice of *webrtc.PeerConnection the media
// session uses. Tests substitute a fake; production wires the real one
// through defaultPeerConnection.
type peerConnection interface {
	AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	RemoteDescription() *webrtc.SessionDescription
	OnICECandidate(f func(*webrtc.ICECandidate))
	OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	GetSenders() []*webrtc.RTPSender
	Close() error
}

// pcFactory builds a peer connection from an ICE configuration.
type pcFactory func(cfg webrtc.Configuration) (peerConnection, error)

func defaultPeerConnection(cfg webrtc.Configuration) (peerConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

// MediaSession owns the peer connection and local media for one call.
//
// Remote ICE candidates that arrive before the remote description are
// buffered in arrival order and flushed exactly once after the remote
// description is applied; later candidates apply directly.
type MediaSession struct {
	pc      peerConnection
	devices Devices

	mu         sync.Mutex
	stream     *Stream
	facing     FacingMode
	pendingICE []webrtc.ICECandidateInit
	flushed    bool
	closed     bool
}

func newMediaSession(pc peerConnection, devices Devices, stream *Stream, facing FacingMode) *MediaSession {
	return &MediaSession{
		pc:      pc,
		devices: devices,
		stream:  stream,
		facing:  facing,
	}
}

// addLocalTracks attaches every local track to the peer connection.
func (m *MediaSession) addLocalTracks() error {
	for _, t := range m.stream.Tracks {
		if _, err := m.pc.AddTrack(t.Local()); err != nil {
			return fmt.Errorf("add %s track: %w", t.Kind(), err)
		}
	}
	return nil
}

// Offer creates the local offer and applies it as the local description.
func (m *MediaSession) Offer() (webrtc.SessionDescription, error) {
	offer, err := m.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := m.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return offer, nil
}

// Answer applies the remote offer, drains buffered ICE candidates, and
// produces the local answer.
func (m *MediaSession) Answer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := m.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set remote description: %w", err)
	}
	m.flushPendingICE()
	answer, err := m.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := m.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return answer, nil
}

// AcceptAnswer applies the remote answer on the caller side and drains
// buffered ICE candidates.
func (m *MediaSession) AcceptAnswer(answer webrtc.SessionDescription) error {
	if err := m.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	m.flushPendingICE()
	return nil
}

// AddRemoteCandidate applies a remote ICE candidate, buffering it if the
// remote description is not set yet.
func (m *MediaSession) AddRemoteCandidate(c webrtc.ICECandidateInit) error {
	m.mu.Lock()
	if m.pc.RemoteDescription() == nil {
		m.pendingICE = append(m.pendingICE, c)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return m.pc.AddICECandidate(c)
}

// flushPendingICE applies buffered candidates in arrival order, exactly
// once per session.
func (m *MediaSession) flushPendingICE() {
	m.mu.Lock()
	if m.flushed {
		m.mu.Unlock()
		return
	}
	m.flushed = true
	pending := m.pendingICE
	m.pendingICE = nil
	m.mu.Unlock()

	for _, c := range pending {
		if err := m.pc.AddICECandidate(c); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "flushPendingICE",
				"error":    err,
			}).Warn("Buffered ICE candidate rejected")
		}
	}
}

// OnICECandidate registers the local candidate callback.
func (m *MediaSession) OnICECandidate(f func(*webrtc.ICECandidate)) {
	m.pc.OnICECandidate(f)
}

// OnTrack registers the remote track callback.
func (m *MediaSession) OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	m.pc.OnTrack(f)
}

// SwitchCamera flips between front and rear camera mid-call.
//
// The current video capture is stopped first because mobile camera
// hardware is exclusive; the opposite facing is then requested with an
// exact constraint and once more with a loose one before giving up. The
// new track is spliced onto the live RTP sender, so no renegotiation
// happens and audio is untouched.
func (m *MediaSession) SwitchCamera() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.stream.VideoTracks()) == 0 {
		return ErrNoVideoTrack
	}
	sender := m.videoSenderLocked()
	if sender == nil {
		return ErrNoVideoTrack
	}

	target := m.facing.Opposite()
	for _, t := range m.stream.VideoTracks() {
		t.Stop()
	}

	acquired, err := m.devices.GetUserMedia(Constraints{Video: true, Facing: target, ExactFacing: true})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SwitchCamera",
			"facing":   target,
			"error":    err,
		}).Debug("Exact camera facing unavailable, retrying with loose constraint")
		acquired, err = m.devices.GetUserMedia(Constraints{Video: true, Facing: target})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
		}
	}

	video := acquired.VideoTracks()
	if len(video) == 0 {
		acquired.StopAll()
		return ErrMediaUnavailable
	}
	if err := sender.ReplaceTrack(video[0].Local()); err != nil {
		acquired.StopAll()
		return fmt.Errorf("replace track: %w", err)
	}

	m.stream.replaceVideo(video[0])
	m.facing = target
	logrus.WithFields(logrus.Fields{
		"function": "SwitchCamera",
		"facing":   target,
	}).Info("Camera switched")
	return nil
}

// videoSenderLocked finds the RTP sender carrying the video track.
func (m *MediaSession) videoSenderLocked() *webrtc.RTPSender {
	for _, s := range m.pc.GetSenders() {
		if t := s.Track(); t != nil && t.Kind() == webrtc.RTPCodecTypeVideo {
			return s
		}
	}
	return nil
}

// Teardown stops every local track and closes the peer connection.
// Idempotent; it runs on every call exit path.
func (m *MediaSession) Teardown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	stream := m.stream
	m.mu.Unlock()

	stream.StopAll()
	if err := m.pc.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Teardown",
			"error":    err,
		}).Warn("Peer connection close failed")
	}
}
