package av

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"github.com/hushwire/hushwire/transport"
)

const (
	// DefaultOfferGraceDelay is how long the caller waits after the
	// peer's accept before emitting the offer, giving the callee's side
	// time to finish its own setup on slow devices.
	DefaultOfferGraceDelay = 500 * time.Millisecond

	// DefaultNoticeWindow bounds how long a transient call notice is
	// displayed before it auto-clears.
	DefaultNoticeWindow = 4 * time.Second
)

// Emitter is the slice of the event channel the coordinator uses.
type Emitter interface {
	Emit(event string, v interface{}) error
	On(event string, h transport.Handler)
}

// Config carries the tunable parts of call setup. Zero values select
// the defaults.
type Config struct {
	ICEServers      []webrtc.ICEServer
	OfferGraceDelay time.Duration
	NoticeWindow    time.Duration
}

// Coordinator drives the call lifecycle over the shared event channel.
//
// States move idle to calling or ringing, then inCall, then back to
// idle. Every exit path, local or remote, tears down media before the
// state clears, so capture devices are never left running after a call.
type Coordinator struct {
	selfID  string
	channel Emitter
	devices Devices
	newPC   pcFactory
	cfg     Config

	mu          sync.Mutex
	session     *Session
	media       *MediaSession
	generation  uint64
	notice      string
	noticeTimer *time.Timer

	onIncoming    func(*Session)
	onState       func(*Session)
	onRemoteTrack func(*webrtc.TrackRemote)
	onNotice      func(string)
}

// NewCoordinator creates the call state machine and subscribes its
// handlers on the channel.
func NewCoordinator(selfID string, channel Emitter, devices Devices, cfg Config) *Coordinator {
	if cfg.OfferGraceDelay == 0 {
		cfg.OfferGraceDelay = DefaultOfferGraceDelay
	}
	if cfg.NoticeWindow == 0 {
		cfg.NoticeWindow = DefaultNoticeWindow
	}
	c := &Coordinator{
		selfID:  selfID,
		channel: channel,
		devices: devices,
		newPC:   defaultPeerConnection,
		cfg:     cfg,
	}
	c.registerHandlers()
	return c
}

func (c *Coordinator) registerHandlers() {
	c.channel.On(transport.EventIncomingCall, c.handleIncoming)
	c.channel.On(transport.EventCallRinging, c.handleRinging)
	c.channel.On(transport.EventCallAccepted, c.handleAccepted)
	c.channel.On(transport.EventCallRejected, c.handleRejected)
	c.channel.On(transport.EventCallEnded, c.handleEnded)
	c.channel.On(transport.EventCallError, c.handleCallError)
	c.channel.On(transport.EventCallBusy, c.handleBusy)
	c.channel.On(transport.EventWebRTCOffer, c.handleOffer)
	c.channel.On(transport.EventWebRTCAnswer, c.handleAnswer)
	c.channel.On(transport.EventWebRTCICE, c.handleICE)
}

// OnIncomingCall sets the callback invoked when an invitation arrives
// while idle.
func (c *Coordinator) OnIncomingCall(fn func(*Session)) { c.onIncoming = fn }

// OnStateChange sets the callback invoked on session state transitions.
func (c *Coordinator) OnStateChange(fn func(*Session)) { c.onState = fn }

// OnRemoteTrack sets the callback invoked when remote media arrives.
func (c *Coordinator) OnRemoteTrack(fn func(*webrtc.TrackRemote)) { c.onRemoteTrack = fn }

// OnNotice sets the callback invoked with transient call notices.
func (c *Coordinator) OnNotice(fn func(string)) { c.onNotice = fn }

// Initiate starts an outgoing call to peerID.
//
// Media is acquired before anything else; if the devices are unavailable
// the call never starts and no peer connection is opened. The invitation
// is emitted only after local setup is complete.
func (c *Coordinator) Initiate(peerID string, callType CallType) error {
	c.mu.Lock()
	if c.session != nil && c.session.State() != StateIdle {
		c.mu.Unlock()
		return ErrCallInProgress
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	media, err := c.setupMedia(callType, gen)
	if err != nil {
		return err
	}

	sess := &Session{
		PeerID:     peerID,
		Type:       callType,
		Direction:  Outgoing,
		generation: gen,
		state:      StateCalling,
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		media.Teardown()
		return ErrCallInProgress
	}
	c.session = sess
	c.media = media
	c.mu.Unlock()

	if err := c.channel.Emit(transport.EventInitiateCall, transport.CallInviteEvent{
		From:     c.selfID,
		To:       peerID,
		CallType: string(callType),
	}); err != nil {
		c.clearSession(sess)
		return fmt.Errorf("cannot initiate call: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Initiate",
		"peer_id":   peerID,
		"call_type": callType,
	}).Info("Outgoing call started")
	c.notifyState(sess)
	return nil
}

// Accept answers the ringing incoming call. Local media and the peer
// connection are set up before the acceptance is emitted; the offer then
// arrives from the caller and completes negotiation.
func (c *Coordinator) Accept() error {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.State() != StateRinging {
		c.mu.Unlock()
		return ErrNotRinging
	}
	gen := sess.generation
	c.mu.Unlock()

	media, err := c.setupMedia(sess.Type, gen)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		media.Teardown()
		return ErrNotRinging
	}
	c.media = media
	c.mu.Unlock()

	if err := c.channel.Emit(transport.EventAcceptCall, transport.CallControlEvent{
		From: c.selfID,
		To:   sess.PeerID,
	}); err != nil {
		c.clearSession(sess)
		return fmt.Errorf("cannot accept call: %w", err)
	}

	// The duration clock runs from acceptance; SDP negotiation completes
	// in the background via the offer handler.
	sess.setState(StateInCall)
	c.notifyState(sess)
	return nil
}

// Reject declines the ringing incoming call.
func (c *Coordinator) Reject() error {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.State() != StateRinging {
		c.mu.Unlock()
		return ErrNotRinging
	}
	c.mu.Unlock()

	err := c.channel.Emit(transport.EventRejectCall, transport.CallControlEvent{
		From: c.selfID,
		To:   sess.PeerID,
	})
	c.clearSession(sess)
	if err != nil {
		return fmt.Errorf("cannot reject call: %w", err)
	}
	return nil
}

// End hangs up the active call from any non-idle state.
func (c *Coordinator) End() error {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.State() == StateIdle {
		c.mu.Unlock()
		return ErrNoCall
	}
	c.mu.Unlock()

	err := c.channel.Emit(transport.EventEndCall, transport.CallControlEvent{
		From: c.selfID,
		To:   sess.PeerID,
	})
	c.clearSession(sess)
	if err != nil {
		return fmt.Errorf("cannot end call: %w", err)
	}
	return nil
}

// SwitchCamera flips the camera on the active video call.
func (c *Coordinator) SwitchCamera() error {
	c.mu.Lock()
	media := c.media
	sess := c.session
	c.mu.Unlock()
	if sess == nil || sess.State() != StateInCall || media == nil {
		return ErrNoCall
	}
	return media.SwitchCamera()
}

// ActiveSession returns the current call session, nil when idle.
func (c *Coordinator) ActiveSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Notice returns the current transient call notice, empty when none.
func (c *Coordinator) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// setupMedia acquires local devices and builds the peer connection.
// Any failure leaves nothing half-open.
func (c *Coordinator) setupMedia(callType CallType, gen uint64) (*MediaSession, error) {
	stream, err := c.devices.GetUserMedia(Constraints{
		Audio:  true,
		Video:  callType == CallTypeVideo,
		Facing: FacingUser,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
	}

	pc, err := c.newPC(webrtc.Configuration{ICEServers: c.cfg.ICEServers})
	if err != nil {
		stream.StopAll()
		return nil, fmt.Errorf("peer connection: %w", err)
	}

	media := newMediaSession(pc, c.devices, stream, FacingUser)
	if err := media.addLocalTracks(); err != nil {
		media.Teardown()
		return nil, err
	}

	media.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.emitLocalCandidate(cand, gen)
	})
	media.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if c.onRemoteTrack != nil {
			c.onRemoteTrack(track)
		}
	})
	return media, nil
}

// emitLocalCandidate forwards a local ICE candidate to the peer. The
// candidate callback fires on pion's goroutines, so the generation is
// re-checked here; candidates from a torn-down call are dropped.
func (c *Coordinator) emitLocalCandidate(cand *webrtc.ICECandidate, gen uint64) {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.generation != gen {
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "emitLocalCandidate",
		}).Debug("Dropping ICE candidate from stale session")
		return
	}
	peer := sess.PeerID
	c.mu.Unlock()

	payload, err := json.Marshal(cand.ToJSON())
	if err != nil {
		return
	}
	if err := c.channel.Emit(transport.EventWebRTCICE, transport.SignalEvent{
		From:    c.selfID,
		To:      peer,
		Payload: payload,
	}); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "emitLocalCandidate",
			"error":    err,
		}).Warn("ICE candidate emit failed")
	}
}

// handleIncoming processes a call invitation. A busy reply goes out when
// any call is already active; the local state does not change in that
// case.
func (c *Coordinator) handleIncoming(data json.RawMessage) {
	var ev transport.CallInviteEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}

	c.mu.Lock()
	if c.session != nil && c.session.State() != StateIdle {
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "handleIncoming",
			"from":     ev.From,
		}).Info("Rejecting invitation while busy")
		if err := c.channel.Emit(transport.EventCallBusy, transport.CallControlEvent{
			From:   c.selfID,
			To:     ev.From,
			Reason: "busy",
		}); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "handleIncoming",
				"error":    err,
			}).Warn("Busy reply failed")
		}
		return
	}

	c.generation++
	sess := &Session{
		PeerID:     ev.From,
		Type:       CallType(ev.CallType),
		Direction:  Incoming,
		generation: c.generation,
		state:      StateRinging,
	}
	c.session = sess
	c.mu.Unlock()

	if c.onIncoming != nil {
		c.onIncoming(sess)
	}
	c.notifyState(sess)
}

// handleRinging confirms the peer's device is alerting. The caller stays
// in calling; this only surfaces to the state callback.
func (c *Coordinator) handleRinging(data json.RawMessage) {
	var ev transport.CallControlEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	sess := c.relevantSession(ev.From, StateCalling)
	if sess == nil {
		return
	}
	c.notifyState(sess)
}

// handleAccepted runs on the caller when the peer picks up: create the
// offer now, emit it after the grace delay.
func (c *Coordinator) handleAccepted(data json.RawMessage) {
	var ev transport.CallControlEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}

	c.mu.Lock()
	sess := c.session
	media := c.media
	if sess == nil || sess.Direction != Outgoing || sess.State() != StateCalling || sess.PeerID != ev.From || media == nil {
		c.mu.Unlock()
		return
	}
	gen := sess.generation
	c.mu.Unlock()

	sess.setState(StateInCall)
	c.notifyState(sess)

	offer, err := media.Offer()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleAccepted",
			"error":    err,
		}).Error("Offer creation failed")
		c.failCall(sess, "call setup failed")
		return
	}

	payload, err := json.Marshal(offer)
	if err != nil {
		c.failCall(sess, "call setup failed")
		return
	}

	time.AfterFunc(c.cfg.OfferGraceDelay, func() {
		c.mu.Lock()
		if c.session != sess || sess.generation != gen {
			c.mu.Unlock()
			logrus.WithFields(logrus.Fields{
				"function": "handleAccepted",
			}).Debug("Skipping offer emit for ended call")
			return
		}
		peer := sess.PeerID
		c.mu.Unlock()

		if err := c.channel.Emit(transport.EventWebRTCOffer, transport.SignalEvent{
			From:    c.selfID,
			To:      peer,
			Payload: payload,
		}); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "handleAccepted",
				"error":    err,
			}).Error("Offer emit failed")
			c.failCall(sess, "call setup failed")
		}
	})
}

// handleOffer runs on the callee after accepting: apply the remote
// offer, drain buffered ICE, answer, and the call is up.
func (c *Coordinator) handleOffer(data json.RawMessage) {
	var ev transport.SignalEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}

	c.mu.Lock()
	sess := c.session
	media := c.media
	if sess == nil || sess.Direction != Incoming || sess.State() != StateInCall || sess.PeerID != ev.From || media == nil {
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "handleOffer",
			"from":     ev.From,
		}).Debug("Dropping offer with no matching session")
		return
	}
	c.mu.Unlock()

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(ev.Payload, &offer); err != nil {
		c.failCall(sess, "call setup failed")
		return
	}

	answer, err := media.Answer(offer)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleOffer",
			"error":    err,
		}).Error("Answer negotiation failed")
		c.failCall(sess, "call setup failed")
		return
	}

	payload, err := json.Marshal(answer)
	if err != nil {
		c.failCall(sess, "call setup failed")
		return
	}
	if err := c.channel.Emit(transport.EventWebRTCAnswer, transport.SignalEvent{
		From:    c.selfID,
		To:      sess.PeerID,
		Payload: payload,
	}); err != nil {
		c.failCall(sess, "call setup failed")
	}
}

// handleAnswer runs on the caller: apply the remote answer and the call
// is up.
func (c *Coordinator) handleAnswer(data json.RawMessage) {
	var ev transport.SignalEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}

	c.mu.Lock()
	sess := c.session
	media := c.media
	if sess == nil || sess.Direction != Outgoing || sess.State() != StateInCall || sess.PeerID != ev.From || media == nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	var answer webrtc.SessionDescription
	if err := json.Unmarshal(ev.Payload, &answer); err != nil {
		c.failCall(sess, "call setup failed")
		return
	}
	if err := media.AcceptAnswer(answer); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleAnswer",
			"error":    err,
		}).Error("Remote answer rejected")
		c.failCall(sess, "call setup failed")
	}
}

// handleICE applies a remote candidate to the live media session;
// candidates for an ended or unknown call are dropped.
func (c *Coordinator) handleICE(data json.RawMessage) {
	var ev transport.SignalEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}

	c.mu.Lock()
	sess := c.session
	media := c.media
	c.mu.Unlock()
	if sess == nil || sess.PeerID != ev.From || media == nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleICE",
			"from":     ev.From,
		}).Debug("Dropping ICE candidate with no matching session")
		return
	}

	var cand webrtc.ICECandidateInit
	if err := json.Unmarshal(ev.Payload, &cand); err != nil {
		return
	}
	if err := media.AddRemoteCandidate(cand); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleICE",
			"error":    err,
		}).Warn("Remote ICE candidate rejected")
	}
}

func (c *Coordinator) handleRejected(data json.RawMessage) {
	var ev transport.CallControlEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	sess := c.relevantSession(ev.From, StateCalling)
	if sess == nil {
		return
	}
	c.clearSession(sess)
	c.setNotice("call declined")
}

func (c *Coordinator) handleEnded(data json.RawMessage) {
	var ev transport.CallControlEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil || sess.PeerID != ev.From {
		return
	}
	c.clearSession(sess)
}

func (c *Coordinator) handleBusy(data json.RawMessage) {
	var ev transport.CallControlEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	sess := c.relevantSession(ev.From, StateCalling)
	if sess == nil {
		return
	}
	c.clearSession(sess)
	c.setNotice("user is busy")
}

func (c *Coordinator) handleCallError(data json.RawMessage) {
	var ev transport.CallControlEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return
	}
	c.clearSession(sess)
	notice := ev.Reason
	if notice == "" {
		notice = "call failed"
	}
	c.setNotice(notice)
}

// relevantSession returns the session if it is from the named peer and
// in the wanted state, nil otherwise.
func (c *Coordinator) relevantSession(from string, want State) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.session
	if sess == nil || sess.PeerID != from || sess.State() != want {
		return nil
	}
	return sess
}

// failCall tears down after a local setup failure and surfaces a notice.
func (c *Coordinator) failCall(sess *Session, notice string) {
	c.clearSession(sess)
	c.setNotice(notice)
}

// clearSession tears down media and returns the coordinator to idle.
// It is the single exit path for every way a call can end.
func (c *Coordinator) clearSession(sess *Session) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	media := c.media
	c.session = nil
	c.media = nil
	c.mu.Unlock()

	if media != nil {
		media.Teardown()
	}
	sess.setState(StateIdle)

	logrus.WithFields(logrus.Fields{
		"function": "clearSession",
		"peer_id":  sess.PeerID,
		"duration": sess.Duration(),
	}).Info("Call ended")
	c.notifyState(sess)
}

// setNotice records a transient call notice that auto-clears after the
// notice window.
func (c *Coordinator) setNotice(text string) {
	c.mu.Lock()
	c.notice = text
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
	}
	c.noticeTimer = time.AfterFunc(c.cfg.NoticeWindow, func() {
		c.mu.Lock()
		c.notice = ""
		c.mu.Unlock()
	})
	c.mu.Unlock()

	if c.onNotice != nil {
		c.onNotice(text)
	}
}

func (c *Coordinator) notifyState(sess *Session) {
	if c.onState != nil {
		c.onState(sess)
	}
}
