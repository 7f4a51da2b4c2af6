package av

import "errors"

// Sentinel errors for call operations.
var (
	// ErrCallInProgress indicates an initiate attempt while a call is
	// already active in any non-idle state.
	ErrCallInProgress = errors.New("call already in progress")

	// ErrNoCall indicates a call operation with no active session.
	ErrNoCall = errors.New("no active call")

	// ErrNotRinging indicates an accept or reject outside the ringing state.
	ErrNotRinging = errors.New("no incoming call to answer")

	// ErrMediaUnavailable indicates device acquisition failed. Call setup
	// aborts without a half-open peer connection.
	ErrMediaUnavailable = errors.New("media devices unavailable")

	// ErrNoVideoTrack indicates a camera switch on a call without video.
	ErrNoVideoTrack = errors.New("no video track in call")
)
