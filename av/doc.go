// Package av implements the call signaling state machine and the WebRTC
// media session for audio/video calls.
//
// The package separates signaling from media: the Coordinator drives the
// call lifecycle (idle, calling, ringing, inCall) over the shared event
// channel, while the MediaSession owns the peer connection, the local
// tracks, and ICE candidate ordering. Device access sits behind the
// Devices interface so tests run without cameras or microphones, and the
// peer connection sits behind a narrow interface for the same reason.
//
// A call session carries a generation number. Event handlers verify the
// generation before touching the peer connection, so signaling that
// arrives after the call it belonged to has ended is dropped instead of
// corrupting the next call.
package av
