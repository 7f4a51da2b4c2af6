package av

import "github.com/pion/webrtc/v3"

// FacingMode selects which camera a video constraint asks for.
type FacingMode string

const (
	// FacingUser is the front camera.
	FacingUser FacingMode = "user"
	// FacingEnvironment is the rear camera.
	FacingEnvironment FacingMode = "environment"
)

// Opposite returns the other camera facing.
func (f FacingMode) Opposite() FacingMode {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Constraints describes a device acquisition request. ExactFacing asks
// for the named camera and nothing else; when false the facing is a
// preference the device layer may ignore.
type Constraints struct {
	Audio       bool
	Video       bool
	Facing      FacingMode
	ExactFacing bool
}

// Track is one local media track. Local exposes the underlying track for
// attachment to a peer connection; Stop releases the device capture.
type Track interface {
	ID() string
	Kind() string
	Local() webrtc.TrackLocal
	Stop()
}

// Devices is the platform capture layer. Implementations wrap real
// camera and microphone access; tests substitute static tracks.
type Devices interface {
	GetUserMedia(c Constraints) (*Stream, error)
}

// Stream is a set of local tracks acquired together.
type Stream struct {
	Tracks []Track
}

// VideoTracks returns the video tracks in the stream.
func (s *Stream) VideoTracks() []Track {
	return s.tracksOfKind("video")
}

// AudioTracks returns the audio tracks in the stream.
func (s *Stream) AudioTracks() []Track {
	return s.tracksOfKind("audio")
}

func (s *Stream) tracksOfKind(kind string) []Track {
	var out []Track
	for _, t := range s.Tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// StopAll stops every track in the stream. Safe on a nil stream.
func (s *Stream) StopAll() {
	if s == nil {
		return
	}
	for _, t := range s.Tracks {
		t.Stop()
	}
}

// replaceVideo swaps the stream's video tracks for newTrack, leaving
// audio untouched.
func (s *Stream) replaceVideo(newTrack Track) {
	out := s.Tracks[:0]
	for _, t := range s.Tracks {
		if t.Kind() != "video" {
			out = append(out, t)
		}
	}
	s.Tracks = append(out, newTrack)
}
