package av

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateCalling, "calling"},
		{StateRinging, "ringing"},
		{StateInCall, "inCall"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestFacingModeOpposite(t *testing.T) {
	assert.Equal(t, FacingEnvironment, FacingUser.Opposite())
	assert.Equal(t, FacingUser, FacingEnvironment.Opposite())
}

func TestSessionDuration(t *testing.T) {
	sess := &Session{state: StateCalling}
	assert.Zero(t, sess.Duration(), "no duration before the call connects")

	sess.setState(StateInCall)
	time.Sleep(10 * time.Millisecond)
	assert.Greater(t, sess.Duration(), time.Duration(0))

	sess.setState(StateIdle)
	frozen := sess.Duration()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, frozen, sess.Duration(), "duration frozen after the call ends")
}
