package playback

import "soundslot/internal/sound"

// State is the coordinator's playback state.
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Playing:
		return "Playing"
	default:
		return "Unknown"
	}
}

// Snapshot is a consistent read of the coordinator state.
type Snapshot struct {
	State  State
	Active *sound.Item
	Handle *VisualHandle
}

// Completion is delivered by the audio engine exactly once per accepted play
// request, when the sound ends or is interrupted.
type Completion struct {
	FileName    string
	OwnerKey    string
	Interrupted bool
}
