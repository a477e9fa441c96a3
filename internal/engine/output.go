package engine

import (
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Output is an audio device that mixes beep streams.
type Output interface {
	Play(s beep.Streamer)
	// Clear drops every stream. Once it returns no stream is pulled again.
	Clear()
	Close() error
}

// Speaker is the default output, backed by beep's speaker package.
type Speaker struct{}

// NewSpeaker initializes the process-wide speaker.
func NewSpeaker(rate beep.SampleRate, bufferSize int) (*Speaker, error) {
	if err := speaker.Init(rate, bufferSize); err != nil {
		return nil, err
	}
	return &Speaker{}, nil
}

func (*Speaker) Play(s beep.Streamer) { speaker.Play(s) }
func (*Speaker) Clear()                { speaker.Clear() }

func (*Speaker) Close() error {
	speaker.Close()
	return nil
}
