// Package paout is an engine output on a PortAudio default stream.
package paout

import (
	"sync"

	"github.com/faiface/beep"
	"github.com/gordonklaus/portaudio"
)

// Output mixes beep streams into a PortAudio callback stream.
type Output struct {
	mu     sync.Mutex
	mixer  beep.Mixer
	buf    [][2]float64
	stream *portaudio.Stream
}

// Open initializes PortAudio and starts a stereo output stream.
func Open(rate beep.SampleRate, framesPerBuffer int) (*Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	o := &Output{buf: make([][2]float64, framesPerBuffer)}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(rate), framesPerBuffer, o.fill)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	o.stream = stream
	return o, nil
}

// fill is the PortAudio callback; out is non-interleaved.
func (o *Output) fill(out [][]float32) {
	n := len(out[0])
	if cap(o.buf) < n {
		o.buf = make([][2]float64, n)
	}
	buf := o.buf[:n]

	o.mu.Lock()
	o.mixer.Stream(buf)
	o.mu.Unlock()

	for i := range buf {
		out[0][i] = float32(buf[i][0])
		out[1][i] = float32(buf[i][1])
	}
}

func (o *Output) Play(s beep.Streamer) {
	o.mu.Lock()
	o.mixer.Add(s)
	o.mu.Unlock()
}

func (o *Output) Clear() {
	o.mu.Lock()
	o.mixer.Clear()
	o.mu.Unlock()
}

func (o *Output) Close() error {
	o.Clear()
	if err := o.stream.Stop(); err != nil {
		return err
	}
	if err := o.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
