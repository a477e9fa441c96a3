// Package engine plays sound assets through a beep output and reports the end
// of every accepted play request exactly once.
package engine

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/faiface/beep"
	"github.com/rs/zerolog"
)

// Handler receives completions. interrupted is true when StopAll or a newer
// Play cut the sound short. It runs on an engine goroutine.
type Handler func(fileName, ownerKey string, interrupted bool)

type voice struct {
	fileName string
	ownerKey string
	src      beep.StreamCloser
	done     atomic.Bool
}

// Engine is a single-voice player.
type Engine struct {
	mu      sync.Mutex
	current *voice
	handler Handler

	out  Output
	rate beep.SampleRate
	key  []byte
	log  zerolog.Logger
}

// New creates an engine writing to out at rate. key opens sealed .opx assets
// and may be nil.
func New(out Output, rate beep.SampleRate, key []byte, log zerolog.Logger) *Engine {
	return &Engine{out: out, rate: rate, key: key, log: log}
}

// OnCompletion registers the completion handler.
func (e *Engine) OnCompletion(h Handler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

// Play starts dir/fileName and reports whether it was accepted.
func (e *Engine) Play(fileName, ownerKey, dir string) bool {
	if fileName == "" || filepath.Base(fileName) != fileName {
		e.log.Warn().Str("file", fileName).Msg("refusing asset outside the sounds directory")
		return false
	}
	src, format, err := Decode(filepath.Join(dir, fileName), e.key)
	if err != nil {
		e.log.Warn().Err(err).Str("file", fileName).Msg("cannot open sound")
		return false
	}

	var s beep.Streamer = src
	if format.SampleRate != e.rate {
		s = beep.Resample(4, format.SampleRate, e.rate, src)
	}

	v := &voice{fileName: fileName, ownerKey: ownerKey, src: src}
	e.mu.Lock()
	prev := e.current
	e.current = v
	e.mu.Unlock()

	if prev != nil {
		e.out.Clear()
		e.finish(prev, true)
	}

	e.out.Play(beep.Seq(s, beep.Callback(func() {
		// the output holds its own lock while streaming
		go e.finish(v, false)
	})))
	e.log.Debug().Str("file", fileName).Str("owner_key", ownerKey).Msg("playing")
	return true
}

// StopAll silences the output. The current voice completes as interrupted.
func (e *Engine) StopAll() {
	e.mu.Lock()
	v := e.current
	e.current = nil
	e.mu.Unlock()

	e.out.Clear()
	if v != nil {
		e.finish(v, true)
	}
}

// Close stops playback and releases the output.
func (e *Engine) Close() error {
	e.StopAll()
	return e.out.Close()
}

func (e *Engine) finish(v *voice, interrupted bool) {
	if !v.done.CompareAndSwap(false, true) {
		return
	}
	e.mu.Lock()
	if e.current == v {
		e.current = nil
	}
	h := e.handler
	e.mu.Unlock()

	if err := v.src.Err(); err != nil {
		e.log.Warn().Err(err).Str("file", v.fileName).Msg("stream error")
	}
	v.src.Close()

	if h != nil {
		h(v.fileName, v.ownerKey, interrupted)
	}
}
