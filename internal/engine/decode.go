package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"soundslot/pkg/audioengine"
	"soundslot/pkg/spec"

	"github.com/faiface/beep"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

var ErrUnsupportedFormat = errors.New("unsupported sound format")

// pcmSource yields interleaved stereo 16-bit samples.
type pcmSource interface {
	ReadPCM(out []int16) (int, error)
	Close() error
}

// open picks a decoder by extension and returns the source and its sample rate.
func open(path string, key []byte) (pcmSource, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	var (
		src  pcmSource
		rate int
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		src, rate, err = newWavSource(f)
	case ".mp3":
		src, rate, err = newMP3Source(f)
	case spec.SealedExt:
		src, rate, err = newOpxSource(f, key)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return src, rate, nil
}

// Decode opens path as a beep stream in its native sample rate.
func Decode(path string, key []byte) (beep.StreamCloser, beep.Format, error) {
	src, rate, err := open(path, key)
	if err != nil {
		return nil, beep.Format{}, err
	}
	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 2, Precision: 2}
	return &pcmStreamer{src: src, buf: make([]int16, 4096)}, format, nil
}

// Info describes a decoded sound.
type Info struct {
	Format   beep.Format
	Duration time.Duration
	// PCM holds interleaved stereo samples.
	PCM []int16
}

// Probe decodes the whole sound.
func Probe(path string, key []byte) (Info, error) {
	src, rate, err := open(path, key)
	if err != nil {
		return Info{}, err
	}
	defer src.Close()

	var pcm []int16
	buf := make([]int16, 8192)
	for {
		n, err := src.ReadPCM(buf)
		pcm = append(pcm, buf[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return Info{}, err
		}
	}
	frames := len(pcm) / 2
	return Info{
		Format:   beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 2, Precision: 2},
		Duration: time.Duration(frames) * time.Second / time.Duration(rate),
		PCM:      pcm,
	}, nil
}

// ======================================================
// beep adapter
// ======================================================

type pcmStreamer struct {
	src     pcmSource
	buf     []int16
	pos, n  int
	drained bool
	err     error
}

func (p *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		if p.pos+1 >= p.n {
			if p.drained {
				break
			}
			n, err := p.src.ReadPCM(p.buf)
			p.pos, p.n = 0, n
			if err != nil && !errors.Is(err, io.EOF) {
				p.err = err
			}
			if err != nil || n == 0 {
				p.drained = true
			}
			continue
		}
		for p.pos+1 < p.n && filled < len(samples) {
			samples[filled] = [2]float64{
				float64(p.buf[p.pos]) / 32768.0,
				float64(p.buf[p.pos+1]) / 32768.0,
			}
			p.pos += 2
			filled++
		}
	}
	return filled, filled > 0
}

func (p *pcmStreamer) Err() error   { return p.err }
func (p *pcmStreamer) Close() error { return p.src.Close() }

// ======================================================
// WAV
// ======================================================

type wavSource struct {
	f     *os.File
	dec   *wav.Decoder
	buf   *audio.IntBuffer
	chans int
	depth int
}

func newWavSource(f *os.File) (*wavSource, int, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: invalid wav header", ErrUnsupportedFormat)
	}
	chans := int(dec.NumChans)
	if chans < 1 || dec.SampleRate == 0 {
		return nil, 0, fmt.Errorf("%w: wav with %d channels at %d Hz", ErrUnsupportedFormat, chans, dec.SampleRate)
	}
	s := &wavSource{
		f:     f,
		dec:   dec,
		chans: chans,
		depth: int(dec.BitDepth),
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: chans, SampleRate: int(dec.SampleRate)},
		},
	}
	return s, int(dec.SampleRate), nil
}

func (s *wavSource) ReadPCM(out []int16) (int, error) {
	frames := len(out) / 2
	if cap(s.buf.Data) < frames*s.chans {
		s.buf.Data = make([]int, frames*s.chans)
	}
	s.buf.Data = s.buf.Data[:frames*s.chans]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	got := n / s.chans
	for i := 0; i < got; i++ {
		l := s.sample(s.buf.Data[i*s.chans])
		r := l
		if s.chans > 1 {
			r = s.sample(s.buf.Data[i*s.chans+1])
		}
		out[2*i], out[2*i+1] = l, r
	}
	return got * 2, nil
}

func (s *wavSource) sample(v int) int16 {
	switch s.depth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

func (s *wavSource) Close() error { return s.f.Close() }

// ======================================================
// MP3
// ======================================================

type mp3Source struct {
	f   *os.File
	dec *mp3.Decoder
	raw []byte
}

func newMP3Source(f *os.File) (*mp3Source, int, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return &mp3Source{f: f, dec: dec}, dec.SampleRate(), nil
}

// ReadPCM converts go-mp3's 16-bit little-endian stereo output.
func (s *mp3Source) ReadPCM(out []int16) (int, error) {
	want := (len(out) / 2) * 4
	if cap(s.raw) < want {
		s.raw = make([]byte, want)
	}
	s.raw = s.raw[:want]

	n, err := io.ReadFull(s.dec, s.raw)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	n -= n % 4
	for i := 0; i < n/2; i++ {
		out[i] = int16(uint16(s.raw[2*i]) | uint16(s.raw[2*i+1])<<8)
	}
	if n == 0 && err == nil {
		err = io.EOF
	}
	return n / 2, err
}

func (s *mp3Source) Close() error { return s.f.Close() }

// ======================================================
// OPX (length-prefixed opus frames, optionally sealed)
// ======================================================

type opxSource struct {
	f       *os.File
	frames  *audioengine.FrameReader
	dec     *audioengine.StreamDecoder
	pcm     []int16
	pending []int16
}

func newOpxSource(f *os.File, key []byte) (*opxSource, int, error) {
	frames, err := audioengine.NewFrameReader(f, key)
	if err != nil {
		return nil, 0, err
	}
	dec, err := audioengine.NewStreamDecoder(spec.OpusSampleRate, spec.OpusChannels)
	if err != nil {
		return nil, 0, err
	}
	return &opxSource{
		f:      f,
		frames: frames,
		dec:    dec,
		pcm:    make([]int16, audioengine.PCMBufferSize()),
	}, spec.OpusSampleRate, nil
}

func (s *opxSource) ReadPCM(out []int16) (int, error) {
	if len(s.pending) == 0 {
		frame, err := s.frames.Next()
		if err != nil {
			return 0, err
		}
		n, err := s.dec.DecodeFrame(frame, s.pcm)
		if err != nil {
			return 0, fmt.Errorf("decode opus frame: %w", err)
		}
		s.pending = s.pcm[:n*spec.OpusChannels]
	}
	n := copy(out, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *opxSource) Close() error { return s.f.Close() }
