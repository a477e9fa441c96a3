package audioengine

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"soundslot/internal/security"
	"soundslot/pkg/spec"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hraban/opus"
)

type EncoderResult struct {
	Frame []byte
	Error error
}

// StreamEncodeWavToOpus encodes a 48 kHz stereo 16-bit WAV into 20 ms opus
// frames sent on resultChan, applying gain to every sample. It returns the
// duration in seconds.
func StreamEncodeWavToOpus(inputPath string, gain float64, resultChan chan<- EncoderResult) (float64, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s: not a wav file", inputPath)
	}
	channels := spec.OpusChannels
	if int(dec.SampleRate) != spec.OpusSampleRate || int(dec.NumChans) != channels || dec.BitDepth != 16 {
		return 0, fmt.Errorf("%s: need %d Hz %d ch 16-bit, got %d Hz %d ch %d-bit",
			inputPath, spec.OpusSampleRate, channels, dec.SampleRate, dec.NumChans, dec.BitDepth)
	}

	enc, err := opus.NewEncoder(spec.OpusSampleRate, channels, opus.AppAudio)
	if err != nil {
		return 0, err
	}

	frameSize := spec.OpusSampleRate * spec.OpusFrameMillis / 1000
	pcmBuf := make([]int16, frameSize*channels)
	opusBuf := make([]byte, 1500)

	// one second per read
	intBuf := &audio.IntBuffer{
		Data:   make([]int, spec.OpusSampleRate*channels),
		Format: &audio.Format{NumChannels: channels, SampleRate: spec.OpusSampleRate},
	}

	totalSamples := 0
	for {
		n, err := dec.PCMBuffer(intBuf)
		if err != nil && err != io.EOF {
			return 0, err
		}
		if n == 0 {
			break
		}

		for i := 0; i < n; i += len(pcmBuf) {
			batch := len(pcmBuf)
			if i+batch > n {
				batch = n - i
				// pad the last frame with silence
				for j := range pcmBuf {
					pcmBuf[j] = 0
				}
			}
			for j := 0; j < batch; j++ {
				pcmBuf[j] = int16(intBuf.Data[i+j])
			}
			if gain != 1 {
				ApplyQuickGain(pcmBuf[:batch], gain)
			}

			size, err := enc.Encode(pcmBuf, opusBuf)
			if err != nil {
				resultChan <- EncoderResult{Error: err}
				return 0, err
			}
			frame := make([]byte, size)
			copy(frame, opusBuf[:size])
			resultChan <- EncoderResult{Frame: frame}
			totalSamples += batch
		}

		if err == io.EOF {
			break
		}
	}

	return float64(totalSamples) / float64(spec.OpusSampleRate) / float64(channels), nil
}

// FrameWriter writes an .opx stream, sealing frames when a key is set.
type FrameWriter struct {
	w   io.Writer
	key []byte
}

// NewFrameWriter writes the stream header.
func NewFrameWriter(w io.Writer, key []byte) (*FrameWriter, error) {
	if err := security.WriteMagic(w); err != nil {
		return nil, err
	}
	var flags byte
	if key != nil {
		flags |= flagSealed
	}
	if _, err := w.Write([]byte{flags}); err != nil {
		return nil, err
	}
	return &FrameWriter{w: w, key: key}, nil
}

func (fw *FrameWriter) WriteFrame(frame []byte) error {
	if fw.key != nil {
		sealed, err := security.Encrypt(frame, fw.key)
		if err != nil {
			return err
		}
		frame = sealed
	}
	if len(frame) > 0xFFFF {
		return fmt.Errorf("frame of %d bytes too large", len(frame))
	}
	if err := binary.Write(fw.w, binary.BigEndian, uint16(len(frame))); err != nil {
		return err
	}
	_, err := fw.w.Write(frame)
	return err
}
