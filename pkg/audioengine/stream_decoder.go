package audioengine

import (
	"encoding/binary"
	"errors"
	"io"

	"soundslot/internal/security"
	"soundslot/pkg/spec"

	"github.com/hraban/opus"
)

// ErrLocked is returned when a sealed stream is opened without a key.
var ErrLocked = errors.New("sealed stream needs a pack key")

const flagSealed = 1

type StreamDecoder struct {
	dec *opus.Decoder
}

func NewStreamDecoder(rate, channels int) (*StreamDecoder, error) {
	d, err := opus.NewDecoder(rate, channels)
	if err != nil {
		return nil, err
	}
	return &StreamDecoder{dec: d}, nil
}

func (sd *StreamDecoder) DecodeFrame(frame []byte, outPcm []int16) (int, error) {
	return sd.dec.Decode(frame, outPcm)
}

// FrameReader reads the frames of an .opx stream: the magic, one flags byte,
// then big-endian uint16 length-prefixed opus frames, each AES-GCM sealed
// when the sealed flag is set.
type FrameReader struct {
	r   io.Reader
	key []byte
}

// NewFrameReader validates the stream header. key is only needed for sealed streams.
func NewFrameReader(r io.Reader, key []byte) (*FrameReader, error) {
	if err := security.ReadMagic(r); err != nil {
		return nil, err
	}
	var flags [1]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return nil, err
	}
	fr := &FrameReader{r: r}
	if flags[0]&flagSealed != 0 {
		if key == nil {
			return nil, ErrLocked
		}
		fr.key = key
	}
	return fr, nil
}

// Next returns the next opus frame, or io.EOF at the end of the stream.
func (fr *FrameReader) Next() ([]byte, error) {
	var sz uint16
	if err := binary.Read(fr.r, binary.BigEndian, &sz); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	frame := make([]byte, sz)
	if _, err := io.ReadFull(fr.r, frame); err != nil {
		return nil, err
	}
	if fr.key == nil {
		return frame, nil
	}
	return security.Decrypt(frame, fr.key)
}

// PCMBufferSize is the interleaved sample count that holds any decoded frame.
func PCMBufferSize() int {
	return spec.MaxOpusFrame * spec.OpusChannels
}
