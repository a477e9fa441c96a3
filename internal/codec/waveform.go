package codec

import (
	"math"
	"strings"
)

// GenerateWaveformData reduces PCM to at most points RMS amplitudes (0-255).
func GenerateWaveformData(pcm []int16, points int) []byte {
	if len(pcm) == 0 || points <= 0 {
		return nil
	}
	step := len(pcm) / points
	if step == 0 {
		step = 1
	}

	waveform := make([]byte, 0, points)
	for i := 0; i < len(pcm) && len(waveform) < points; i += step {
		var sum float64
		count := 0
		for j := 0; j < step && (i+j) < len(pcm); j++ {
			val := float64(pcm[i+j])
			sum += val * val
			count++
		}
		rms := math.Sqrt(sum / float64(count))
		waveform = append(waveform, uint8(math.Min((rms/32768.0)*255.0*5.0, 255.0)))
	}
	return waveform
}

var bars = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders waveform amplitudes as block characters.
func Sparkline(wave []byte) string {
	var sb strings.Builder
	for _, v := range wave {
		sb.WriteRune(bars[int(v)*(len(bars)-1)/255])
	}
	return sb.String()
}
