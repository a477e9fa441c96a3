package codec

import (
	"image"
	"image/color"
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const fftSize = 1024

// GenerateSpectrogram renders mono PCM as a width x height spectrogram image.
// It returns nil when there are fewer than fftSize samples.
func GenerateSpectrogram(pcm []int16, width, height int) image.Image {
	if len(pcm) < fftSize || width <= 0 || height <= 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	step := (len(pcm) - fftSize) / width
	if step == 0 {
		step = 1
	}
	window := make([]float64, fftSize)

	for x := 0; x < width; x++ {
		start := x * step
		if start+fftSize > len(pcm) {
			break
		}
		for i := 0; i < fftSize; i++ {
			window[i] = float64(pcm[start+i])
		}
		coeffs := fft.FFTReal(window)

		for y := 0; y < height; y++ {
			idx := (height - 1 - y) * (fftSize / 2) / height
			c := coeffs[idx]
			mag := math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
			intensity := uint8(math.Min(mag/500, 255))
			img.Set(x, y, color.RGBA{R: intensity / 2, G: intensity, B: intensity / 2, A: 255})
		}
	}
	return img
}

// Mono averages interleaved channels.
func Mono(pcm []int16, channels int) []int16 {
	if channels <= 1 {
		return pcm
	}
	out := make([]int16, len(pcm)/channels)
	for i := range out {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(pcm[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return out
}
