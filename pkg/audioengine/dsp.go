package audioengine

// ApplyQuickGain scales samples in place, clipping at the int16 range.
func ApplyQuickGain(samples []int16, factor float64) {
	for i := range samples {
		val := float64(samples[i]) * factor
		if val > 32767 {
			val = 32767
		} else if val < -32768 {
			val = -32768
		}
		samples[i] = int16(val)
	}
}

// PeakGain is the factor that brings the loudest sample to target (0..1 of full scale).
// Silence yields 1.
func PeakGain(samples []int16, target float64) float64 {
	var peak int
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return 1
	}
	return target * 32767 / float64(peak)
}
