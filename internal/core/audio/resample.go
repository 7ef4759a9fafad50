package audio

// Resample converts samples between rates by linear interpolation between
// the two nearest source samples.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 || len(samples) == 0 {
		return samples
	}

	step := float64(srcRate) / float64(dstRate)
	out := make([]float32, int(float64(len(samples))/step))
	last := len(samples) - 1

	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		t := float32(pos - float64(j))
		out[i] = samples[j] + (samples[j+1]-samples[j])*t
	}
	return out
}
