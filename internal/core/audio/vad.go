package audio

import "math"

const (
	vadFrameMillis = 30
	// frames kept on each side of detected speech so word onsets are not clipped
	vadPadFrames = 10
	// frames quieter than this are treated as non-speech
	vadThresholdDBFS = -45.0
)

// GateSilence returns a copy of samples with non-speech frames zeroed.
// Speech is detected per 30 ms frame by RMS energy. The length and
// timeline of the input are preserved.
func GateSilence(samples []float32, sampleRate int) []float32 {
	frame := sampleRate * vadFrameMillis / 1000
	if frame <= 0 || len(samples) == 0 {
		return samples
	}

	n := (len(samples) + frame - 1) / frame
	keep := make([]bool, n)
	for i := 0; i < n; i++ {
		start, end := frameBounds(i, frame, len(samples))
		if levelDBFS(samples[start:end]) <= vadThresholdDBFS {
			continue
		}
		for j := max(0, i-vadPadFrames); j <= min(n-1, i+vadPadFrames); j++ {
			keep[j] = true
		}
	}

	out := make([]float32, len(samples))
	for i, k := range keep {
		if k {
			start, end := frameBounds(i, frame, len(samples))
			copy(out[start:end], samples[start:end])
		}
	}
	return out
}

func frameBounds(i, frame, total int) (int, int) {
	start := i * frame
	return start, min(start+frame, total)
}

func levelDBFS(frame []float32) float64 {
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
