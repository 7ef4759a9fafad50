package audio

import (
	"encoding/binary"
	"math"
)

const (
	// SampleRate is the only rate the engine accepts.
	SampleRate = 16000

	// ExpectedFormat describes the raw PCM wire format.
	ExpectedFormat = "audio/x-f32le;rate=16000;channels=1"

	bytesPerSample = 4
)

// DecodePCM reinterprets body as little-endian float32 mono samples.
// With clamp set, every sample is clipped to [-1, 1].
func DecodePCM(body []byte, clamp bool) ([]float32, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	if len(body)%bytesPerSample != 0 {
		return nil, ErrInvalidLength
	}

	samples := make([]float32, len(body)/bytesPerSample)
	for i := range samples {
		v := math.Float32frombits(binary.LittleEndian.Uint32(body[i*bytesPerSample:]))
		if clamp {
			v = Clamp(v)
		}
		samples[i] = v
	}
	return samples, nil
}

// Clamp clips v to [-1, 1]. NaN is returned unchanged.
func Clamp(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}

// EncodePCM is the inverse of DecodePCM.
func EncodePCM(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*bytesPerSample:], math.Float32bits(v))
	}
	return out
}
