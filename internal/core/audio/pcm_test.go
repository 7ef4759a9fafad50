package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePCM(t *testing.T) {
	in := []float32{0, 0.5, -0.25, 1, -1}
	got, err := DecodePCM(EncodePCM(in), true)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestDecodePCMLengthChecks(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want error
	}{
		{"nil", nil, ErrEmptyBody},
		{"empty", []byte{}, ErrEmptyBody},
		{"one byte", []byte{0}, ErrInvalidLength},
		{"three bytes", []byte{0, 0, 0}, ErrInvalidLength},
		{"five bytes", []byte{0, 0, 0, 0, 0}, ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePCM(tt.body, true)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodePCMSampleCount(t *testing.T) {
	for n := 1; n <= 64; n++ {
		got, err := DecodePCM(make([]byte, 4*n), false)
		require.NoError(t, err)
		assert.Len(t, got, n)
	}
}

func TestDecodePCMLittleEndian(t *testing.T) {
	// 1.0f is 0x3F800000
	got, err := DecodePCM([]byte{0x00, 0x00, 0x80, 0x3F}, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, got)
}

func TestDecodePCMClamp(t *testing.T) {
	in := []float32{2.5, -3, 0.75, -0.75, 1.0001, float32(math.Inf(1))}

	clamped, err := DecodePCM(EncodePCM(in), true)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -1, 0.75, -0.75, 1, 1}, clamped)

	raw, err := DecodePCM(EncodePCM(in), false)
	require.NoError(t, err)
	assert.Equal(t, in, raw)
}

func TestClampNaN(t *testing.T) {
	assert.True(t, math.IsNaN(float64(Clamp(float32(math.NaN())))))
}
