package render

import (
	"fmt"
	"math"
)

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
)

// VTTTimestamp formats seconds as HH:MM:SS.mmm.
func VTTTimestamp(seconds float64) string {
	return clock(seconds, '.')
}

// SRTTimestamp formats seconds as HH:MM:SS,mmm.
func SRTTimestamp(seconds float64) string {
	return clock(seconds, ',')
}

// clock rounds to the nearest millisecond (half-up) and splits the result.
// Hours are not wrapped at 24.
func clock(seconds float64, sep byte) string {
	ms := int64(math.Floor(seconds*msPerSecond + 0.5))
	if ms < 0 {
		ms = 0
	}

	hours := ms / msPerHour
	ms -= hours * msPerHour
	minutes := ms / msPerMinute
	ms -= minutes * msPerMinute
	secs := ms / msPerSecond
	ms -= secs * msPerSecond

	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, ms)
}
