package transcript

import (
	"fmt"
	"math"
	"strings"
)

// FormatTime renders seconds as HH:MM:SS.mmm.
func FormatTime(seconds float64) string {
	hours := int(math.Floor(seconds / 3600))
	minutes := int(math.Floor(floorMod(seconds, 3600) / 60))
	secs := floorMod(seconds, 60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}

// FormatSRTTime renders seconds as HH:MM:SS,mmm.
func FormatSRTTime(seconds float64) string {
	return strings.Replace(FormatTime(seconds), ".", ",", 1)
}

// floorMod is a modulo whose result takes the sign of the divisor.
func floorMod(x, y float64) float64 {
	m := math.Mod(x, y)
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return m
}
