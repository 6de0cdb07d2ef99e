// Package util contains misc internal utilities.
package util

import (
	"math"
	"strings"
	"time"
	"unicode"
)

// AllElementsNumbers returns true if s is not empty and every rune is a
// digit or a decimal point
func AllElementsNumbers(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}

// ParseDuration is time.ParseDuration that reads bare numbers as seconds,
// "0.025" is the same as "25ms"
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if AllElementsNumbers(s) {
		s += "s"
	}
	return time.ParseDuration(s)
}

// SecsToDuration converts a floating point number of seconds to a duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * float64(time.Second)))
}

// Clamp limits v to [low, high]
func Clamp[T int | float64](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
