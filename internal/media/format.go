package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatDuration renders the number of seconds provided as
// H:MM:SS.ss. Negative or non-finite values render as NotAvailable.
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return NotAvailable
	}

	centis := int64(math.Round(seconds * 100))
	hours := centis / 360000
	minutes := (centis % 360000) / 6000
	secs := float64(centis%6000) / 100

	return fmt.Sprintf("%d:%02d:%05.2f", hours, minutes, secs)
}

// FormatResolution renders a width and height as WxH, or NotAvailable
// if either dimension is unknown.
func FormatResolution(width, height int) string {
	if width <= 0 || height <= 0 {
		return NotAvailable
	}

	return fmt.Sprintf("%dx%d", width, height)
}

// ParseRate parses a frame rate as reported by probing tools, which
// may either be a plain number ("25") or a rational ("30000/1001").
func ParseRate(rate string) (float64, bool) {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return 0, false
	}

	if num, den, ok := strings.Cut(rate, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, false
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, false
		}

		v := n / d
		return v, n > 0 && isFinite(v)
	}

	v, err := strconv.ParseFloat(rate, 64)
	if err != nil || v <= 0 || !isFinite(v) {
		return 0, false
	}

	return v, true
}

// ParseNumber parses a numeric string as reported by probing tools,
// returning false if the value is missing, malformed or not finite (JSON
// has no representation for NaN or infinities).
func ParseNumber(value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}

	return v, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IsAvailable returns true if the value provided holds a concrete
// (non-empty, non NotAvailable) value.
func IsAvailable(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != "" && v != NotAvailable
	}

	return true
}

// StringOrNA returns the string provided, or NotAvailable if it is empty.
func StringOrNA(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return NotAvailable
	}

	return s
}

// PositiveOrNA returns the integer provided, or NotAvailable if
// it is not positive.
func PositiveOrNA(v int) any {
	if v <= 0 {
		return NotAvailable
	}

	return v
}
