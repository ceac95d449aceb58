package timefmt

import (
	"fmt"
	"math"
	"strings"
)

// RGB is a color for report bars and labels.
type RGB struct {
	R, G, B uint8
}

// Neutral marks "no data", distinct from zero progress (red).
var Neutral = RGB{0xe0, 0xe0, 0xe0}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// FormatDuration renders hours in Jira's "2h 30m" notation. Zero length is
// rendered as "1m" so a submission is never empty.
func FormatDuration(hours float64) string {
	whole := math.Floor(hours)
	minutes := math.Round((hours - whole) * 60)
	if minutes == 60 {
		whole++
		minutes = 0
	}

	var parts []string
	if whole > 0 {
		parts = append(parts, fmt.Sprintf("%dh", int(whole)))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", int(minutes)))
	}
	if len(parts) == 0 {
		return "1m"
	}
	return strings.Join(parts, " ")
}

// ColorForFraction maps value/max onto a red -> yellow -> green gradient.
// Exactly zero returns Neutral.
func ColorForFraction(value, max float64) RGB {
	if value == 0 {
		return Neutral
	}
	ratio := 1.0
	if max > 0 {
		ratio = math.Min(math.Max(value/max, 0), 1)
	}

	if ratio <= 0.5 {
		return RGB{R: 255, G: uint8(math.Round(255 * ratio * 2))}
	}
	return RGB{R: uint8(math.Round(255 * (1 - (ratio-0.5)*2))), G: 255}
}

// FormatHours renders hours with two decimals.
func FormatHours(h float64) string {
	return fmt.Sprintf("%.2f", h)
}

// FormatVariance renders the difference to the expected hours as "+1.5h" or
// "-2.0h"; days with nothing logged or exactly on target render as "".
func FormatVariance(hours, expected float64) string {
	switch {
	case hours > expected:
		return fmt.Sprintf("+%.1fh", hours-expected)
	case hours > 0 && hours < expected:
		return fmt.Sprintf("-%.1fh", expected-hours)
	}
	return ""
}
