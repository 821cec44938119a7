package constants

import "strings"

// Confidence is the qualitative grade attached to an extracted record.
type Confidence string

// Stable values (store these exact strings in DB).
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// ParseConfidence normalises a declared grade; unknown or empty values yield medium.
func ParseConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// Cap returns the lower of c and limit. Grades only ever move down.
func (c Confidence) Cap(limit Confidence) Confidence {
	if limit.rank() < c.rank() {
		return limit
	}
	return c
}
