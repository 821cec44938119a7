package gst

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reRateToken    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	reCompoundMark = regexp.MustCompile(`[,+]`)
)

// Rate is a tax percentage typed by a user, e.g. "18" or "9+9".
type Rate struct {
	Percent    float64
	Components []float64 // nil unless the input was compound
}

// Compound reports whether the rate was entered as several parts.
func (r Rate) Compound() bool { return len(r.Components) > 0 }

// ParseRate reads the tax-percent field as typed. Inputs containing ',' or '+', or
// several whitespace separated numbers, are compound: their parts are summed into
// Percent and kept as Components. A single number is taken literally.
func ParseRate(input string) (Rate, bool) {
	tokens := reRateToken.FindAllString(input, -1)
	if len(tokens) == 0 {
		return Rate{}, false
	}

	parts := make([]float64, 0, len(tokens))
	var sum float64
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Rate{}, false
		}
		parts = append(parts, v)
		sum += v
	}

	compound := len(parts) > 1 && (reCompoundMark.MatchString(input) || len(strings.Fields(input)) > 1)
	if !compound {
		return Rate{Percent: parts[0]}, true
	}
	return Rate{Percent: sum, Components: parts}, true
}
