// Package gst holds the statutory GST rate rules: slab snapping and the parsing of
// manually entered (possibly compound) rates.
package gst

import "math"

// Slabs are the legal GST percentages, ascending.
var Slabs = []float64{5, 12, 18, 28}

// Snap maps any percentage onto the nearest legal slab. Non-positive input means the
// rate is unknown and yields 0. Ties go to the lower slab.
func Snap(r float64) float64 {
	if math.IsNaN(r) || r <= 0 {
		return 0
	}
	best := Slabs[0]
	for _, s := range Slabs[1:] {
		if math.Abs(s-r) < math.Abs(best-r) {
			best = s
		}
	}
	if math.IsInf(r, 1) {
		best = Slabs[len(Slabs)-1]
	}
	return best
}

// SnapWithin is Snap with an optional distance cutoff. With tolerance > 0 the second
// result is false when r lies further than tolerance from every slab; the snapped
// value is still returned so callers can decide what to do with it.
func SnapWithin(r, tolerance float64) (float64, bool) {
	s := Snap(r)
	if s == 0 || tolerance <= 0 {
		return s, true
	}
	return s, math.Abs(s-r) <= tolerance
}

// IsSlab reports whether p is one of the legal slabs.
func IsSlab(p float64) bool {
	for _, s := range Slabs {
		if p == s {
			return true
		}
	}
	return false
}
