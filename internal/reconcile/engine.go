// Package reconcile turns an untrusted extraction candidate into a self-consistent
// invoice record. Every step is an ordered list of small named rules so each can be
// tested on its own; the engine never fails.
package reconcile

import (
	"math"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
	"github.com/joseph-ayodele/gst-bills/internal/gst"
	"github.com/joseph-ayodele/gst-bills/internal/llm"
)

// Deviation thresholds, in rupees, between the reconciled and the observed amounts.
const (
	LowConfidenceDeviation    = 10
	MediumConfidenceDeviation = 4
)

// Engine reconciles candidates. The zero value snaps every positive rate to a slab.
type Engine struct {
	// SnapTolerance, when > 0, leaves a rate further than this many points from every
	// slab unresolved (0) and flags the record for manual entry instead of forcing it
	// onto a slab. The stated amounts are kept as they are.
	SnapTolerance float64
}

// Result is a reconciled record plus how it was reached.
type Result struct {
	Record entity.InvoiceRecord
	// NeedsManualEntry is set when the amounts could not be completed without guessing.
	NeedsManualEntry bool
	// Applied lists the rules that changed the record, in order.
	Applied []string
	// Deviation is the largest absolute change made to an amount the candidate supplied.
	Deviation float64
}

// observed holds the coerced amounts exactly as the candidate stated them.
type observed struct {
	amount, tax, total float64
}

func (o observed) onlyTotal() bool  { return o.amount == 0 && o.tax == 0 && o.total > 0 }
func (o observed) onlyAmount() bool { return o.amount > 0 && o.tax == 0 && o.total == 0 }

type state struct {
	rec     entity.InvoiceRecord
	obs     observed
	hint    float64
	tol     float64
	offSlab bool
	manual  bool
	applied []string
}

type rule struct {
	name    string
	applies func(*state) bool
	apply   func(*state)
}

// Reconcile runs coercion, percent resolution, the amount cascade, corrections and the
// confidence policies over c. rawPercentHint is the explicit "GST @ N%" figure found
// locally in the source text, 0 when none.
func (e Engine) Reconcile(c llm.Candidate, rawPercentHint float64) Result {
	s := &state{
		rec:  coerce(c),
		hint: rawPercentHint,
		tol:  e.SnapTolerance,
	}
	s.obs = observed{amount: s.rec.Amount, tax: s.rec.TaxAmount, total: s.rec.TotalAmount}

	s.rec.TaxPercent = resolvePercent(s)

	for _, r := range cascade {
		if r.applies(s) {
			r.apply(s)
			s.applied = append(s.applied, r.name)
			break
		}
	}
	runAll(s, corrections)
	runAll(s, policies)

	return Result{
		Record:           s.rec,
		NeedsManualEntry: s.manual,
		Applied:          s.applied,
		Deviation:        deviation(s),
	}
}

func runAll(s *state, rules []rule) {
	for _, r := range rules {
		if r.applies(s) {
			r.apply(s)
			s.applied = append(s.applied, r.name)
		}
	}
}

// snap maps r onto a slab, honouring the engine tolerance.
func (s *state) snap(r float64) float64 {
	if s.tol <= 0 {
		return gst.Snap(r)
	}
	p, ok := gst.SnapWithin(r, s.tol)
	if !ok {
		s.offSlab = true
		return 0
	}
	return p
}

func (s *state) lower(to constants.Confidence) {
	s.rec.ExtractionConfidence = s.rec.ExtractionConfidence.Cap(to)
}

// settle makes the total follow amount and tax exactly.
func (s *state) settle() {
	s.rec.TotalAmount = s.rec.Amount + s.rec.TaxAmount
}

// deviation is the largest |final - observed| over the amounts the candidate supplied.
// When all three were supplied it equals the candidate's own |amount + tax - total|
// for every rule that keeps amount fixed.
func deviation(s *state) float64 {
	var d float64
	pairs := [][2]float64{
		{s.obs.amount, s.rec.Amount},
		{s.obs.tax, s.rec.TaxAmount},
		{s.obs.total, s.rec.TotalAmount},
	}
	for _, p := range pairs {
		if p[0] > 0 {
			d = math.Max(d, math.Abs(p[1]-p[0]))
		}
	}
	return d
}
