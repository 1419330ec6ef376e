// SPDX-License-Identifier: MIT

// Package envelope implements per-output-position banding of the DP
// rectangle ("envelope"), letting the DP engine run in sub-quadratic
// memory by skipping cells the caller knows can never be reached.
package envelope

import (
	"github.com/wfstlab/wfstcore/wfsterr"
)

// Envelope specifies, for each output index outPos in [0, outLen], the
// half-open range [InStart[outPos], InEnd[outPos]) of active input
// indices. A cell (inPos, outPos) is active iff
// InStart[outPos] <= inPos < InEnd[outPos].
type Envelope struct {
	InStart []int
	InEnd   []int
	InLen   int
	OutLen  int
}

// Full builds the default envelope: the entire inLen x outLen rectangle,
// every column spanning [0, inLen+1) so every input index (including
// inLen itself, the post-consumption boundary) is reachable.
func Full(inLen, outLen int) *Envelope {
	e := &Envelope{
		InStart: make([]int, outLen+1),
		InEnd:   make([]int, outLen+1),
		InLen:   inLen,
		OutLen:  outLen,
	}
	for j := 0; j <= outLen; j++ {
		e.InStart[j] = 0
		e.InEnd[j] = inLen + 1
	}

	return e
}

// SakoeChiba builds a diagonal band of the given radius, in the style of
// the Sakoe-Chiba window classically used to bound dynamic time warping:
// column outPos admits input indices within [outPos-radius, outPos+radius],
// clamped to [0, inLen]. A radius of 0 admits only the exact diagonal; a
// radius >= max(inLen, outLen) degenerates to Full. The half-open upper
// bound is clamped at inLen+1, so index inLen (the post-consumption
// boundary) is admitted in every column whose band reaches it, matching
// Full's convention.
func SakoeChiba(inLen, outLen, radius int) (*Envelope, error) {
	if radius < 0 {
		return nil, wfsterr.Wrap("envelope", "SakoeChiba", wfsterr.ErrBadInput)
	}

	e := &Envelope{
		InStart: make([]int, outLen+1),
		InEnd:   make([]int, outLen+1),
		InLen:   inLen,
		OutLen:  outLen,
	}
	for j := 0; j <= outLen; j++ {
		lo := j - radius
		if lo < 0 {
			lo = 0
		}
		hi := j + radius + 1 // half-open
		if hi > inLen+1 {
			hi = inLen + 1
		}
		e.InStart[j] = lo
		e.InEnd[j] = hi
	}

	if err := e.Validate(); err != nil {
		return nil, wfsterr.Wrap("envelope", "SakoeChiba", err)
	}

	return e, nil
}

// Active reports whether (inPos, outPos) lies inside the band.
func (e *Envelope) Active(inPos, outPos int) bool {
	if outPos < 0 || outPos > e.OutLen {
		return false
	}

	return inPos >= e.InStart[outPos] && inPos < e.InEnd[outPos]
}

// Validate checks the invariants spec.md §3/§9 require:
//
//   - the corner cells (0,0) and (inLen,outLen) are active;
//   - no column is empty (InEnd[j] > InStart[j] for every j) — an empty
//     column can never be well-defined for the inner-loop bound
//     `InEnd[j]-1 downto InStart[j]`, so it is rejected outright rather
//     than treated as a silent no-op (spec.md §9 open question a);
//   - the band is connected along both axes: consecutive columns' ranges
//     overlap or touch, so the DP can reach every active cell without
//     leaving the band.
func (e *Envelope) Validate() error {
	if len(e.InStart) != e.OutLen+1 || len(e.InEnd) != e.OutLen+1 {
		return wfsterr.Wrap("envelope", "Validate", wfsterr.ErrEnvelopeInconsistent)
	}

	for j := 0; j <= e.OutLen; j++ {
		if e.InEnd[j] <= e.InStart[j] {
			return wfsterr.Wrap("envelope", "Validate", wfsterr.ErrEnvelopeInconsistent)
		}
		if e.InStart[j] < 0 || e.InEnd[j] > e.InLen+1 {
			return wfsterr.Wrap("envelope", "Validate", wfsterr.ErrEnvelopeInconsistent)
		}
	}

	if !e.Active(0, 0) {
		return wfsterr.Wrap("envelope", "Validate", wfsterr.ErrEnvelopeInconsistent)
	}
	if !e.Active(e.InLen, e.OutLen) {
		return wfsterr.Wrap("envelope", "Validate", wfsterr.ErrEnvelopeInconsistent)
	}

	for j := 1; j <= e.OutLen; j++ {
		prevStart, prevEnd := e.InStart[j-1], e.InEnd[j-1]
		start, end := e.InStart[j], e.InEnd[j]
		// connected iff the two half-open ranges overlap or touch
		if start > prevEnd || prevStart > end {
			return wfsterr.Wrap("envelope", "Validate", wfsterr.ErrEnvelopeInconsistent)
		}
	}

	return nil
}
