// SPDX-License-Identifier: MIT

// Package dpmatrix provides packed storage for one log-value per
// (input-index, output-index, state) cell within an envelope, following
// the flat-slice, row-major storage style of lvlath's matrix.Dense but
// generalized to a column-banded, three-axis index.
package dpmatrix

import (
	"math"

	"github.com/wfstlab/wfstcore/envelope"
)

// Matrix is flat, envelope-packed storage for log-probability cells.
// Cells are laid out contiguously in column-major order (outPos major,
// inPos minor within each column, state innermost), with a per-column
// offset so inactive cells cost nothing.
//
// Addressing: base + offsets[outPos] + (inPos-InStart[outPos])*nStates + state.
type Matrix struct {
	env      *envelope.Envelope
	nStates  int
	offsets  []int // offsets[outPos] is the flat index of (InStart[outPos], outPos, 0)
	data     []float64
	strict   bool // when true, Get and Set panic on an inactive address (debug mode)
}

// New allocates a Matrix over env with nStates states per cell, every cell
// initialised to -Inf (log of zero probability). env must already have
// passed Validate(); New does not re-validate it.
func New(env *envelope.Envelope, nStates int) *Matrix {
	offsets := make([]int, env.OutLen+1)
	total := 0
	for j := 0; j <= env.OutLen; j++ {
		offsets[j] = total
		width := env.InEnd[j] - env.InStart[j]
		total += width * nStates
	}

	data := make([]float64, total)
	for i := range data {
		data[i] = math.Inf(-1)
	}

	return &Matrix{env: env, nStates: nStates, offsets: offsets, data: data}
}

// WithStrict enables debug-mode bounds checking: Get and Set panic instead
// of returning -Inf or ignoring the write when addressing an inactive cell.
func (m *Matrix) WithStrict(strict bool) *Matrix {
	m.strict = strict

	return m
}

// index computes the flat offset for (inPos, outPos, state), or -1 if the
// cell is inactive.
func (m *Matrix) index(inPos, outPos, state int) int {
	if outPos < 0 || outPos > m.env.OutLen {
		return -1
	}
	if !m.env.Active(inPos, outPos) {
		return -1
	}

	return m.offsets[outPos] + (inPos-m.env.InStart[outPos])*m.nStates + state
}

// Get returns the log-value at (inPos, outPos, state), or -Inf if the
// cell is inactive (accessing an inactive cell is undefined per spec.md
// §4.3; in non-strict mode this degrades to -Inf rather than a crash).
func (m *Matrix) Get(inPos, outPos, state int) float64 {
	idx := m.index(inPos, outPos, state)
	if idx < 0 {
		if m.strict {
			panic("dpmatrix: access to inactive cell")
		}
		return math.Inf(-1)
	}

	return m.data[idx]
}

// Set writes v at (inPos, outPos, state). Writing an inactive cell is a
// no-op in non-strict mode and a panic in strict (debug) mode.
func (m *Matrix) Set(inPos, outPos, state int, v float64) {
	idx := m.index(inPos, outPos, state)
	if idx < 0 {
		if m.strict {
			panic("dpmatrix: write to inactive cell")
		}
		return
	}
	m.data[idx] = v
}

// Envelope returns the envelope this matrix was built over.
func (m *Matrix) Envelope() *envelope.Envelope { return m.env }

// NStates returns the number of states per cell.
func (m *Matrix) NStates() int { return m.nStates }

// Len returns the total number of allocated cells.
func (m *Matrix) Len() int { return len(m.data) }
