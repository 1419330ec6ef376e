// SPDX-License-Identifier: MIT

// Package softplus provides an integer-quantised log-space arithmetic
// helper (spec.md §4.8): values are fixed-point integers with step 1e-4
// up to a cap of 10 log-units, backed by a precomputed table of softplus
// on non-positive inputs, so log-sum-exp becomes one table lookup plus an
// integer addition.
//
// This is an alternative implementation, not an alternative semantics
// (spec.md §9): it is offered for deployments where bit-for-bit
// reproducibility across platforms matters more than the 1e-4 precision
// it costs. The float path in package align is normative.
package softplus

import "math"

// Step is the fixed-point quantisation step, in log-units.
const Step = 1e-4

// Cap is the largest |difference| the precomputed table covers, in
// log-units. Differences beyond Cap contribute a negligible correction
// and are treated as zero.
const Cap = 10.0

// NegInf is the quantised sentinel for log(0). It is chosen far below any
// value reachable by repeated LogAdd so it always loses a max comparison.
const NegInf = math.MinInt32 / 2

var table []int32

func init() {
	n := int(Cap/Step) + 1
	table = make([]int32, n)
	for i := 0; i < n; i++ {
		x := -float64(i) * Step // x ranges over [-Cap, 0]
		table[i] = Quantize(math.Log1p(math.Exp(x)))
	}
}

// Quantize converts a float64 log-value to its fixed-point representation.
func Quantize(v float64) int32 {
	if math.IsInf(v, -1) {
		return NegInf
	}

	return int32(math.Round(v / Step))
}

// Dequantize converts a fixed-point value back to float64.
func Dequantize(q int32) float64 {
	if q <= NegInf {
		return math.Inf(-1)
	}

	return float64(q) * Step
}

// LogAdd computes the quantised equivalent of log(exp(a)+exp(b)) via a
// single table lookup: max + softplus(min-max).
func LogAdd(a, b int32) int32 {
	if a == NegInf {
		return b
	}
	if b == NegInf {
		return a
	}

	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}

	diff := hi - lo // >= 0, in Step units
	if int(diff) >= len(table) {
		return hi // correction beyond Cap is negligible
	}

	return hi + table[diff]
}
