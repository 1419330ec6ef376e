// SPDX-License-Identifier: MIT

// Package align implements the Forward and Backward dynamic-programming
// matrices over a transducer and a tokenized sequence pair: log-space
// accumulation, stochastic path sampling, best-path traceback, and the
// posterior-count visitor protocol.
package align

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// logSumExp reduces vs via gonum's LogSumExp, the inner-loop workhorse for
// combining an arbitrary number of incoming-transition contributions into
// one cell value. An empty slice is -Inf (log of zero probability).
func logSumExp(vs []float64) float64 {
	if len(vs) == 0 {
		return math.Inf(-1)
	}
	if len(vs) == 1 {
		return vs[0]
	}

	return floats.LogSumExp(vs)
}
