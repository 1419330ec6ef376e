// SPDX-License-Identifier: MIT

// Package wfsterr defines the sentinel error taxonomy shared by every
// package in wfstcore.
//
// Error policy (mirrors lvlath's convention):
//   - Only sentinel variables (package-level) are exposed.
//   - Callers MUST use errors.Is(err, ErrX) to branch on semantics.
//   - Sentinels are NEVER wrapped with formatted strings at definition site.
//   - Call sites attach context with Wrap(pkg, op, err), never by
//     restating the sentinel text.
package wfsterr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSymbol indicates a sequence contains a symbol absent from
	// the tokenizer's alphabet.
	ErrUnknownSymbol = errors.New("wfstcore: unknown symbol")

	// ErrNotAdvancing indicates a machine has an epsilon/epsilon transition
	// from a higher-indexed state to a lower-or-equal-indexed one, which
	// could loop forever in the null-transition closure.
	ErrNotAdvancing = errors.New("wfstcore: machine is not advancing (null-transition cycle)")

	// ErrNotAligning indicates a state has two outgoing transitions sharing
	// the same (inTok, outTok) pair, making the alignment ambiguous.
	ErrNotAligning = errors.New("wfstcore: machine is not aligning (duplicate in/out pair)")

	// ErrEnvelopeInconsistent indicates an envelope fails the
	// corner/connectivity invariants, or contains an empty column.
	ErrEnvelopeInconsistent = errors.New("wfstcore: envelope is inconsistent")

	// ErrOptimiserStalled indicates the BFGS search produced no result at
	// all. A search that stops early but yields an iterate is not an
	// error: it is reported through objective.Result.Stalled together
	// with the best iterate seen.
	ErrOptimiserStalled = errors.New("wfstcore: optimiser stalled")

	// ErrNumericDomain indicates a fatal numeric-domain violation (log of
	// a non-positive value, sqrt of a negative value, etc).
	ErrNumericDomain = errors.New("wfstcore: numeric domain error")

	// ErrStructuralMismatch indicates two MachineCounts accumulators do
	// not share the same machine shape and cannot be summed.
	ErrStructuralMismatch = errors.New("wfstcore: structural mismatch")

	// ErrBadInput indicates a caller-supplied argument combination is
	// invalid independent of any specific sentinel above.
	ErrBadInput = errors.New("wfstcore: invalid input")
)

// Wrap attaches "<pkg>.<op>: " context to err via %w, preserving errors.Is
// compatibility with the wrapped sentinel.
func Wrap(pkg, op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s.%s: %w", pkg, op, err)
}
