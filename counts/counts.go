// SPDX-License-Identifier: MIT

// Package counts implements MachineCounts: the accumulator of expected
// transition usage counts over one or more sequence pairs (spec.md §4.6),
// the E-step half of one EM iteration.
package counts

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/wfstlab/wfstcore/align"
	"github.com/wfstlab/wfstcore/envelope"
	"github.com/wfstlab/wfstcore/expr"
	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/wfsterr"
)

// SeqPair is a tokenized (input, output) sequence pair, and an optional
// envelope restricting which cells are active (nil means the full
// rectangle).
type SeqPair struct {
	InTokens  []int
	OutTokens []int
	Env       *envelope.Envelope
}

// MachineCounts is a dense 2-D ragged array count[state][transIndex] of
// expected transition usage, plus an accumulated log-likelihood scalar
// (spec.md §3).
type MachineCounts struct {
	Count   [][]float64
	LogLike float64

	shape []int // shape[s] = number of outgoing transitions of state s, for += validation
}

// Init returns a zero-filled MachineCounts shaped like m's transition
// table.
func Init(m *machine.Machine) *MachineCounts {
	shape := make([]int, m.NumStates())
	count := make([][]float64, m.NumStates())
	for s := range m.Outgoing {
		shape[s] = len(m.Outgoing[s])
		count[s] = make([]float64, shape[s])
	}

	return &MachineCounts{Count: count, shape: shape}
}

// Add builds Forward+Backward for one sequence pair, invokes GetCounts
// with a TransitionCounter, accumulates transition expectations and
// loglike += F.LogLike(). It returns the pair's log-likelihood.
func (mc *MachineCounts) Add(em *machine.EvaluatedMachine, pair SeqPair) (float64, error) {
	fwd, err := align.NewForward(em, pair.InTokens, pair.OutTokens, pair.Env)
	if err != nil {
		return 0, wfsterr.Wrap("counts", "Add", err)
	}
	bwd, err := align.NewBackward(em, pair.InTokens, pair.OutTokens, pair.Env)
	if err != nil {
		return 0, wfsterr.Wrap("counts", "Add", err)
	}

	ll := fwd.LogLike()
	if !math.IsInf(ll, -1) {
		counter := &align.TransitionCounter{Count: mc.Count}
		bwd.GetCounts(fwd, counter)
	}

	mc.LogLike += ll

	return ll, nil
}

// AddAll fans independent pairs out across a bounded worker pool
// (spec.md §5: "independent sequence pairs ... may be processed in
// parallel threads, and results combined with operator+=, which is the
// only defined merge point"). Each worker accumulates into its own
// MachineCounts, shaped via Init(m's underlying machine is taken from
// em.Machine), then merges with +=. workers<=0 means one worker
// (sequential); errgroup.SetLimit(-1) semantics are avoided in favor of an
// explicit, deterministic cap.
func AddAll(ctx context.Context, em *machine.EvaluatedMachine, pairs []SeqPair, workers int) (*MachineCounts, error) {
	if workers <= 0 {
		workers = 1
	}

	total := Init(em.Machine)
	partials := make([]*MachineCounts, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for idx, pair := range pairs {
		idx, pair := idx, pair
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			mc := Init(em.Machine)
			if _, err := mc.Add(em, pair); err != nil {
				return err
			}
			partials[idx] = mc

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, wfsterr.Wrap("counts", "AddAll", err)
	}

	for _, p := range partials {
		if err := total.Merge(p); err != nil {
			return nil, wfsterr.Wrap("counts", "AddAll", err)
		}
	}

	return total, nil
}

// Merge implements the "+=" element-wise summation spec.md §4.6 names,
// structurally validated against other's shape.
func (mc *MachineCounts) Merge(other *MachineCounts) error {
	if len(mc.Count) != len(other.Count) {
		return wfsterr.Wrap("counts", "Merge", wfsterr.ErrStructuralMismatch)
	}
	for s := range mc.Count {
		if len(mc.Count[s]) != len(other.Count[s]) {
			return wfsterr.Wrap("counts", "Merge", wfsterr.ErrStructuralMismatch)
		}
		for t := range mc.Count[s] {
			mc.Count[s][t] += other.Count[s][t]
		}
	}
	mc.LogLike += other.LogLike

	return nil
}

// ParamCounts computes, for each transition and each parameter p
// appearing in its symbolic weight, count[s][t] * (dw/dp)(p*) * p* / w(p*)
// — the dE[logL]/d(log p) term gradient-based re-estimation needs for
// arbitrary symbolic weights (spec.md §4.6).
func (mc *MachineCounts) ParamCounts(m *machine.Machine, assign machine.Params) (map[string]float64, error) {
	out := make(map[string]float64)
	bindings := expr.Bindings(assign)

	for s, trs := range m.Outgoing {
		for _, t := range trs {
			w, err := t.Weight.Eval(bindings)
			if err != nil {
				return nil, wfsterr.Wrap("counts", "ParamCounts", err)
			}
			if w == 0 {
				continue
			}

			c := mc.Count[s][t.TransIndex]
			if c == 0 {
				continue
			}

			for _, p := range t.Weight.Params() {
				pStar, ok := assign[p]
				if !ok {
					continue
				}
				deriv, err := t.Weight.Deriv(p).Eval(bindings)
				if err != nil {
					return nil, wfsterr.Wrap("counts", "ParamCounts", err)
				}

				out[p] += c * deriv * pStar / w
			}
		}
	}

	return out, nil
}
