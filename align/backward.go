// SPDX-License-Identifier: MIT

package align

import (
	"math"

	"github.com/wfstlab/wfstcore/dpmatrix"
	"github.com/wfstlab/wfstcore/envelope"
	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/wfsterr"
)

// underflowThreshold bounds the log-ratio below which a posterior
// contribution is treated as zero rather than risking catastrophic
// cancellation (spec.md §4.5).
const underflowThreshold = -40

// BackwardMatrix fills DP cells in decreasing (input, output) order;
// combined with a ForwardMatrix over the same pair it yields posterior
// counts (spec.md §4.5).
type BackwardMatrix struct {
	em        *machine.EvaluatedMachine
	env       *envelope.Envelope
	inTokens  []int
	outTokens []int
	dp        *dpmatrix.Matrix
	onCell    func(inPos, outPos, state int, value float64)
}

// backwardCandidate is one outgoing contribution from a Backward cell.
type backwardCandidate struct {
	nextI, nextJ, nextS int
	trans               machine.EvaluatedTransition
	logVal              float64 // trans.LogWeight + B[nextI,nextJ,nextS]
}

// BackwardOptions configures NewBackward's behavior beyond the required
// arguments.
type BackwardOptions struct {
	// OnCell, if non-nil, is invoked immediately after each cell
	// (inPos,outPos,state) is finalised (see ForwardOptions.OnCell).
	OnCell func(inPos, outPos, state int, value float64)
}

// NewBackward builds and fills a BackwardMatrix for em over the tokenized
// pair, restricted to env (nil means the full rectangle).
func NewBackward(em *machine.EvaluatedMachine, inTokens, outTokens []int, env *envelope.Envelope) (*BackwardMatrix, error) {
	return NewBackwardWithOptions(em, inTokens, outTokens, env, nil)
}

// NewBackwardWithOptions is NewBackward with an optional hook callback.
func NewBackwardWithOptions(em *machine.EvaluatedMachine, inTokens, outTokens []int, env *envelope.Envelope, opts *BackwardOptions) (*BackwardMatrix, error) {
	if env == nil {
		env = envelope.Full(len(inTokens), len(outTokens))
	}
	if env.InLen != len(inTokens) || env.OutLen != len(outTokens) {
		return nil, wfsterr.Wrap("align", "NewBackward", wfsterr.ErrBadInput)
	}
	if err := env.Validate(); err != nil {
		return nil, wfsterr.Wrap("align", "NewBackward", err)
	}

	bm := &BackwardMatrix{
		em:        em,
		env:       env,
		inTokens:  inTokens,
		outTokens: outTokens,
		dp:        dpmatrix.New(env, em.NumStates()),
	}
	bm.dp.Set(env.InLen, env.OutLen, em.Machine.End(), 0)
	if opts != nil {
		bm.onCell = opts.OnCell
	}
	bm.fill()

	return bm, nil
}

// candidates enumerates the (up to) four outgoing-transition groups that
// (i,j,s) feeds forward into: (Δi,Δj) = (1,1), (1,0), (0,1), (0,0).
func (bm *BackwardMatrix) candidates(i, j, s int) []backwardCandidate {
	var cands []backwardCandidate

	if i < bm.env.InLen && j < bm.env.OutLen {
		inTok, outTok := bm.inTokens[i], bm.outTokens[j]
		for _, t := range bm.em.Outgoing(s, inTok, outTok) {
			cands = append(cands, backwardCandidate{i + 1, j + 1, t.Dest, t, t.LogWeight + bm.dp.Get(i+1, j+1, t.Dest)})
		}
	}
	if i < bm.env.InLen {
		inTok := bm.inTokens[i]
		for _, t := range bm.em.Outgoing(s, inTok, 0) {
			cands = append(cands, backwardCandidate{i + 1, j, t.Dest, t, t.LogWeight + bm.dp.Get(i+1, j, t.Dest)})
		}
	}
	if j < bm.env.OutLen {
		outTok := bm.outTokens[j]
		for _, t := range bm.em.Outgoing(s, 0, outTok) {
			cands = append(cands, backwardCandidate{i, j + 1, t.Dest, t, t.LogWeight + bm.dp.Get(i, j+1, t.Dest)})
		}
	}
	for _, t := range bm.em.Outgoing(s, 0, 0) {
		cands = append(cands, backwardCandidate{i, j, t.Dest, t, t.LogWeight + bm.dp.Get(i, j, t.Dest)})
	}

	return cands
}

// fill runs the recurrence in reverse order: outPos descending, inPos
// descending within the envelope, state descending. The advancing
// invariant guarantees every null-transition successor of (i,j,s) has a
// higher state index and is already finalised.
func (bm *BackwardMatrix) fill() {
	end := bm.em.Machine.End()
	for j := bm.env.OutLen; j >= 0; j-- {
		for i := bm.env.InEnd[j] - 1; i >= bm.env.InStart[j]; i-- {
			for s := bm.em.NumStates() - 1; s >= 0; s-- {
				if i == bm.env.InLen && j == bm.env.OutLen && s == end {
					continue // base case B[inLen,outLen,end]=0 is preset, never overwritten
				}

				cands := bm.candidates(i, j, s)
				vs := make([]float64, len(cands))
				for k, c := range cands {
					vs[k] = c.logVal
				}
				val := logSumExp(vs)
				bm.dp.Set(i, j, s, val)
				if bm.onCell != nil {
					bm.onCell(i, j, s, val)
				}
			}
		}
	}
}

// Get returns B[inPos,outPos,state].
func (bm *BackwardMatrix) Get(inPos, outPos, state int) float64 {
	return bm.dp.Get(inPos, outPos, state)
}

// LogLike returns B[0,0,start], equal to Z within floating-point error.
func (bm *BackwardMatrix) LogLike() float64 {
	return bm.dp.Get(0, 0, bm.em.Machine.Start())
}

// Envelope returns the envelope this matrix was built over.
func (bm *BackwardMatrix) Envelope() *envelope.Envelope { return bm.env }

// CountVisitor receives one posterior-weighted (cell, transition) tuple at
// a time. Two concrete visitors live in this package (TransitionCounter,
// TransitionSorter); callers may supply their own (spec.md's "visitor
// polymorphism" design note — a single-method interface rather than a
// class hierarchy).
type CountVisitor interface {
	// Visit receives the source cell (i,j,s), the destination cell
	// (i2,j2,d), the transition taken, and its posterior probability
	// exp(F[i,j,s]+logWeight+B[i2,j2,d]-Z). Posterior values below
	// exp(underflowThreshold) are not delivered at all.
	Visit(i, j, s, i2, j2, d int, trans machine.EvaluatedTransition, posterior float64)
}

// GetCounts walks every active cell and every outgoing transition,
// computing exp(F[i,j,s]+logWeight+B[i2,j2,d]-Z) and delivering it to
// visitor, conditional on the destination cell being active (spec.md
// §4.5, §9 open question b: the visitor receives both cells).
func (bm *BackwardMatrix) GetCounts(fwd *ForwardMatrix, visitor CountVisitor) {
	z := fwd.LogLike()
	if math.IsInf(z, -1) {
		return // unalignable pair: no posterior mass to distribute
	}

	for j := 0; j <= bm.env.OutLen; j++ {
		for i := bm.env.InStart[j]; i < bm.env.InEnd[j]; i++ {
			for s := 0; s < bm.em.NumStates(); s++ {
				fVal := fwd.Get(i, j, s)
				if math.IsInf(fVal, -1) {
					continue
				}

				for _, group := range [][3]int{{1, 1, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 0}} {
					di, dj := group[0], group[1]
					bm.visitGroup(fVal, z, i, j, s, di, dj, visitor)
				}
			}
		}
	}
}

// visitGroup handles one (Δi,Δj) outgoing group from (i,j,s).
func (bm *BackwardMatrix) visitGroup(fVal, z float64, i, j, s, di, dj int, visitor CountVisitor) {
	var inTok, outTok int
	switch {
	case di == 1 && dj == 1:
		if i >= bm.env.InLen || j >= bm.env.OutLen {
			return
		}
		inTok, outTok = bm.inTokens[i], bm.outTokens[j]
	case di == 1:
		if i >= bm.env.InLen {
			return
		}
		inTok, outTok = bm.inTokens[i], 0
	case dj == 1:
		if j >= bm.env.OutLen {
			return
		}
		inTok, outTok = 0, bm.outTokens[j]
	default:
		inTok, outTok = 0, 0
	}

	i2, j2 := i+di, j+dj
	for _, t := range bm.em.Outgoing(s, inTok, outTok) {
		if !bm.env.Active(i2, j2) && !(i2 == i && j2 == j) {
			continue
		}
		bVal := bm.dp.Get(i2, j2, t.Dest)
		logPosterior := fVal + t.LogWeight + bVal - z
		if logPosterior < underflowThreshold {
			continue
		}
		visitor.Visit(i, j, s, i2, j2, t.Dest, t, math.Exp(logPosterior))
	}
}

// TraceFrom splices a best-so-far Forward traceback from start to
// (i,j,s), optionally a named transition, then a Backward "trace forward"
// from the resulting cell to end (spec.md §4.5). term, if non-nil, is
// consulted before each step and aborts the traversal early when it
// returns true.
func (bm *BackwardMatrix) TraceFrom(fwd *ForwardMatrix, i, j, s int, transIndex int, term func(i, j, s int) bool) ([]machine.EvaluatedTransition, error) {
	head, err := bm.bestPathTo(fwd, i, j, s, term)
	if err != nil {
		return nil, wfsterr.Wrap("align", "TraceFrom", err)
	}

	curI, curJ, curS := i, j, s
	if transIndex >= 0 {
		t, ok := bm.em.TransitionByIndex(s, transIndex)
		if !ok {
			return nil, wfsterr.Wrap("align", "TraceFrom", wfsterr.ErrBadInput)
		}
		di, dj := 0, 0
		if t.InTok != 0 {
			di = 1
		}
		if t.OutTok != 0 {
			dj = 1
		}
		head = append(head, t)
		curI, curJ, curS = i+di, j+dj, t.Dest
	}

	tail := bm.bestPathFrom(curI, curJ, curS, term)

	return append(head, tail...), nil
}

// bestPathTo walks the greedy-best Forward predecessor chain from
// (0,0,start) to (i,j,s), stopping early if term fires.
func (bm *BackwardMatrix) bestPathTo(fwd *ForwardMatrix, i, j, s int, term func(i, j, s int) bool) ([]machine.EvaluatedTransition, error) {
	var rev []machine.EvaluatedTransition
	start := bm.em.Machine.Start()

	for !(i == 0 && j == 0 && s == start) {
		if term != nil && term(i, j, s) {
			break
		}

		cands := fwd.candidates(i, j, s)
		if len(cands) == 0 {
			return nil, wfsterr.ErrBadInput
		}

		best := cands[0]
		for _, c := range cands[1:] {
			if c.logVal > best.logVal {
				best = c
			}
		}
		rev = append(rev, best.trans)
		i, j, s = best.prevI, best.prevJ, best.prevS
	}

	for l, r := 0, len(rev)-1; l < r; l, r = l+1, r-1 {
		rev[l], rev[r] = rev[r], rev[l]
	}

	return rev, nil
}

// bestPathFrom walks the greedy-best Backward successor chain from
// (i,j,s) to (inLen,outLen,end), stopping early if term fires.
func (bm *BackwardMatrix) bestPathFrom(i, j, s int, term func(i, j, s int) bool) []machine.EvaluatedTransition {
	var path []machine.EvaluatedTransition
	end := bm.em.Machine.End()

	for !(i == bm.env.InLen && j == bm.env.OutLen && s == end) {
		if term != nil && term(i, j, s) {
			break
		}

		cands := bm.candidates(i, j, s)
		if len(cands) == 0 {
			break
		}

		best := cands[0]
		for _, c := range cands[1:] {
			if c.logVal > best.logVal {
				best = c
			}
		}
		path = append(path, best.trans)
		i, j, s = best.nextI, best.nextJ, best.nextS
	}

	return path
}
