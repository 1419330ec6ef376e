// SPDX-License-Identifier: MIT

package align

import (
	"math"
	"math/rand"

	"github.com/wfstlab/wfstcore/dpmatrix"
	"github.com/wfstlab/wfstcore/envelope"
	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/wfsterr"
)

// ForwardMatrix fills DP cells in increasing (input, output) order using
// log-sum-exp accumulation (spec.md §4.4).
type ForwardMatrix struct {
	em        *machine.EvaluatedMachine
	env       *envelope.Envelope
	inTokens  []int
	outTokens []int
	dp        *dpmatrix.Matrix
	onCell    func(inPos, outPos, state int, value float64)
}

// forwardCandidate is one incoming contribution to a Forward cell.
type forwardCandidate struct {
	prevI, prevJ, prevS int
	trans               machine.EvaluatedTransition
	logVal              float64 // F[prevI,prevJ,prevS] + trans.LogWeight
}

// ForwardOptions configures NewForward's behavior beyond the required
// arguments.
type ForwardOptions struct {
	// OnCell, if non-nil, is invoked immediately after each cell
	// (inPos,outPos,state) is computed by the recurrence, mirroring the
	// teacher's OnEnqueue/OnVisit hook convention in place of a logging
	// dependency. The preset base cell is not reported.
	OnCell func(inPos, outPos, state int, value float64)
}

// NewForward builds and fills a ForwardMatrix for em over the tokenized
// pair (inTokens, outTokens), restricted to env. If env is nil, the full
// rectangle is used (spec.md §3's default envelope).
func NewForward(em *machine.EvaluatedMachine, inTokens, outTokens []int, env *envelope.Envelope) (*ForwardMatrix, error) {
	return NewForwardWithOptions(em, inTokens, outTokens, env, nil)
}

// NewForwardWithOptions is NewForward with an optional hook callback.
func NewForwardWithOptions(em *machine.EvaluatedMachine, inTokens, outTokens []int, env *envelope.Envelope, opts *ForwardOptions) (*ForwardMatrix, error) {
	if env == nil {
		env = envelope.Full(len(inTokens), len(outTokens))
	}
	if env.InLen != len(inTokens) || env.OutLen != len(outTokens) {
		return nil, wfsterr.Wrap("align", "NewForward", wfsterr.ErrBadInput)
	}
	if err := env.Validate(); err != nil {
		return nil, wfsterr.Wrap("align", "NewForward", err)
	}

	fm := &ForwardMatrix{
		em:        em,
		env:       env,
		inTokens:  inTokens,
		outTokens: outTokens,
		dp:        dpmatrix.New(env, em.NumStates()),
	}
	fm.dp.Set(0, 0, em.Machine.Start(), 0)
	if opts != nil {
		fm.onCell = opts.OnCell
	}
	fm.fill()

	return fm, nil
}

// candidates enumerates the (up to) four incoming-transition groups that
// feed cell (i,j,s): (Δi,Δj) = (1,1), (1,0), (0,1), (0,0), per spec.md
// §4.4's inner-loop structure.
func (fm *ForwardMatrix) candidates(i, j, s int) []forwardCandidate {
	var cands []forwardCandidate

	if i > 0 && j > 0 {
		inTok, outTok := fm.inTokens[i-1], fm.outTokens[j-1]
		for _, t := range fm.em.Incoming(s, inTok, outTok) {
			cands = append(cands, forwardCandidate{i - 1, j - 1, t.Src, t, fm.dp.Get(i-1, j-1, t.Src) + t.LogWeight})
		}
	}
	if i > 0 {
		inTok := fm.inTokens[i-1]
		for _, t := range fm.em.Incoming(s, inTok, 0) {
			cands = append(cands, forwardCandidate{i - 1, j, t.Src, t, fm.dp.Get(i-1, j, t.Src) + t.LogWeight})
		}
	}
	if j > 0 {
		outTok := fm.outTokens[j-1]
		for _, t := range fm.em.Incoming(s, 0, outTok) {
			cands = append(cands, forwardCandidate{i, j - 1, t.Src, t, fm.dp.Get(i, j-1, t.Src) + t.LogWeight})
		}
	}
	for _, t := range fm.em.Incoming(s, 0, 0) {
		cands = append(cands, forwardCandidate{i, j, t.Src, t, fm.dp.Get(i, j, t.Src) + t.LogWeight})
	}

	return cands
}

// fill runs the recurrence in the iteration order spec.md §4.4 mandates:
// outPos ascending, inPos ascending within the envelope, state ascending.
// The advancing invariant guarantees every null-transition predecessor of
// (i,j,s) has a lower state index and is already finalised.
func (fm *ForwardMatrix) fill() {
	start := fm.em.Machine.Start()
	for j := 0; j <= fm.env.OutLen; j++ {
		for i := fm.env.InStart[j]; i < fm.env.InEnd[j]; i++ {
			for s := 0; s < fm.em.NumStates(); s++ {
				if i == 0 && j == 0 && s == start {
					continue // base case F[0,0,start]=0 is preset, never overwritten
				}

				cands := fm.candidates(i, j, s)
				vs := make([]float64, len(cands))
				for k, c := range cands {
					vs[k] = c.logVal
				}
				val := logSumExp(vs)
				fm.dp.Set(i, j, s, val)
				if fm.onCell != nil {
					fm.onCell(i, j, s, val)
				}
			}
		}
	}
}

// Get returns F[inPos,outPos,state].
func (fm *ForwardMatrix) Get(inPos, outPos, state int) float64 {
	return fm.dp.Get(inPos, outPos, state)
}

// LogLike returns F[inLen,outLen,end]. -Inf means the pair is unalignable;
// that is not an error at this layer (spec.md §7) — callers decide.
func (fm *ForwardMatrix) LogLike() float64 {
	return fm.dp.Get(fm.env.InLen, fm.env.OutLen, fm.em.Machine.End())
}

// Matrix exposes the underlying packed storage for read-only access.
func (fm *ForwardMatrix) Matrix() *dpmatrix.Matrix { return fm.dp }

// Envelope returns the envelope this matrix was built over.
func (fm *ForwardMatrix) Envelope() *envelope.Envelope { return fm.env }

// EvaluatedMachine returns the machine this matrix was built over.
func (fm *ForwardMatrix) EvaluatedMachine() *machine.EvaluatedMachine { return fm.em }

// SamplePath performs a stochastic traceback from (inLen,outLen,end) back
// to (0,0,start), choosing at each step an incoming transition with
// probability proportional to exp(F[prev]+logWeight-F[cur]) (spec.md
// §4.4). The returned path is in forward order (start to end). prng must
// be non-nil; determinism is entirely the caller's responsibility via the
// supplied source (mirrors lvlath/builder's caller-supplied *rand.Rand
// convention).
func (fm *ForwardMatrix) SamplePath(prng *rand.Rand) ([]machine.EvaluatedTransition, error) {
	i, j, s := fm.env.InLen, fm.env.OutLen, fm.em.Machine.End()
	start := fm.em.Machine.Start()

	var path []machine.EvaluatedTransition
	for !(i == 0 && j == 0 && s == start) {
		cands := fm.candidates(i, j, s)
		if len(cands) == 0 {
			return nil, wfsterr.Wrap("align", "SamplePath", wfsterr.ErrBadInput)
		}

		cur := fm.dp.Get(i, j, s)
		weights := make([]float64, len(cands))
		total := 0.0
		for k, c := range cands {
			w := math.Exp(c.logVal - cur)
			weights[k] = w
			total += w
		}

		r := prng.Float64() * total
		acc := 0.0
		chosen := len(cands) - 1
		for k, w := range weights {
			acc += w
			if r <= acc {
				chosen = k
				break
			}
		}

		c := cands[chosen]
		path = append(path, c.trans)
		i, j, s = c.prevI, c.prevJ, c.prevS
	}

	// reverse into start->end order
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}

	return path, nil
}
