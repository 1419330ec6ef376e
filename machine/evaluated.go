// SPDX-License-Identifier: MIT

package machine

import (
	"math"

	"github.com/wfstlab/wfstcore/expr"
	"github.com/wfstlab/wfstcore/wfsterr"
)

// EvaluatedTransition is a Transition with its symbolic Weight collapsed
// into a log-weight under one Params assignment.
type EvaluatedTransition struct {
	Src        int
	Dest       int
	InTok      int
	OutTok     int
	LogWeight  float64
	TransIndex int
}

// ioKey packs (inTok, outTok) for the per-state lookup maps.
type ioKey struct{ in, out int }

// EvaluatedMachine is a Machine whose transitions carry a precomputed
// log-weight, additionally indexed by (inTok, outTok) for O(1) lookup in
// the DP inner loop (§4.2).
type EvaluatedMachine struct {
	Machine *Machine

	// outgoing[s][{in,out}] -> transitions from s consuming (in,out).
	outgoing []map[ioKey][]EvaluatedTransition
	// incoming[s][{in,out}] -> transitions into s consuming (in,out).
	incoming []map[ioKey][]EvaluatedTransition
	// nTransitions[s] is the total outgoing transition count of state s.
	nTransitions []int
	// byIndex[s][transIndex] -> the evaluated transition at that slot.
	byIndex [][]EvaluatedTransition
}

// NewEvaluated validates m (advancing, aligning) and evaluates every
// transition's weight under params, collapsing it to a log-weight.
// log(0) yields -Inf; the inner loop tolerates this without producing NaN.
func NewEvaluated(m *Machine, params Params) (*EvaluatedMachine, error) {
	if err := m.Validate(); err != nil {
		return nil, wfsterr.Wrap("machine", "NewEvaluated", err)
	}

	n := m.NumStates()
	em := &EvaluatedMachine{
		Machine:      m,
		outgoing:     make([]map[ioKey][]EvaluatedTransition, n),
		incoming:     make([]map[ioKey][]EvaluatedTransition, n),
		nTransitions: make([]int, n),
		byIndex:      make([][]EvaluatedTransition, n),
	}
	for s := 0; s < n; s++ {
		em.outgoing[s] = make(map[ioKey][]EvaluatedTransition)
		em.incoming[s] = make(map[ioKey][]EvaluatedTransition)
	}

	bindings := expr.Bindings(params)
	for s, trs := range m.Outgoing {
		em.nTransitions[s] = len(trs)
		em.byIndex[s] = make([]EvaluatedTransition, len(trs))
		for _, t := range trs {
			w, err := t.Weight.Eval(bindings)
			if err != nil {
				return nil, wfsterr.Wrap("machine", "NewEvaluated", err)
			}

			var logWeight float64
			if w <= 0 {
				logWeight = math.Inf(-1)
			} else {
				logWeight = math.Log(w)
			}

			et := EvaluatedTransition{
				Src:        t.Src,
				Dest:       t.Dest,
				InTok:      t.InTok,
				OutTok:     t.OutTok,
				LogWeight:  logWeight,
				TransIndex: t.TransIndex,
			}

			key := ioKey{t.InTok, t.OutTok}
			em.outgoing[s][key] = append(em.outgoing[s][key], et)
			em.incoming[t.Dest][key] = append(em.incoming[t.Dest][key], et)
			em.byIndex[s][t.TransIndex] = et
		}
	}

	return em, nil
}

// Outgoing returns the transitions from state s consuming (inTok, outTok).
func (em *EvaluatedMachine) Outgoing(s, inTok, outTok int) []EvaluatedTransition {
	return em.outgoing[s][ioKey{inTok, outTok}]
}

// Incoming returns the transitions into state s consuming (inTok, outTok).
func (em *EvaluatedMachine) Incoming(s, inTok, outTok int) []EvaluatedTransition {
	return em.incoming[s][ioKey{inTok, outTok}]
}

// NTransitions returns the total outgoing transition count of state s.
func (em *EvaluatedMachine) NTransitions(s int) int {
	return em.nTransitions[s]
}

// NumStates returns the number of states.
func (em *EvaluatedMachine) NumStates() int {
	return em.Machine.NumStates()
}

// TransitionByIndex returns the evaluated transition at slot transIndex
// within state s's outgoing list.
func (em *EvaluatedMachine) TransitionByIndex(s, transIndex int) (EvaluatedTransition, bool) {
	if s < 0 || s >= len(em.byIndex) || transIndex < 0 || transIndex >= len(em.byIndex[s]) {
		return EvaluatedTransition{}, false
	}

	return em.byIndex[s][transIndex], true
}

// OutgoingAll returns every outgoing transition from state s, in
// TransIndex order.
func (em *EvaluatedMachine) OutgoingAll(s int) []EvaluatedTransition {
	return em.byIndex[s]
}

// IncomingAll returns every transition into state s, across all
// (inTok,outTok) keys. Order is not meaningful.
func (em *EvaluatedMachine) IncomingAll(s int) []EvaluatedTransition {
	var out []EvaluatedTransition
	for _, trs := range em.incoming[s] {
		out = append(out, trs...)
	}

	return out
}
