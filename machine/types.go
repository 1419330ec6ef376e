// SPDX-License-Identifier: MIT

// Package machine defines the transducer data model (State, Transition,
// Machine) and its parameter/constraint types, plus the structural
// validation (advancing, aligning) and log-weight evaluation
// (EvaluatedMachine) the DP engine in package align consumes.
//
// A Machine is immutable once built; EvaluatedMachine is derived and
// read-only for the lifetime of any DPMatrix built from it.
package machine

import (
	"github.com/wfstlab/wfstcore/expr"
	"github.com/wfstlab/wfstcore/token"
)

// State is a dense index in [0, N). Index 0 is the start state; index N-1
// is the unique end state. Name is an opaque caller label, not used by the
// DP engine.
type State struct {
	Name interface{}
}

// Transition is a directed edge (Src, Dest, InTok, OutTok, Weight).
// TransIndex is this transition's stable position within Src's outgoing
// list.
type Transition struct {
	Src        int
	Dest       int
	InTok      int // token.Epsilon means epsilon-input
	OutTok     int // token.Epsilon means epsilon-output
	Weight     *expr.Expr
	TransIndex int
}

// Params is a fully-numerical parameter assignment.
type Params map[string]float64

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// ParamDefs maps a parameter name to either a numeric value (as a literal
// expr.Expr) or a symbolic expression over other parameters.
type ParamDefs map[string]*expr.Expr

// Constraints partitions parameter names into three disjoint sets.
//
//   - Norm: each element is an ordered list of parameter names whose
//     values must sum to exactly 1 (a simplex constraint).
//   - Prob: parameter names constrained to (0,1].
//   - Rate: parameter names constrained to (0, +Inf).
type Constraints struct {
	Norm [][]string
	Prob []string
	Rate []string
}

// Machine is a transducer: a dense-indexed set of states plus, per state,
// an ordered outgoing transition list. InputAlphabet and OutputAlphabet
// are tokenized independently.
type Machine struct {
	States         []State
	Outgoing       [][]*Transition // Outgoing[s] is state s's outgoing transitions, ordered by TransIndex
	InputAlphabet  *token.Tokenizer
	OutputAlphabet *token.Tokenizer
}

// NumStates returns the number of states N.
func (m *Machine) NumStates() int { return len(m.States) }

// Start returns the start state index, always 0.
func (m *Machine) Start() int { return 0 }

// End returns the unique end state index, always NumStates()-1.
func (m *Machine) End() int { return m.NumStates() - 1 }

// New builds a Machine from dense states and per-state outgoing
// transitions. TransIndex is assigned here (position within each state's
// slice); callers need not set it. New performs no structural validation;
// call Validate (or construct an EvaluatedMachine, which validates as a
// precondition) before using the machine in the DP engine.
func New(states []State, outgoing [][]*Transition, in, out *token.Tokenizer) *Machine {
	m := &Machine{
		States:         states,
		Outgoing:       make([][]*Transition, len(outgoing)),
		InputAlphabet:  in,
		OutputAlphabet: out,
	}
	for s, trs := range outgoing {
		row := make([]*Transition, len(trs))
		for i, t := range trs {
			tc := *t
			tc.TransIndex = i
			row[i] = &tc
		}
		m.Outgoing[s] = row
	}

	return m
}
