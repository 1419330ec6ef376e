// SPDX-License-Identifier: MIT

package wfst

import (
	"encoding/json"
	"fmt"

	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/token"
	"github.com/wfstlab/wfstcore/wfsterr"
)

// StateDoc is the wire shape of one Machine state.
type StateDoc struct {
	ID    json.RawMessage `json:"id,omitempty"`
	Trans []TransDoc      `json:"trans"`
}

// TransDoc is the wire shape of one transition: absent In/Out means
// epsilon.
type TransDoc struct {
	To     int         `json:"to"`
	In     string      `json:"in,omitempty"`
	Out    string      `json:"out,omitempty"`
	Weight *WeightNode `json:"weight"`
}

// MachineDoc is the wire shape of a Machine (spec.md §6).
type MachineDoc struct {
	States []StateDoc `json:"states"`
}

// DecodeMachine unmarshals data into a MachineDoc, tokenizes the input and
// output alphabets implicitly from every In/Out symbol referenced (in
// first-appearance order), and builds a *machine.Machine. It does not
// call Validate; callers build an EvaluatedMachine (which validates) or
// call Validate explicitly.
func DecodeMachine(data []byte) (*machine.Machine, error) {
	var doc MachineDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, wfsterr.Wrap("wfst", "DecodeMachine", fmt.Errorf("%v: %w", err, wfsterr.ErrBadInput))
	}

	var inSyms, outSyms []string
	seenIn, seenOut := map[string]bool{}, map[string]bool{}
	for _, st := range doc.States {
		for _, tr := range st.Trans {
			if tr.In != "" && !seenIn[tr.In] {
				seenIn[tr.In] = true
				inSyms = append(inSyms, tr.In)
			}
			if tr.Out != "" && !seenOut[tr.Out] {
				seenOut[tr.Out] = true
				outSyms = append(outSyms, tr.Out)
			}
		}
	}

	inTok := token.New(inSyms)
	outTok := token.New(outSyms)

	states := make([]machine.State, len(doc.States))
	outgoing := make([][]*machine.Transition, len(doc.States))
	for s, st := range doc.States {
		var name interface{}
		if len(st.ID) > 0 {
			if err := json.Unmarshal(st.ID, &name); err != nil {
				return nil, wfsterr.Wrap("wfst", "DecodeMachine", fmt.Errorf("%v: %w", err, wfsterr.ErrBadInput))
			}
		}
		states[s] = machine.State{Name: name}

		trs := make([]*machine.Transition, len(st.Trans))
		for i, tr := range st.Trans {
			inTokVal, err := inTok.Tok(tr.In)
			if err != nil {
				return nil, wfsterr.Wrap("wfst", "DecodeMachine", err)
			}
			outTokVal, err := outTok.Tok(tr.Out)
			if err != nil {
				return nil, wfsterr.Wrap("wfst", "DecodeMachine", err)
			}
			w, err := tr.Weight.ToExpr()
			if err != nil {
				return nil, wfsterr.Wrap("wfst", "DecodeMachine", err)
			}

			trs[i] = &machine.Transition{
				Src:    s,
				Dest:   tr.To,
				InTok:  inTokVal,
				OutTok: outTokVal,
				Weight: w,
			}
		}
		outgoing[s] = trs
	}

	return machine.New(states, outgoing, inTok, outTok), nil
}

// ParamsDoc is the wire shape of Params: an object mapping names to
// numbers or nested expressions.
type ParamsDoc map[string]*WeightNode

// DecodeParams unmarshals data and fully evaluates every nested
// expression under the resolved values seen so far. Because ParamDefs may
// reference other parameters, entries are resolved iteratively until a
// fixed point (or ErrBadInput on an unresolvable cycle).
func DecodeParams(data []byte) (machine.Params, error) {
	var doc ParamsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, wfsterr.Wrap("wfst", "DecodeParams", fmt.Errorf("%v: %w", err, wfsterr.ErrBadInput))
	}

	resolved := make(machine.Params, len(doc))
	pending := make(map[string]*WeightNode, len(doc))
	for name, node := range doc {
		pending[name] = node
	}

	for len(pending) > 0 {
		progressed := false
		for name, node := range pending {
			e, err := node.ToExpr()
			if err != nil {
				return nil, wfsterr.Wrap("wfst", "DecodeParams", err)
			}

			missing := false
			for _, p := range e.Params() {
				if _, ok := resolved[p]; !ok {
					missing = true
					break
				}
			}
			if missing {
				continue
			}

			v, err := e.Eval(resolvedBindings(resolved))
			if err != nil {
				return nil, wfsterr.Wrap("wfst", "DecodeParams", err)
			}
			resolved[name] = v
			delete(pending, name)
			progressed = true
		}
		if !progressed {
			return nil, wfsterr.Wrap("wfst", "DecodeParams", fmt.Errorf("unresolvable parameter dependency: %w", wfsterr.ErrBadInput))
		}
	}

	return resolved, nil
}

func resolvedBindings(p machine.Params) map[string]float64 {
	return map[string]float64(p)
}

// ConstraintsDoc is the wire shape of Constraints.
type ConstraintsDoc struct {
	Norm [][]string `json:"norm"`
	Prob []string   `json:"prob"`
	Rate []string   `json:"rate"`
}

// DecodeConstraints unmarshals data into a machine.Constraints.
func DecodeConstraints(data []byte) (machine.Constraints, error) {
	var doc ConstraintsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return machine.Constraints{}, wfsterr.Wrap("wfst", "DecodeConstraints", fmt.Errorf("%v: %w", err, wfsterr.ErrBadInput))
	}

	return machine.Constraints{Norm: doc.Norm, Prob: doc.Prob, Rate: doc.Rate}, nil
}

// SequenceDoc is the wire shape of one side of a SeqPair.
type SequenceDoc struct {
	Sequence []string `json:"sequence"`
}

// SeqPairDoc is the wire shape of a SeqPair.
type SeqPairDoc struct {
	Input  SequenceDoc `json:"input"`
	Output SequenceDoc `json:"output"`
}

// DecodeSeqPair unmarshals data and tokenizes both sides against the
// given alphabets.
func DecodeSeqPair(data []byte, in, out *token.Tokenizer) (inTokens, outTokens []int, err error) {
	var doc SeqPairDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, wfsterr.Wrap("wfst", "DecodeSeqPair", fmt.Errorf("%v: %w", err, wfsterr.ErrBadInput))
	}

	inTokens, err = in.Tokenize(doc.Input.Sequence)
	if err != nil {
		return nil, nil, wfsterr.Wrap("wfst", "DecodeSeqPair", err)
	}
	outTokens, err = out.Tokenize(doc.Output.Sequence)
	if err != nil {
		return nil, nil, wfsterr.Wrap("wfst", "DecodeSeqPair", err)
	}

	return inTokens, outTokens, nil
}
