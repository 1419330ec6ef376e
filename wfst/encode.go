// SPDX-License-Identifier: MIT

package wfst

import (
	"encoding/json"

	"github.com/wfstlab/wfstcore/counts"
	"github.com/wfstlab/wfstcore/machine"
)

// EncodeCounts marshals a MachineCounts as the ragged
// count[state][transIndex] array spec.md §6 names.
func EncodeCounts(mc *counts.MachineCounts) ([]byte, error) {
	return json.Marshal(mc.Count)
}

// EncodeParamCounts marshals the flat {paramName: count} view spec.md §6
// names as the alternative Counts output shape.
func EncodeParamCounts(paramCounts map[string]float64) ([]byte, error) {
	return json.Marshal(paramCounts)
}

// EvaluatedEdgeDoc is the wire shape of one evaluated-machine edge.
type EvaluatedEdgeDoc struct {
	To        int     `json:"to"`
	In        string  `json:"in,omitempty"`
	Out       string  `json:"out,omitempty"`
	LogWeight float64 `json:"logWeight"`
}

// EvaluatedStateDoc is the wire shape of one evaluated-machine state's
// incoming/outgoing edge lists.
type EvaluatedStateDoc struct {
	Incoming []EvaluatedEdgeDoc `json:"incoming"`
	Outgoing []EvaluatedEdgeDoc `json:"outgoing"`
}

// EvaluatedMachineDoc is the wire shape of an EvaluatedMachine (spec.md
// §6).
type EvaluatedMachineDoc struct {
	States []EvaluatedStateDoc `json:"states"`
}

// EncodeEvaluatedMachine dumps em's incoming/outgoing edge lists with
// numeric logWeight, per spec.md §6's EvaluatedMachine output contract.
func EncodeEvaluatedMachine(em *machine.EvaluatedMachine) ([]byte, error) {
	n := em.NumStates()
	doc := EvaluatedMachineDoc{States: make([]EvaluatedStateDoc, n)}

	inAlpha, outAlpha := em.Machine.InputAlphabet, em.Machine.OutputAlphabet

	edgeDoc := func(t machine.EvaluatedTransition, other int) EvaluatedEdgeDoc {
		inSym, _ := inAlpha.Sym(t.InTok)
		outSym, _ := outAlpha.Sym(t.OutTok)

		return EvaluatedEdgeDoc{To: other, In: inSym, Out: outSym, LogWeight: t.LogWeight}
	}

	for s := 0; s < n; s++ {
		var out, in []EvaluatedEdgeDoc
		for _, t := range em.OutgoingAll(s) {
			out = append(out, edgeDoc(t, t.Dest))
		}
		for _, t := range em.IncomingAll(s) {
			in = append(in, edgeDoc(t, t.Src))
		}

		doc.States[s] = EvaluatedStateDoc{Incoming: in, Outgoing: out}
	}

	return json.Marshal(doc)
}
