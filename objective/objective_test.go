package objective_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wfstlab/wfstcore/counts"
	"github.com/wfstlab/wfstcore/expr"
	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/objective"
	"github.com/wfstlab/wfstcore/token"
)

// coinMachine is a two-outcome coin-flip machine: one state, two
// self-loop transitions on "h" and "t" whose weights are constrained to
// sum to 1 (spec.md's canonical M-step scenario).
func coinMachine(t *testing.T) *machine.Machine {
	t.Helper()

	in := token.New([]string{"h", "t"})
	out := token.New(nil)
	hTok, _ := in.Tok("h")
	tTok, _ := in.Tok("t")

	states := []machine.State{{}}
	outgoing := [][]*machine.Transition{
		{
			{Src: 0, Dest: 0, InTok: hTok, OutTok: 0, Weight: expr.Param("ph")},
			{Src: 0, Dest: 0, InTok: tTok, OutTok: 0, Weight: expr.Param("pt")},
		},
	}

	return machine.New(states, outgoing, in, out)
}

func TestBuildAndMinimizeReestimatesTowardObservedFrequency(t *testing.T) {
	m := coinMachine(t)
	seed := machine.Params{"ph": 0.5, "pt": 0.5}
	constraints := machine.Constraints{Norm: [][]string{{"ph", "pt"}}}

	em, err := machine.NewEvaluated(m, seed)
	require.NoError(t, err)

	// Three heads, one tail: the re-estimated ph should move above 0.5.
	mc := counts.Init(m)
	for _, seq := range [][]int{{1}, {1}, {1}, {2}} {
		_, err := mc.Add(em, counts.SeqPair{InTokens: seq, OutTokens: nil})
		require.NoError(t, err)
	}

	obj, err := objective.Build(m, mc, constraints, seed)
	require.NoError(t, err)

	res, err := obj.Minimize(constraints, objective.DefaultConfig())
	require.NoError(t, err)

	require.Greater(t, res.Params["ph"], 0.5)
	require.InDelta(t, 1.0, res.Params["ph"]+res.Params["pt"], 1e-6)
}

func TestMinimizeReportsStallOnTightIterationBudget(t *testing.T) {
	m := coinMachine(t)
	seed := machine.Params{"ph": 0.5, "pt": 0.5}
	constraints := machine.Constraints{Norm: [][]string{{"ph", "pt"}}}

	em, err := machine.NewEvaluated(m, seed)
	require.NoError(t, err)

	mc := counts.Init(m)
	_, err = mc.Add(em, counts.SeqPair{InTokens: []int{1}, OutTokens: nil})
	require.NoError(t, err)

	obj, err := objective.Build(m, mc, constraints, seed)
	require.NoError(t, err)

	cfg := objective.DefaultConfig()
	cfg.MaxIterations = 1
	res, err := obj.Minimize(constraints, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Params)
	require.True(t, res.Stalled)
}
