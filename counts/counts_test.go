package counts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wfstlab/wfstcore/counts"
	"github.com/wfstlab/wfstcore/expr"
	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/token"
)

// selfLoopMachine is shared fixture shape with package align's tests: one
// state, one self-loop transition consuming (a,a) at weight p.
func selfLoopMachine(t *testing.T, p float64) *machine.Machine {
	t.Helper()

	in := token.New([]string{"a"})
	out := token.New([]string{"a"})
	aTok, _ := in.Tok("a")

	states := []machine.State{{}}
	outgoing := [][]*machine.Transition{
		{{Src: 0, Dest: 0, InTok: aTok, OutTok: aTok, Weight: expr.Param("p")}},
	}

	return machine.New(states, outgoing, in, out)
}

func TestInitShapesCountsToMachine(t *testing.T) {
	m := selfLoopMachine(t, 0.5)
	mc := counts.Init(m)

	require.Len(t, mc.Count, 1)
	require.Len(t, mc.Count[0], 1)
	require.Equal(t, 0.0, mc.LogLike)
}

func TestAddAccumulatesCountsAndLogLike(t *testing.T) {
	m := selfLoopMachine(t, 0.5)
	em, err := machine.NewEvaluated(m, machine.Params{"p": 0.5})
	require.NoError(t, err)

	mc := counts.Init(m)
	ll, err := mc.Add(em, counts.SeqPair{InTokens: []int{1, 1}, OutTokens: []int{1, 1}})
	require.NoError(t, err)

	require.InDelta(t, ll, mc.LogLike, 1e-9)
	require.InDelta(t, 2.0, mc.Count[0][0], 1e-6)
}

func TestMergeSumsCounts(t *testing.T) {
	m := selfLoopMachine(t, 0.5)
	a := counts.Init(m)
	b := counts.Init(m)
	a.Count[0][0] = 1
	b.Count[0][0] = 2
	b.LogLike = -1

	require.NoError(t, a.Merge(b))
	require.Equal(t, 3.0, a.Count[0][0])
	require.Equal(t, -1.0, a.LogLike)
}

func TestMergeRejectsShapeMismatch(t *testing.T) {
	m1 := selfLoopMachine(t, 0.5)
	a := counts.Init(m1)

	other := &counts.MachineCounts{Count: [][]float64{{0}, {0}}}

	require.Error(t, a.Merge(other))
}

func TestAddAllMatchesSequentialAdd(t *testing.T) {
	m := selfLoopMachine(t, 0.5)
	em, err := machine.NewEvaluated(m, machine.Params{"p": 0.5})
	require.NoError(t, err)

	pairs := []counts.SeqPair{
		{InTokens: []int{1}, OutTokens: []int{1}},
		{InTokens: []int{1, 1}, OutTokens: []int{1, 1}},
		{InTokens: []int{1, 1, 1}, OutTokens: []int{1, 1, 1}},
	}

	sequential := counts.Init(m)
	for _, p := range pairs {
		_, err := sequential.Add(em, p)
		require.NoError(t, err)
	}

	parallel, err := counts.AddAll(context.Background(), em, pairs, 2)
	require.NoError(t, err)

	require.InDelta(t, sequential.LogLike, parallel.LogLike, 1e-6)
	require.InDelta(t, sequential.Count[0][0], parallel.Count[0][0], 1e-6)
}

func TestParamCountsGradientTerm(t *testing.T) {
	m := selfLoopMachine(t, 0.5)
	em, err := machine.NewEvaluated(m, machine.Params{"p": 0.5})
	require.NoError(t, err)

	mc := counts.Init(m)
	_, err = mc.Add(em, counts.SeqPair{InTokens: []int{1, 1}, OutTokens: []int{1, 1}})
	require.NoError(t, err)

	grad, err := mc.ParamCounts(m, machine.Params{"p": 0.5})
	require.NoError(t, err)

	// dw/dp = 1 for w=p, so term reduces to count * 1 * p / p = count.
	require.InDelta(t, 2.0, grad["p"], 1e-6)
}
