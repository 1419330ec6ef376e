package align_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wfstlab/wfstcore/align"
	"github.com/wfstlab/wfstcore/expr"
	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/token"
)

// selfLoopMachine builds a single-state machine with one self-loop
// transition consuming (a,a) at weight p. It is the minimal fixture for
// exercising the DP recurrence along a single deterministic path.
func selfLoopMachine(t *testing.T, p float64) *machine.EvaluatedMachine {
	t.Helper()

	in := token.New([]string{"a"})
	out := token.New([]string{"a"})
	aTok, _ := in.Tok("a")

	states := []machine.State{{}}
	outgoing := [][]*machine.Transition{
		{{Src: 0, Dest: 0, InTok: aTok, OutTok: aTok, Weight: expr.Lit(p)}},
	}
	m := machine.New(states, outgoing, in, out)

	em, err := machine.NewEvaluated(m, nil)
	require.NoError(t, err)

	return em
}

func TestForwardLogLikeSinglePath(t *testing.T) {
	em := selfLoopMachine(t, 0.5)

	fwd, err := align.NewForward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)

	require.InDelta(t, 2*math.Log(0.5), fwd.LogLike(), 1e-9)
}

func TestBackwardLogLikeMatchesForward(t *testing.T) {
	em := selfLoopMachine(t, 0.5)

	fwd, err := align.NewForward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)
	bwd, err := align.NewBackward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)

	require.InDelta(t, fwd.LogLike(), bwd.LogLike(), 1e-9)
}

func TestForwardUnalignablePairIsNegInf(t *testing.T) {
	in := token.New([]string{"a"})
	out := token.New([]string{"b"})
	aTok, _ := in.Tok("a")
	bTok, _ := out.Tok("b")

	states := []machine.State{{}, {}}
	outgoing := [][]*machine.Transition{
		{{Src: 0, Dest: 1, InTok: aTok, OutTok: bTok, Weight: expr.Lit(1)}},
		{},
	}
	m := machine.New(states, outgoing, in, out)
	em, err := machine.NewEvaluated(m, nil)
	require.NoError(t, err)

	// input "a" against output "" can never reach the end state.
	fwd, err := align.NewForward(em, []int{aTok}, nil, nil)
	require.NoError(t, err)

	require.True(t, math.IsInf(fwd.LogLike(), -1))
}

func TestGetCountsAccumulatesOnSinglePath(t *testing.T) {
	em := selfLoopMachine(t, 0.5)

	fwd, err := align.NewForward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)
	bwd, err := align.NewBackward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)

	counter := &align.TransitionCounter{Count: [][]float64{{0}}}
	bwd.GetCounts(fwd, counter)

	// the self-loop is the only transition and is used exactly twice,
	// with posterior 1 at each step since no alternative path exists.
	require.InDelta(t, 2.0, counter.Count[0][0], 1e-6)
}

func TestGetCountsNoOpOnUnalignablePair(t *testing.T) {
	em := selfLoopMachine(t, 0.5)

	fwd, err := align.NewForward(em, []int{1}, nil, nil)
	require.NoError(t, err)
	bwd, err := align.NewBackward(em, []int{1}, nil, nil)
	require.NoError(t, err)

	counter := &align.TransitionCounter{Count: [][]float64{{0}}}
	bwd.GetCounts(fwd, counter)

	require.Equal(t, 0.0, counter.Count[0][0])
}

func TestSamplePathDeterministicWhenOnlyOnePath(t *testing.T) {
	em := selfLoopMachine(t, 0.5)

	fwd, err := align.NewForward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)

	path, err := fwd.SamplePath(rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Len(t, path, 2)
	for _, tr := range path {
		require.Equal(t, 0, tr.TransIndex)
	}
}

func TestTransitionSorterOrdersByPosteriorDescending(t *testing.T) {
	em := selfLoopMachine(t, 0.5)

	fwd, err := align.NewForward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)
	bwd, err := align.NewBackward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)

	sorter := &align.TransitionSorter{}
	bwd.GetCounts(fwd, sorter)

	require.True(t, sorter.Len() > 0)
	prev := math.Inf(1)
	for sorter.Len() > 0 {
		entry, ok := sorter.Pop()
		require.True(t, ok)
		require.LessOrEqual(t, entry.Posterior, prev)
		prev = entry.Posterior
	}
}

func TestTraceFromSplicesThroughNamedTransition(t *testing.T) {
	em := selfLoopMachine(t, 0.5)

	fwd, err := align.NewForward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)
	bwd, err := align.NewBackward(em, []int{1, 1}, []int{1, 1}, nil)
	require.NoError(t, err)

	path, err := bwd.TraceFrom(fwd, 0, 0, 0, 0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, path)
	require.Equal(t, 0, path[0].TransIndex)
}

func TestOnCellHookFiresOnceForEveryComputedCell(t *testing.T) {
	em := selfLoopMachine(t, 0.5)

	var calls int
	_, err := align.NewForwardWithOptions(em, []int{1, 1}, []int{1, 1}, nil, &align.ForwardOptions{
		OnCell: func(int, int, int, float64) { calls++ },
	})
	require.NoError(t, err)
	// 3x3 cells x 1 state, minus the preset base cell (0,0,start).
	require.Equal(t, 3*3*1-1, calls)
}
