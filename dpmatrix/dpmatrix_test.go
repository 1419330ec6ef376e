package dpmatrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wfstlab/wfstcore/dpmatrix"
	"github.com/wfstlab/wfstcore/envelope"
)

func TestNewInitialisesToNegInf(t *testing.T) {
	env := envelope.Full(2, 2)
	m := dpmatrix.New(env, 3)

	require.True(t, math.IsInf(m.Get(0, 0, 0), -1))
	require.Equal(t, 3, m.NStates())
}

func TestSetGetRoundTrip(t *testing.T) {
	env := envelope.Full(2, 2)
	m := dpmatrix.New(env, 2)

	m.Set(1, 1, 0, 3.5)
	require.Equal(t, 3.5, m.Get(1, 1, 0))
	require.True(t, math.IsInf(m.Get(1, 1, 1), -1))
}

func TestGetOutOfBandIsNegInf(t *testing.T) {
	env := &envelope.Envelope{
		InStart: []int{0, 1},
		InEnd:   []int{2, 2},
		InLen:   1,
		OutLen:  1,
	}
	require.NoError(t, env.Validate())

	m := dpmatrix.New(env, 1)

	// (0,1) is outside [InStart[1],InEnd[1]) == [1,2)
	require.True(t, math.IsInf(m.Get(0, 1, 0), -1))
	// out-of-range column entirely
	require.True(t, math.IsInf(m.Get(0, 5, 0), -1))
}

func TestStrictModePanicsOnInactiveWrite(t *testing.T) {
	env := envelope.Full(1, 1)
	m := dpmatrix.New(env, 1).WithStrict(true)

	require.Panics(t, func() {
		m.Set(0, 5, 0, 1.0)
	})
}

func TestLenMatchesAllocatedCells(t *testing.T) {
	env := envelope.Full(2, 1) // 2 columns, each width 3, nStates=2
	m := dpmatrix.New(env, 2)

	require.Equal(t, 2*3*2, m.Len())
}
