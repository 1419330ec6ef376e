package envelope_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wfstlab/wfstcore/envelope"
)

func TestFullIsActiveEverywhere(t *testing.T) {
	e := envelope.Full(3, 2)

	require.NoError(t, e.Validate())
	for j := 0; j <= 2; j++ {
		for i := 0; i <= 3; i++ {
			require.True(t, e.Active(i, j))
		}
	}
	require.False(t, e.Active(-1, 0))
	require.False(t, e.Active(0, -1))
	require.False(t, e.Active(0, 3))
}

func TestValidateRejectsEmptyColumn(t *testing.T) {
	e := envelope.Full(2, 2)
	e.InStart[1] = 2
	e.InEnd[1] = 2 // empty column

	err := e.Validate()
	require.Error(t, err)
}

func TestValidateRejectsMissingCorner(t *testing.T) {
	e := envelope.Full(2, 2)
	e.InStart[0] = 1 // excludes (0,0)

	err := e.Validate()
	require.Error(t, err)
}

func TestValidateRejectsDisconnectedBand(t *testing.T) {
	e := &envelope.Envelope{
		InStart: []int{0, 5},
		InEnd:   []int{1, 6},
		InLen:   5,
		OutLen:  1,
	}

	err := e.Validate()
	require.Error(t, err)
}

func TestSakoeChibaBandIsNarrowerThanFull(t *testing.T) {
	e, err := envelope.SakoeChiba(5, 5, 1)
	require.NoError(t, err)

	require.True(t, e.Active(0, 0))
	require.True(t, e.Active(5, 5))
	require.False(t, e.Active(5, 0)) // far off the diagonal
}

func TestSakoeChibaWideRadiusDegeneratesToFull(t *testing.T) {
	e, err := envelope.SakoeChiba(3, 3, 10)
	require.NoError(t, err)

	for j := 0; j <= 3; j++ {
		for i := 0; i <= 3; i++ {
			require.True(t, e.Active(i, j))
		}
	}
}

func TestSakoeChibaRejectsNegativeRadius(t *testing.T) {
	_, err := envelope.SakoeChiba(3, 3, -1)
	require.Error(t, err)
}

func TestValidateRejectsLengthMismatch(t *testing.T) {
	e := &envelope.Envelope{
		InStart: []int{0},
		InEnd:   []int{1},
		InLen:   1,
		OutLen:  1, // expects 2 columns
	}

	err := e.Validate()
	require.Error(t, err)
}
