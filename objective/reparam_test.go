package objective

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wfstlab/wfstcore/machine"
)

func TestEncodeDecodeRoundTripProb(t *testing.T) {
	c := machine.Constraints{Prob: []string{"p"}}
	transform, xNames := buildTransform(c)

	seed := machine.Params{"p": 0.3}
	x, err := encode(c, seed, xNames)
	require.NoError(t, err)

	got, err := decode(transform, xNames, seed, x)
	require.NoError(t, err)
	require.InDelta(t, 0.3, got["p"], 1e-9)
}

func TestEncodeDecodeRoundTripRate(t *testing.T) {
	c := machine.Constraints{Rate: []string{"r"}}
	transform, xNames := buildTransform(c)

	seed := machine.Params{"r": 2.5}
	x, err := encode(c, seed, xNames)
	require.NoError(t, err)

	got, err := decode(transform, xNames, seed, x)
	require.NoError(t, err)
	require.InDelta(t, 2.5, got["r"], 1e-9)
}

func TestEncodeDecodeRoundTripNormGroup(t *testing.T) {
	c := machine.Constraints{Norm: [][]string{{"a", "b", "c"}}}
	transform, xNames := buildTransform(c)

	seed := machine.Params{"a": 0.2, "b": 0.3, "c": 0.5}
	x, err := encode(c, seed, xNames)
	require.NoError(t, err)

	got, err := decode(transform, xNames, seed, x)
	require.NoError(t, err)
	require.InDelta(t, 0.2, got["a"], 1e-9)
	require.InDelta(t, 0.3, got["b"], 1e-9)
	require.InDelta(t, 0.5, got["c"], 1e-9)
}

func TestEncodeRejectsOutOfDomainProb(t *testing.T) {
	c := machine.Constraints{Prob: []string{"p"}}
	_, xNames := buildTransform(c)

	_, err := encode(c, machine.Params{"p": 1.5}, xNames)
	require.Error(t, err)
}

func TestDecodePreservesUnconstrainedSeed(t *testing.T) {
	c := machine.Constraints{Prob: []string{"p"}}
	transform, xNames := buildTransform(c)

	seed := machine.Params{"p": 0.5, "untouched": 42}
	x, err := encode(c, seed, xNames)
	require.NoError(t, err)

	got, err := decode(transform, xNames, seed, x)
	require.NoError(t, err)
	require.Equal(t, 42.0, got["untouched"])
}
