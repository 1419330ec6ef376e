package expr_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wfstlab/wfstcore/expr"
)

func TestEvalArithmetic(t *testing.T) {
	e := expr.Add(expr.Mul(expr.Param("p"), expr.Lit(2)), expr.Lit(1))

	v, err := e.Eval(expr.Bindings{"p": 3})
	require.NoError(t, err)
	require.Equal(t, 7.0, v)
}

func TestEvalUnboundParam(t *testing.T) {
	e := expr.Param("missing")

	_, err := e.Eval(expr.Bindings{})
	require.Error(t, err)
}

func TestEvalLogOfNonPositiveIsNegInf(t *testing.T) {
	e := expr.Log(expr.Lit(0))

	v, err := e.Eval(nil)
	require.NoError(t, err)
	require.True(t, math.IsInf(v, -1))
}

func TestDerivProductRule(t *testing.T) {
	// d/dp (p * p) = 2p
	e := expr.Mul(expr.Param("p"), expr.Param("p"))
	d := e.Deriv("p")

	v, err := d.Eval(expr.Bindings{"p": 5})
	require.NoError(t, err)
	require.Equal(t, 10.0, v)
}

func TestDerivLogRule(t *testing.T) {
	// d/dp log(p) = 1/p
	e := expr.Log(expr.Param("p"))
	d := e.Deriv("p")

	v, err := d.Eval(expr.Bindings{"p": 4})
	require.NoError(t, err)
	require.InDelta(t, 0.25, v, 1e-9)
}

func TestDerivUnrelatedParamIsZero(t *testing.T) {
	e := expr.Param("q")
	d := e.Deriv("p")

	v, err := d.Eval(nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, v)
}

func TestParamsDedupAndOrder(t *testing.T) {
	e := expr.Add(expr.Param("b"), expr.Add(expr.Param("a"), expr.Param("b")))

	require.Equal(t, []string{"b", "a"}, e.Params())
}

func TestSubstitute(t *testing.T) {
	e := expr.Mul(expr.Param("x"), expr.Lit(2))
	subst := map[string]*expr.Expr{"x": expr.Lit(5)}

	got := e.Substitute(subst)
	v, err := got.Eval(nil)
	require.NoError(t, err)
	require.Equal(t, 10.0, v)

	// original tree is untouched
	require.Equal(t, []string{"x"}, e.Params())
}

func TestSubstituteLeavesUnmatchedParams(t *testing.T) {
	e := expr.Add(expr.Param("x"), expr.Param("y"))
	got := e.Substitute(map[string]*expr.Expr{"x": expr.Lit(1)})

	require.Equal(t, []string{"y"}, got.Params())
}
