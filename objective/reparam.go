// SPDX-License-Identifier: MIT

// Package objective implements MachineObjective: the M-step half of one EM
// iteration (spec.md §4.7). It builds the negative expected complete-data
// log-likelihood as a symbolic expression over a set of reparameterised,
// unconstrained variables, differentiates it symbolically once, and
// minimises it with BFGS.
package objective

import (
	"fmt"
	"math"
	"sort"

	"github.com/wfstlab/wfstcore/expr"
	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/wfsterr"
)

// xNameProb, xNameRate, xNameNorm build the deterministic, collision-free
// names for the unconstrained variables introduced by each constraint
// kind, so the same Constraints value always yields the same variable
// ordering (spec.md §5's determinism requirement extends to re-runs of
// the M-step).
func xNameProb(p string) string         { return "x$prob$" + p }
func xNameRate(r string) string         { return "x$rate$" + r }
func xNameNorm(group int, i int) string { return fmt.Sprintf("x$norm$%d$%d", group, i) }

// buildTransform builds paramTransformDefs: a ParamDefs mapping every
// constrained parameter name to a symbolic expression over the fresh
// unconstrained x variables (spec.md §4.7's reparameterisation), plus the
// ordered list of x variable names used to build a []float64 vector for
// the optimiser.
func buildTransform(c machine.Constraints) (machine.ParamDefs, []string) {
	transform := make(machine.ParamDefs)
	var xNames []string

	for _, p := range c.Prob {
		x := xNameProb(p)
		xNames = append(xNames, x)
		// p = exp(-x^2)
		transform[p] = expr.Exp(expr.Neg(expr.Mul(expr.Param(x), expr.Param(x))))
	}

	for _, r := range c.Rate {
		x := xNameRate(r)
		xNames = append(xNames, x)
		// r = x^2
		transform[r] = expr.Mul(expr.Param(x), expr.Param(x))
	}

	for g, group := range c.Norm {
		k := len(group)
		if k == 0 {
			continue
		}

		// z_i = exp(-x_i^2) for i < k-1
		zExprs := make([]*expr.Expr, k-1)
		for i := 0; i < k-1; i++ {
			x := xNameNorm(g, i)
			xNames = append(xNames, x)
			zExprs[i] = expr.Exp(expr.Neg(expr.Mul(expr.Param(x), expr.Param(x))))
		}

		// p_i = (1 - z_i) * prod_{k<i} z_k,  i < K-1
		// p_{K-1} = prod_{k<K-1} z_k
		for i, name := range group {
			if i == k-1 {
				transform[name] = prodOf(zExprs)
				continue
			}

			prefix := prodOf(zExprs[:i])
			oneMinusZi := expr.Sub(expr.Lit(1), zExprs[i])
			transform[name] = expr.Mul(oneMinusZi, prefix)
		}
	}

	return transform, xNames
}

// prodOf multiplies a slice of expressions left to right, returning Lit(1)
// for an empty slice (the empty product).
func prodOf(es []*expr.Expr) *expr.Expr {
	if len(es) == 0 {
		return expr.Lit(1)
	}
	out := es[0]
	for _, e := range es[1:] {
		out = expr.Mul(out, e)
	}

	return out
}

// encode inverts the reparameterisation: given a constraint-satisfying
// seed Params, it computes the x vector such that decoding it reproduces
// the seed (spec.md §4.7's seeding, property P4).
func encode(c machine.Constraints, seed machine.Params, xNames []string) ([]float64, error) {
	x := make(map[string]float64, len(xNames))

	for _, p := range c.Prob {
		v, ok := seed[p]
		if !ok || v <= 0 || v > 1 {
			return nil, wfsterr.Wrap("objective", "encode", wfsterr.ErrNumericDomain)
		}
		x[xNameProb(p)] = math.Sqrt(-math.Log(v))
	}

	for _, r := range c.Rate {
		v, ok := seed[r]
		if !ok || v < 0 {
			return nil, wfsterr.Wrap("objective", "encode", wfsterr.ErrNumericDomain)
		}
		x[xNameRate(r)] = math.Sqrt(v)
	}

	for g, group := range c.Norm {
		k := len(group)
		s := 0.0
		for i := 0; i < k-1; i++ {
			p := group[i]
			v, ok := seed[p]
			if !ok {
				return nil, wfsterr.Wrap("objective", "encode", wfsterr.ErrNumericDomain)
			}

			remaining := 1 - s
			var z float64
			if remaining <= 0 {
				z = 1 // degenerate: no probability mass left for this or later entries
			} else {
				z = 1 - v/remaining
			}
			if z <= 0 {
				return nil, wfsterr.Wrap("objective", "encode", wfsterr.ErrNumericDomain)
			}
			x[xNameNorm(g, i)] = math.Sqrt(-math.Log(z))

			s += v
		}
	}

	vec := make([]float64, len(xNames))
	for i, name := range xNames {
		vec[i] = x[name]
	}

	return vec, nil
}

// decode maps an x vector back through transform to a numerical Params,
// preserving every seed parameter untouched by any constraint.
func decode(transform machine.ParamDefs, xNames []string, seed machine.Params, x []float64) (machine.Params, error) {
	xBindings := make(expr.Bindings, len(xNames))
	for i, name := range xNames {
		xBindings[name] = x[i]
	}

	out := seed.Clone()
	// sorted for deterministic evaluation order only; values don't depend
	// on order since each transform expr is self-contained over x.
	names := make([]string, 0, len(transform))
	for name := range transform {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, err := transform[name].Eval(xBindings)
		if err != nil {
			return nil, wfsterr.Wrap("objective", "decode", err)
		}
		out[name] = v
	}

	return out, nil
}
