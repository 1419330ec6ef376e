// SPDX-License-Identifier: MIT

package objective

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/wfstlab/wfstcore/counts"
	"github.com/wfstlab/wfstcore/expr"
	"github.com/wfstlab/wfstcore/machine"
	"github.com/wfstlab/wfstcore/wfsterr"
)

// Config enumerates the BFGS search's tunables (spec.md §4.7).
// Minimize passes GradientTolerance, MaxIterations and Recorder to gonum's
// search; InitialStep and LineSearchTolerance are carried in the
// configuration but are not passed on, so the search uses gonum's own
// initial step and line-search defaults.
type Config struct {
	InitialStep         float64
	LineSearchTolerance float64
	GradientTolerance   float64
	MaxIterations       int

	// Recorder, if non-nil, observes every major iteration gonum's BFGS
	// search takes (optimize.Recorder), in place of a logging dependency
	// (mirrors align's OnCell hook convention).
	Recorder optimize.Recorder
}

// DefaultConfig returns the configuration spec.md §4.7 enumerates:
// initial step 0.1, line-search tolerance 1e-4, gradient infinity-norm
// tolerance 1e-3, max iterations 100.
func DefaultConfig() Config {
	return Config{
		InitialStep:         0.1,
		LineSearchTolerance: 1e-4,
		GradientTolerance:   1e-3,
		MaxIterations:       100,
	}
}

// Objective is the cached symbolic negative expected complete-data
// log-likelihood, together with its cached partial derivatives with
// respect to every unconstrained variable x_n (spec.md §4.7: "computed
// symbolically once and cached").
type Objective struct {
	transform machine.ParamDefs
	xNames    []string
	energy    *expr.Expr            // E(x), substituted down to x-only + literals
	grad      map[string]*expr.Expr // dE/dx_n for each x_n, cached
	seed      machine.Params
}

// Build constructs the symbolic objective for one machine/counts pair
// under constraints, fixing every unconstrained parameter at its seed
// value (spec.md §4.7: "parameters not touched by any constraint are
// preserved from the seed").
func Build(m *machine.Machine, mc *counts.MachineCounts, c machine.Constraints, seed machine.Params) (*Objective, error) {
	transform, xNames := buildTransform(c)

	// fullSubst maps every parameter name referenced anywhere in the
	// machine's weights to either its transform subtree (constrained) or
	// a fixed literal (unconstrained, frozen at the seed value).
	fullSubst := make(map[string]*expr.Expr)
	for name, e := range transform {
		fullSubst[name] = e
	}
	for name, v := range seed {
		if _, constrained := fullSubst[name]; !constrained {
			fullSubst[name] = expr.Lit(v)
		}
	}

	var terms *expr.Expr
	for s, trs := range m.Outgoing {
		for _, t := range trs {
			cVal := mc.Count[s][t.TransIndex]
			if cVal == 0 {
				continue
			}

			w := t.Weight.Substitute(fullSubst)
			term := expr.Mul(expr.Lit(cVal), expr.Log(w))
			if terms == nil {
				terms = term
			} else {
				terms = expr.Add(terms, term)
			}
		}
	}
	if terms == nil {
		terms = expr.Lit(0)
	}
	energy := expr.Neg(terms)

	grad := make(map[string]*expr.Expr, len(xNames))
	for _, x := range xNames {
		grad[x] = energy.Deriv(x)
	}

	return &Objective{transform: transform, xNames: xNames, energy: energy, grad: grad, seed: seed}, nil
}

// bindings builds the expr.Bindings for one x vector.
func (o *Objective) bindings(x []float64) expr.Bindings {
	b := make(expr.Bindings, len(o.xNames))
	for i, name := range o.xNames {
		b[name] = x[i]
	}

	return b
}

// Eval returns E(x), or +Inf if any transition weight along the way
// evaluates to a non-positive number (spec.md §4.7's numerical safeguard:
// "guards against w <= 0 by returning +Inf objective").
func (o *Objective) Eval(x []float64) float64 {
	v, err := o.energy.Eval(o.bindings(x))
	if err != nil {
		return math.Inf(1)
	}
	if math.IsNaN(v) {
		return math.Inf(1)
	}

	return v
}

// Grad fills grad with dE/dx_n for each cached derivative tree, evaluated
// at x.
func (o *Objective) Grad(gradOut, x []float64) {
	b := o.bindings(x)
	for i, name := range o.xNames {
		v, err := o.grad[name].Eval(b)
		if err != nil || math.IsNaN(v) {
			v = 0
		}
		gradOut[i] = v
	}
}

// Result is the outcome of Minimize: the re-estimated Params, whether the
// optimiser reports a stall (non-fatal; Params is still the best iterate
// seen), and the number of major iterations taken.
type Result struct {
	Params     machine.Params
	Stalled    bool
	Iterations int
}

// Minimize runs BFGS from seed (which must already satisfy every
// constraint) and maps the resulting unconstrained point back through
// paramTransformDefs to a numerical Params (spec.md §4.7).
func (o *Objective) Minimize(c machine.Constraints, cfg Config) (Result, error) {
	x0, err := encode(c, o.seed, o.xNames)
	if err != nil {
		return Result{}, wfsterr.Wrap("objective", "Minimize", err)
	}

	problem := optimize.Problem{
		Func: o.Eval,
		Grad: o.Grad,
	}

	settings := &optimize.Settings{
		GradientThreshold: cfg.GradientTolerance,
		MajorIterations:   cfg.MaxIterations,
		Recorder:          cfg.Recorder,
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})

	stalled := false
	var xBest []float64
	var iters int
	switch {
	case err != nil && res == nil:
		return Result{}, wfsterr.Wrap("objective", "Minimize", wfsterr.ErrOptimiserStalled)
	case err != nil:
		stalled = true
		xBest = res.X
		iters = res.Stats.MajorIterations
	default:
		xBest = res.X
		iters = res.Stats.MajorIterations
		if res.Status == optimize.IterationLimit || res.Status == optimize.FunctionThreshold {
			stalled = res.Status == optimize.IterationLimit
		}
	}

	params, err := decode(o.transform, o.xNames, o.seed, xBest)
	if err != nil {
		return Result{}, wfsterr.Wrap("objective", "Minimize", err)
	}

	return Result{Params: params, Stalled: stalled, Iterations: iters}, nil
}
