// SPDX-License-Identifier: MIT

// Package expr implements the small algebraic DAG the core treats as its
// "WeightExpression" oracle: a tagged-variant expression tree supporting
// eval, deriv (symbolic partial derivative), and free-parameter collection.
//
// The core consumes the operations named in spec.md §1 (eval, deriv,
// params, log, mul, exp) plus add, sub and neg for composing them; the
// M-step reparameterisation builds its transforms from all of these.
// Composition/construction of
// machine topologies from expressions is out of scope; this package only
// supplies the algebra the DP engine and the M-step reparameterisation need
// to build, evaluate, and differentiate weight expressions.
package expr

import (
	"fmt"
	"math"

	"github.com/wfstlab/wfstcore/wfsterr"
)

// Kind tags the variant held by an Expr node.
type Kind int

const (
	// KindLit is a numeric literal.
	KindLit Kind = iota
	// KindParam is a reference to a named parameter.
	KindParam
	// KindAdd is a+b.
	KindAdd
	// KindSub is a-b.
	KindSub
	// KindMul is a*b.
	KindMul
	// KindNeg is -a.
	KindNeg
	// KindLog is log(a).
	KindLog
	// KindExp is exp(a).
	KindExp
)

// Expr is an immutable node in a symbolic weight expression DAG.
type Expr struct {
	kind  Kind
	lit   float64
	name  string
	left  *Expr
	right *Expr
}

// Lit builds a numeric literal.
func Lit(v float64) *Expr { return &Expr{kind: KindLit, lit: v} }

// Param builds a reference to a named parameter.
func Param(name string) *Expr { return &Expr{kind: KindParam, name: name} }

// Add builds a+b.
func Add(a, b *Expr) *Expr { return &Expr{kind: KindAdd, left: a, right: b} }

// Sub builds a-b.
func Sub(a, b *Expr) *Expr { return &Expr{kind: KindSub, left: a, right: b} }

// Mul builds a*b.
func Mul(a, b *Expr) *Expr { return &Expr{kind: KindMul, left: a, right: b} }

// Neg builds -a.
func Neg(a *Expr) *Expr { return &Expr{kind: KindNeg, left: a} }

// Log builds log(a).
func Log(a *Expr) *Expr { return &Expr{kind: KindLog, left: a} }

// Exp builds exp(a).
func Exp(a *Expr) *Expr { return &Expr{kind: KindExp, left: a} }

// Bindings maps parameter names to their current numeric value.
type Bindings map[string]float64

// Eval recursively evaluates e under bindings. An unbound parameter is a
// caller error (ErrBadInput): every free parameter must be resolved before
// the core touches the expression.
func (e *Expr) Eval(b Bindings) (float64, error) {
	if e == nil {
		return 0, wfsterr.Wrap("expr", "Eval", fmt.Errorf("nil expression: %w", wfsterr.ErrBadInput))
	}

	switch e.kind {
	case KindLit:
		return e.lit, nil
	case KindParam:
		v, ok := b[e.name]
		if !ok {
			return 0, wfsterr.Wrap("expr", "Eval", fmt.Errorf("unbound parameter %q: %w", e.name, wfsterr.ErrBadInput))
		}
		return v, nil
	case KindAdd:
		l, err := e.left.Eval(b)
		if err != nil {
			return 0, err
		}
		r, err := e.right.Eval(b)
		if err != nil {
			return 0, err
		}
		return l + r, nil
	case KindSub:
		l, err := e.left.Eval(b)
		if err != nil {
			return 0, err
		}
		r, err := e.right.Eval(b)
		if err != nil {
			return 0, err
		}
		return l - r, nil
	case KindMul:
		l, err := e.left.Eval(b)
		if err != nil {
			return 0, err
		}
		r, err := e.right.Eval(b)
		if err != nil {
			return 0, err
		}
		return l * r, nil
	case KindNeg:
		l, err := e.left.Eval(b)
		if err != nil {
			return 0, err
		}
		return -l, nil
	case KindLog:
		l, err := e.left.Eval(b)
		if err != nil {
			return 0, err
		}
		if l <= 0 {
			return math.Inf(-1), nil
		}
		return math.Log(l), nil
	case KindExp:
		l, err := e.left.Eval(b)
		if err != nil {
			return 0, err
		}
		return math.Exp(l), nil
	default:
		return 0, wfsterr.Wrap("expr", "Eval", fmt.Errorf("unknown kind %d: %w", e.kind, wfsterr.ErrBadInput))
	}
}

// Deriv returns the symbolic partial derivative d(e)/d(param), built as a
// new Expr tree (not evaluated). Unrecognised parameters yield a zero
// literal, matching ordinary calculus for a constant-with-respect-to term.
func (e *Expr) Deriv(param string) *Expr {
	if e == nil {
		return Lit(0)
	}

	switch e.kind {
	case KindLit:
		return Lit(0)
	case KindParam:
		if e.name == param {
			return Lit(1)
		}
		return Lit(0)
	case KindAdd:
		return Add(e.left.Deriv(param), e.right.Deriv(param))
	case KindSub:
		return Sub(e.left.Deriv(param), e.right.Deriv(param))
	case KindMul:
		// product rule: (fg)' = f'g + fg'
		return Add(Mul(e.left.Deriv(param), e.right), Mul(e.left, e.right.Deriv(param)))
	case KindNeg:
		return Neg(e.left.Deriv(param))
	case KindLog:
		// (log f)' = f'/f
		return divide(e.left.Deriv(param), e.left)
	case KindExp:
		// (exp f)' = f' * exp(f)
		return Mul(e.left.Deriv(param), Exp(e.left))
	default:
		return Lit(0)
	}
}

// divide builds a/b using the algebra above: a/b = a * exp(-log(b)).
// Kept out of the public constructor set because the core's weight algebra
// (§1) names only {add, mul, sub, log, exp, neg}; division only ever
// appears internally, as an artifact of differentiating log.
func divide(a, b *Expr) *Expr {
	return Mul(a, Exp(Neg(Log(b))))
}

// Params returns the sorted-by-first-appearance list of free parameter
// names referenced anywhere in e, without duplicates.
func (e *Expr) Params() []string {
	seen := make(map[string]bool)
	var order []string
	var walk func(*Expr)
	walk = func(n *Expr) {
		if n == nil {
			return
		}
		if n.kind == KindParam {
			if !seen[n.name] {
				seen[n.name] = true
				order = append(order, n.name)
			}
			return
		}
		walk(n.left)
		walk(n.right)
	}
	walk(e)

	return order
}

// Substitute returns a copy of e with every KindParam node whose name is a
// key of subst replaced by the corresponding subtree (not re-walked —
// substitution is single-pass, matching ordinary variable substitution).
// Parameters absent from subst are left as-is.
func (e *Expr) Substitute(subst map[string]*Expr) *Expr {
	if e == nil {
		return nil
	}

	switch e.kind {
	case KindLit:
		return e
	case KindParam:
		if repl, ok := subst[e.name]; ok {
			return repl
		}
		return e
	case KindNeg, KindLog, KindExp:
		return &Expr{kind: e.kind, left: e.left.Substitute(subst)}
	default: // binary: Add, Sub, Mul
		return &Expr{kind: e.kind, left: e.left.Substitute(subst), right: e.right.Substitute(subst)}
	}
}

// String renders e for diagnostics; not used for parsing.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.kind {
	case KindLit:
		return fmt.Sprintf("%g", e.lit)
	case KindParam:
		return e.name
	case KindAdd:
		return fmt.Sprintf("(%s + %s)", e.left, e.right)
	case KindSub:
		return fmt.Sprintf("(%s - %s)", e.left, e.right)
	case KindMul:
		return fmt.Sprintf("(%s * %s)", e.left, e.right)
	case KindNeg:
		return fmt.Sprintf("-%s", e.left)
	case KindLog:
		return fmt.Sprintf("log(%s)", e.left)
	case KindExp:
		return fmt.Sprintf("exp(%s)", e.left)
	default:
		return "?"
	}
}
