// SPDX-License-Identifier: MIT

// Package wfst is the top-level façade wiring token -> machine -> align ->
// counts -> objective into one convenience EM loop, and shaping the JSON
// documents spec.md §6 names. JSON Schema validation itself is an
// external collaborator (spec.md §1); this package only marshals and
// unmarshals documents that are assumed already schema-valid.
package wfst

import (
	"encoding/json"
	"fmt"

	"github.com/wfstlab/wfstcore/expr"
	"github.com/wfstlab/wfstcore/wfsterr"
)

// WeightNode is the JSON shape of a symbolic weight expression: a number,
// a parameter-name string, or {"op": ..., "args": [...]}. Exactly one of
// Num, Name, or Op+Args is populated after unmarshalling.
type WeightNode struct {
	Num  *float64
	Name string
	Op   string
	Args []*WeightNode
}

// opNode is the wire shape of the object variant.
type opNode struct {
	Op   string        `json:"op"`
	Args []*WeightNode `json:"args"`
}

// UnmarshalJSON implements the three-way variant: number | string | object.
func (w *WeightNode) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		w.Num = &num
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		w.Name = name
		return nil
	}

	var o opNode
	if err := json.Unmarshal(data, &o); err != nil {
		return wfsterr.Wrap("wfst", "WeightNode.UnmarshalJSON", fmt.Errorf("%v: %w", err, wfsterr.ErrBadInput))
	}
	w.Op = o.Op
	w.Args = o.Args

	return nil
}

// MarshalJSON mirrors UnmarshalJSON's three-way variant.
func (w *WeightNode) MarshalJSON() ([]byte, error) {
	switch {
	case w.Num != nil:
		return json.Marshal(*w.Num)
	case w.Name != "":
		return json.Marshal(w.Name)
	default:
		return json.Marshal(opNode{Op: w.Op, Args: w.Args})
	}
}

// ToExpr converts the wire-level WeightNode into package expr's algebraic
// tree, restricted to the operations the core consumes (spec.md §1):
// eval, deriv, params, log, mul, exp, plus add/sub/neg for composing them.
func (w *WeightNode) ToExpr() (*expr.Expr, error) {
	if w == nil {
		return nil, wfsterr.Wrap("wfst", "ToExpr", wfsterr.ErrBadInput)
	}

	switch {
	case w.Num != nil:
		return expr.Lit(*w.Num), nil
	case w.Name != "":
		return expr.Param(w.Name), nil
	}

	arg := func(i int) (*expr.Expr, error) {
		if i >= len(w.Args) {
			return nil, wfsterr.Wrap("wfst", "ToExpr", fmt.Errorf("op %q missing argument %d: %w", w.Op, i, wfsterr.ErrBadInput))
		}
		return w.Args[i].ToExpr()
	}

	switch w.Op {
	case "add":
		a, err := arg(0)
		if err != nil {
			return nil, err
		}
		b, err := arg(1)
		if err != nil {
			return nil, err
		}
		return expr.Add(a, b), nil
	case "sub":
		a, err := arg(0)
		if err != nil {
			return nil, err
		}
		b, err := arg(1)
		if err != nil {
			return nil, err
		}
		return expr.Sub(a, b), nil
	case "mul":
		a, err := arg(0)
		if err != nil {
			return nil, err
		}
		b, err := arg(1)
		if err != nil {
			return nil, err
		}
		return expr.Mul(a, b), nil
	case "neg":
		a, err := arg(0)
		if err != nil {
			return nil, err
		}
		return expr.Neg(a), nil
	case "log":
		a, err := arg(0)
		if err != nil {
			return nil, err
		}
		return expr.Log(a), nil
	case "exp":
		a, err := arg(0)
		if err != nil {
			return nil, err
		}
		return expr.Exp(a), nil
	default:
		return nil, wfsterr.Wrap("wfst", "ToExpr", fmt.Errorf("unknown op %q: %w", w.Op, wfsterr.ErrBadInput))
	}
}

