package formula

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Expr is a parsed formula node.
type Expr interface {
	Eval(vars Vars) (float64, error)
	String() string
}

type numberLit struct {
	value float64
}

func (n numberLit) Eval(Vars) (float64, error) { return n.value, nil }

func (n numberLit) String() string { return strconv.FormatFloat(n.value, 'f', -1, 64) }

type ident struct {
	name string
}

func (n ident) Eval(vars Vars) (float64, error) {
	v, ok := vars[n.name]
	if !ok {
		return 0, nil
	}
	return v, nil
}

func (n ident) String() string { return n.name }

type unary struct {
	operand Expr
}

func (n unary) Eval(vars Vars) (float64, error) {
	v, err := n.operand.Eval(vars)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (n unary) String() string { return "(-" + n.operand.String() + ")" }

type binary struct {
	op          tokenKind
	left, right Expr
}

func (n binary) Eval(vars Vars) (float64, error) {
	l, err := n.left.Eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := n.right.Eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case tokPlus:
		return l + r, nil
	case tokMinus:
		return l - r, nil
	case tokStar:
		return l * r, nil
	case tokSlash:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l / r, nil
	default:
		return 0, fmt.Errorf("formula: unsupported operator %s", n.op)
	}
}

func (n binary) String() string {
	return "(" + n.left.String() + " " + strings.Trim(n.op.String(), "'") + " " + n.right.String() + ")"
}

type call struct {
	fn   function
	args []Expr
}

func (n call) Eval(vars Vars) (float64, error) {
	values := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.Eval(vars)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}
	return n.fn.apply(values), nil
}

func (n call) String() string {
	parts := make([]string, len(n.args))
	for i, a := range n.args {
		parts[i] = a.String()
	}
	return n.fn.name + "(" + strings.Join(parts, ", ") + ")"
}

type function struct {
	name    string
	minArgs int
	maxArgs int // -1 for variadic
	apply   func([]float64) float64
}

var functions = map[string]function{
	"CEIL":  {name: "CEIL", minArgs: 1, maxArgs: 1, apply: func(a []float64) float64 { return math.Ceil(a[0]) }},
	"FLOOR": {name: "FLOOR", minArgs: 1, maxArgs: 1, apply: func(a []float64) float64 { return math.Floor(a[0]) }},
	// Halves round towards positive infinity.
	"ROUND": {name: "ROUND", minArgs: 1, maxArgs: 1, apply: func(a []float64) float64 { return math.Floor(a[0] + 0.5) }},
	"MAX": {name: "MAX", minArgs: 1, maxArgs: -1, apply: func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Max(m, v)
		}
		return m
	}},
	"MIN": {name: "MIN", minArgs: 1, maxArgs: -1, apply: func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			m = math.Min(m, v)
		}
		return m
	}},
}
