// Package formula evaluates installation quantity expressions.
//
// The language has numeric literals, the operators + - * / with the usual precedence,
// unary minus, parentheses, the functions CEIL FLOOR ROUND MAX MIN and a fixed set of job
// variables. Nothing else is reachable from a formula.
package formula

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrEmpty             = errors.New("formula: empty expression")
	ErrUnknownIdentifier = errors.New("formula: unknown identifier")
	ErrUnknownFunction   = errors.New("formula: unknown function")
	ErrArity             = errors.New("formula: wrong number of arguments")
	ErrDivisionByZero    = errors.New("formula: division by zero")
	ErrNotFinite         = errors.New("formula: result is not a finite number")
)

// Variable names a formula may reference.
const (
	VarSystemSize          = "systemSize"
	VarPanelCount          = "panelCount"
	VarBatteryCapacity     = "batteryCapacity"
	VarStoreys             = "storeys"
	VarDistanceFromHQ      = "distanceFromHQ"
	VarAdditionalInverters = "additionalInverters"
	VarSplits              = "splits"
)

var allowedIdentifiers = map[string]bool{
	VarSystemSize:          true,
	VarPanelCount:          true,
	VarBatteryCapacity:     true,
	VarStoreys:             true,
	VarDistanceFromHQ:      true,
	VarAdditionalInverters: true,
	VarSplits:              true,
}

// Vars binds variable names to values. Unbound whitelisted variables evaluate to 0.
type Vars map[string]float64

// Identifiers lists the variable names accepted by Parse.
func Identifiers() []string {
	out := make([]string, 0, len(allowedIdentifiers))
	for name := range allowedIdentifiers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Parse compiles src into an expression tree, rejecting unknown identifiers and functions.
func Parse(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrEmpty
	}
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", describe(t))}
	}
	return expr, nil
}

// Evaluate parses and evaluates src in one step.
func Evaluate(src string, vars Vars) (float64, error) {
	expr, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return Run(expr, vars)
}

// Run evaluates a parsed expression and rejects NaN or infinite results.
func Run(expr Expr, vars Vars) (float64, error) {
	v, err := expr.Eval(vars)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	return v, nil
}
