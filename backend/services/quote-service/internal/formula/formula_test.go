package formula

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestEvaluate(t *testing.T) {
	vars := Vars{
		VarSystemSize:      6.6,
		VarPanelCount:      15,
		VarBatteryCapacity: 13.5,
		VarStoreys:         2,
		VarDistanceFromHQ:  85,
	}

	cases := []struct {
		name string
		src  string
		want float64
	}{
		{name: "literal", src: "42", want: 42},
		{name: "decimal literal", src: ".5 + 1.25", want: 1.75},
		{name: "precedence", src: "2 + 3 * 4", want: 14},
		{name: "parentheses", src: "(2 + 3) * 4", want: 20},
		{name: "left associative", src: "20 - 5 - 5", want: 10},
		{name: "division", src: "panelCount / 5", want: 3},
		{name: "unary minus", src: "-storeys + 5", want: 3},
		{name: "double negation", src: "--3", want: 3},
		{name: "variable", src: "systemSize * 1000", want: 6600},
		{name: "ceil", src: "CEIL(panelCount / 4)", want: 4},
		{name: "floor", src: "FLOOR(batteryCapacity)", want: 13},
		{name: "round half up", src: "ROUND(2.5)", want: 3},
		{name: "round negative half", src: "ROUND(-2.5)", want: -2},
		{name: "max variadic", src: "MAX(0, distanceFromHQ - 50, 10)", want: 35},
		{name: "min", src: "MIN(storeys, 1)", want: 1},
		{name: "nested", src: "MAX(1, CEIL((distanceFromHQ - 50) / 25))", want: 2},
		{name: "lowercase function", src: "ceil(0.2)", want: 1},
		{name: "unbound variable is zero", src: "splits + 1", want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Evaluate(tc.src, vars)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tc.src, err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Evaluate(%q) = %v, want %v", tc.src, got, tc.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		target error
	}{
		{name: "empty", src: "  ", target: ErrEmpty},
		{name: "unknown identifier", src: "constructor + 1", target: ErrUnknownIdentifier},
		{name: "unknown function", src: "SQRT(4)", target: ErrUnknownFunction},
		{name: "ceil arity", src: "CEIL(1, 2)", target: ErrArity},
		{name: "max needs arguments", src: "MAX()", target: ErrArity},
		{name: "division by zero", src: "panelCount / 0", target: ErrDivisionByZero},
		{name: "division by zero variable", src: "10 / splits", target: ErrDivisionByZero},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Evaluate(tc.src, Vars{VarPanelCount: 10})
			if !errors.Is(err, tc.target) {
				t.Fatalf("Evaluate(%q) error = %v, want %v", tc.src, err, tc.target)
			}
		})
	}
}

func TestSyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"1 +",
		"(1 + 2",
		"1 2",
		"1..2",
		"systemSize; panelCount",
		"MAX(1,)",
		"`rm -rf`",
		"*3",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			var syn *SyntaxError
			if !errors.As(err, &syn) {
				t.Fatalf("Parse(%q) error = %v, want *SyntaxError", src, err)
			}
		})
	}
}

func TestParseDepthLimit(t *testing.T) {
	src := strings.Repeat("(", 200) + "1" + strings.Repeat(")", 200)
	if _, err := Parse(src); err == nil {
		t.Fatal("expected depth error")
	}
	neg := strings.Repeat("-", 200) + "1"
	if _, err := Parse(neg); err == nil {
		t.Fatal("expected depth error for unary chain")
	}
}

func TestExprString(t *testing.T) {
	expr, err := Parse("CEIL(panelCount / 4) + -1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := expr.String(), "(CEIL((panelCount / 4)) + (-1))"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestIdentifiersSorted(t *testing.T) {
	ids := Identifiers()
	if len(ids) != 7 {
		t.Fatalf("got %d identifiers", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] > ids[i] {
			t.Fatalf("identifiers not sorted: %v", ids)
		}
	}
}
