package money

import "testing"

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{in: 1.005, want: 1.01},
		{in: 2334.0000001, want: 2334},
		{in: -4.125, want: -4.13},
		{in: 0.1 + 0.2, want: 0.3},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSumAvoidsDrift(t *testing.T) {
	if got := Sum(0.1, 0.2, 0.3); got != 0.6 {
		t.Fatalf("Sum = %v, want 0.6", got)
	}
	if got := Sum(); got != 0 {
		t.Fatalf("empty Sum = %v", got)
	}
}

func TestMul(t *testing.T) {
	if got := Mul(60, 38.90); got != 2334 {
		t.Fatalf("Mul = %v, want 2334", got)
	}
}

func TestFormat(t *testing.T) {
	cases := map[float64]string{
		0:          "$0.00",
		12.5:       "$12.50",
		1234.5:     "$1,234.50",
		1234567.89: "$1,234,567.89",
		-950:       "-$950.00",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Errorf("Format(%v) = %q, want %q", in, got, want)
		}
	}
}
