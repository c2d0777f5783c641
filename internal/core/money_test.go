package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  any
		out string
		ok  bool
	}{
		{float64(1000), "1000", true},
		{0.1, "0.1", true},
		{json.Number("12.34"), "12.34", true},
		{json.Number("1e3"), "1000", true},
		{int(5), "5", true},
		{int64(7), "7", true},
		{uint64(9), "9", true},
		{decimal.RequireFromString("3.30"), "3.3", true},
		{float64(0), "0", true},
		{"50", "", false},
		{"", "", false},
		{nil, "", false},
		{float64(-1), "", false},
		{json.Number("-0.01"), "", false},
		{json.Number("abc"), "", false},
		{math.NaN(), "", false},
		{math.Inf(1), "", false},
		{true, "", false},
		{map[string]any{}, "", false},
	}
	for i, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("case %d (%v) expected %s, got %s (err=%v)", i, tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("case %d (%v) expected error, got %s", i, tc.in, got)
		}
	}
}

func TestSumAmountsIsExact(t *testing.T) {
	var parts []decimal.Decimal
	for i := 0; i < 10; i++ {
		parts = append(parts, decimal.NewFromFloat(0.1))
	}
	if got := SumAmounts(parts...); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected 1, got %s", got)
	}
	if got := SumAmounts(); !got.IsZero() {
		t.Fatalf("expected zero for no amounts, got %s", got)
	}
}
