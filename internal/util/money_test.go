package util

import (
	"math"
	"testing"
)

func TestParseAmountCents(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int64
		ok    bool
	}{
		{name: "two decimals", input: "150.00", want: 15000, ok: true},
		{name: "half cents", input: "200.50", want: 20050, ok: true},
		{name: "odd cents", input: "150.50", want: 15050, ok: true},
		{name: "integer", input: "80", want: 8000, ok: true},
		{name: "float artifacts", input: "0.29", want: 29, ok: true},
		{name: "rounds half away from zero", input: "1.005", want: 101, ok: true},
		{name: "padded", input: " 12.3 ", want: 1230, ok: true},
		{name: "zero", input: "0", ok: false},
		{name: "negative", input: "-10", ok: false},
		{name: "text", input: "abc", ok: false},
		{name: "comma separator", input: "10,50", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "exponent overflow", input: "1e30", ok: false},
		{name: "beyond int64 cents", input: "99999999999999999999", ok: false},
		{name: "largest cents", input: "92233720368547758.07", want: math.MaxInt64, ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseAmountCents(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestFormatBRL(t *testing.T) {
	cases := map[int64]string{
		0:        "R$ 0,00",
		5:        "R$ 0,05",
		15000:    "R$ 150,00",
		123456:   "R$ 1.234,56",
		12345678: "R$ 123.456,78",
		-2050:    "-R$ 20,50",
	}
	for cents, want := range cases {
		if got := FormatBRL(cents); got != want {
			t.Fatalf("FormatBRL(%d)=%q want %q", cents, got, want)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	if got := ProgressPercent(5000, 10000); got != 50 {
		t.Fatalf("got %d", got)
	}
	if got := ProgressPercent(15000, 10000); got != 100 {
		t.Fatalf("capped got %d", got)
	}
	if got := ProgressPercent(1, 3); got != 33 {
		t.Fatalf("rounded got %d", got)
	}
	if got := ProgressPercent(10, 0); got != 0 {
		t.Fatalf("zero target got %d", got)
	}
}
