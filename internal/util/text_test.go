package util

import "testing"

func TestFoldLabel(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "Eletrônicos", want: "eletronicos"},
		{input: "  Material   Escolar ", want: "material escolar"},
		{input: "Higiene & Limpeza", want: "higiene limpeza"},
		{input: "AÇÃO", want: "acao"},
	}
	for _, tc := range cases {
		if got := FoldLabel(tc.input); got != tc.want {
			t.Fatalf("FoldLabel(%q)=%q want %q", tc.input, got, tc.want)
		}
	}
}

func TestDiceCoefficient(t *testing.T) {
	if DiceCoefficient("eletronicos", "eletronicos") != 1 {
		t.Fatalf("identical strings should score 1")
	}
	if DiceCoefficient("", "abc") != 0 {
		t.Fatalf("empty string should score 0")
	}
	if s := DiceCoefficient("eletronico", "eletronicos"); s < 0.9 {
		t.Fatalf("near match scored %v", s)
	}
}

func TestRuneLen(t *testing.T) {
	if RuneLen("doação") != 6 {
		t.Fatalf("rune len=%d", RuneLen("doação"))
	}
}
