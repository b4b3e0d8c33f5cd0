package importer

import "testing"

func TestGenerateDescription(t *testing.T) {
	cases := []struct {
		name     string
		item     string
		category string
		want     string
	}{
		{name: "with category", item: "Impressora", category: "Eletrônicos", want: "Impressora para doação. Categoria: Eletrônicos"},
		{name: "without category", item: "Mesa", category: "", want: "Mesa para doação."},
		{name: "blank category", item: "Mesa", category: "   ", want: "Mesa para doação."},
		{name: "trims both", item: "  Cadeira ", category: " Móveis  ", want: "Cadeira para doação. Categoria: Móveis"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := GenerateDescription(tc.item, tc.category)
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
			if again := GenerateDescription(tc.item, tc.category); again != got {
				t.Fatalf("not deterministic: %q vs %q", again, got)
			}
		})
	}
}
