package catalog

import (
	"strings"

	"doacoes/internal"
	"doacoes/internal/util"
)

// MinSuggestScore is the lowest Dice similarity accepted when no category
// name contains the raw label.
const MinSuggestScore = 0.6

type CategoryIndex struct {
	categories []internal.Category
	folded     []string
	byFolded   map[string]string
}

func BuildCategoryIndex(categories []internal.Category) *CategoryIndex {
	idx := &CategoryIndex{
		categories: categories,
		folded:     make([]string, len(categories)),
		byFolded:   map[string]string{},
	}
	for i, c := range categories {
		f := util.FoldLabel(c.Name)
		idx.folded[i] = f
		if _, ok := idx.byFolded[f]; !ok {
			idx.byFolded[f] = c.ID
		}
	}
	return idx
}

func (idx *CategoryIndex) Len() int {
	return len(idx.categories)
}

// Suggest maps a free-text category label to a category id. An exact
// folded match wins, then the first category whose folded name contains
// the label (or is contained by it), then the best Dice score at or above
// MinSuggestScore.
func (idx *CategoryIndex) Suggest(raw string) (string, bool) {
	needle := util.FoldLabel(raw)
	if needle == "" {
		return "", false
	}
	if id, ok := idx.byFolded[needle]; ok {
		return id, true
	}

	for i, f := range idx.folded {
		if f == "" {
			continue
		}
		if strings.Contains(f, needle) || strings.Contains(needle, f) {
			return idx.categories[i].ID, true
		}
	}

	bestID, bestScore := "", 0.0
	for i, f := range idx.folded {
		score := util.DiceCoefficient(needle, f)
		if score > bestScore {
			bestID, bestScore = idx.categories[i].ID, score
		}
	}
	if bestScore >= MinSuggestScore {
		return bestID, true
	}
	return "", false
}
