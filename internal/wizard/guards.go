package wizard

import (
	"fmt"
	"strings"

	"doacoes/internal"
	"doacoes/internal/apperr"
)

const (
	MsgNoItems          = "Nenhum item carregado"
	MsgNoIncludedItems  = "Inclua ao menos um item para continuar"
	MsgMissingCategory  = "Selecione uma categoria para todos os itens incluídos"
	MsgMissingPhoto     = "Escolha uma foto ou pule a foto de todos os itens incluídos"
	MsgSummaryViaResult = "O resumo só é exibido após a criação dos itens"
	MsgUnknownStep      = "Etapa desconhecida"
)

// CheckTransition reports whether the session may move from s.Step to the
// target step. Moving backwards is always allowed; moving forwards requires
// the data each later step depends on.
func CheckTransition(s State, to Step) error {
	if !to.Valid() {
		return apperr.Validation(MsgUnknownStep).WithDetails(map[string]string{"step": string(to)})
	}
	if to.Position() <= s.Step.Position() {
		return nil
	}

	for _, step := range stepOrder[s.Step.Position()+1 : to.Position()+1] {
		if err := checkEntry(s, step); err != nil {
			return err
		}
	}
	return nil
}

func checkEntry(s State, step Step) error {
	switch step {
	case StepReviewItems:
		if len(s.Items) == 0 {
			return apperr.Validation(MsgNoItems)
		}
	case StepReviewPhotos:
		included := s.Included()
		if len(included) == 0 {
			return apperr.Validation(MsgNoIncludedItems)
		}
		if missing := rowsWhere(s, included, func(item internal.ImportItem) bool {
			return item.CategoryID == nil || strings.TrimSpace(*item.CategoryID) == ""
		}); len(missing) > 0 {
			return apperr.Validation(fmt.Sprintf("%s (linhas %s)", MsgMissingCategory, describeRows(missing))).WithDetails(map[string]any{"rows": missing})
		}
	case StepConfirm:
		if missing := rowsWhere(s, s.Included(), func(item internal.ImportItem) bool {
			return item.SelectedPhotoURL == nil
		}); len(missing) > 0 {
			return apperr.Validation(fmt.Sprintf("%s (linhas %s)", MsgMissingPhoto, describeRows(missing))).WithDetails(map[string]any{"rows": missing})
		}
	case StepSummary:
		if len(s.Results) == 0 {
			return apperr.Validation(MsgSummaryViaResult)
		}
	}
	return nil
}

func rowsWhere(s State, indexes []int, pred func(internal.ImportItem) bool) []int {
	var rows []int
	for _, i := range indexes {
		if pred(s.Items[i]) {
			rows = append(rows, s.Items[i].RowIndex)
		}
	}
	return rows
}

// Finalized is an included item ready for bulk creation, paired with the
// upload row it came from.
type Finalized struct {
	RowIndex int
	Item     internal.BulkItem
}

// FinalizedItems converts the included items into bulk creation input.
// Physical items carry no target amount.
func FinalizedItems(s State) []Finalized {
	out := make([]Finalized, 0, len(s.Items))
	for _, i := range s.Included() {
		item := s.Items[i]
		bulk := internal.BulkItem{
			Name:         item.Name,
			Description:  item.Description,
			DonationType: item.DonationType,
			IsPublished:  true,
		}
		if item.CategoryID != nil {
			bulk.CategoryID = *item.CategoryID
		}
		if item.SelectedPhotoURL != nil {
			bulk.PhotoURL = *item.SelectedPhotoURL
		}
		if item.DonationType == internal.DonationMonetary {
			amount := item.TargetAmount
			bulk.TargetAmount = &amount
		}
		out = append(out, Finalized{RowIndex: item.RowIndex, Item: bulk})
	}
	return out
}

func describeRows(rows []int) string {
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, fmt.Sprintf("%d", r+1))
	}
	return strings.Join(parts, ", ")
}
