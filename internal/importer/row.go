package importer

import (
	"strings"

	"doacoes/internal"
	"doacoes/internal/util"
)

const MaxNameLength = 200

const (
	MsgNameRequired     = "Nome é obrigatório"
	MsgNameTooLong      = "Nome deve ter no máximo 200 caracteres"
	MsgCategoryRequired = "Categoria é obrigatória"
	MsgAmountRequired   = "Valor é obrigatório"
	MsgAmountInvalid    = "Valor deve ser um número positivo"
	MsgTypeInvalid      = `Tipo deve ser "monetário" ou "físico"`
)

// RawRow holds the four named columns of one uploaded data row.
type RawRow struct {
	Name     string
	Category string
	Amount   string
	Type     string
}

func (r RawRow) blank() bool {
	return strings.TrimSpace(r.Name) == "" &&
		strings.TrimSpace(r.Category) == "" &&
		strings.TrimSpace(r.Amount) == "" &&
		strings.TrimSpace(r.Type) == ""
}

var (
	physicalLabels = map[string]struct{}{"fisico": {}, "physical": {}}
	monetaryLabels = map[string]struct{}{"monetario": {}, "monetary": {}}
)

// ValidateRow turns a raw row into an import item. Field checks accumulate;
// a row with any error starts excluded.
func ValidateRow(rowIndex int, raw RawRow) internal.ImportItem {
	name := strings.TrimSpace(raw.Name)
	category := strings.TrimSpace(raw.Category)
	amountText := strings.TrimSpace(raw.Amount)
	typeText := strings.TrimSpace(raw.Type)

	errs := make([]string, 0)

	if name == "" {
		errs = append(errs, MsgNameRequired)
	} else if util.RuneLen(name) > MaxNameLength {
		errs = append(errs, MsgNameTooLong)
	}

	if category == "" {
		errs = append(errs, MsgCategoryRequired)
	}

	var amount int64
	if amountText == "" {
		errs = append(errs, MsgAmountRequired)
	} else if cents, ok := util.ParseAmountCents(amountText); ok {
		amount = cents
	} else {
		errs = append(errs, MsgAmountInvalid)
	}

	donationType, typeOK := DetectDonationType(typeText)
	if !typeOK {
		errs = append(errs, MsgTypeInvalid)
	}

	valid := len(errs) == 0
	return internal.ImportItem{
		RowIndex:         rowIndex,
		Name:             name,
		CategoryNameRaw:  category,
		TargetAmount:     amount,
		DonationType:     donationType,
		Description:      GenerateDescription(name, category),
		PhotoOptions:     []internal.Photo{},
		IsValid:          valid,
		ValidationErrors: errs,
		IsExcluded:       !valid,
	}
}

// DetectDonationType maps a type label to a donation type. Empty and
// unknown labels fall back to monetary; ok is false only for unknown ones.
func DetectDonationType(label string) (internal.DonationType, bool) {
	folded := util.FoldLabel(label)
	if folded == "" {
		return internal.DonationMonetary, true
	}
	if _, found := physicalLabels[folded]; found {
		return internal.DonationPhysical, true
	}
	if _, found := monetaryLabels[folded]; found {
		return internal.DonationMonetary, true
	}
	return internal.DonationMonetary, false
}
