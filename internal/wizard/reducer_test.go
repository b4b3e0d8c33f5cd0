package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doacoes/internal"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func fixtureItems() []internal.ImportItem {
	return []internal.ImportItem{
		{RowIndex: 0, Name: "Impressora", CategoryNameRaw: "Eletrônicos", TargetAmount: 15000, DonationType: internal.DonationMonetary, Description: "Impressora para doação. Categoria: Eletrônicos", PhotoOptions: []internal.Photo{}, IsValid: true, ValidationErrors: []string{}},
		{RowIndex: 1, Name: "", CategoryNameRaw: "Móveis", DonationType: internal.DonationPhysical, Description: " para doação. Categoria: Móveis", PhotoOptions: []internal.Photo{}, IsValid: false, ValidationErrors: []string{"Nome é obrigatório"}, IsExcluded: true},
	}
}

func fixtureState() State {
	s := Reduce(InitialState(), SetItems{Items: fixtureItems()})
	s = Reduce(s, GoToStep{Step: StepReviewItems})
	s = Reduce(s, AddResult{Result: internal.ImportResult{RowIndex: 9, Name: "x", Success: true, ProductID: "p"}})
	return s
}

func TestInitialState(t *testing.T) {
	s := InitialState()
	assert.Equal(t, StepUpload, s.Step)
	assert.Empty(t, s.Items)
	assert.Empty(t, s.Results)
	assert.False(t, s.IsProcessing)
	assert.Equal(t, 0, s.ProcessingIndex)
}

func TestSetItemsCopiesInput(t *testing.T) {
	items := fixtureItems()
	s := Reduce(InitialState(), SetItems{Items: items})
	items[0].Name = "mutated"
	assert.Equal(t, "Impressora", s.Items[0].Name)

	s = Reduce(s, SetItems{Items: nil})
	assert.NotNil(t, s.Items)
	assert.Empty(t, s.Items)
}

func TestUpdateItemMergesAndKeepsValidation(t *testing.T) {
	before := fixtureState()
	after := Reduce(before, UpdateItem{Index: 1, Patch: ItemPatch{Name: strPtr("Mesa"), CategoryID: strPtr("cat-1")}})

	assert.Equal(t, "Mesa", after.Items[1].Name)
	assert.Equal(t, "cat-1", *after.Items[1].CategoryID)
	assert.False(t, after.Items[1].IsValid)
	assert.Equal(t, []string{"Nome é obrigatório"}, after.Items[1].ValidationErrors)
	assert.True(t, after.Items[1].IsExcluded)
	assert.Equal(t, "", before.Items[1].Name)
	assert.Nil(t, before.Items[1].CategoryID)

	cleared := Reduce(after, UpdateItem{Index: 1, Patch: ItemPatch{ClearCategory: true}})
	assert.Nil(t, cleared.Items[1].CategoryID)
	assert.NotNil(t, after.Items[1].CategoryID)
}

func TestIndexOutOfRangeIsNoop(t *testing.T) {
	s := fixtureState()
	actions := []Action{
		UpdateItem{Index: 5, Patch: ItemPatch{Name: strPtr("x")}},
		UpdateItem{Index: -1, Patch: ItemPatch{Name: strPtr("x")}},
		ExcludeItem{Index: 2},
		IncludeItem{Index: 99},
		SetPhotoOptions{Index: 3, Photos: []internal.Photo{{ID: 1}}},
		SelectPhoto{Index: 7, URL: "https://images.pexels.com/a.jpg"},
	}
	for _, a := range actions {
		assert.Equal(t, s, Reduce(s, a), string(a.Type()))
	}
}

func TestExcludeInclude(t *testing.T) {
	s := fixtureState()
	s = Reduce(s, ExcludeItem{Index: 0})
	assert.True(t, s.Items[0].IsExcluded)
	assert.True(t, s.Items[0].IsValid)

	s = Reduce(s, IncludeItem{Index: 1})
	assert.False(t, s.Items[1].IsExcluded)
	assert.False(t, s.Items[1].IsValid)
}

func TestPhotoSelection(t *testing.T) {
	s := fixtureState()
	photos := []internal.Photo{{ID: 1, Src: "https://images.pexels.com/1-m.jpg", SrcLarge: "https://images.pexels.com/1-l.jpg"}}
	s = Reduce(s, SetPhotoOptions{Index: 0, Photos: photos})
	require.Len(t, s.Items[0].PhotoOptions, 1)

	s = Reduce(s, SelectPhoto{Index: 0, URL: ""})
	require.NotNil(t, s.Items[0].SelectedPhotoURL)
	assert.Equal(t, "", *s.Items[0].SelectedPhotoURL)

	s = Reduce(s, SelectPhoto{Index: 0, URL: photos[0].SrcLarge})
	assert.Equal(t, photos[0].SrcLarge, *s.Items[0].SelectedPhotoURL)
}

func TestGoToStepDoesNotValidate(t *testing.T) {
	s := Reduce(InitialState(), GoToStep{Step: StepConfirm})
	assert.Equal(t, StepConfirm, s.Step)
	s = Reduce(s, GoToStep{Step: StepReviewItems})
	assert.Equal(t, StepReviewItems, s.Step)
}

func TestSetProcessing(t *testing.T) {
	s := Reduce(InitialState(), SetProcessing{IsProcessing: true, Index: intPtr(3)})
	assert.True(t, s.IsProcessing)
	assert.Equal(t, 3, s.ProcessingIndex)

	s = Reduce(s, SetProcessing{IsProcessing: false})
	assert.False(t, s.IsProcessing)
	assert.Equal(t, 3, s.ProcessingIndex)
}

func TestAddResultAppendsWithoutDedup(t *testing.T) {
	base := InitialState()
	r := internal.ImportResult{RowIndex: 0, Name: "Mesa", Success: false, Error: "Erro ao enviar foto"}
	one := Reduce(base, AddResult{Result: r})
	two := Reduce(one, AddResult{Result: r})
	other := Reduce(one, AddResult{Result: internal.ImportResult{RowIndex: 1}})

	assert.Len(t, two.Results, 2)
	assert.Len(t, one.Results, 1)
	assert.Equal(t, 0, two.Results[1].RowIndex)
	assert.Equal(t, 1, other.Results[1].RowIndex)
	assert.Empty(t, base.Results)
}

func TestResetReturnsInitialState(t *testing.T) {
	s := fixtureState()
	s = Reduce(s, SetProcessing{IsProcessing: true, Index: intPtr(4)})
	s = Reduce(s, GoToStep{Step: StepSummary})
	assert.Equal(t, InitialState(), Reduce(s, Reset{}))
}

func TestReduceIsDeterministic(t *testing.T) {
	start := fixtureState()
	actions := allActions()
	for _, a := range actions {
		first := Reduce(start, a)
		second := Reduce(start, a)
		assert.Equal(t, first, second, string(a.Type()))
	}
}

func TestEveryActionIsHandled(t *testing.T) {
	start := fixtureState()
	seen := map[ActionType]bool{}
	for _, a := range allActions() {
		seen[a.Type()] = true
		assert.NotEqual(t, start, Reduce(start, a), "action %s left state unchanged", a.Type())
	}
	assert.Len(t, seen, 10)
}

type unknownAction struct{ Reset }

func TestUnknownActionIsNoop(t *testing.T) {
	s := fixtureState()
	assert.Equal(t, s, Reduce(s, unknownAction{}))
}

func allActions() []Action {
	return []Action{
		SetItems{Items: fixtureItems()[:1]},
		UpdateItem{Index: 0, Patch: ItemPatch{Description: strPtr("nova descrição")}},
		ExcludeItem{Index: 0},
		IncludeItem{Index: 1},
		SetPhotoOptions{Index: 0, Photos: []internal.Photo{{ID: 7}}},
		SelectPhoto{Index: 0, URL: ""},
		GoToStep{Step: StepReviewPhotos},
		SetProcessing{IsProcessing: true, Index: intPtr(1)},
		AddResult{Result: internal.ImportResult{RowIndex: 0, Name: "Impressora", Success: true, ProductID: "p-1"}},
		Reset{},
	}
}
