package wizard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/apperr"
)

type fakeSearcher struct {
	calls   []string
	results map[string][]internal.Photo
	errs    map[string]error
}

func (f *fakeSearcher) SearchPhotos(_ context.Context, query string, _ int) ([]internal.Photo, error) {
	f.calls = append(f.calls, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

type mapSuggester map[string]string

func (m mapSuggester) Suggest(raw string) (string, bool) {
	id, ok := m[raw]
	return id, ok
}

type fakeCreator struct {
	rejectWith error
	fail       map[string]string
	got        []internal.BulkItem
}

func (f *fakeCreator) BulkCreate(_ context.Context, items []internal.BulkItem, progress func(int, internal.ImportResult)) ([]internal.ImportResult, error) {
	if f.rejectWith != nil {
		return nil, f.rejectWith
	}
	f.got = items
	out := make([]internal.ImportResult, 0, len(items))
	for i, item := range items {
		res := internal.ImportResult{RowIndex: i, Name: item.Name, Success: true, ProductID: "id-" + item.Name}
		if msg, ok := f.fail[item.Name]; ok {
			res = internal.ImportResult{RowIndex: i, Name: item.Name, Error: msg}
		}
		out = append(out, res)
		progress(i, res)
	}
	return out, nil
}

func loadedSession(t *testing.T, observer Observer) *Session {
	t.Helper()
	items := []internal.ImportItem{
		{RowIndex: 0, Name: "Impressora", CategoryNameRaw: "Eletrônicos", TargetAmount: 15000, DonationType: internal.DonationMonetary, Description: "d", PhotoOptions: []internal.Photo{}, IsValid: true},
		{RowIndex: 1, Name: "", CategoryNameRaw: "", IsExcluded: true, PhotoOptions: []internal.Photo{}},
		{RowIndex: 2, Name: "Mesa", CategoryNameRaw: "Móveis", DonationType: internal.DonationPhysical, Description: "d", PhotoOptions: []internal.Photo{}, IsValid: true},
	}
	s := NewSession(zap.NewNop(), observer)
	require.NoError(t, s.Load(items))
	return s
}

func TestSessionHappyPath(t *testing.T) {
	var seen []ActionType
	s := loadedSession(t, func(a Action, _ State) { seen = append(seen, a.Type()) })

	matched := s.SuggestCategories(mapSuggester{"Eletrônicos": "cat-ele", "Móveis": "cat-mov"})
	assert.Equal(t, 2, matched)
	require.NoError(t, s.Advance(StepReviewPhotos))

	searcher := &fakeSearcher{results: map[string][]internal.Photo{
		"Impressora": {{ID: 1, SrcLarge: "https://images.pexels.com/photos/1/large.jpg"}},
		"Mesa":       {{ID: 2, SrcLarge: "https://images.pexels.com/photos/2/large.jpg"}},
	}}
	failures := s.LoadPhotoOptions(context.Background(), searcher, 3)
	assert.Empty(t, failures)
	assert.Equal(t, []string{"Impressora", "Mesa"}, searcher.calls)

	require.Error(t, s.Advance(StepConfirm))
	s.Dispatch(SelectPhoto{Index: 0, URL: s.State().Items[0].PhotoOptions[0].SrcLarge})
	s.Dispatch(SelectPhoto{Index: 2, URL: ""})
	require.NoError(t, s.Advance(StepConfirm))

	creator := &fakeCreator{fail: map[string]string{"Mesa": "Erro ao criar produto"}}
	require.NoError(t, s.Confirm(context.Background(), creator))

	state := s.State()
	assert.Equal(t, StepSummary, state.Step)
	assert.False(t, state.IsProcessing)
	assert.Equal(t, 2, state.ProcessingIndex)
	require.Len(t, state.Results, 2)
	assert.Equal(t, 0, state.Results[0].RowIndex)
	assert.True(t, state.Results[0].Success)
	assert.Equal(t, 2, state.Results[1].RowIndex)
	assert.Equal(t, "Erro ao criar produto", state.Results[1].Error)
	assert.Equal(t, 1, state.Succeeded())

	require.Len(t, creator.got, 2)
	assert.Equal(t, "cat-mov", creator.got[1].CategoryID)

	assert.Contains(t, seen, ActionAddResult)
	assert.Equal(t, ActionGoToStep, seen[len(seen)-1])

	s.Reset()
	assert.Equal(t, InitialState(), s.State())
}

func TestSessionConfirmRejected(t *testing.T) {
	s := loadedSession(t, nil)
	s.SuggestCategories(mapSuggester{"Eletrônicos": "cat-ele", "Móveis": "cat-mov"})
	require.NoError(t, s.Advance(StepReviewPhotos))
	s.Dispatch(SelectPhoto{Index: 0, URL: ""})
	s.Dispatch(SelectPhoto{Index: 2, URL: ""})
	require.NoError(t, s.Advance(StepConfirm))

	err := s.Confirm(context.Background(), &fakeCreator{rejectWith: apperr.Unauthorized()})
	require.Error(t, err)
	assert.Equal(t, StepConfirm, s.State().Step)
	assert.Empty(t, s.State().Results)
	assert.False(t, s.State().IsProcessing)
}

func TestSessionConfirmRequiresConfirmStep(t *testing.T) {
	s := loadedSession(t, nil)
	err := s.Confirm(context.Background(), &fakeCreator{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestSessionConfirmRechecksGuards(t *testing.T) {
	s := loadedSession(t, nil)
	s.Dispatch(GoToStep{Step: StepConfirm})
	err := s.Confirm(context.Background(), &fakeCreator{})
	require.Error(t, err)
	assert.Empty(t, s.State().Results)
}

func TestLoadPhotoOptionsStopsOnRateLimit(t *testing.T) {
	s := loadedSession(t, nil)
	searcher := &fakeSearcher{errs: map[string]error{"Impressora": apperr.RateLimited("Limite de busca excedido.")}}

	failures := s.LoadPhotoOptions(context.Background(), searcher, 3)
	require.Len(t, failures, 1)
	assert.Equal(t, apperr.CodeRateLimited, failures[0].Code)
	assert.Equal(t, []string{"Impressora"}, searcher.calls)
}

func TestLoadPhotoOptionsContinuesOnGenericFailure(t *testing.T) {
	s := loadedSession(t, nil)
	searcher := &fakeSearcher{
		errs:    map[string]error{"Impressora": apperr.ExternalAPI("Erro ao buscar fotos. Tente novamente.")},
		results: map[string][]internal.Photo{"Mesa": {{ID: 3}}},
	}

	failures := s.LoadPhotoOptions(context.Background(), searcher, 3)
	require.Len(t, failures, 1)
	assert.Equal(t, apperr.CodeExternalAPI, failures[0].Code)
	assert.Len(t, s.State().Items[2].PhotoOptions, 1)
}

func TestLoadRejectsEmptyUpload(t *testing.T) {
	s := NewSession(nil, nil)
	require.Error(t, s.Load(nil))
	assert.Equal(t, StepUpload, s.State().Step)
}
