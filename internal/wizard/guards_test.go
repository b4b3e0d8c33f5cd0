package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doacoes/internal"
	"doacoes/internal/apperr"
)

func TestCheckTransition(t *testing.T) {
	withCategory := fixtureState()
	withCategory = Reduce(withCategory, UpdateItem{Index: 0, Patch: ItemPatch{CategoryID: strPtr("cat-1")}})

	withPhoto := Reduce(withCategory, GoToStep{Step: StepReviewPhotos})
	withPhoto = Reduce(withPhoto, SelectPhoto{Index: 0, URL: ""})

	cases := []struct {
		name  string
		state State
		to    Step
		ok    bool
	}{
		{name: "upload without items", state: InitialState(), to: StepReviewItems, ok: false},
		{name: "missing category", state: fixtureState(), to: StepReviewPhotos, ok: false},
		{name: "excluded items need no category", state: withCategory, to: StepReviewPhotos, ok: true},
		{name: "undecided photo", state: Reduce(withCategory, GoToStep{Step: StepReviewPhotos}), to: StepConfirm, ok: false},
		{name: "skipped photo counts as decided", state: withPhoto, to: StepConfirm, ok: true},
		{name: "backwards always allowed", state: withPhoto, to: StepUpload, ok: true},
		{name: "summary once results exist", state: Reduce(withPhoto, GoToStep{Step: StepConfirm}), to: StepSummary, ok: true},
		{name: "unknown step", state: withPhoto, to: Step("done"), ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckTransition(tc.state, tc.to)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
		})
	}
}

func TestCheckTransitionSkipsAheadThroughEveryGuard(t *testing.T) {
	s := Reduce(InitialState(), SetItems{Items: fixtureItems()})
	require.Error(t, CheckTransition(s, StepConfirm))
}

func TestCheckTransitionNoIncludedItems(t *testing.T) {
	s := Reduce(fixtureState(), ExcludeItem{Index: 0})
	err := CheckTransition(s, StepReviewPhotos)
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgNoIncludedItems)
}

func TestFinalizedItems(t *testing.T) {
	s := fixtureState()
	s = Reduce(s, UpdateItem{Index: 0, Patch: ItemPatch{CategoryID: strPtr("cat-1")}})
	s = Reduce(s, SelectPhoto{Index: 0, URL: "https://images.pexels.com/photos/1/large.jpg"})
	s = Reduce(s, IncludeItem{Index: 1})
	s = Reduce(s, UpdateItem{Index: 1, Patch: ItemPatch{CategoryID: strPtr("cat-2")}})

	got := FinalizedItems(s)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].RowIndex)
	assert.Equal(t, "cat-1", got[0].Item.CategoryID)
	assert.Equal(t, "https://images.pexels.com/photos/1/large.jpg", got[0].Item.PhotoURL)
	require.NotNil(t, got[0].Item.TargetAmount)
	assert.Equal(t, int64(15000), *got[0].Item.TargetAmount)
	assert.True(t, got[0].Item.IsPublished)

	assert.Equal(t, internal.DonationPhysical, got[1].Item.DonationType)
	assert.Nil(t, got[1].Item.TargetAmount)
	assert.Equal(t, "", got[1].Item.PhotoURL)
}
