package wizard

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/apperr"
	"doacoes/internal/logger"
)

const maxQueryLength = 200

type PhotoSearcher interface {
	SearchPhotos(ctx context.Context, query string, perPage int) ([]internal.Photo, error)
}

type CategorySuggester interface {
	Suggest(raw string) (categoryID string, ok bool)
}

// BulkCreator creates the finalized items one by one, calling progress
// after each item with its position in items.
type BulkCreator interface {
	BulkCreate(ctx context.Context, items []internal.BulkItem, progress func(int, internal.ImportResult)) ([]internal.ImportResult, error)
}

// Observer sees every action together with the state it produced.
type Observer func(a Action, s State)

// Session owns the single state of one import run. It is not safe for
// concurrent use.
type Session struct {
	state    State
	observer Observer
	log      *zap.Logger
}

type PhotoFailure struct {
	RowIndex int
	Code     apperr.Code
	Message  string
}

func NewSession(log *zap.Logger, observer Observer) *Session {
	return &Session{state: InitialState(), observer: observer, log: logger.OrNop(log)}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Dispatch(a Action) State {
	s.state = Reduce(s.state, a)
	s.log.Debug("wizard action", zap.String("action", string(a.Type())), zap.String("step", string(s.state.Step)))
	if s.observer != nil {
		s.observer(a, s.state)
	}
	return s.state
}

// Load replaces the items and moves to item review.
func (s *Session) Load(items []internal.ImportItem) error {
	s.Dispatch(SetItems{Items: items})
	return s.Advance(StepReviewItems)
}

// Advance moves to step after checking the step's entry requirements.
func (s *Session) Advance(step Step) error {
	if err := CheckTransition(s.state, step); err != nil {
		return err
	}
	s.Dispatch(GoToStep{Step: step})
	return nil
}

// SuggestCategories fills the category of every item that has none yet and
// returns how many were matched.
func (s *Session) SuggestCategories(suggester CategorySuggester) int {
	matched := 0
	for i, item := range s.state.Items {
		if item.CategoryID != nil || strings.TrimSpace(item.CategoryNameRaw) == "" {
			continue
		}
		id, ok := suggester.Suggest(item.CategoryNameRaw)
		if !ok {
			continue
		}
		s.Dispatch(UpdateItem{Index: i, Patch: ItemPatch{CategoryID: &id}})
		matched++
	}
	return matched
}

// LoadPhotoOptions searches photos for every included item that has no
// options yet, one item at a time. A rate-limit answer stops the loop; the
// remaining items keep their empty options.
func (s *Session) LoadPhotoOptions(ctx context.Context, searcher PhotoSearcher, perPage int) []PhotoFailure {
	var failures []PhotoFailure
	for _, i := range s.state.Included() {
		item := s.state.Items[i]
		if len(item.PhotoOptions) > 0 {
			continue
		}
		photos, err := searcher.SearchPhotos(ctx, searchQuery(item.Name), perPage)
		if err != nil {
			code := apperr.CodeOf(err)
			failures = append(failures, PhotoFailure{RowIndex: item.RowIndex, Code: code, Message: apperr.MessageOf(err)})
			s.log.Warn("photo search failed", zap.Int("row", item.RowIndex), zap.String("code", string(code)), zap.Error(err))
			if code == apperr.CodeRateLimited {
				break
			}
			continue
		}
		s.Dispatch(SetPhotoOptions{Index: i, Photos: photos})
	}
	return failures
}

// Confirm runs bulk creation for the included items and folds each result
// into the state as soon as it is produced. A whole-batch rejection leaves
// the session on the confirm step with no results.
func (s *Session) Confirm(ctx context.Context, creator BulkCreator) error {
	if s.state.IsProcessing {
		return apperr.New(apperr.CodeConflict, "importação já em andamento")
	}
	if s.state.Step != StepConfirm {
		return apperr.Validation("confirme a importação na etapa de confirmação")
	}
	for _, step := range []Step{StepReviewPhotos, StepConfirm} {
		if err := checkEntry(s.state, step); err != nil {
			return err
		}
	}

	finalized := FinalizedItems(s.state)
	items := make([]internal.BulkItem, 0, len(finalized))
	for _, f := range finalized {
		items = append(items, f.Item)
	}

	start := 0
	s.Dispatch(SetProcessing{IsProcessing: true, Index: &start})

	_, err := creator.BulkCreate(ctx, items, func(i int, res internal.ImportResult) {
		if i >= 0 && i < len(finalized) {
			res.RowIndex = finalized[i].RowIndex
		}
		next := i + 1
		s.Dispatch(SetProcessing{IsProcessing: true, Index: &next})
		s.Dispatch(AddResult{Result: res})
	})
	s.Dispatch(SetProcessing{IsProcessing: false})
	if err != nil {
		s.log.Warn("bulk creation rejected", zap.Error(err))
		return err
	}

	s.Dispatch(GoToStep{Step: StepSummary})
	s.log.Info("import finished", zap.Int("items", len(items)), zap.Int("succeeded", s.state.Succeeded()))
	return nil
}

func (s *Session) Reset() {
	s.Dispatch(Reset{})
}

func searchQuery(name string) string {
	r := []rune(strings.TrimSpace(name))
	if len(r) > maxQueryLength {
		r = r[:maxQueryLength]
	}
	return string(r)
}
