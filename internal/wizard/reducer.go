package wizard

import (
	"slices"

	"doacoes/internal"
)

// Reduce returns the state that follows s after a. It never mutates s:
// every slice it changes is copied first. Index-addressed actions with an
// out-of-range index return s unchanged.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case SetItems:
		s.Items = slices.Clone(act.Items)
		if s.Items == nil {
			s.Items = []internal.ImportItem{}
		}
		return s
	case UpdateItem:
		return updateItem(s, act.Index, func(item *internal.ImportItem) {
			act.Patch.apply(item)
		})
	case ExcludeItem:
		return updateItem(s, act.Index, func(item *internal.ImportItem) {
			item.IsExcluded = true
		})
	case IncludeItem:
		return updateItem(s, act.Index, func(item *internal.ImportItem) {
			item.IsExcluded = false
		})
	case SetPhotoOptions:
		return updateItem(s, act.Index, func(item *internal.ImportItem) {
			photos := slices.Clone(act.Photos)
			if photos == nil {
				photos = []internal.Photo{}
			}
			item.PhotoOptions = photos
		})
	case SelectPhoto:
		return updateItem(s, act.Index, func(item *internal.ImportItem) {
			url := act.URL
			item.SelectedPhotoURL = &url
		})
	case GoToStep:
		s.Step = act.Step
		return s
	case SetProcessing:
		s.IsProcessing = act.IsProcessing
		if act.Index != nil {
			s.ProcessingIndex = *act.Index
		}
		return s
	case AddResult:
		s.Results = append(slices.Clip(s.Results), act.Result)
		return s
	case Reset:
		return InitialState()
	default:
		return s
	}
}

func updateItem(s State, index int, fn func(*internal.ImportItem)) State {
	if index < 0 || index >= len(s.Items) {
		return s
	}
	items := slices.Clone(s.Items)
	fn(&items[index])
	s.Items = items
	return s
}

func (p ItemPatch) apply(item *internal.ImportItem) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.ClearCategory {
		item.CategoryID = nil
	} else if p.CategoryID != nil {
		id := *p.CategoryID
		item.CategoryID = &id
	}
	if p.TargetAmount != nil {
		item.TargetAmount = *p.TargetAmount
	}
	if p.DonationType != nil {
		item.DonationType = *p.DonationType
	}
	if p.ClearSelectedPhoto {
		item.SelectedPhotoURL = nil
	} else if p.SelectedPhotoURL != nil {
		url := *p.SelectedPhotoURL
		item.SelectedPhotoURL = &url
	}
}
