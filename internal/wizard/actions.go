package wizard

import "doacoes/internal"

type ActionType string

const (
	ActionSetItems        ActionType = "SET_ITEMS"
	ActionUpdateItem      ActionType = "UPDATE_ITEM"
	ActionExcludeItem     ActionType = "EXCLUDE_ITEM"
	ActionIncludeItem     ActionType = "INCLUDE_ITEM"
	ActionSetPhotoOptions ActionType = "SET_PHOTO_OPTIONS"
	ActionSelectPhoto     ActionType = "SELECT_PHOTO"
	ActionGoToStep        ActionType = "GO_TO_STEP"
	ActionSetProcessing   ActionType = "SET_PROCESSING"
	ActionAddResult       ActionType = "ADD_RESULT"
	ActionReset           ActionType = "RESET"
)

// Action is implemented only by the types in this file.
type Action interface {
	Type() ActionType
	sealed()
}

type SetItems struct {
	Items []internal.ImportItem
}

// UpdateItem merges the non-nil fields of Patch into Items[Index].
type UpdateItem struct {
	Index int
	Patch ItemPatch
}

type ExcludeItem struct {
	Index int
}

type IncludeItem struct {
	Index int
}

type SetPhotoOptions struct {
	Index  int
	Photos []internal.Photo
}

// SelectPhoto with an empty URL records that the item has no photo.
type SelectPhoto struct {
	Index int
	URL   string
}

type GoToStep struct {
	Step Step
}

// SetProcessing leaves ProcessingIndex alone when Index is nil.
type SetProcessing struct {
	IsProcessing bool
	Index        *int
}

type AddResult struct {
	Result internal.ImportResult
}

type Reset struct{}

// ItemPatch lists the editable fields of an import item. ClearCategory and
// ClearSelectedPhoto set the matching field back to undecided.
type ItemPatch struct {
	Name               *string
	Description        *string
	CategoryID         *string
	ClearCategory      bool
	TargetAmount       *int64
	DonationType       *internal.DonationType
	SelectedPhotoURL   *string
	ClearSelectedPhoto bool
}

func (SetItems) Type() ActionType        { return ActionSetItems }
func (UpdateItem) Type() ActionType      { return ActionUpdateItem }
func (ExcludeItem) Type() ActionType     { return ActionExcludeItem }
func (IncludeItem) Type() ActionType     { return ActionIncludeItem }
func (SetPhotoOptions) Type() ActionType { return ActionSetPhotoOptions }
func (SelectPhoto) Type() ActionType     { return ActionSelectPhoto }
func (GoToStep) Type() ActionType        { return ActionGoToStep }
func (SetProcessing) Type() ActionType   { return ActionSetProcessing }
func (AddResult) Type() ActionType       { return ActionAddResult }
func (Reset) Type() ActionType           { return ActionReset }

func (SetItems) sealed()        {}
func (UpdateItem) sealed()      {}
func (ExcludeItem) sealed()     {}
func (IncludeItem) sealed()     {}
func (SetPhotoOptions) sealed() {}
func (SelectPhoto) sealed()     {}
func (GoToStep) sealed()        {}
func (SetProcessing) sealed()   {}
func (AddResult) sealed()       {}
func (Reset) sealed()           {}
