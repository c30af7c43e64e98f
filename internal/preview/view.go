package preview

import (
	"html/template"

	"hnskin/internal/types"
)

// ViewState names what the popover is showing
type ViewState string

const (
	StateLoading ViewState = "loading"
	StateContent ViewState = "content"
	StateError   ViewState = "error"
)

// View is one of Loading, Content or Failure
type View interface {
	State() ViewState
	// Subject is the username the view is about
	Subject() string
}

// Loading is shown while a profile is being resolved
type Loading struct {
	Username string
}

// Content shows a resolved profile
type Content struct {
	Profile *types.ProfileRecord
}

// Failure is shown when a profile could not be loaded
type Failure struct {
	Username string
}

func (v Loading) State() ViewState { return StateLoading }
func (v Loading) Subject() string  { return v.Username }

func (v Content) State() ViewState { return StateContent }
func (v Content) Subject() string  { return v.Profile.Username }

func (v Failure) State() ViewState { return StateError }
func (v Failure) Subject() string  { return v.Username }

// ResultView is the view for a finished lookup; nil means unavailable
func ResultView(username string, record *types.ProfileRecord) View {
	if record == nil {
		return Failure{Username: username}
	}
	return Content{Profile: record}
}

// Frame is a rendered view, ready for a surface
type Frame struct {
	State    ViewState     `json:"state"`
	Username string        `json:"username"`
	HTML     template.HTML `json:"html"`
}
