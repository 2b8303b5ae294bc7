package views

import (
	"github.com/rivo/tview"
)

// SearchBar filters the inbox. Every keystroke is forwarded; debouncing is
// the sync engine's job, not the view's.
type SearchBar struct {
	*tview.InputField
	onChange func(query string)
}

// NewSearchBar creates the inbox filter input.
func NewSearchBar() *SearchBar {
	input := tview.NewInputField().
		SetLabel(" / ").
		SetFieldWidth(0)

	sb := &SearchBar{InputField: input}

	input.SetChangedFunc(func(text string) {
		if sb.onChange != nil {
			sb.onChange(text)
		}
	})

	return sb
}

// SetOnChange sets the callback for query text changes.
func (sb *SearchBar) SetOnChange(fn func(query string)) {
	sb.onChange = fn
}
