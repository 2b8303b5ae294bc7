package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/ltavares/courier/internal/store"
	"github.com/rivo/tview"
)

// ComposeModal is the group-message dialog: a user search input, a
// recipient toggle list, and a message body input.
type ComposeModal struct {
	*tview.Flex
	search  *tview.InputField
	results *tview.List
	body    *tview.InputField

	hits     []store.UserSearchResult
	chosen   map[string]bool
	order    []string
	onSearch func(query string)
	onSubmit func(receivers []string, body string)
	onClose  func()
}

// NewComposeModal creates the group compose dialog.
func NewComposeModal() *ComposeModal {
	search := tview.NewInputField().
		SetLabel(" To: ").
		SetFieldWidth(0)

	results := tview.NewList().
		ShowSecondaryText(false)
	results.SetBorder(true).SetTitle(" Recipients (Enter toggles) ")

	body := tview.NewInputField().
		SetLabel(" Message: ").
		SetFieldWidth(0)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(search, 1, 0, true).
		AddItem(results, 0, 1, false).
		AddItem(body, 1, 0, false)
	flex.SetBorder(true).SetTitle(" New Group Message ")

	m := &ComposeModal{
		Flex:    flex,
		search:  search,
		results: results,
		body:    body,
		chosen:  map[string]bool{},
	}

	search.SetChangedFunc(func(text string) {
		if m.onSearch != nil {
			m.onSearch(text)
		}
	})
	results.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		if index < 0 || index >= len(m.hits) {
			return
		}
		m.toggle(m.hits[index].ID)
		m.render()
	})
	body.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || m.onSubmit == nil {
			return
		}
		receivers := m.Receivers()
		text := m.body.GetText()
		if len(receivers) == 0 || text == "" {
			return
		}
		m.onSubmit(receivers, text)
	})

	return m
}

// SetOnSearch sets the user-search callback.
func (m *ComposeModal) SetOnSearch(fn func(query string)) {
	m.onSearch = fn
}

// SetOnSubmit sets the submit callback.
func (m *ComposeModal) SetOnSubmit(fn func(receivers []string, body string)) {
	m.onSubmit = fn
}

// SetOnClose sets the close callback, fired on Escape.
func (m *ComposeModal) SetOnClose(fn func()) {
	m.onClose = fn
	m.Flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape && m.onClose != nil {
			m.onClose()
			return nil
		}
		return event
	})
}

// Update refreshes the candidate list from a store snapshot.
func (m *ComposeModal) Update(hits []store.UserSearchResult) {
	m.hits = hits
	m.render()
}

// Receivers returns the toggled recipient ids in selection order.
func (m *ComposeModal) Receivers() []string {
	out := make([]string, 0, len(m.order))
	for _, id := range m.order {
		if m.chosen[id] {
			out = append(out, id)
		}
	}
	return out
}

// Reset clears the dialog back to its empty state.
func (m *ComposeModal) Reset() {
	m.hits = nil
	m.chosen = map[string]bool{}
	m.order = nil
	m.search.SetText("")
	m.body.SetText("")
	m.results.Clear()
}

// Search returns the user-search input, for focus handling.
func (m *ComposeModal) Search() *tview.InputField { return m.search }

// Results returns the recipient list, for focus handling.
func (m *ComposeModal) Results() *tview.List { return m.results }

// Body returns the message input, for focus handling.
func (m *ComposeModal) Body() *tview.InputField { return m.body }

func (m *ComposeModal) toggle(id string) {
	if m.chosen[id] {
		m.chosen[id] = false
		return
	}
	m.chosen[id] = true
	for _, existing := range m.order {
		if existing == id {
			return
		}
	}
	m.order = append(m.order, id)
}

func (m *ComposeModal) render() {
	m.results.Clear()
	for _, h := range m.hits {
		marker := "[ ] "
		if m.chosen[h.ID] {
			marker = "[x] "
		}
		m.results.AddItem(marker+h.Username, "", 0, nil)
	}
}
