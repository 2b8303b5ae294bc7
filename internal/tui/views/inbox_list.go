package views

import (
	"fmt"

	"github.com/ltavares/courier/internal/gateway"
	"github.com/rivo/tview"
)

// InboxList is the conversation list table. Moving the selection onto the
// last row signals end-reached, the terminal analogue of scrolling a
// sentinel row into view.
type InboxList struct {
	*tview.Table
	entries      []gateway.InboxEntry
	onSelect     func(peer string)
	onEndReached func()
}

// NewInboxList creates the inbox table.
func NewInboxList() *InboxList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true).SetTitle(" Inbox ")

	il := &InboxList{Table: table}

	table.SetSelectedFunc(func(row, col int) {
		if peer := il.SelectedPeer(); peer != "" && il.onSelect != nil {
			il.onSelect(peer)
		}
	})
	table.SetSelectionChangedFunc(func(row, col int) {
		if row == len(il.entries) && il.onEndReached != nil {
			il.onEndReached()
		}
	})

	return il
}

// SetOnSelect sets the callback when an entry is chosen.
func (il *InboxList) SetOnSelect(fn func(peer string)) {
	il.onSelect = fn
}

// SetOnEndReached sets the callback when the selection hits the last row.
func (il *InboxList) SetOnEndReached(fn func()) {
	il.onEndReached = fn
}

// Update refreshes the table from a store snapshot.
func (il *InboxList) Update(entries []gateway.InboxEntry, selected string) {
	il.entries = entries
	il.Clear()

	il.SetCell(0, 0, tview.NewTableCell(" Peer").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	il.SetCell(0, 1, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	il.SetCell(0, 2, tview.NewTableCell(" Time").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, e := range entries {
		row := i + 1
		name := e.WithUser
		if e.UnreadCount > 0 {
			name = fmt.Sprintf("* %s (%d)", name, e.UnreadCount)
		}
		if e.WithUser == selected {
			name = "> " + name
		}

		il.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(name)).SetMaxWidth(24).SetExpansion(1))
		il.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(e.LastMessage))).SetMaxWidth(36).SetExpansion(2))
		il.SetCell(row, 2, tview.NewTableCell(" "+formatWhen(e.LastMessageDate)).SetMaxWidth(12))
	}
}

// SelectedPeer returns the peer of the highlighted row.
func (il *InboxList) SelectedPeer() string {
	row, _ := il.GetSelection()
	idx := row - 1 // header row
	if idx >= 0 && idx < len(il.entries) {
		return il.entries[idx].WithUser
	}
	return ""
}
