package views

import (
	"fmt"

	"github.com/ltavares/courier/internal/gateway"
	"github.com/rivo/tview"
)

// Conversation displays the open conversation's messages.
type Conversation struct {
	*tview.TextView
}

// NewConversation creates the conversation pane.
func NewConversation() *Conversation {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Conversation ")

	return &Conversation{TextView: tv}
}

// SetPeer updates the pane title with the peer's name.
func (cv *Conversation) SetPeer(peer string) {
	if peer == "" {
		cv.SetTitle(" Conversation ")
		return
	}
	cv.SetTitle(fmt.Sprintf(" %s ", peer))
}

// Update re-renders the pane from a store snapshot. The store keeps
// messages newest first; display runs oldest first.
func (cv *Conversation) Update(msgs []gateway.Message, currentUser string) {
	cv.Clear()

	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		sender := m.Sender
		if sender == currentUser {
			sender = "You"
		}
		line := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			tview.Escape(sender), formatWhen(m.SentDate), tview.Escape(sanitizeForTerminal(m.Body)))
		_, _ = fmt.Fprint(cv, line)
	}

	cv.ScrollToEnd()
}

// AtTop reports whether the view is scrolled to the oldest loaded message.
func (cv *Conversation) AtTop() bool {
	row, _ := cv.GetScrollOffset()
	return row == 0
}
