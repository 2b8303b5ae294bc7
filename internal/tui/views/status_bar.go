package views

import (
	"fmt"
	"time"

	"github.com/ltavares/courier/internal/store"
	"github.com/rivo/tview"
)

// StatusBar shows the signed-in user and transient flash messages.
type StatusBar struct {
	*tview.TextView
	user  store.CurrentUser
	flash string
}

// NewStatusBar creates the status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetUser updates the identity display.
func (sb *StatusBar) SetUser(u store.CurrentUser) {
	sb.user = u
	sb.render()
}

// SetFlash sets the transient message, empty to clear.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	who := sb.user.DisplayName
	if sb.user.Initials != "" {
		who = fmt.Sprintf("[::b]%s[-:-:-] %s", sb.user.Initials, sb.user.DisplayName)
	}
	if who == "" {
		who = "not signed in"
	}

	line := fmt.Sprintf(" %s | %s", who, time.Now().Format("15:04"))
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
