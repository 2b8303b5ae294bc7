// Package tui is the render layer. It reads store snapshots, redraws on
// store events, and turns input gestures into "ui." bus events; it never
// mutates the inbox or conversation state directly.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/ltavares/courier/internal/bus"
	"github.com/ltavares/courier/internal/store"
	"github.com/ltavares/courier/internal/tui/views"
	"github.com/rivo/tview"
)

const flashDuration = 5 * time.Second

// App is the TUI application shell.
type App struct {
	app   *tview.Application
	pages *tview.Pages

	bus      *bus.Bus
	inbox    *store.Inbox
	messages *store.Messages
	user     *store.User
	flash    *Flash

	inboxList    *views.InboxList
	searchBar    *views.SearchBar
	conversation *views.Conversation
	composer     *views.Composer
	compose      *views.ComposeModal
	statusBar    *views.StatusBar

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp builds the application over the stores and the bus.
func NewApp(b *bus.Bus, inbox *store.Inbox, messages *store.Messages, user *store.User) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:          tview.NewApplication(),
		pages:        tview.NewPages(),
		bus:          b,
		inbox:        inbox,
		messages:     messages,
		user:         user,
		flash:        &Flash{},
		inboxList:    views.NewInboxList(),
		searchBar:    views.NewSearchBar(),
		conversation: views.NewConversation(),
		composer:     views.NewComposer(),
		compose:      views.NewComposeModal(),
		statusBar:    views.NewStatusBar(),
		ctx:          ctx,
		cancel:       cancel,
	}

	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupCallbacks() {
	a.searchBar.SetOnChange(func(query string) {
		a.publish("ui.search_changed", query)
	})

	a.inboxList.SetOnSelect(func(peer string) {
		a.publish("ui.select_peer", peer)
		a.app.SetFocus(a.composer)
	})
	a.inboxList.SetOnEndReached(func() {
		a.publish("ui.inbox_end_reached", nil)
	})

	a.composer.SetOnChange(func(text string) {
		a.messages.SetDraft(text)
		if !a.messages.Replying() && text != "" {
			a.messages.SetReplying(true)
		}
	})
	a.composer.SetOnSend(func(text string) {
		a.publish("ui.send", text)
		a.composer.SetText("")
	})

	a.compose.SetOnSearch(func(query string) {
		a.publish("ui.user_search", query)
	})
	a.compose.SetOnSubmit(func(receivers []string, body string) {
		a.publish("ui.group_send", bus.GroupSend{Receivers: receivers, Body: body})
	})
	a.compose.SetOnClose(func() {
		a.publish("ui.compose_closed", nil)
		a.closeCompose()
	})
}

func (a *App) setupLayout() {
	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.searchBar, 1, 0, false).
		AddItem(a.inboxList, 0, 1, true)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.conversation, 0, 1, false).
		AddItem(a.composer, 1, 0, false)

	main := tview.NewFlex().
		AddItem(left, 0, 1, true).
		AddItem(right, 0, 2, false)

	a.pages.AddPage("main", main, true, true)
	a.pages.AddPage("compose", center(a.compose, 60, 20), true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.captureKeys)
}

func (a *App) captureKeys(event *tcell.EventKey) *tcell.EventKey {
	front, _ := a.pages.GetFrontPage()
	if front == "compose" {
		if event.Key() == tcell.KeyTab {
			a.cycleComposeFocus()
			return nil
		}
		// The modal handles its own keys, including Escape.
		return event
	}

	focused := a.app.GetFocus()

	if event.Key() == tcell.KeyPgUp && focused == a.conversation && a.conversation.AtTop() {
		a.publish("ui.messages_end_reached", nil)
		return event
	}

	typing := focused == tview.Primitive(a.searchBar) || focused == tview.Primitive(a.composer)
	if typing {
		// q and friends must type, not navigate.
		if event.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.inboxList)
			return nil
		}
		return event
	}

	switch event.Rune() {
	case 'q':
		a.app.Stop()
		return nil
	case '/':
		a.app.SetFocus(a.searchBar)
		return nil
	case 'n':
		a.openCompose()
		return nil
	case 'm':
		a.app.SetFocus(a.conversation)
		return nil
	}
	if event.Key() == tcell.KeyEscape {
		a.app.SetFocus(a.inboxList)
		return nil
	}
	return event
}

// Run starts the event pump and blocks until the application exits.
func (a *App) Run() error {
	ch, unsub := a.bus.Subscribe("", 256)
	go func() {
		defer unsub()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case evt := <-ch:
				a.handleEvent(evt)
			case <-ticker.C:
				a.app.QueueUpdateDraw(func() {
					a.statusBar.SetFlash(a.flash.Get())
				})
			case <-a.ctx.Done():
				return
			}
		}
	}()

	a.redrawAll()
	defer a.cancel()
	return a.app.Run()
}

// Stop terminates the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) handleEvent(evt bus.Event) {
	switch {
	case evt.Kind == "inbox.peer_selected":
		peer, _ := evt.Payload.(string)
		a.app.QueueUpdateDraw(func() {
			a.conversation.SetPeer(peer)
			a.redrawInbox()
		})
	case strings.HasPrefix(evt.Kind, "inbox."):
		a.app.QueueUpdateDraw(a.redrawInbox)
	case strings.HasPrefix(evt.Kind, "messages."):
		a.app.QueueUpdateDraw(a.redrawConversation)
	case strings.HasPrefix(evt.Kind, "user."):
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetUser(a.user.Current())
			a.compose.Update(a.user.SearchResults())
		})
	case evt.Kind == "notify.error":
		msg, _ := evt.Payload.(string)
		a.flash.Set(msg, flashDuration)
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetFlash(msg)
		})
	case evt.Kind == "compose.done":
		a.app.QueueUpdateDraw(a.closeCompose)
	}
}

func (a *App) redrawAll() {
	a.redrawInbox()
	a.redrawConversation()
	a.statusBar.SetUser(a.user.Current())
}

func (a *App) redrawInbox() {
	a.inboxList.Update(a.inbox.Entries(), a.inbox.SelectedPeer())
}

func (a *App) redrawConversation() {
	a.conversation.Update(a.messages.Items(), a.user.Current().Username)
}

func (a *App) cycleComposeFocus() {
	switch a.app.GetFocus() {
	case a.compose.Search():
		a.app.SetFocus(a.compose.Results())
	case a.compose.Results():
		a.app.SetFocus(a.compose.Body())
	default:
		a.app.SetFocus(a.compose.Search())
	}
}

func (a *App) openCompose() {
	a.compose.Reset()
	a.pages.ShowPage("compose")
	a.app.SetFocus(a.compose.Search())
}

func (a *App) closeCompose() {
	a.compose.Reset()
	a.pages.HidePage("compose")
	a.app.SetFocus(a.inboxList)
}

func (a *App) publish(kind string, payload any) {
	a.bus.Publish(bus.Event{Kind: kind, Payload: payload})
}

// center wraps p in a flex so it floats at a fixed size.
func center(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
}
