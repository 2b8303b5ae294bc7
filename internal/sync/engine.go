// Package sync choreographs the inbox, messages, and user stores: it turns
// input gestures and timers into store operations, in an order that keeps
// the three stores mutually consistent. It owns no data of its own.
package sync

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ltavares/courier/internal/bus"
	"github.com/ltavares/courier/internal/gateway"
	"github.com/ltavares/courier/internal/store"
	"go.uber.org/zap"
)

// Engine drives cross-store effects. All trigger handling happens on a
// single loop goroutine; timers fire back into the loop through bus events
// carrying a generation number, so re-arming or navigating away cancels a
// pending timer by invalidating its generation.
type Engine struct {
	inbox    *store.Inbox
	messages *store.Messages
	user     *store.User
	bus      *bus.Bus
	logger   *zap.Logger

	debounce    time.Duration
	unreadDelay time.Duration

	cancel context.CancelFunc

	searchTimer *time.Timer
	searchGen   int

	unreadTimer   *time.Timer
	unreadGen     int
	unreadPending bool
	unreadPeer    string
}

// NewEngine creates the engine over the three stores. debounce is the
// search debounce window, unreadDelay the dwell time before a viewed
// conversation is marked read.
func NewEngine(inbox *store.Inbox, messages *store.Messages, user *store.User, b *bus.Bus, logger *zap.Logger, debounce, unreadDelay time.Duration) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		inbox:       inbox,
		messages:    messages,
		user:        user,
		bus:         b,
		logger:      logger,
		debounce:    debounce,
		unreadDelay: unreadDelay,
	}
}

// Start subscribes to trigger events and kicks off the mount loads: inbox
// page 1 with an empty query, and the current-user profile. The two are
// independent and run concurrently.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handle(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() { _ = e.inbox.LoadPage(ctx, 1, "") }()
	go func() { _ = e.user.LoadCurrentUserProfile(ctx) }()
}

// Stop cancels the loop and any pending timers. In-flight network calls
// are not cancelled; their responses still apply to the owning store.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handle(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case "ui.search_changed":
		query, ok := evt.Payload.(string)
		if !ok {
			return
		}
		e.onSearchChanged(ctx, query)

	case "sync.debounce_fired":
		fired, ok := evt.Payload.(bus.DebounceFired)
		if !ok || fired.Gen != e.searchGen {
			return
		}
		e.inbox.SetSearchQuery(fired.Query)
		go func() { _ = e.inbox.LoadPage(ctx, 1, fired.Query) }()

	case "ui.inbox_end_reached":
		if e.inbox.Loading() || !e.inbox.HasMore() {
			return
		}
		page := e.inbox.AdvancePage()
		query := e.inbox.Query()
		go func() { _ = e.inbox.LoadPage(ctx, page, query) }()

	case "ui.select_peer":
		peer, ok := evt.Payload.(string)
		if !ok {
			return
		}
		e.inbox.SetSelectedPeer(peer)

	case "inbox.peer_selected":
		peer, ok := evt.Payload.(string)
		if !ok {
			return
		}
		e.cancelUnreadTimer()
		e.messages.Reset()
		if peer != "" {
			go func() { _ = e.messages.LoadPage(ctx, 1, peer) }()
			e.armUnreadTimer(peer)
		}

	case "inbox.page_loaded":
		// The selected peer's entry may only now be known.
		e.armUnreadTimer(e.inbox.SelectedPeer())

	case "sync.unread_due":
		due, ok := evt.Payload.(bus.UnreadDue)
		if !ok || due.Gen != e.unreadGen {
			return
		}
		e.unreadPending = false
		e.onUnreadDue(ctx, due)

	case "ui.messages_end_reached":
		if e.messages.Loading() || !e.messages.HasMore() {
			return
		}
		peer := e.inbox.SelectedPeer()
		if peer == "" {
			return
		}
		page := e.messages.AdvancePage()
		go func() { _ = e.messages.LoadPage(ctx, page, peer) }()

	case "ui.send":
		body, ok := evt.Payload.(string)
		if !ok {
			return
		}
		e.onSend(ctx, body)

	case "ui.group_send":
		gs, ok := evt.Payload.(bus.GroupSend)
		if !ok {
			return
		}
		e.onGroupSend(ctx, gs)

	case "ui.user_search":
		query, ok := evt.Payload.(string)
		if !ok {
			return
		}
		go func() { _ = e.user.SearchUsers(ctx, query) }()

	case "ui.compose_closed":
		e.user.ClearSearchResults()
	}
}

// onSearchChanged debounces non-empty queries; clearing the query loads
// page 1 immediately and wins over any pending debounced search.
func (e *Engine) onSearchChanged(ctx context.Context, query string) {
	e.searchGen++
	if e.searchTimer != nil {
		e.searchTimer.Stop()
		e.searchTimer = nil
	}

	if query == "" {
		e.inbox.SetSearchQuery("")
		go func() { _ = e.inbox.LoadPage(ctx, 1, "") }()
		return
	}

	gen := e.searchGen
	e.searchTimer = time.AfterFunc(e.debounce, func() {
		e.bus.Publish(bus.Event{
			Kind:    "sync.debounce_fired",
			Payload: bus.DebounceFired{Gen: gen, Query: query},
		})
	})
}

func (e *Engine) onSend(ctx context.Context, body string) {
	body = strings.TrimSpace(body)
	peer := e.inbox.SelectedPeer()
	if body == "" || peer == "" {
		return
	}
	go func() {
		if err := e.messages.Send(ctx, peer, body); err != nil {
			return
		}
		// Preview truncation happens inside the patch, never before.
		e.inbox.PatchLastMessagePreview(peer, body)
	}()
}

func (e *Engine) onGroupSend(ctx context.Context, gs bus.GroupSend) {
	body := strings.TrimSpace(gs.Body)
	if body == "" || len(gs.Receivers) == 0 {
		return
	}
	selected := e.inbox.SelectedPeer()
	sender := e.user.Current()

	go func() {
		err := e.inbox.SendGroupMessage(ctx, gs.Receivers, body)
		if err == nil && containsPeer(gs.Receivers, selected) {
			e.messages.PrependLocal(gateway.Message{
				ClientID:        uuid.New().String(),
				Sender:          sender.Username,
				SenderAvatarURL: sender.AvatarURL,
				SentDate:        gateway.SentNow,
				Body:            body,
			})
		}
		// Recipient selection and the compose surface close on every
		// submit, whether or not the optimistic prepend applied.
		e.user.ClearSearchResults()
		e.bus.Publish(bus.Event{Kind: "compose.done"})
	}()
}

// armUnreadTimer schedules a clear-unread for the selected peer's entry
// when it still has unread messages. Re-arming for the same peer while a
// timer is pending is a no-op.
func (e *Engine) armUnreadTimer(peer string) {
	if peer == "" {
		return
	}
	entry, ok := e.inbox.EntryFor(peer)
	if !ok || entry.UnreadCount == 0 {
		return
	}
	if e.unreadPending && e.unreadPeer == peer {
		return
	}

	e.unreadGen++
	gen := e.unreadGen
	e.unreadPending = true
	e.unreadPeer = peer
	if e.unreadTimer != nil {
		e.unreadTimer.Stop()
	}
	e.unreadTimer = time.AfterFunc(e.unreadDelay, func() {
		e.bus.Publish(bus.Event{
			Kind:    "sync.unread_due",
			Payload: bus.UnreadDue{Gen: gen, EntryID: entry.ID, Peer: peer},
		})
	})
}

func (e *Engine) cancelUnreadTimer() {
	e.unreadGen++
	e.unreadPending = false
	e.unreadPeer = ""
	if e.unreadTimer != nil {
		e.unreadTimer.Stop()
		e.unreadTimer = nil
	}
}

// onUnreadDue clears the unread counter only when the user is still
// viewing the same conversation and it still has unread messages.
func (e *Engine) onUnreadDue(ctx context.Context, due bus.UnreadDue) {
	if e.inbox.SelectedPeer() != due.Peer {
		return
	}
	entry, ok := e.inbox.EntryFor(due.Peer)
	if !ok || entry.UnreadCount == 0 || entry.ID != due.EntryID {
		return
	}
	go func() { _ = e.inbox.ClearUnread(ctx, due.EntryID) }()
}

func containsPeer(receivers []string, peer string) bool {
	if peer == "" {
		return false
	}
	for _, r := range receivers {
		if r == peer {
			return true
		}
	}
	return false
}
