package sync

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ltavares/courier/internal/bus"
	"github.com/ltavares/courier/internal/gateway"
	"github.com/ltavares/courier/internal/store"
)

const (
	testDebounce    = 30 * time.Millisecond
	testUnreadDelay = 40 * time.Millisecond
)

// fakeAPI answers gateway calls through overridable functions and records
// every call, so tests can assert on exact request sequences.
type fakeAPI struct {
	mu sync.Mutex

	inboxSearches []string
	convCalls     [][2]any
	clearCalls    []int64
	profileCalls  int

	listInbox        func(page int, search string) (*gateway.InboxPage, error)
	listConversation func(page int, peer string) (*gateway.MessagePage, error)
	createMessage    func(receiver, body string) (*gateway.Message, error)
	createGroup      func(receivers []string, body string) ([]gateway.InboxEntry, error)
}

func (f *fakeAPI) ListInbox(_ context.Context, page int, search string) (*gateway.InboxPage, error) {
	f.mu.Lock()
	f.inboxSearches = append(f.inboxSearches, search)
	fn := f.listInbox
	f.mu.Unlock()
	if fn == nil {
		return &gateway.InboxPage{NumPages: 1}, nil
	}
	return fn(page, search)
}

func (f *fakeAPI) ListConversation(_ context.Context, page int, peer string) (*gateway.MessagePage, error) {
	f.mu.Lock()
	f.convCalls = append(f.convCalls, [2]any{page, peer})
	fn := f.listConversation
	f.mu.Unlock()
	if fn == nil {
		return &gateway.MessagePage{NumPages: 1}, nil
	}
	return fn(page, peer)
}

func (f *fakeAPI) CreateMessage(_ context.Context, receiver, body string) (*gateway.Message, error) {
	if f.createMessage == nil {
		return &gateway.Message{ID: 1, Sender: "me", Body: body}, nil
	}
	return f.createMessage(receiver, body)
}

func (f *fakeAPI) CreateGroupMessages(_ context.Context, receivers []string, body string) ([]gateway.InboxEntry, error) {
	if f.createGroup == nil {
		out := make([]gateway.InboxEntry, len(receivers))
		for i, r := range receivers {
			out[i] = gateway.InboxEntry{ID: int64(100 + i), WithUser: r, LastMessage: body}
		}
		return out, nil
	}
	return f.createGroup(receivers, body)
}

func (f *fakeAPI) ClearUnread(_ context.Context, id int64) (*gateway.InboxEntry, error) {
	f.mu.Lock()
	f.clearCalls = append(f.clearCalls, id)
	f.mu.Unlock()
	return &gateway.InboxEntry{ID: id}, nil
}

func (f *fakeAPI) SearchUsers(_ context.Context, query string) ([]gateway.UserHit, error) {
	return []gateway.UserHit{{Username: "ada"}}, nil
}

func (f *fakeAPI) FetchProfile(_ context.Context, username string) (*gateway.Profile, error) {
	f.mu.Lock()
	f.profileCalls++
	f.mu.Unlock()
	return &gateway.Profile{Username: username, Interests: []string{}}, nil
}

func (f *fakeAPI) searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.inboxSearches))
	copy(out, f.inboxSearches)
	return out
}

func (f *fakeAPI) conversationCalls() [][2]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][2]any, len(f.convCalls))
	copy(out, f.convCalls)
	return out
}

func (f *fakeAPI) unreadClears() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.clearCalls))
	copy(out, f.clearCalls)
	return out
}

type fixture struct {
	api      *fakeAPI
	bus      *bus.Bus
	inbox    *store.Inbox
	messages *store.Messages
	user     *store.User
	engine   *Engine
}

func newFixture(t *testing.T, api *fakeAPI) *fixture {
	t.Helper()
	b := bus.New()
	inbox := store.NewInbox(api, b, nil)
	messages := store.NewMessages(api, b, nil)
	user := store.NewUser(api, b, nil, "me")
	engine := NewEngine(inbox, messages, user, b, nil, testDebounce, testUnreadDelay)
	engine.Start(context.Background())
	t.Cleanup(engine.Stop)
	return &fixture{api: api, bus: b, inbox: inbox, messages: messages, user: user, engine: engine}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestMountLoadsInboxAndProfile(t *testing.T) {
	f := newFixture(t, &fakeAPI{})

	waitFor(t, "mount inbox load", func() bool {
		s := f.api.searches()
		return len(s) == 1 && s[0] == ""
	})
	waitFor(t, "profile load", func() bool {
		f.api.mu.Lock()
		defer f.api.mu.Unlock()
		return f.api.profileCalls == 1
	})
	waitFor(t, "current user", func() bool { return f.user.Current().Username == "me" })
}

func TestMountAutoSelectLoadsConversation(t *testing.T) {
	api := &fakeAPI{
		listInbox: func(page int, search string) (*gateway.InboxPage, error) {
			return &gateway.InboxPage{
				Results:  []gateway.InboxEntry{{ID: 1, WithUser: "bob"}},
				NumPages: 1,
			}, nil
		},
	}
	f := newFixture(t, api)

	waitFor(t, "auto-selected conversation load", func() bool {
		calls := f.api.conversationCalls()
		return len(calls) == 1 && calls[0] == [2]any{1, "bob"}
	})
	if f.inbox.SelectedPeer() != "bob" {
		t.Errorf("selected = %q", f.inbox.SelectedPeer())
	}
}

func TestSearchDebounceFetchesOnlyLatestQuery(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	waitFor(t, "mount load", func() bool { return len(f.api.searches()) == 1 })

	f.bus.Publish(bus.Event{Kind: "ui.search_changed", Payload: "b"})
	f.bus.Publish(bus.Event{Kind: "ui.search_changed", Payload: "bo"})
	f.bus.Publish(bus.Event{Kind: "ui.search_changed", Payload: "bob"})

	waitFor(t, "debounced search", func() bool { return len(f.api.searches()) == 2 })
	time.Sleep(2 * testDebounce)

	got := f.api.searches()
	if len(got) != 2 || got[1] != "bob" {
		t.Errorf("searches = %v, want exactly one debounced fetch for \"bob\"", got)
	}
}

func TestSearchClearedWithinWindowFetchesOnce(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	waitFor(t, "mount load", func() bool { return len(f.api.searches()) == 1 })

	f.bus.Publish(bus.Event{Kind: "ui.search_changed", Payload: "bo"})
	f.bus.Publish(bus.Event{Kind: "ui.search_changed", Payload: ""})

	waitFor(t, "immediate empty-query load", func() bool { return len(f.api.searches()) == 2 })
	time.Sleep(2 * testDebounce)

	got := f.api.searches()
	if len(got) != 2 {
		t.Fatalf("searches = %v, want exactly one fetch after clearing", got)
	}
	if got[1] != "" {
		t.Errorf("fetched query = %q, want the empty one", got[1])
	}
}

func TestSelectPeerResetsAndLoadsConversation(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	waitFor(t, "mount load", func() bool { return len(f.api.searches()) == 1 })

	f.messages.SetDraft("stale text")
	f.bus.Publish(bus.Event{Kind: "ui.select_peer", Payload: "bob"})

	waitFor(t, "conversation load", func() bool {
		calls := f.api.conversationCalls()
		return len(calls) == 1 && calls[0] == [2]any{1, "bob"}
	})
	if f.messages.Draft() != "" {
		t.Error("messages store not reset on peer change")
	}
}

func TestMessagesEndReachedLoadsNextPage(t *testing.T) {
	api := &fakeAPI{
		listConversation: func(page int, peer string) (*gateway.MessagePage, error) {
			return &gateway.MessagePage{
				Results:  []gateway.Message{{ID: int64(page), Sender: peer, Body: "m"}},
				NumPages: 3,
			}, nil
		},
	}
	f := newFixture(t, api)
	f.bus.Publish(bus.Event{Kind: "ui.select_peer", Payload: "bob"})
	waitFor(t, "page 1", func() bool { return len(f.api.conversationCalls()) == 1 })
	waitFor(t, "page 1 applied", func() bool { return len(f.messages.Items()) == 1 })

	f.bus.Publish(bus.Event{Kind: "ui.messages_end_reached"})

	waitFor(t, "page 2", func() bool {
		calls := f.api.conversationCalls()
		return len(calls) == 2 && calls[1] == [2]any{2, "bob"}
	})
}

func TestEndReachedDroppedWhileLoading(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	api := &fakeAPI{
		listInbox: func(page int, search string) (*gateway.InboxPage, error) {
			once.Do(func() { <-release })
			return &gateway.InboxPage{NumPages: 5}, nil
		},
	}
	f := newFixture(t, api)
	waitFor(t, "load in flight", func() bool { return f.inbox.Loading() })

	// Page advance while loading is dropped, not queued.
	f.bus.Publish(bus.Event{Kind: "ui.inbox_end_reached"})
	time.Sleep(20 * time.Millisecond)
	close(release)

	waitFor(t, "first load settled", func() bool { return !f.inbox.Loading() })
	time.Sleep(20 * time.Millisecond)
	if n := len(f.api.searches()); n != 1 {
		t.Errorf("inbox fetches = %d, want 1", n)
	}
	if f.inbox.Page() != 1 {
		t.Errorf("page = %d, want unadvanced 1", f.inbox.Page())
	}
}

func TestUnreadClearedAfterDwell(t *testing.T) {
	api := &fakeAPI{
		listInbox: func(page int, search string) (*gateway.InboxPage, error) {
			return &gateway.InboxPage{
				Results:  []gateway.InboxEntry{{ID: 7, WithUser: "bob", UnreadCount: 2}},
				NumPages: 1,
			}, nil
		},
	}
	f := newFixture(t, api)

	waitFor(t, "unread clear", func() bool {
		clears := f.api.unreadClears()
		return len(clears) == 1 && clears[0] == 7
	})
}

func TestUnreadTimerCancelledOnNavigation(t *testing.T) {
	api := &fakeAPI{
		listInbox: func(page int, search string) (*gateway.InboxPage, error) {
			return &gateway.InboxPage{
				Results: []gateway.InboxEntry{
					{ID: 7, WithUser: "bob", UnreadCount: 2},
					{ID: 8, WithUser: "eve", UnreadCount: 0},
				},
				NumPages: 1,
			}, nil
		},
	}
	f := newFixture(t, api)
	waitFor(t, "auto-select bob", func() bool { return f.inbox.SelectedPeer() == "bob" })

	// Navigate away before the dwell timer fires.
	f.bus.Publish(bus.Event{Kind: "ui.select_peer", Payload: "eve"})

	time.Sleep(3 * testUnreadDelay)
	if clears := f.api.unreadClears(); len(clears) != 0 {
		t.Errorf("unread cleared for %v despite navigation", clears)
	}
}

func TestSendPatchesInboxPreview(t *testing.T) {
	body := "hi there, how are you doing today?" // 34 chars
	api := &fakeAPI{
		listInbox: func(page int, search string) (*gateway.InboxPage, error) {
			return &gateway.InboxPage{
				Results:  []gateway.InboxEntry{{ID: 1, WithUser: "bob", LastMessage: "old"}},
				NumPages: 1,
			}, nil
		},
	}
	f := newFixture(t, api)
	waitFor(t, "auto-select bob", func() bool { return f.inbox.SelectedPeer() == "bob" })

	f.bus.Publish(bus.Event{Kind: "ui.send", Payload: body})

	waitFor(t, "message sent", func() bool { return len(f.messages.Items()) == 1 })
	if got := f.messages.Items()[0].Body; got != body {
		t.Errorf("message body = %q, want the full unmodified text", got)
	}
	waitFor(t, "preview patched", func() bool {
		e, _ := f.inbox.EntryFor("bob")
		return e.LastMessage != "old"
	})
	entry, _ := f.inbox.EntryFor("bob")
	want := string([]rune(body)[:30]) + "..."
	if entry.LastMessage != want {
		t.Errorf("preview = %q, want %q", entry.LastMessage, want)
	}
}

func TestSendIgnoresBlankBody(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	waitFor(t, "mount load", func() bool { return len(f.api.searches()) == 1 })

	f.bus.Publish(bus.Event{Kind: "ui.send", Payload: "   "})

	time.Sleep(30 * time.Millisecond)
	if len(f.messages.Items()) != 0 {
		t.Error("blank body must not be sent")
	}
}

func TestGroupSendOptimisticPrepend(t *testing.T) {
	api := &fakeAPI{
		listInbox: func(page int, search string) (*gateway.InboxPage, error) {
			return &gateway.InboxPage{
				Results:  []gateway.InboxEntry{{ID: 1, WithUser: "bob"}},
				NumPages: 1,
			}, nil
		},
	}
	f := newFixture(t, api)
	composed, unsub := f.bus.Subscribe("compose.", 10)
	defer unsub()
	waitFor(t, "auto-select bob", func() bool { return f.inbox.SelectedPeer() == "bob" })
	waitFor(t, "current user", func() bool { return f.user.Current().Username == "me" })
	_ = f.user.SearchUsers(context.Background(), "ad")

	f.bus.Publish(bus.Event{Kind: "ui.group_send", Payload: bus.GroupSend{
		Receivers: []string{"bob", "eve"},
		Body:      "hello everyone",
	}})

	waitFor(t, "optimistic prepend", func() bool { return len(f.messages.Items()) == 1 })
	m := f.messages.Items()[0]
	if m.Sender != "me" || m.SentDate != gateway.SentNow || m.Body != "hello everyone" {
		t.Errorf("optimistic message = %+v", m)
	}
	if m.ClientID == "" {
		t.Error("optimistic message missing client id")
	}

	waitFor(t, "recipient selection cleared", func() bool { return len(f.user.SearchResults()) == 0 })
	select {
	case evt := <-composed:
		if evt.Kind != "compose.done" {
			t.Errorf("event = %q", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for compose.done")
	}

	// The merged entries float to the top of the inbox.
	waitFor(t, "entries merged", func() bool { return len(f.inbox.Entries()) >= 2 })
	if got := f.inbox.Entries()[0].WithUser; got != "bob" {
		t.Errorf("entries[0] = %q, want bob first", got)
	}
}

func TestGroupSendToOthersDoesNotPrepend(t *testing.T) {
	api := &fakeAPI{
		listInbox: func(page int, search string) (*gateway.InboxPage, error) {
			return &gateway.InboxPage{
				Results:  []gateway.InboxEntry{{ID: 1, WithUser: "bob"}},
				NumPages: 1,
			}, nil
		},
	}
	f := newFixture(t, api)
	composed, unsub := f.bus.Subscribe("compose.", 10)
	defer unsub()
	waitFor(t, "auto-select bob", func() bool { return f.inbox.SelectedPeer() == "bob" })

	f.bus.Publish(bus.Event{Kind: "ui.group_send", Payload: bus.GroupSend{
		Receivers: []string{"eve"},
		Body:      "not for bob",
	}})

	select {
	case <-composed:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for compose.done")
	}
	for _, m := range f.messages.Items() {
		if strings.Contains(m.Body, "not for bob") {
			t.Errorf("message leaked into unrelated conversation: %+v", m)
		}
	}
}
