package store

import (
	"context"
	"sync"

	"github.com/ltavares/courier/internal/bus"
	"github.com/ltavares/courier/internal/gateway"
	"go.uber.org/zap"
)

const previewLimit = 30

// Inbox owns the conversation list, its paging/search cursor, and the
// selected peer. Page 1 loads replace the list, later pages append, and an
// in-flight load gates further page requests.
type Inbox struct {
	mu sync.RWMutex

	api    API
	bus    *bus.Bus
	logger *zap.Logger

	entries  []gateway.InboxEntry
	page     int
	hasMore  bool
	loading  bool
	lastErr  string
	selected string
	query    string
}

// NewInbox creates an empty inbox store.
func NewInbox(api API, b *bus.Bus, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{api: api, bus: b, logger: logger, page: 1}
}

// SetSelectedPeer assigns the selected peer. Publishes
// "inbox.peer_selected" only when the value actually changes.
func (s *Inbox) SetSelectedPeer(peer string) {
	s.mu.Lock()
	if s.selected == peer {
		s.mu.Unlock()
		return
	}
	s.selected = peer
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "inbox.peer_selected", Payload: peer})
	s.bus.Publish(bus.Event{Kind: "inbox.updated"})
}

// SetSearchQuery assigns the search query and resets the page cursor to 1.
func (s *Inbox) SetSearchQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.page = 1
	s.mu.Unlock()
}

// AdvancePage bumps the page cursor and returns the new page number.
func (s *Inbox) AdvancePage() int {
	s.mu.Lock()
	s.page++
	p := s.page
	s.mu.Unlock()
	return p
}

// ResetPage rewinds the page cursor to 1.
func (s *Inbox) ResetPage() {
	s.mu.Lock()
	s.page = 1
	s.mu.Unlock()
}

// MergeEntries removes any existing entry with the same id as an updated
// one, then prepends the updated entries in order, floating them to the top.
func (s *Inbox) MergeEntries(updated []gateway.InboxEntry) {
	s.mu.Lock()
	ids := make(map[int64]struct{}, len(updated))
	for _, e := range updated {
		ids[e.ID] = struct{}{}
	}
	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if _, replaced := ids[e.ID]; !replaced {
			kept = append(kept, e)
		}
	}
	s.entries = append(append([]gateway.InboxEntry{}, updated...), kept...)
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "inbox.updated"})
}

// PatchLastMessagePreview rewrites the preview of the entry for peer with
// body, truncated to 30 characters plus an ellipsis marker when longer.
func (s *Inbox) PatchLastMessagePreview(peer, body string) {
	preview := previewOf(body)
	s.mu.Lock()
	for i := range s.entries {
		if s.entries[i].WithUser == peer {
			s.entries[i].LastMessage = preview
		}
	}
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "inbox.updated"})
}

// LoadPage fetches one inbox page. Page 1 replaces the list and, when no
// peer is selected yet, selects the first result's peer; later pages
// append. Dropped silently when a load is already in flight.
func (s *Inbox) LoadPage(ctx context.Context, page int, search string) error {
	if !s.beginLoad() {
		return nil
	}

	resp, err := s.api.ListInbox(ctx, page, search)
	if err != nil {
		s.failLoad("failed to load conversations", err)
		return err
	}

	var autoSelected string
	s.mu.Lock()
	if page == 1 {
		s.entries = resp.Results
		if s.selected == "" && len(resp.Results) > 0 {
			s.selected = resp.Results[0].WithUser
			autoSelected = s.selected
		}
	} else {
		s.entries = append(s.entries, resp.Results...)
	}
	s.hasMore = page < resp.NumPages
	s.loading = false
	s.mu.Unlock()

	if autoSelected != "" {
		s.bus.Publish(bus.Event{Kind: "inbox.peer_selected", Payload: autoSelected})
	}
	s.bus.Publish(bus.Event{Kind: "inbox.page_loaded", Payload: page})
	s.bus.Publish(bus.Event{Kind: "inbox.updated"})
	return nil
}

// ClearUnread asks the server to zero the unread counter of one entry and
// replaces the entry in place with the confirmed result.
func (s *Inbox) ClearUnread(ctx context.Context, entryID int64) error {
	updated, err := s.api.ClearUnread(ctx, entryID)
	if err != nil {
		s.report("failed to mark conversation as read", err)
		return err
	}
	s.mu.Lock()
	for i := range s.entries {
		if s.entries[i].ID == updated.ID {
			s.entries[i] = *updated
		}
	}
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "inbox.updated"})
	return nil
}

// SendGroupMessage delivers body to every receiver and merges the returned
// entries into the list.
func (s *Inbox) SendGroupMessage(ctx context.Context, receivers []string, body string) error {
	updated, err := s.api.CreateGroupMessages(ctx, receivers, body)
	if err != nil {
		s.report("failed to send messages", err)
		return err
	}
	s.MergeEntries(updated)
	return nil
}

// Entries returns a snapshot of the list.
func (s *Inbox) Entries() []gateway.InboxEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]gateway.InboxEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// EntryFor returns the entry whose peer matches, if any.
func (s *Inbox) EntryFor(peer string) (gateway.InboxEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.WithUser == peer {
			return e, true
		}
	}
	return gateway.InboxEntry{}, false
}

// SelectedPeer returns the currently selected peer, possibly empty.
func (s *Inbox) SelectedPeer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Query returns the current search query.
func (s *Inbox) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Page returns the current page cursor.
func (s *Inbox) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// HasMore reports whether further pages exist.
func (s *Inbox) HasMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMore
}

// Loading reports whether a page load is in flight.
func (s *Inbox) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the last failure message, empty after a success.
func (s *Inbox) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Inbox) beginLoad() bool {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return false
	}
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "inbox.updated"})
	return true
}

func (s *Inbox) failLoad(msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	s.mu.Lock()
	s.loading = false
	s.lastErr = msg
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "notify.error", Payload: msg})
	s.bus.Publish(bus.Event{Kind: "inbox.updated"})
}

func (s *Inbox) report(msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "notify.error", Payload: msg})
}

// previewOf shortens body to the inbox preview length, appending an
// ellipsis marker when it was cut.
func previewOf(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLimit {
		return body
	}
	return string(runes[:previewLimit]) + "..."
}
