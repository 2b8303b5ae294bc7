package store

import (
	"context"
	"sync"

	"github.com/ltavares/courier/internal/bus"
	"github.com/ltavares/courier/internal/gateway"
	"go.uber.org/zap"
)

// Messages owns the message list of the currently open conversation, its
// page cursor, and the compose/reply sub-state. Which peer the list is
// scoped to is decided outside this store; Reset must be called on every
// peer change so a stale conversation is never shown under a new peer.
type Messages struct {
	mu sync.RWMutex

	api    API
	bus    *bus.Bus
	logger *zap.Logger

	items    []gateway.Message
	page     int
	hasMore  bool
	loading  bool
	lastErr  string
	replying bool
	draft    string

	// epoch invalidates responses that were in flight when the
	// conversation was switched away from.
	epoch int
}

// NewMessages creates an empty conversation store.
func NewMessages(api API, b *bus.Bus, logger *zap.Logger) *Messages {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Messages{api: api, bus: b, logger: logger, page: 1}
}

// Reset clears every field back to the empty-conversation state and
// invalidates any load still in flight for the previous peer.
func (s *Messages) Reset() {
	s.mu.Lock()
	s.epoch++
	s.items = nil
	s.page = 1
	s.hasMore = false
	s.loading = false
	s.lastErr = ""
	s.replying = false
	s.draft = ""
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "messages.updated"})
}

// AdvancePage bumps the page cursor and returns the new page number.
func (s *Messages) AdvancePage() int {
	s.mu.Lock()
	s.page++
	p := s.page
	s.mu.Unlock()
	return p
}

// SetReplying toggles the reply state.
func (s *Messages) SetReplying(replying bool) {
	s.mu.Lock()
	s.replying = replying
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "messages.updated"})
}

// SetDraft stores the in-progress message text.
func (s *Messages) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

// ClearDraft drops the draft and the reply state together.
func (s *Messages) ClearDraft() {
	s.mu.Lock()
	s.draft = ""
	s.replying = false
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "messages.updated"})
}

// PrependLocal inserts a message at the head of the list without a network
// call, for optimistic display.
func (s *Messages) PrependLocal(m gateway.Message) {
	s.mu.Lock()
	s.items = append([]gateway.Message{m}, s.items...)
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "messages.updated"})
}

// LoadPage fetches one conversation page for peer. Page 1 replaces, later
// pages append; an in-flight load gates further requests. A response that
// resolves after Reset was called is discarded.
func (s *Messages) LoadPage(ctx context.Context, page int, peer string) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.lastErr = ""
	epoch := s.epoch
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "messages.updated"})

	resp, err := s.api.ListConversation(ctx, page, peer)

	s.mu.Lock()
	if s.epoch != epoch {
		// Conversation switched while this request was in flight.
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.loading = false
		s.lastErr = "failed to load messages"
		s.mu.Unlock()
		s.logger.Error("failed to load messages", zap.Error(err), zap.String("peer", peer))
		s.bus.Publish(bus.Event{Kind: "notify.error", Payload: "failed to load messages"})
		s.bus.Publish(bus.Event{Kind: "messages.updated"})
		return err
	}
	if page == 1 {
		s.items = resp.Results
	} else {
		s.items = append(s.items, resp.Results...)
	}
	s.hasMore = page < resp.NumPages
	s.loading = false
	s.mu.Unlock()

	s.bus.Publish(bus.Event{Kind: "messages.page_loaded", Payload: page})
	s.bus.Publish(bus.Event{Kind: "messages.updated"})
	return nil
}

// Send delivers body to peer. On success the server-confirmed message is
// prepended and the draft cleared; on failure the draft stays so the user
// can retry.
func (s *Messages) Send(ctx context.Context, peer, body string) error {
	msg, err := s.api.CreateMessage(ctx, peer, body)
	if err != nil {
		s.mu.Lock()
		s.lastErr = "failed to send message"
		s.mu.Unlock()
		s.logger.Error("failed to send message", zap.Error(err), zap.String("peer", peer))
		s.bus.Publish(bus.Event{Kind: "notify.error", Payload: "failed to send message"})
		return err
	}
	s.mu.Lock()
	s.items = append([]gateway.Message{*msg}, s.items...)
	s.draft = ""
	s.replying = false
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "messages.updated"})
	return nil
}

// Items returns a snapshot of the message list, newest first.
func (s *Messages) Items() []gateway.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]gateway.Message, len(s.items))
	copy(out, s.items)
	return out
}

// Page returns the current page cursor.
func (s *Messages) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// HasMore reports whether older pages exist.
func (s *Messages) HasMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMore
}

// Loading reports whether a page load is in flight.
func (s *Messages) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Replying reports the reply state.
func (s *Messages) Replying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replying
}

// Draft returns the in-progress message text.
func (s *Messages) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// LastError returns the last failure message, empty after a success.
func (s *Messages) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
