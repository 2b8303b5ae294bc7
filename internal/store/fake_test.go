package store

import (
	"context"
	"sync"

	"github.com/ltavares/courier/internal/gateway"
)

// fakeAPI records gateway calls and answers them through overridable
// functions, so tests control resolution order and failure injection.
type fakeAPI struct {
	mu sync.Mutex

	inboxCalls   [][2]any // page, search
	convCalls    [][2]any // page, peer
	sendCalls    [][2]string
	groupCalls   int
	clearCalls   []int64
	searchCalls  []string
	profileCalls []string

	listInbox        func(page int, search string) (*gateway.InboxPage, error)
	listConversation func(page int, peer string) (*gateway.MessagePage, error)
	createMessage    func(receiver, body string) (*gateway.Message, error)
	createGroup      func(receivers []string, body string) ([]gateway.InboxEntry, error)
	clearUnread      func(id int64) (*gateway.InboxEntry, error)
	searchUsers      func(query string) ([]gateway.UserHit, error)
	fetchProfile     func(username string) (*gateway.Profile, error)
}

func (f *fakeAPI) ListInbox(_ context.Context, page int, search string) (*gateway.InboxPage, error) {
	f.mu.Lock()
	f.inboxCalls = append(f.inboxCalls, [2]any{page, search})
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
	f.mu.Lock()
	f.sendCalls = append(f.sendCalls, [2]string{receiver, body})
	fn := f.createMessage
	f.mu.Unlock()
	if fn == nil {
		return &gateway.Message{ID: 1, Sender: "me", Body: body}, nil
	}
	return fn(receiver, body)
}

func (f *fakeAPI) CreateGroupMessages(_ context.Context, receivers []string, body string) ([]gateway.InboxEntry, error) {
	f.mu.Lock()
	f.groupCalls++
	fn := f.createGroup
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(receivers, body)
}

func (f *fakeAPI) ClearUnread(_ context.Context, id int64) (*gateway.InboxEntry, error) {
	f.mu.Lock()
	f.clearCalls = append(f.clearCalls, id)
	fn := f.clearUnread
	f.mu.Unlock()
	if fn == nil {
		return &gateway.InboxEntry{ID: id}, nil
	}
	return fn(id)
}

func (f *fakeAPI) SearchUsers(_ context.Context, query string) ([]gateway.UserHit, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, query)
	fn := f.searchUsers
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(query)
}

func (f *fakeAPI) FetchProfile(_ context.Context, username string) (*gateway.Profile, error) {
	f.mu.Lock()
	f.profileCalls = append(f.profileCalls, username)
	fn := f.fetchProfile
	f.mu.Unlock()
	if fn == nil {
		return &gateway.Profile{Username: username, Interests: []string{}}, nil
	}
	return fn(username)
}

func (f *fakeAPI) inboxCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inboxCalls)
}

func (f *fakeAPI) convCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.convCalls)
}

func (f *fakeAPI) searchCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searchCalls)
}
