package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ltavares/courier/internal/bus"
	"go.uber.org/zap"
)

// ErrUnauthenticated is returned when no authenticated username is
// available for a profile load. The network is never contacted in that case.
var ErrUnauthenticated = errors.New("store: no authenticated user")

// CurrentUser is the derived display profile of the signed-in user.
type CurrentUser struct {
	Username    string
	DisplayName string
	Initials    string
	HasAvatar   bool
	AvatarURL   string
}

// UserSearchResult is one candidate recipient for a group message. ID and
// Username are deliberately the same value.
type UserSearchResult struct {
	ID       string
	Username string
}

// User owns the current user's profile and the transient user-search
// results backing group composition.
type User struct {
	mu sync.RWMutex

	api      API
	bus      *bus.Bus
	logger   *zap.Logger
	username string

	current CurrentUser
	results []UserSearchResult
	loading bool
	lastErr string
}

// NewUser creates the user store for the externally supplied authenticated
// username (empty when not signed in).
func NewUser(api API, b *bus.Bus, logger *zap.Logger, username string) *User {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &User{api: api, bus: b, logger: logger, username: username}
}

// LoadCurrentUserProfile fetches the account profile and derives the
// display fields from it.
func (s *User) LoadCurrentUserProfile(ctx context.Context) error {
	if s.username == "" {
		s.report("not signed in", ErrUnauthenticated)
		return ErrUnauthenticated
	}

	profile, err := s.api.FetchProfile(ctx, s.username)
	if err != nil {
		s.report("failed to load profile", err)
		return err
	}

	s.mu.Lock()
	s.current = CurrentUser{
		Username:    s.username,
		DisplayName: s.username,
		Initials:    initialsOf(s.username),
		HasAvatar:   profile.AvatarURL != "",
		AvatarURL:   profile.AvatarURL,
	}
	s.lastErr = ""
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "user.updated"})
	return nil
}

// SearchUsers looks up usernames matching query. An empty query
// short-circuits without a network call.
func (s *User) SearchUsers(ctx context.Context, query string) error {
	if query == "" {
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	hits, err := s.api.SearchUsers(ctx, query)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.lastErr = "failed to search users"
		s.mu.Unlock()
		s.logger.Error("failed to search users", zap.Error(err), zap.String("query", query))
		s.bus.Publish(bus.Event{Kind: "notify.error", Payload: "failed to search users"})
		return err
	}

	results := make([]UserSearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, UserSearchResult{ID: h.Username, Username: h.Username})
	}

	s.mu.Lock()
	s.results = results
	s.loading = false
	s.lastErr = ""
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "user.updated"})
	return nil
}

// ClearSearchResults empties the search results, invoked after a group
// message is composed or its dialog closed.
func (s *User) ClearSearchResults() {
	s.mu.Lock()
	s.results = nil
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "user.updated"})
}

// Current returns a snapshot of the signed-in user's display profile.
func (s *User) Current() CurrentUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SearchResults returns a snapshot of the current search results.
func (s *User) SearchResults() []UserSearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UserSearchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Loading reports whether a user search is in flight.
func (s *User) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the last failure message, empty after a success.
func (s *User) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *User) report(msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	s.bus.Publish(bus.Event{Kind: "notify.error", Payload: msg})
}

// initialsOf derives a two-letter badge: the first letter of the username
// plus the first letter of its second whitespace token, else its second
// character, else the first letter again.
func initialsOf(username string) string {
	runes := []rune(username)
	if len(runes) == 0 {
		return ""
	}
	first := runes[0]
	second := first
	if tokens := strings.Fields(username); len(tokens) > 1 {
		second = []rune(tokens[1])[0]
	} else if len(runes) > 1 {
		second = runes[1]
	}
	return strings.ToUpper(string([]rune{first, second}))
}
