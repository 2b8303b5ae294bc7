package store

import (
	"context"
	"errors"
	"testing"

	"github.com/ltavares/courier/internal/bus"
	"github.com/ltavares/courier/internal/gateway"
)

func TestInitials(t *testing.T) {
	cases := []struct {
		username string
		want     string
	}{
		{"ada lovelace", "AL"},
		{"a", "AA"},
		{"bob", "BO"},
		{"grace m hopper", "GM"},
		{"", ""},
	}
	for _, c := range cases {
		if got := initialsOf(c.username); got != c.want {
			t.Errorf("initialsOf(%q) = %q, want %q", c.username, got, c.want)
		}
	}
}

func TestLoadProfileUnauthenticated(t *testing.T) {
	api := &fakeAPI{}
	s := NewUser(api, bus.New(), nil, "")

	err := s.LoadCurrentUserProfile(context.Background())

	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	api.mu.Lock()
	calls := len(api.profileCalls)
	api.mu.Unlock()
	if calls != 0 {
		t.Error("network contacted despite missing identity")
	}
}

func TestLoadProfileDerivesDisplayFields(t *testing.T) {
	api := &fakeAPI{
		fetchProfile: func(username string) (*gateway.Profile, error) {
			return &gateway.Profile{Username: username, AvatarURL: "http://x/a.png", Interests: []string{}}, nil
		},
	}
	s := NewUser(api, bus.New(), nil, "ada lovelace")

	if err := s.LoadCurrentUserProfile(context.Background()); err != nil {
		t.Fatal(err)
	}

	cu := s.Current()
	if cu.DisplayName != "ada lovelace" {
		t.Errorf("DisplayName = %q", cu.DisplayName)
	}
	if cu.Initials != "AL" {
		t.Errorf("Initials = %q, want AL", cu.Initials)
	}
	if !cu.HasAvatar || cu.AvatarURL != "http://x/a.png" {
		t.Errorf("avatar fields = %+v", cu)
	}
}

func TestLoadProfileNoAvatarDefaults(t *testing.T) {
	api := &fakeAPI{
		fetchProfile: func(username string) (*gateway.Profile, error) {
			return &gateway.Profile{Username: username, Interests: []string{}}, nil
		},
	}
	s := NewUser(api, bus.New(), nil, "bob")

	if err := s.LoadCurrentUserProfile(context.Background()); err != nil {
		t.Fatal(err)
	}

	cu := s.Current()
	if cu.HasAvatar || cu.AvatarURL != "" {
		t.Errorf("avatar fields = %+v, want defaults", cu)
	}
}

func TestSearchUsersEmptyQueryShortCircuits(t *testing.T) {
	api := &fakeAPI{}
	s := NewUser(api, bus.New(), nil, "ada")

	if err := s.SearchUsers(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	if api.searchCallCount() != 0 {
		t.Error("empty query must not hit the network")
	}
}

func TestSearchUsersProjectsIDFromUsername(t *testing.T) {
	api := &fakeAPI{
		searchUsers: func(query string) ([]gateway.UserHit, error) {
			return []gateway.UserHit{{Username: "ada"}, {Username: "adrian"}}, nil
		},
	}
	s := NewUser(api, bus.New(), nil, "me")

	if err := s.SearchUsers(context.Background(), "ad"); err != nil {
		t.Fatal(err)
	}

	got := s.SearchResults()
	if len(got) != 2 {
		t.Fatalf("results = %+v", got)
	}
	for _, r := range got {
		if r.ID != r.Username {
			t.Errorf("result %+v: ID and Username must be the same value", r)
		}
	}
}

func TestSearchUsersFailureClearsLoading(t *testing.T) {
	api := &fakeAPI{
		searchUsers: func(query string) ([]gateway.UserHit, error) {
			return nil, errors.New("boom")
		},
	}
	s := NewUser(api, bus.New(), nil, "me")

	if err := s.SearchUsers(context.Background(), "ad"); err == nil {
		t.Fatal("expected error")
	}
	if s.Loading() {
		t.Error("loading not cleared on failure")
	}
	if s.LastError() != "failed to search users" {
		t.Errorf("lastError = %q", s.LastError())
	}
}

func TestClearSearchResults(t *testing.T) {
	api := &fakeAPI{
		searchUsers: func(query string) ([]gateway.UserHit, error) {
			return []gateway.UserHit{{Username: "ada"}}, nil
		},
	}
	s := NewUser(api, bus.New(), nil, "me")
	_ = s.SearchUsers(context.Background(), "ad")

	s.ClearSearchResults()

	if len(s.SearchResults()) != 0 {
		t.Error("results not cleared")
	}
}
