// Package store holds the three authoritative state containers of the
// client: the inbox list, the open conversation, and the current user.
// Each container is exclusively mutated by its own operations; cross-store
// effects are sequenced by the sync engine, never written directly.
package store

import (
	"context"

	"github.com/ltavares/courier/internal/gateway"
)

// API is the slice of the gateway the stores depend on.
type API interface {
	ListInbox(ctx context.Context, page int, search string) (*gateway.InboxPage, error)
	ListConversation(ctx context.Context, page int, withUser string) (*gateway.MessagePage, error)
	CreateMessage(ctx context.Context, receiver, body string) (*gateway.Message, error)
	CreateGroupMessages(ctx context.Context, receivers []string, body string) ([]gateway.InboxEntry, error)
	ClearUnread(ctx context.Context, inboxID int64) (*gateway.InboxEntry, error)
	SearchUsers(ctx context.Context, query string) ([]gateway.UserHit, error)
	FetchProfile(ctx context.Context, username string) (*gateway.Profile, error)
}
