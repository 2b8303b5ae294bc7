package gateway

// SentNow is the timestamp sentinel carried by optimistically displayed
// messages that have not been confirmed by the server yet.
const SentNow = "now"

// InboxEntry is one row of the inbox: a summary of the conversation with a
// single peer. Entries are unique by ID, one per peer.
type InboxEntry struct {
	ID                int64  `json:"id"`
	WithUser          string `json:"withUser"`
	WithUserAvatarURL string `json:"withUserAvatarUrl,omitempty"`
	LastMessage       string `json:"lastMessage"`
	LastMessageDate   string `json:"lastMessageDate,omitempty"`
	UnreadCount       int    `json:"unreadCount"`
}

// Message is a single conversation message. Server-confirmed messages carry
// an ID; optimistic local ones carry only a ClientID and SentDate == SentNow.
type Message struct {
	ID              int64  `json:"id,omitempty"`
	ClientID        string `json:"clientId,omitempty"`
	Sender          string `json:"sender"`
	SenderAvatarURL string `json:"senderAvatarUrl,omitempty"`
	SentDate        string `json:"sentDate,omitempty"`
	Body            string `json:"body"`
}

// InboxPage is the envelope of a paged inbox listing.
type InboxPage struct {
	Results  []InboxEntry `json:"results"`
	NumPages int          `json:"numPages"`
}

// MessagePage is the envelope of a paged conversation listing,
// newest message first.
type MessagePage struct {
	Results  []Message `json:"results"`
	NumPages int       `json:"numPages"`
}

// UserHit is one result of a username search.
type UserHit struct {
	Username string `json:"username"`
}

// Profile holds the fields of an account profile. Optional fields default
// to empty; Interests is never nil.
type Profile struct {
	Username  string   `json:"username"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Interests []string `json:"interests"`
}
