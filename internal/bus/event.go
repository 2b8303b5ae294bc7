package bus

import "time"

// Event is a domain event published on the bus. Kind is dot-namespaced:
// "ui." for input gestures, "inbox."/"messages."/"user." for store state
// changes, "sync." for engine timer callbacks, "notify." for flash messages.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// GroupSend is the payload of a "ui.group_send" event.
type GroupSend struct {
	Receivers []string
	Body      string
}

// DebounceFired is the payload of a "sync.debounce_fired" event. Gen ties
// the firing back to the arming; a stale generation is ignored.
type DebounceFired struct {
	Gen   int
	Query string
}

// UnreadDue is the payload of a "sync.unread_due" event.
type UnreadDue struct {
	Gen     int
	EntryID int64
	Peer    string
}
