package service

import "github.com/speechcoach/coach/internal/protocol"

// Notifier delivers turn events to whoever is bound to a session.
// Send reports whether the event was queued.
type Notifier interface {
	Send(sessionID string, ev protocol.Event) bool
}

type discard struct{}

func (discard) Send(string, protocol.Event) bool { return false }

// Discard drops every event. Request/response callers use it.
var Discard Notifier = discard{}
