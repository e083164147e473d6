package testutil

import (
	"sync"

	"github.com/speechcoach/coach/internal/protocol"
)

// RecordingNotifier keeps every event sent to it.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (n *RecordingNotifier) Send(sessionID string, ev protocol.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return true
}

// Events returns the recorded events in send order.
func (n *RecordingNotifier) Events() []protocol.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]protocol.Event(nil), n.events...)
}

// Types returns the type of every recorded event.
func (n *RecordingNotifier) Types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]string, len(n.events))
	for i, ev := range n.events {
		if st, ok := ev.(protocol.StatusEvent); ok {
			types[i] = ev.Type() + ":" + string(st.Status)
			continue
		}
		types[i] = ev.Type()
	}
	return types
}
