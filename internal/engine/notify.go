package engine

// Event is a UI-refresh signal emitted by the engine.
//
// Task writes during a pass are notification-suppressed; the engine emits
// one batched RefreshTasks per list instead of one signal per write.
type Event struct {
	// Kind is RefreshTasks or RefreshLists.
	Kind EventKind
	// AccountID identifies the account the signal belongs to.
	AccountID string
	// ListID is set for RefreshTasks events.
	ListID string
}

// EventKind discriminates refresh signals.
type EventKind int

const (
	// RefreshTasks signals task content changed within one list.
	RefreshTasks EventKind = iota
	// RefreshLists signals list metadata changed (created, renamed,
	// deleted, or account health updated).
	RefreshLists
)

// Notifier receives refresh signals. Implementations must not block; the
// engine treats notification as best-effort.
type Notifier interface {
	Notify(event Event)
}

// ChannelNotifier forwards events to a channel, dropping them when the
// receiver is slow. Suits a UI that only needs a "something changed" nudge.
type ChannelNotifier struct {
	events chan Event
}

// NewChannelNotifier creates a ChannelNotifier with the given buffer size.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelNotifier{events: make(chan Event, buffer)}
}

// Events returns the receive side of the notifier.
func (n *ChannelNotifier) Events() <-chan Event {
	return n.events
}

// Notify sends the event without blocking. Events are dropped when the
// channel is full.
func (n *ChannelNotifier) Notify(event Event) {
	select {
	case n.events <- event:
	default:
	}
}

// NoopNotifier discards events.
type NoopNotifier struct{}

func (NoopNotifier) Notify(Event) {}
