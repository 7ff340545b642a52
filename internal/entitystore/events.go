package entitystore

import "slices"

// Op identifies the kind of change an Event reports.
type Op string

const (
	OpAdded    Op = "added"
	OpUpdated  Op = "updated"
	OpRemoved  Op = "removed"
	OpCleared  Op = "cleared"
	OpHydrated Op = "hydrated"
)

// Event describes one completed mutation. It is published after the
// mutation and its recompute have both finished.
type Event struct {
	Op  Op       `json:"op"`
	IDs []string `json:"ids,omitempty"`

	// Recomputed lists entities whose derived airflow changed.
	Recomputed []string `json:"recomputed,omitempty"`
}

// eventBus delivers events to listeners synchronously, in subscription
// order, on the goroutine that made the mutation. Every listener sees every
// event.
type eventBus struct {
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(Event)
}

func newEventBus() *eventBus {
	return &eventBus{}
}

func (b *eventBus) subscribe(fn func(Event)) func() {
	id := b.nextID
	b.nextID++
	b.listeners = append(b.listeners, listener{id: id, fn: fn})
	return func() {
		b.listeners = slices.DeleteFunc(b.listeners, func(l listener) bool { return l.id == id })
	}
}

func (b *eventBus) publish(ev Event) {
	// Copy so a listener may unsubscribe itself mid-delivery.
	for _, l := range slices.Clone(b.listeners) {
		l.fn(ev)
	}
}
