package playback

import (
	"sync"

	"jucket/spotify/model"
)

const snapshotBufferSize = 4

// Subscription receives published snapshots until it is removed.
type Subscription struct {
	Snapshots <-chan *model.Snapshot
	Done      <-chan struct{}

	ch       chan *model.Snapshot
	done     chan struct{}
	closeOne sync.Once
}

func newSubscription() *Subscription {
	s := &Subscription{
		ch:   make(chan *model.Snapshot, snapshotBufferSize),
		done: make(chan struct{}),
	}
	s.Snapshots = s.ch
	s.Done = s.done
	return s
}

// send never blocks: when the buffer is full the oldest snapshot is dropped
// so a slow reader always sees the latest state.
func (s *Subscription) send(snap *model.Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *Subscription) close() {
	s.closeOne.Do(func() { close(s.done) })
}

// Hub keeps the latest snapshot and fans it out to subscribers.
type Hub struct {
	mu     sync.RWMutex
	latest *model.Snapshot
	subs   map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Publish records snap as the latest state and delivers it to every
// subscriber.
func (h *Hub) Publish(snap *model.Snapshot) {
	h.mu.Lock()
	h.latest = snap
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.send(snap)
	}
}

// Latest returns the last published snapshot, or nil.
func (h *Hub) Latest() *model.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// CurrentURI returns the URI of the track in the latest snapshot.
func (h *Hub) CurrentURI() string {
	return h.Latest().CurrentURI()
}

// Subscribe registers a new subscriber. The latest snapshot, if any, is
// delivered right away.
func (h *Hub) Subscribe() *Subscription {
	s := newSubscription()

	h.mu.Lock()
	h.subs[s] = struct{}{}
	latest := h.latest
	h.mu.Unlock()

	if latest != nil {
		s.send(latest)
	}
	return s
}

// Unsubscribe removes s and closes its Done channel.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.close()
}

// Close removes every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.close()
	}
}
