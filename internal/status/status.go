// Package status mirrors the live sync state of every track for rendering code.
//
// A [Broadcaster] keeps exactly one state per track, so the syncing, downloading and synced sets are
// disjoint by construction. There is no failed set: a track that failed simply has no state.
package status

import "sync"

// State is a track's live membership.
type State int

const (
	None State = iota
	Syncing
	Downloading
	Synced
)

func (s State) String() string {
	switch s {
	case Syncing:
		return "syncing"
	case Downloading:
		return "downloading"
	case Synced:
		return "synced"
	default:
		return "none"
	}
}

// Event is sent to subscribers whenever a track's state changes. State is [None] when the track was
// cleared.
type Event struct {
	TrackID string `json:"track_id"`
	State   State  `json:"-"`
	Label   string `json:"state"`
}

// Broadcaster is safe for concurrent use.
type Broadcaster struct {
	mu     sync.RWMutex
	states map[string]State
	subs   map[int]chan Event
	nextID int
}

// New creates an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{states: make(map[string]State), subs: make(map[int]chan Event)}
}

// Set moves trackID into state, leaving every other set. Setting [None] is equivalent to [Broadcaster.Clear].
func (b *Broadcaster) Set(trackID string, state State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.states[trackID] == state {
		return
	}
	if state == None {
		delete(b.states, trackID)
	} else {
		b.states[trackID] = state
	}
	b.publish(Event{TrackID: trackID, State: state, Label: state.String()})
}

// Clear removes trackID from every set.
func (b *Broadcaster) Clear(trackID string) {
	b.Set(trackID, None)
}

// State returns the current state of trackID.
func (b *Broadcaster) State(trackID string) State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.states[trackID]
}

func (b *Broadcaster) IsSynced(trackID string) bool      { return b.State(trackID) == Synced }
func (b *Broadcaster) IsSyncing(trackID string) bool     { return b.State(trackID) == Syncing }
func (b *Broadcaster) IsDownloading(trackID string) bool { return b.State(trackID) == Downloading }

// Snapshot copies the current state of every tracked id.
func (b *Broadcaster) Snapshot() map[string]State {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]State, len(b.states))
	for id, s := range b.states {
		out[id] = s
	}
	return out
}

// Subscribe returns a channel receiving every subsequent change and a func that ends the
// subscription. Events are dropped for subscribers whose buffer is full.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// publish must be called with mu held.
func (b *Broadcaster) publish(e Event) {
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
