package memory

import (
	"context"
	"sync"
)

// ChangeFeed is an in-process implementation of app.ChangeFeed.
// Signals coalesce: a subscriber that hasn't drained sees one pending change.
type ChangeFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan struct{}]struct{}
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subscribers: make(map[string]map[chan struct{}]struct{})}
}

func (f *ChangeFeed) Publish(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[uid] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe registers a listener for uid. The caller must invoke cancel to avoid leaks.
func (f *ChangeFeed) Subscribe(_ context.Context, uid string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	if f.subscribers[uid] == nil {
		f.subscribers[uid] = make(map[chan struct{}]struct{})
	}
	f.subscribers[uid][ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subscribers[uid]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, uid)
		}
	}
	return ch, cancel, nil
}

// Subscribers reports how many listeners uid currently has.
func (f *ChangeFeed) Subscribers(uid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[uid])
}
