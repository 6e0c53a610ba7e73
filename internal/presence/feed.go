// Package presence owns the per-user location records: sharing, the
// online flag, profiles and the staleness sweep. Changes are announced
// on a Feed so nearby watchers can resnapshot.
package presence

import (
	"context"
	"sync"
)

// Feed announces that presence records changed. Notifications carry no
// payload and coalesce: a slow subscriber sees at least one signal after
// the latest Publish, not one per Publish.
type Feed interface {
	Publish(ctx context.Context) error
	// Subscribe returns a notification channel and a func releasing it.
	// The channel is closed when the feed closes.
	Subscribe() (<-chan struct{}, func())
	Close() error
}

// MemoryFeed is an in-process Feed.
type MemoryFeed struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan struct{}
	closed bool
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int]chan struct{})}
}

func (f *MemoryFeed) Publish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.notify()
	return nil
}

// notify signals every subscriber without blocking.
func (f *MemoryFeed) notify() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *MemoryFeed) Subscribe() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan struct{}, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.next
	f.next++
	f.subs[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
	}
}

func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
	return nil
}
