package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ChannelChanges is the pub/sub channel presence changes are sent on.
const ChannelChanges = "presence:changes"

// RedisFeed relays presence changes between processes over Redis pub/sub.
// Each process holds one subscription and fans it out locally.
type RedisFeed struct {
	rdb    *redis.Client
	pubsub *redis.PubSub
	local  *MemoryFeed
	done   chan struct{}
}

// NewRedisFeed subscribes to ChannelChanges and starts relaying.
func NewRedisFeed(ctx context.Context, rdb *redis.Client) (*RedisFeed, error) {
	ps := rdb.Subscribe(ctx, ChannelChanges)
	// Wait for the subscription confirmation so early publishes are not lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", ChannelChanges, err)
	}

	f := &RedisFeed{
		rdb:    rdb,
		pubsub: ps,
		local:  NewMemoryFeed(),
		done:   make(chan struct{}),
	}
	go f.relay()
	return f, nil
}

func (f *RedisFeed) relay() {
	defer close(f.done)
	for range f.pubsub.Channel() {
		f.local.notify()
	}
}

func (f *RedisFeed) Publish(ctx context.Context) error {
	if err := f.rdb.Publish(ctx, ChannelChanges, "changed").Err(); err != nil {
		return fmt.Errorf("publish presence change: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe() (<-chan struct{}, func()) {
	return f.local.Subscribe()
}

func (f *RedisFeed) Close() error {
	err := f.pubsub.Close()
	<-f.done
	_ = f.local.Close()
	if err != nil {
		log.Warn().Err(err).Msg("closing presence subscription")
	}
	return err
}
