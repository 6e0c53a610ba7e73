// Package nearby turns the stream of presence changes into a sorted,
// radius-bounded view of other users for one caller.
package nearby

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/concurrency"
	"github.com/Cheertaboi/coupon-studio/internal/geo"
	"github.com/Cheertaboi/coupon-studio/internal/models"
	"github.com/Cheertaboi/coupon-studio/internal/presence"
)

const (
	DefaultRadiusKm = 10.0
	DefaultLimit    = 50
)

type LocationSource interface {
	ActiveLocations(ctx context.Context, limit int) ([]models.UserLocation, error)
}

// ProfileSource returns nil, nil for users without a profile.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (*models.UserProfile, error)
}

type Config struct {
	RadiusKm float64
	Limit    int
	Workers  int
}

type Watcher struct {
	locations LocationSource
	profiles  ProfileSource
	feed      presence.Feed
	cfg       Config
}

func NewWatcher(locations LocationSource, profiles ProfileSource, feed presence.Feed, cfg Config) *Watcher {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = DefaultRadiusKm
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Watcher{locations: locations, profiles: profiles, feed: feed, cfg: cfg}
}

type Options struct {
	UserID   string
	Center   geo.Point
	RadiusKm float64
}

type DeliverFunc func(users []models.NearbyUser)

type candidate struct {
	loc      models.UserLocation
	distance float64
}

// Snapshot computes the current view for opts once.
func (w *Watcher) Snapshot(ctx context.Context, opts Options) ([]models.NearbyUser, error) {
	radius := opts.RadiusKm
	if radius <= 0 {
		radius = w.cfg.RadiusKm
	}

	locs, err := w.locations.ActiveLocations(ctx, w.cfg.Limit)
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, loc := range locs {
		if loc.UserID == opts.UserID {
			continue
		}
		d := geo.Distance(opts.Center, loc.Location)
		if d <= radius {
			candidates = append(candidates, candidate{loc: loc, distance: d})
		}
	}

	views := make([]*models.NearbyUser, len(candidates))
	concurrency.SimpleWorkerPool(ctx, w.cfg.Workers, len(candidates), func(ctx context.Context, i int) {
		c := candidates[i]
		profile, err := w.profiles.Profile(ctx, c.loc.UserID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", c.loc.UserID).Msg("skipping nearby user, profile fetch failed")
			return
		}
		u := models.NearbyUser{
			ID:          c.loc.UserID,
			Location:    c.loc.Location,
			IsOnline:    c.loc.IsOnline,
			LastSeen:    c.loc.LastUpdated,
			Distance:    geo.Round2(c.distance),
			DisplayName: c.loc.DisplayName,
		}
		if profile != nil {
			u.ModularInfo = profile.ModularInfo
			u.Privacy = profile.Privacy
		}
		views[i] = &u
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	order := make([]int, 0, len(views))
	for i, v := range views {
		if v != nil {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(candidates[a].distance, candidates[b].distance)
	})

	out := make([]models.NearbyUser, 0, len(order))
	for _, i := range order {
		out = append(out, *views[i])
	}
	return out, nil
}

// Subscribe delivers a snapshot now and a fresh one after every presence
// change until the subscription is released or ctx ends. deliver runs on
// the subscription's goroutine and must not call Unsubscribe.
func (w *Watcher) Subscribe(ctx context.Context, opts Options, deliver DeliverFunc) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	notes, release := w.feed.Subscribe()

	s := &Subscription{
		deliver: deliver,
		cancel:  cancel,
		release: release,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer s.Unsubscribe()

		w.refresh(ctx, opts, s)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notes:
				if !ok {
					return
				}
				w.refresh(ctx, opts, s)
			}
		}
	}()
	return s
}

func (w *Watcher) refresh(ctx context.Context, opts Options, s *Subscription) {
	users, err := w.Snapshot(ctx, opts)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Str("user_id", opts.UserID).Msg("nearby snapshot failed")
		users = []models.NearbyUser{}
	}
	s.send(users)
}

// Subscription is the caller's handle on a running Subscribe.
type Subscription struct {
	mu      sync.Mutex
	stopped bool
	deliver DeliverFunc
	cancel  context.CancelFunc
	release func()
	done    chan struct{}
}

func (s *Subscription) send(users []models.NearbyUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.deliver(users)
}

// Unsubscribe stops delivery. It is safe to call more than once, and no
// delivery happens after it returns.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.release()
}

// Done is closed once the subscription goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
