package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/cache"
	"github.com/Cheertaboi/coupon-studio/internal/geo"
	"github.com/Cheertaboi/coupon-studio/internal/models"
	"github.com/Cheertaboi/coupon-studio/internal/repository"
)

const DefaultStaleAfter = 5 * time.Minute

type Service struct {
	locations  *repository.LocationRepo
	profiles   *repository.ProfileRepo
	cache      *cache.ProfileCache
	feed       Feed
	staleAfter time.Duration
	now        func() time.Time
}

func NewService(
	locations *repository.LocationRepo,
	profiles *repository.ProfileRepo,
	profileCache *cache.ProfileCache,
	feed Feed,
	staleAfter time.Duration,
) *Service {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Service{
		locations:  locations,
		profiles:   profiles,
		cache:      profileCache,
		feed:       feed,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (s *Service) Feed() Feed {
	return s.feed
}

// Share records the caller's position and marks them sharing and online.
func (s *Service) Share(ctx context.Context, id auth.Identity, p geo.Point) (models.UserLocation, error) {
	loc := models.UserLocation{
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		Location:    p,
		IsSharing:   true,
		IsOnline:    true,
		LastUpdated: s.now(),
	}
	if err := s.locations.Upsert(ctx, loc); err != nil {
		return models.UserLocation{}, fmt.Errorf("share location: %w", err)
	}
	s.publish(ctx)
	return loc, nil
}

// Stop clears both flags. Stopping a user with no record is a no-op.
func (s *Service) Stop(ctx context.Context, userID string) error {
	off := false
	err := s.locations.SetFlags(ctx, userID, &off, &off, s.now())
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stop sharing: %w", err)
	}
	s.publish(ctx)
	return nil
}

func (s *Service) SetOnline(ctx context.Context, userID string, online bool) error {
	if err := s.locations.SetFlags(ctx, userID, nil, &online, s.now()); err != nil {
		return fmt.Errorf("set online status: %w", err)
	}
	s.publish(ctx)
	return nil
}

// Location returns the caller's own presence record.
func (s *Service) Location(ctx context.Context, userID string) (*models.UserLocation, error) {
	return s.locations.Get(ctx, userID)
}

// ActiveLocations returns at most limit sharing, online records.
func (s *Service) ActiveLocations(ctx context.Context, limit int) ([]models.UserLocation, error) {
	return s.locations.ListActive(ctx, limit)
}

func (s *Service) SaveProfile(ctx context.Context, userID string, info models.ModularInfo, privacy models.Privacy) (models.UserProfile, error) {
	if err := info.Validate(); err != nil {
		return models.UserProfile{}, err
	}
	p := models.UserProfile{
		UserID:      userID,
		ModularInfo: info,
		Privacy:     privacy,
		LastUpdated: s.now(),
	}
	if err := s.profiles.Save(ctx, p); err != nil {
		return models.UserProfile{}, fmt.Errorf("save profile: %w", err)
	}
	s.cache.Invalidate(userID)
	s.publish(ctx)
	return p, nil
}

// Profile returns the user's profile through the cache. A user without a
// profile yields nil, nil.
func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if p, ok := s.cache.Get(userID); ok {
		return p, nil
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(userID, p)
	return p, nil
}

// SweepStale marks online records older than the staleness threshold as
// offline and returns how many were flipped. Records are updated one by
// one; a failure on one does not stop the rest.
func (s *Service) SweepStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	stale, err := s.locations.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale locations: %w", err)
	}

	flipped := 0
	for _, loc := range stale {
		if err := s.locations.MarkOffline(ctx, loc.UserID); err != nil {
			log.Warn().Err(err).Str("user_id", loc.UserID).Msg("failed to mark stale user offline")
			continue
		}
		flipped++
	}
	if flipped > 0 {
		log.Info().Int("count", flipped).Time("cutoff", cutoff).Msg("marked stale users offline")
		s.publish(ctx)
	}
	return flipped, nil
}

func (s *Service) publish(ctx context.Context) {
	if err := s.feed.Publish(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to publish presence change")
	}
}
