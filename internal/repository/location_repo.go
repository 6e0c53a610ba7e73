package repository

import (
	"context"
	"time"

	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/models"
)

const CollectionLocations = "user_locations"

// LocationRepo stores one presence record per user, keyed by user id.
type LocationRepo struct {
	store docstore.Store
}

func NewLocationRepo(store docstore.Store) *LocationRepo {
	return &LocationRepo{store: store}
}

// Upsert merges loc into the user's record, creating it when missing.
func (r *LocationRepo) Upsert(ctx context.Context, loc models.UserLocation) error {
	f := docstore.Fields{
		"userId":      loc.UserID,
		"location":    pointFields(loc.Location),
		"isSharing":   loc.IsSharing,
		"isOnline":    loc.IsOnline,
		"lastUpdated": loc.LastUpdated,
	}
	if loc.DisplayName != "" {
		f["displayName"] = loc.DisplayName
	}
	if loc.Email != "" {
		f["email"] = loc.Email
	}
	return r.store.Set(ctx, CollectionLocations, loc.UserID, f, true)
}

// SetFlags updates the sharing and online flags of an existing record.
func (r *LocationRepo) SetFlags(ctx context.Context, userID string, sharing, online *bool, at time.Time) error {
	f := docstore.Fields{"lastUpdated": at}
	if sharing != nil {
		f["isSharing"] = *sharing
	}
	if online != nil {
		f["isOnline"] = *online
	}
	return r.store.Update(ctx, CollectionLocations, userID, f)
}

// MarkOffline flips isOnline without touching lastUpdated.
func (r *LocationRepo) MarkOffline(ctx context.Context, userID string) error {
	return r.store.Update(ctx, CollectionLocations, userID, docstore.Fields{"isOnline": false})
}

func (r *LocationRepo) Get(ctx context.Context, userID string) (*models.UserLocation, error) {
	doc, err := r.store.Get(ctx, CollectionLocations, userID)
	if err != nil {
		return nil, err
	}
	loc := locationFromDocument(*doc)
	return &loc, nil
}

// ListActive returns sharing, online users, most recently updated first.
func (r *LocationRepo) ListActive(ctx context.Context, limit int) ([]models.UserLocation, error) {
	return r.find(ctx, docstore.Query{
		Filters: []docstore.Filter{
			docstore.Where("isSharing", docstore.OpEqual, true),
			docstore.Where("isOnline", docstore.OpEqual, true),
		},
		OrderBy:    "lastUpdated",
		Descending: true,
		Limit:      limit,
	})
}

// ListStale returns online users whose record is older than cutoff.
func (r *LocationRepo) ListStale(ctx context.Context, cutoff time.Time) ([]models.UserLocation, error) {
	return r.find(ctx, docstore.Query{
		Filters: []docstore.Filter{
			docstore.Where("isOnline", docstore.OpEqual, true),
			docstore.Where("lastUpdated", docstore.OpLess, cutoff),
		},
	})
}

func (r *LocationRepo) find(ctx context.Context, q docstore.Query) ([]models.UserLocation, error) {
	docs, err := r.store.Find(ctx, CollectionLocations, q)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserLocation, 0, len(docs))
	for _, d := range docs {
		out = append(out, locationFromDocument(d))
	}
	return out, nil
}

func locationFromDocument(d docstore.Document) models.UserLocation {
	f := d.Data
	id := str(f, "userId")
	if id == "" {
		id = d.ID
	}
	return models.UserLocation{
		UserID:      id,
		DisplayName: str(f, "displayName"),
		Email:       str(f, "email"),
		Location:    point(f, "location"),
		IsSharing:   boolean(f, "isSharing"),
		IsOnline:    boolean(f, "isOnline"),
		LastUpdated: timestamp(f, "lastUpdated"),
	}
}
