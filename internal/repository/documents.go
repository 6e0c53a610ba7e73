package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/models"
)

// Documents is the owner-aware CRUD layer over a docstore.Store.
type Documents struct {
	store docstore.Store
	now   func() time.Time
}

func NewDocuments(store docstore.Store) *Documents {
	return &Documents{store: store, now: time.Now}
}

func (d *Documents) Store() docstore.Store {
	return d.store
}

// Create stores data owned by ownerID, or by the caller in ctx when
// ownerID is empty. It stamps userId and createdAt.
func (d *Documents) Create(ctx context.Context, collection string, data docstore.Fields, ownerID string) (string, error) {
	if ownerID == "" {
		if id, ok := auth.FromContext(ctx); ok {
			ownerID = id.UserID
		}
	}
	if ownerID == "" {
		return "", fmt.Errorf("create %s: %w", collection, models.ErrAuthRequired)
	}

	body := make(docstore.Fields, len(data)+2)
	for k, v := range data {
		body[k] = v
	}
	body["userId"] = ownerID
	body["createdAt"] = d.now()

	id, err := d.store.Add(ctx, collection, body)
	if err != nil {
		return "", err
	}
	return id, nil
}

// List returns documents owned by ownerID, else by the caller in ctx.
// With neither it returns the whole collection.
func (d *Documents) List(ctx context.Context, collection, ownerID string) ([]docstore.Document, error) {
	if ownerID == "" {
		if id, ok := auth.FromContext(ctx); ok {
			ownerID = id.UserID
		}
	}

	var q docstore.Query
	if ownerID != "" {
		q.Filters = []docstore.Filter{docstore.Where("userId", docstore.OpEqual, ownerID)}
	} else {
		// Unscoped read: anonymous callers see the public listing.
		log.Warn().Str("collection", collection).Msg("listing documents without owner scope")
	}
	return d.store.Find(ctx, collection, q)
}

func (d *Documents) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	return d.store.Get(ctx, collection, id)
}

// Update merges data into the document and stamps updatedAt. No version
// check is made; the last write wins.
func (d *Documents) Update(ctx context.Context, collection, id string, data docstore.Fields) error {
	body := make(docstore.Fields, len(data)+1)
	for k, v := range data {
		body[k] = v
	}
	body["updatedAt"] = d.now()
	return d.store.Update(ctx, collection, id, body)
}

func (d *Documents) Delete(ctx context.Context, collection, id string) error {
	return d.store.Delete(ctx, collection, id)
}

// IsEmpty reports whether collection holds no documents.
func (d *Documents) IsEmpty(ctx context.Context, collection string) (bool, error) {
	docs, err := d.store.Find(ctx, collection, docstore.Query{Limit: 1})
	if err != nil {
		return false, err
	}
	return len(docs) == 0, nil
}
