package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/models"
)

// countingStore records calls that reach the backend.
type countingStore struct {
	docstore.Store
	adds int
}

func (s *countingStore) Add(ctx context.Context, collection string, data docstore.Fields) (string, error) {
	s.adds++
	return s.Store.Add(ctx, collection, data)
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDocumentsCreateRequiresOwnerBeforeStoreCall(t *testing.T) {
	store := &countingStore{Store: docstore.NewMemoryStore()}
	docs := NewDocuments(store)

	_, err := docs.Create(context.Background(), "coupons", docstore.Fields{"name": "x"}, "")
	assert.ErrorIs(t, err, models.ErrAuthRequired)
	assert.Equal(t, 0, store.adds)
}

func TestDocumentsCreateStampsOwnerAndTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	docs := NewDocuments(docstore.NewMemoryStore())
	docs.now = fixedNow(now)

	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: "caller"})

	id, err := docs.Create(ctx, "coupons", docstore.Fields{"name": "x"}, "")
	require.NoError(t, err)
	doc, err := docs.Get(ctx, "coupons", id)
	require.NoError(t, err)
	assert.Equal(t, "caller", doc.Data["userId"])
	assert.True(t, now.Equal(doc.Data["createdAt"].(time.Time)))

	id, err = docs.Create(ctx, "coupons", docstore.Fields{"name": "y"}, "explicit")
	require.NoError(t, err)
	doc, err = docs.Get(ctx, "coupons", id)
	require.NoError(t, err)
	assert.Equal(t, "explicit", doc.Data["userId"])
}

func TestDocumentsListScoping(t *testing.T) {
	docs := NewDocuments(docstore.NewMemoryStore())
	bg := context.Background()

	for _, owner := range []string{"a", "a", "b"} {
		_, err := docs.Create(bg, "coupons", docstore.Fields{"name": owner}, owner)
		require.NoError(t, err)
	}

	byOwner, err := docs.List(bg, "coupons", "a")
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	byCaller, err := docs.List(auth.WithIdentity(bg, auth.Identity{UserID: "b"}), "coupons", "")
	require.NoError(t, err)
	assert.Len(t, byCaller, 1)

	all, err := docs.List(bg, "coupons", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDocumentsUpdateStampsUpdatedAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	docs := NewDocuments(docstore.NewMemoryStore())
	docs.now = fixedNow(now)
	bg := context.Background()

	id, err := docs.Create(bg, "coupons", docstore.Fields{"name": "x"}, "a")
	require.NoError(t, err)

	docs.now = fixedNow(now.Add(time.Hour))
	require.NoError(t, docs.Update(bg, "coupons", id, docstore.Fields{"name": "y"}))

	doc, err := docs.Get(bg, "coupons", id)
	require.NoError(t, err)
	assert.Equal(t, "y", doc.Data["name"])
	assert.True(t, now.Add(time.Hour).Equal(doc.Data["updatedAt"].(time.Time)))

	assert.ErrorIs(t, docs.Update(bg, "coupons", "missing", docstore.Fields{}), models.ErrNotFound)
}

func TestDocumentsIsEmpty(t *testing.T) {
	docs := NewDocuments(docstore.NewMemoryStore())
	empty, err := docs.IsEmpty(context.Background(), "coupons")
	require.NoError(t, err)
	assert.True(t, empty)
}
