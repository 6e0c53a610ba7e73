package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/coupon-studio/internal/models"
)

func TestMemoryStoreRoundTripsNestedTimes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	start := time.Date(2024, 6, 1, 9, 30, 15, 123456789, time.FixedZone("PDT", -7*3600))
	id, err := s.Add(ctx, "coupons", Fields{
		"name":      "Summer",
		"startDate": start,
		"window": map[string]any{
			"opens": start,
			"slots": []any{start, "x"},
		},
		"tags": []string{"a", "b"},
		"n":    3,
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "coupons", id)
	require.NoError(t, err)

	got, ok := doc.Data["startDate"].(time.Time)
	require.True(t, ok, "startDate should decode as time.Time, got %T", doc.Data["startDate"])
	assert.True(t, got.Truncate(time.Millisecond).Equal(start.Truncate(time.Millisecond)))

	window := doc.Data["window"].(map[string]any)
	opens := window["opens"].(time.Time)
	assert.True(t, opens.Equal(start.Truncate(time.Microsecond)))
	slots := window["slots"].([]any)
	assert.IsType(t, time.Time{}, slots[0])
	assert.Equal(t, "x", slots[1])

	assert.Equal(t, []any{"a", "b"}, doc.Data["tags"])
	assert.Equal(t, float64(3), doc.Data["n"])
}

func TestMemoryStoreUpdateMergesAndRequiresExisting(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Update(ctx, "coupons", "missing", Fields{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.Set(ctx, "coupons", "c1", Fields{"name": "a", "rarity": "rare"}, false))
	require.NoError(t, s.Update(ctx, "coupons", "c1", Fields{"name": "b"}))

	doc, err := s.Get(ctx, "coupons", "c1")
	require.NoError(t, err)
	assert.Equal(t, "b", doc.Data["name"])
	assert.Equal(t, "rare", doc.Data["rarity"])
}

func TestMemoryStoreSetReplaceVersusMerge(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "user_profiles", "u1", Fields{"a": "1", "b": "2"}, false))
	require.NoError(t, s.Set(ctx, "user_profiles", "u1", Fields{"b": "3"}, true))
	doc, err := s.Get(ctx, "user_profiles", "u1")
	require.NoError(t, err)
	assert.Equal(t, Fields{"a": "1", "b": "3"}, doc.Data)

	require.NoError(t, s.Set(ctx, "user_profiles", "u1", Fields{"c": "4"}, false))
	doc, err = s.Get(ctx, "user_profiles", "u1")
	require.NoError(t, err)
	assert.Equal(t, Fields{"c": "4"}, doc.Data)
}

func TestMemoryStoreDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "coupons", "c1", Fields{"name": "a"}, false))

	require.NoError(t, s.Delete(ctx, "coupons", "c1"))
	require.NoError(t, s.Delete(ctx, "coupons", "c1"))

	_, err := s.Get(ctx, "coupons", "c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreFindFiltersOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, u := range []struct {
		id      string
		sharing bool
		online  bool
	}{
		{"u1", true, true},
		{"u2", true, false},
		{"u3", false, true},
		{"u4", true, true},
		{"u5", true, true},
	} {
		require.NoError(t, s.Set(ctx, "user_locations", u.id, Fields{
			"userId":      u.id,
			"isSharing":   u.sharing,
			"isOnline":    u.online,
			"lastUpdated": base.Add(time.Duration(i) * time.Minute),
		}, false))
	}

	docs, err := s.Find(ctx, "user_locations", Query{
		Filters: []Filter{
			Where("isSharing", OpEqual, true),
			Where("isOnline", OpEqual, true),
		},
		OrderBy:    "lastUpdated",
		Descending: true,
		Limit:      2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "u5", docs[0].ID)
	assert.Equal(t, "u4", docs[1].ID)

	stale, err := s.Find(ctx, "user_locations", Query{
		Filters: []Filter{
			Where("lastUpdated", OpLess, base.Add(2*time.Minute)),
			Where("isOnline", OpEqual, true),
		},
	})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "u1", stale[0].ID)
}

func TestMemoryStoreFindRejectsUnknownOperator(t *testing.T) {
	_, err := NewMemoryStore().Find(context.Background(), "coupons", Query{
		Filters: []Filter{{Field: "name", Op: "!=", Value: "a"}},
	})
	assert.Error(t, err)
}
