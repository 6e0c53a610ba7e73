//go:build integration

package docstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Cheertaboi/coupon-studio/pkg/db"
)

func startMongo(t *testing.T) *MongoStore {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForListeningPort("27017/tcp").
			WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	client, err := db.NewMongoClient(fmt.Sprintf("mongodb://%s:%s", host, port.Port()))
	require.NoError(t, err)

	s := NewMongoStore(client.Database("coupons"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMongoStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := startMongo(t)
	require.NoError(t, s.Ping(ctx))

	created := time.Date(2024, 3, 1, 8, 15, 0, 456_789_000, time.UTC)
	id, err := s.Add(ctx, "coupons", Fields{
		"name":      "Coffee",
		"userId":    "owner-1",
		"createdAt": created,
		"location":  map[string]any{"lat": 40.7, "lng": -74.0},
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, "coupons", id)
	require.NoError(t, err)
	assert.True(t, doc.Data["createdAt"].(time.Time).Equal(created.Truncate(time.Millisecond)))
	assert.Equal(t, map[string]any{"lat": 40.7, "lng": -74.0}, doc.Data["location"])

	require.NoError(t, s.Update(ctx, "coupons", id, Fields{"name": "Tea"}))
	assert.ErrorIs(t, s.Update(ctx, "coupons", "nope", Fields{"name": "x"}), ErrNotFound)

	docs, err := s.Find(ctx, "coupons", Query{Filters: []Filter{Where("userId", OpEqual, "owner-1")}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Tea", docs[0].Data["name"])

	older, err := s.Find(ctx, "coupons", Query{Filters: []Filter{Where("createdAt", OpLess, created.Add(time.Second))}})
	require.NoError(t, err)
	assert.Len(t, older, 1)

	require.NoError(t, s.Delete(ctx, "coupons", id))
	_, err = s.Get(ctx, "coupons", id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoStoreSetMergeAndOrdering(t *testing.T) {
	ctx := context.Background()
	s := startMongo(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Set(ctx, "user_profiles", "u1", Fields{"a": "1", "b": "2"}, false))
	require.NoError(t, s.Set(ctx, "user_profiles", "u1", Fields{"b": "3"}, true))
	doc, err := s.Get(ctx, "user_profiles", "u1")
	require.NoError(t, err)
	assert.Equal(t, Fields{"a": "1", "b": "3"}, doc.Data)

	for i, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, s.Set(ctx, "user_locations", id, Fields{
			"isSharing":   true,
			"lastUpdated": base.Add(time.Duration(i) * time.Minute),
		}, false))
	}
	docs, err := s.Find(ctx, "user_locations", Query{
		Filters:    []Filter{Where("isSharing", OpEqual, true)},
		OrderBy:    "lastUpdated",
		Descending: true,
		Limit:      2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "u3", docs[0].ID)
	assert.Equal(t, "u2", docs[1].ID)
}
