package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/geo"
	"github.com/Cheertaboi/coupon-studio/internal/models"
	"github.com/Cheertaboi/coupon-studio/internal/repository"
)

func newCouponService(t *testing.T) *CouponService {
	t.Helper()
	repo := repository.NewCouponRepo(repository.NewDocuments(docstore.NewMemoryStore()))
	s := NewCouponService(repo)
	s.now = func() time.Time { return time.Date(2023, 7, 20, 10, 0, 0, 0, time.UTC) }
	return s
}

func as(userID string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: userID})
}

func summerSale() CouponInput {
	return CouponInput{
		Name:      "Summer Sale - 25% OFF",
		Rarity:    "rare",
		Discount:  "25% OFF",
		StartDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "21:00",
		Location:  &geo.Point{Lat: 37.7749, Lng: -122.4194},
	}
}

func TestCouponServiceCreate(t *testing.T) {
	s := newCouponService(t)

	view, err := s.Create(as("alice"), summerSale())
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "alice", view.UserID)
	assert.Equal(t, models.RarityRare, view.Rarity)
	assert.True(t, view.Active)
	assert.False(t, view.CreatedAt.IsZero())
}

func TestCouponServiceCreateRejects(t *testing.T) {
	s := newCouponService(t)

	_, err := s.Create(context.Background(), summerSale())
	assert.ErrorIs(t, err, models.ErrAuthRequired)

	noLocation := summerSale()
	noLocation.Location = nil
	_, err = s.Create(as("alice"), noLocation)
	assert.ErrorIs(t, err, models.ErrValidation)

	backwards := summerSale()
	backwards.EndDate = backwards.StartDate.AddDate(0, 0, -1)
	_, err = s.Create(as("alice"), backwards)
	assert.ErrorIs(t, err, models.ErrValidation)

	notANumber := summerSale()
	notANumber.Location = &geo.Point{Lat: math.NaN(), Lng: 0}
	_, err = s.Create(as("alice"), notANumber)
	assert.ErrorIs(t, err, models.ErrValidation)

	badRarity := summerSale()
	badRarity.Rarity = "legendary"
	_, err = s.Create(as("alice"), badRarity)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCouponServiceKeepsCoordinatesAsGiven(t *testing.T) {
	s := newCouponService(t)

	in := summerSale()
	in.Location = &geo.Point{Lat: 95, Lng: 200}
	view, err := s.Create(as("alice"), in)
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 95, Lng: 200}, view.Location)

	got, err := s.Get(as("alice"), view.ID)
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 95, Lng: 200}, got.Location)

	moved := geo.Point{Lat: -120, Lng: -540}
	patched, err := s.Patch(as("alice"), view.ID, CouponPatch{Location: &moved})
	require.NoError(t, err)
	assert.Equal(t, moved, patched.Location)
}

func TestCouponServiceListScopesToCaller(t *testing.T) {
	s := newCouponService(t)
	_, err := s.Create(as("alice"), summerSale())
	require.NoError(t, err)
	_, err = s.Create(as("bob"), summerSale())
	require.NoError(t, err)

	mine, err := s.List(as("alice"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "alice", mine[0].UserID)

	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCouponServiceOwnerOnlyMutations(t *testing.T) {
	s := newCouponService(t)
	created, err := s.Create(as("alice"), summerSale())
	require.NoError(t, err)

	name := "Hijacked"
	_, err = s.Patch(as("bob"), created.ID, CouponPatch{Name: &name})
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.ErrorIs(t, s.Delete(as("bob"), created.ID), models.ErrForbidden)
	_, err = s.Replace(as("bob"), created.ID, summerSale())
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summer Sale - 25% OFF", got.Name)
}

func TestCouponServicePatchAndReplace(t *testing.T) {
	s := newCouponService(t)
	created, err := s.Create(as("alice"), summerSale())
	require.NoError(t, err)

	end := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	patched, err := s.Patch(as("alice"), created.ID, CouponPatch{EndDate: &end})
	require.NoError(t, err)
	assert.False(t, patched.Active)
	assert.Equal(t, "25% OFF", patched.Discount)
	assert.Equal(t, created.CreatedAt, patched.CreatedAt)
	assert.False(t, patched.UpdatedAt.IsZero())

	early := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.Patch(as("alice"), created.ID, CouponPatch{EndDate: &early})
	assert.ErrorIs(t, err, models.ErrValidation)

	in := summerSale()
	in.Name = "Weekend Discount - 15% OFF"
	in.Rarity = ""
	replaced, err := s.Replace(as("alice"), created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Weekend Discount - 15% OFF", replaced.Name)
	assert.Equal(t, models.RarityCommon, replaced.Rarity)
	assert.Equal(t, "alice", replaced.UserID)
}

func TestCouponServiceDelete(t *testing.T) {
	s := newCouponService(t)
	created, err := s.Create(as("alice"), summerSale())
	require.NoError(t, err)

	require.NoError(t, s.Delete(as("alice"), created.ID))
	_, err = s.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.Delete(as("alice"), created.ID), models.ErrNotFound)
}
