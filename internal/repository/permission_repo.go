package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Cheertaboi/coupon-studio/internal/docstore"
)

const CollectionPermissionTests = "permission_tests"

// PermissionRepo performs the raw reads and writes of the permission probe.
type PermissionRepo struct {
	store docstore.Store
}

func NewPermissionRepo(store docstore.Store) *PermissionRepo {
	return &PermissionRepo{store: store}
}

// WriteProbe writes a throwaway document and returns its id.
func (r *PermissionRepo) WriteProbe(ctx context.Context, userID string, at time.Time) (string, error) {
	id := fmt.Sprintf("test_%s_%d", userID, at.UnixMilli())
	err := r.store.Set(ctx, CollectionPermissionTests, id, docstore.Fields{
		"userId":    userID,
		"timestamp": at,
		"test":      true,
	}, false)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PermissionRepo) DeleteProbe(ctx context.Context, id string) error {
	return r.store.Delete(ctx, CollectionPermissionTests, id)
}

// ReadOwnCoupons reads at most one coupon owned by userID.
func (r *PermissionRepo) ReadOwnCoupons(ctx context.Context, userID string) (int, error) {
	docs, err := r.store.Find(ctx, CollectionCoupons, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("userId", docstore.OpEqual, userID)},
		Limit:   1,
	})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
