package repository

import (
	"context"

	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/models"
)

const CollectionCoupons = "coupons"

type CouponRepo struct {
	docs *Documents
}

func NewCouponRepo(docs *Documents) *CouponRepo {
	return &CouponRepo{docs: docs}
}

// Create stores c owned by c.UserID (or the caller) and fills in the
// stored id, owner and creation time.
func (r *CouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	id, err := r.docs.Create(ctx, CollectionCoupons, couponFields(c), c.UserID)
	if err != nil {
		return err
	}
	stored, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	*c = *stored
	return nil
}

func (r *CouponRepo) Get(ctx context.Context, id string) (*models.Coupon, error) {
	doc, err := r.docs.Get(ctx, CollectionCoupons, id)
	if err != nil {
		return nil, err
	}
	c := couponFromDocument(*doc)
	return &c, nil
}

// List returns coupons owned by ownerID. See Documents.List for the
// fallback when ownerID is empty.
func (r *CouponRepo) List(ctx context.Context, ownerID string) ([]models.Coupon, error) {
	docs, err := r.docs.List(ctx, CollectionCoupons, ownerID)
	if err != nil {
		return nil, err
	}
	coupons := make([]models.Coupon, 0, len(docs))
	for _, d := range docs {
		coupons = append(coupons, couponFromDocument(d))
	}
	return coupons, nil
}

// Update writes every editable field of c.
func (r *CouponRepo) Update(ctx context.Context, c *models.Coupon) error {
	return r.docs.Update(ctx, CollectionCoupons, c.ID, couponFields(c))
}

func (r *CouponRepo) Delete(ctx context.Context, id string) error {
	return r.docs.Delete(ctx, CollectionCoupons, id)
}

func (r *CouponRepo) IsEmpty(ctx context.Context) (bool, error) {
	return r.docs.IsEmpty(ctx, CollectionCoupons)
}

func couponFields(c *models.Coupon) docstore.Fields {
	return docstore.Fields{
		"name":        c.Name,
		"description": c.Description,
		"rarity":      string(c.Rarity),
		"discount":    c.Discount,
		"startDate":   c.StartDate,
		"endDate":     c.EndDate,
		"startTime":   c.StartTime,
		"endTime":     c.EndTime,
		"location":    pointFields(c.Location),
		"imageUrl":    c.ImageURL,
		"imagePrompt": c.ImagePrompt,
		"modelUrl":    c.ModelURL,
	}
}

func couponFromDocument(d docstore.Document) models.Coupon {
	f := d.Data
	return models.Coupon{
		ID:          d.ID,
		Name:        str(f, "name"),
		Description: str(f, "description"),
		Rarity:      models.Rarity(str(f, "rarity")),
		Discount:    str(f, "discount"),
		StartDate:   timestamp(f, "startDate"),
		EndDate:     timestamp(f, "endDate"),
		StartTime:   str(f, "startTime"),
		EndTime:     str(f, "endTime"),
		Location:    point(f, "location"),
		ImageURL:    str(f, "imageUrl"),
		ImagePrompt: str(f, "imagePrompt"),
		ModelURL:    str(f, "modelUrl"),
		UserID:      str(f, "userId"),
		CreatedAt:   timestamp(f, "createdAt"),
		UpdatedAt:   timestamp(f, "updatedAt"),
	}
}
