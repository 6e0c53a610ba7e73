package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/geo"
	"github.com/Cheertaboi/coupon-studio/internal/models"
)

// Repos required by service (use interfaces to allow mocking)
type CouponRepo interface {
	Create(ctx context.Context, c *models.Coupon) error
	Get(ctx context.Context, id string) (*models.Coupon, error)
	List(ctx context.Context, ownerID string) ([]models.Coupon, error)
	Update(ctx context.Context, c *models.Coupon) error
	Delete(ctx context.Context, id string) error
}

// CouponInput is the client-writable part of a coupon. Location is a
// pointer so a missing location can be told apart from (0,0).
type CouponInput struct {
	Name        string
	Description string
	Rarity      string
	Discount    string
	StartDate   time.Time
	EndDate     time.Time
	StartTime   string
	EndTime     string
	Location    *geo.Point
	ImageURL    string
	ImagePrompt string
	ModelURL    string
}

// CouponPatch changes only the non-nil fields.
type CouponPatch struct {
	Name        *string
	Description *string
	Rarity      *string
	Discount    *string
	StartDate   *time.Time
	EndDate     *time.Time
	StartTime   *string
	EndTime     *string
	Location    *geo.Point
	ImageURL    *string
	ImagePrompt *string
	ModelURL    *string
}

type CouponService struct {
	repo CouponRepo
	now  func() time.Time
}

func NewCouponService(repo CouponRepo) *CouponService {
	return &CouponService{repo: repo, now: time.Now}
}

// Status pairs c with whether it is active at now.
func (s *CouponService) Status(c models.Coupon, now time.Time) models.CouponView {
	return models.CouponView{Coupon: c, Active: c.IsActive(now)}
}

// Create stores a coupon owned by the caller.
func (s *CouponService) Create(ctx context.Context, in CouponInput) (models.CouponView, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return models.CouponView{}, models.ErrAuthRequired
	}
	if in.Location == nil {
		return models.CouponView{}, fmt.Errorf("%w: location is required", models.ErrValidation)
	}
	c := models.Coupon{UserID: id.UserID}
	applyInput(&c, in)
	if err := validateCoupon(&c); err != nil {
		return models.CouponView{}, err
	}
	if err := s.repo.Create(ctx, &c); err != nil {
		return models.CouponView{}, fmt.Errorf("create coupon: %w", err)
	}
	log.Info().Str("coupon_id", c.ID).Str("user_id", id.UserID).Msg("coupon created")
	return s.Status(c, s.now()), nil
}

// List returns the caller's coupons, or every coupon for anonymous callers.
func (s *CouponService) List(ctx context.Context) ([]models.CouponView, error) {
	owner := ""
	if id, ok := auth.FromContext(ctx); ok {
		owner = id.UserID
	}
	coupons, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	now := s.now()
	views := make([]models.CouponView, 0, len(coupons))
	for _, c := range coupons {
		views = append(views, s.Status(c, now))
	}
	return views, nil
}

func (s *CouponService) Get(ctx context.Context, id string) (models.CouponView, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.CouponView{}, err
	}
	return s.Status(*c, s.now()), nil
}

// Replace overwrites every writable field of an owned coupon.
func (s *CouponService) Replace(ctx context.Context, id string, in CouponInput) (models.CouponView, error) {
	if in.Location == nil {
		return models.CouponView{}, fmt.Errorf("%w: location is required", models.ErrValidation)
	}
	return s.mutate(ctx, id, func(c *models.Coupon) { applyInput(c, in) })
}

// Patch changes the given fields of an owned coupon.
func (s *CouponService) Patch(ctx context.Context, id string, p CouponPatch) (models.CouponView, error) {
	return s.mutate(ctx, id, func(c *models.Coupon) { applyPatch(c, p) })
}

func (s *CouponService) Delete(ctx context.Context, id string) error {
	if _, err := s.owned(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	log.Info().Str("coupon_id", id).Msg("coupon deleted")
	return nil
}

func (s *CouponService) mutate(ctx context.Context, id string, change func(*models.Coupon)) (models.CouponView, error) {
	c, err := s.owned(ctx, id)
	if err != nil {
		return models.CouponView{}, err
	}
	change(c)
	c.ID = id
	if err := validateCoupon(c); err != nil {
		return models.CouponView{}, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return models.CouponView{}, fmt.Errorf("update coupon: %w", err)
	}
	stored, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.CouponView{}, err
	}
	return s.Status(*stored, s.now()), nil
}

// owned loads coupon id and checks the caller owns it.
func (s *CouponService) owned(ctx context.Context, id string) (*models.Coupon, error) {
	caller, ok := auth.FromContext(ctx)
	if !ok {
		return nil, models.ErrAuthRequired
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != caller.UserID {
		log.Warn().Str("coupon_id", id).Str("user_id", caller.UserID).Msg("coupon mutation by non-owner")
		return nil, fmt.Errorf("%w: coupon %s belongs to another user", models.ErrForbidden, id)
	}
	return c, nil
}

func applyInput(c *models.Coupon, in CouponInput) {
	c.Name = in.Name
	c.Description = in.Description
	c.Rarity = models.Rarity(in.Rarity)
	c.Discount = in.Discount
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	c.StartTime = in.StartTime
	c.EndTime = in.EndTime
	if in.Location != nil {
		c.Location = *in.Location
	}
	c.ImageURL = in.ImageURL
	c.ImagePrompt = in.ImagePrompt
	c.ModelURL = in.ModelURL
}

func applyPatch(c *models.Coupon, p CouponPatch) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Name, p.Name)
	set(&c.Description, p.Description)
	if p.Rarity != nil {
		c.Rarity = models.Rarity(*p.Rarity)
	}
	set(&c.Discount, p.Discount)
	if p.StartDate != nil {
		c.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		c.EndDate = *p.EndDate
	}
	set(&c.StartTime, p.StartTime)
	set(&c.EndTime, p.EndTime)
	if p.Location != nil {
		c.Location = *p.Location
	}
	set(&c.ImageURL, p.ImageURL)
	set(&c.ImagePrompt, p.ImagePrompt)
	set(&c.ModelURL, p.ModelURL)
}

func validateCoupon(c *models.Coupon) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return validatePoint(c.Location)
}

// validatePoint only rejects values that cannot be stored. Coupon
// coordinates are otherwise taken as given, without range checks.
func validatePoint(p geo.Point) error {
	for _, v := range []float64{p.Lat, p.Lng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: location (%v, %v) is not a number", models.ErrValidation, p.Lat, p.Lng)
		}
	}
	return nil
}
