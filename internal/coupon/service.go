package coupon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/antonminaichev/storefront/internal/storage"
	"github.com/antonminaichev/storefront/internal/types/coupon"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation      = errors.New("invalid coupon request")
	ErrInvalidCoupon   = errors.New("invalid or inactive coupon")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	ErrCouponExists    = errors.New("coupon code already exists")
)

var hundred = decimal.NewFromInt(100)

type Service struct {
	repo CouponRepository
}

func NewService(repo CouponRepository) *Service {
	return &Service{repo: repo}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Apply evaluates a coupon against a cart amount. It only reads: usage is
// counted when an order carrying the coupon is placed.
func (s *Service) Apply(ctx context.Context, code string, cartAmount float64) (*coupon.ApplyResult, error) {
	code = NormalizeCode(code)
	if code == "" || !(cartAmount > 0) || math.IsInf(cartAmount, 0) {
		return nil, ErrValidation
	}
	c, err := s.repo.FindActiveCouponByCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCoupon
	}
	if err != nil {
		return nil, err
	}
	if c.UsedCount >= c.MaxUses {
		return nil, ErrCouponExhausted
	}
	discount, ok := Discount(c, cartAmount)
	if !ok {
		return nil, ErrInvalidCoupon
	}
	return &coupon.ApplyResult{Discount: discount, CouponID: c.ID}, nil
}

// Discount computes the reduction for cartAmount, never more than the
// amount itself.
func Discount(c *coupon.Coupon, cartAmount float64) (float64, bool) {
	amount := decimal.NewFromFloat(cartAmount)
	value := decimal.NewFromFloat(c.DiscountValue)

	var d decimal.Decimal
	switch c.DiscountType {
	case coupon.DiscountFlat:
		d = value
	case coupon.DiscountPercent:
		d = amount.Mul(value).Div(hundred)
	default:
		return 0, false
	}
	if d.GreaterThan(amount) {
		d = amount
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.Round(2).InexactFloat64(), true
}

func (s *Service) Create(ctx context.Context, req coupon.CreateRequest) (*coupon.Coupon, error) {
	code := NormalizeCode(req.Code)
	switch {
	case code == "":
		return nil, fmt.Errorf("%w: code is required", ErrValidation)
	case req.DiscountType != coupon.DiscountFlat && req.DiscountType != coupon.DiscountPercent:
		return nil, fmt.Errorf("%w: discountType must be flat or percent", ErrValidation)
	case !(req.DiscountValue > 0):
		return nil, fmt.Errorf("%w: discountValue must be positive", ErrValidation)
	case req.DiscountType == coupon.DiscountPercent && req.DiscountValue > 100:
		return nil, fmt.Errorf("%w: percent discount cannot exceed 100", ErrValidation)
	case req.MaxUses < 1:
		return nil, fmt.Errorf("%w: maxUses must be at least 1", ErrValidation)
	}

	c := &coupon.Coupon{
		Code:          code,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MaxUses:       req.MaxUses,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateCoupon(ctx, c); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrCouponExists
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]coupon.Coupon, error) {
	return s.repo.ListCoupons(ctx)
}

// Redeem consumes one use of the coupon; it fails once maxUses is reached
// even under concurrent redemptions.
func (s *Service) Redeem(ctx context.Context, couponID string) error {
	err := s.repo.RedeemCoupon(ctx, couponID)
	if errors.Is(err, storage.ErrConditionFailed) {
		return ErrCouponExhausted
	}
	return err
}
