package coupon

import (
	"context"

	"github.com/antonminaichev/storefront/internal/types/coupon"
)

type CouponRepository interface {
	CreateCoupon(ctx context.Context, c *coupon.Coupon) error
	FindActiveCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	ListCoupons(ctx context.Context) ([]coupon.Coupon, error)
	RedeemCoupon(ctx context.Context, id string) error
}
