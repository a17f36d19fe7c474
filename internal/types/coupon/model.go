package coupon

import "time"

type DiscountType string

const (
	DiscountFlat    DiscountType = "flat"
	DiscountPercent DiscountType = "percent"
)

type Coupon struct {
	ID            string       `bson:"_id" json:"id"`
	Code          string       `bson:"code" json:"code"`
	DiscountType  DiscountType `bson:"discountType" json:"discountType"`
	DiscountValue float64      `bson:"discountValue" json:"discountValue"`
	MaxUses       int          `bson:"maxUses" json:"maxUses"`
	UsedCount     int          `bson:"usedCount" json:"usedCount"`
	Active        bool         `bson:"active" json:"active"`
	CreatedAt     time.Time    `bson:"createdAt" json:"createdAt"`
}

type CreateRequest struct {
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`
	MaxUses       int          `json:"maxUses"`
}

type ApplyRequest struct {
	Code       string  `json:"code"`
	CartAmount float64 `json:"cartAmount"`
}

type ApplyResult struct {
	Discount float64 `json:"discount"`
	CouponID string  `json:"couponId"`
}
