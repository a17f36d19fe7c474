package storage

import (
	"context"
	"errors"

	"github.com/antonminaichev/storefront/internal/types/coupon"
	"github.com/antonminaichev/storefront/internal/types/order"
	"github.com/antonminaichev/storefront/internal/types/user"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate key")
	ErrConditionFailed = errors.New("update precondition failed")
)

// UserRepository stores customer accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, u *user.User) error
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)
	FindUserByID(ctx context.Context, id string) (*user.User, error)
}

// OrderRepository stores orders and their lifecycle status.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	FindOrderByID(ctx context.Context, id string) (*order.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]order.Order, error)
	ListAllOrders(ctx context.Context) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status order.OrderStatus) error
}

// FulfillmentRepository records shipment submissions against orders.
type FulfillmentRepository interface {
	SaveShipment(ctx context.Context, id string, s *order.Shipment) error
	RecordFulfillmentFailure(ctx context.Context, id string, reason string) (attempts int, err error)
	ListOrdersAwaitingShipment(ctx context.Context, maxAttempts int) ([]order.Order, error)
}

// CouponRepository stores coupons and counts their redemptions.
type CouponRepository interface {
	CreateCoupon(ctx context.Context, c *coupon.Coupon) error
	FindActiveCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	ListCoupons(ctx context.Context) ([]coupon.Coupon, error)
	RedeemCoupon(ctx context.Context, id string) error
}

// Storage combines every repository with connection management.
type Storage interface {
	UserRepository
	OrderRepository
	FulfillmentRepository
	CouponRepository

	Ping(ctx context.Context) error
	Close() error
}
