package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/storage"
	"github.com/antonminaichev/storefront/internal/types/order"

	"go.uber.org/zap"
)

var (
	ErrValidation     = errors.New("missing or invalid order fields")
	ErrCouponRejected = errors.New("coupon rejected")
	ErrNotFound       = errors.New("order not found")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrAlreadyShipped = errors.New("order already has a shipment")
	ErrQueueFull      = errors.New("fulfillment queue is full, retry later")
)

// Fulfiller accepts stored orders for shipment submission. Enqueue must not
// block the caller.
type Fulfiller interface {
	Enqueue(orderID string) bool
}

type CouponRedeemer interface {
	Redeem(ctx context.Context, couponID string) error
}

type Service struct {
	repo      OrderRepository
	coupons   CouponRedeemer
	fulfiller Fulfiller
}

func NewService(r OrderRepository, coupons CouponRedeemer, fulfiller Fulfiller) *Service {
	return &Service{repo: r, coupons: coupons, fulfiller: fulfiller}
}

// PlaceOrder stores a Pending order and hands it to fulfillment. Shipment
// submission happens after this returns and never fails the placement.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req order.PlaceOrderRequest) (*order.Order, error) {
	o, err := s.create(ctx, userID, req, order.StatusPending, func(o *order.Order) {})
	if err != nil {
		return nil, err
	}
	s.fulfill(o.ID)
	return o, nil
}

// RecordPaidOrder stores an order whose online payment was already verified.
func (s *Service) RecordPaidOrder(ctx context.Context, userID string, req order.PlaceOrderRequest, gatewayOrderID, gatewayPaymentID string) (*order.Order, error) {
	req.PaymentMethod = order.PaymentRazorpay
	o, err := s.create(ctx, userID, req, order.StatusPaid, func(o *order.Order) {
		o.RazorpayOrderID = gatewayOrderID
		o.RazorpayPaymentID = gatewayPaymentID
	})
	if err != nil {
		return nil, err
	}
	s.fulfill(o.ID)
	return o, nil
}

func (s *Service) create(ctx context.Context, userID string, req order.PlaceOrderRequest, status order.OrderStatus, apply func(*order.Order)) (*order.Order, error) {
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.CouponID != "" {
		if s.coupons == nil {
			return nil, fmt.Errorf("%w: coupons are not enabled", ErrCouponRejected)
		}
		if err := s.coupons.Redeem(ctx, req.CouponID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCouponRejected, err)
		}
	}

	now := time.Now().UTC()
	o := &order.Order{
		UserID:        userID,
		Items:         req.Items,
		Address:       *req.Address,
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   req.TotalAmount,
		Status:        status,
		CouponID:      req.CouponID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	apply(o)
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	return o, nil
}

func validate(req order.PlaceOrderRequest) error {
	switch {
	case len(req.Items) == 0:
		return fmt.Errorf("%w: items are required", ErrValidation)
	case req.Address == nil:
		return fmt.Errorf("%w: address is required", ErrValidation)
	case req.PaymentMethod != order.PaymentCOD && req.PaymentMethod != order.PaymentRazorpay:
		return fmt.Errorf("%w: paymentMethod must be %q or %q", ErrValidation, order.PaymentCOD, order.PaymentRazorpay)
	case !(req.TotalAmount > 0) || math.IsInf(req.TotalAmount, 0):
		return fmt.Errorf("%w: totalAmount must be a positive number", ErrValidation)
	}
	for i, it := range req.Items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item %d has no quantity", ErrValidation, i)
		}
	}
	return nil
}

func (s *Service) fulfill(orderID string) {
	if s.fulfiller == nil {
		return
	}
	if !s.fulfiller.Enqueue(orderID) {
		logger.Log.Info("order left for fulfillment poll", zap.String("order_id", orderID))
	}
}

func (s *Service) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	o, err := s.repo.FindOrderByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return o, err
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]order.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

func (s *Service) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	return s.repo.ListAllOrders(ctx)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status order.OrderStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	err := s.repo.UpdateOrderStatus(ctx, id, status)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// RetryFulfillment queues a shipment submission for an order that has none,
// including orders the background worker already gave up on.
func (s *Service) RetryFulfillment(ctx context.Context, id string) error {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if o.ShipmentID != "" {
		return ErrAlreadyShipped
	}
	if s.fulfiller == nil || !s.fulfiller.Enqueue(o.ID) {
		return ErrQueueFull
	}
	return nil
}
