package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/antonminaichev/storefront/internal/types/order"
	"github.com/antonminaichev/storefront/internal/types/payment"
)

var (
	ErrValidation        = errors.New("invalid payment request")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
)

// MaxOrderAmount caps a single gateway order, in paise (1 crore rupees).
const MaxOrderAmount = 1_000_000_000

type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int64) (payment.GatewayOrder, error)
}

type OrderRecorder interface {
	RecordPaidOrder(ctx context.Context, userID string, req order.PlaceOrderRequest, gatewayOrderID, gatewayPaymentID string) (*order.Order, error)
}

type Service struct {
	gateway OrderCreator
	orders  OrderRecorder
	secret  []byte
}

func NewService(gateway OrderCreator, orders OrderRecorder, keySecret string) *Service {
	return &Service{gateway: gateway, orders: orders, secret: []byte(keySecret)}
}

// CreateOrder opens a gateway order. amount is in minor units and must be a
// positive whole number.
func (s *Service) CreateOrder(ctx context.Context, amount float64) (payment.GatewayOrder, error) {
	if !(amount > 0) || amount != math.Trunc(amount) {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrValidation)
	}
	if amount > MaxOrderAmount {
		return nil, fmt.Errorf("%w: amount exceeds %d", ErrValidation, MaxOrderAmount)
	}
	return s.gateway.CreateOrder(ctx, int64(amount))
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID".
func Sign(secret []byte, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Service) Verify(gatewayOrderID, gatewayPaymentID, signature string) error {
	expected := Sign(s.secret, gatewayOrderID, gatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyAndRecord checks the gateway signature and only then stores the paid
// order. Nothing is written on a mismatch.
func (s *Service) VerifyAndRecord(ctx context.Context, userID string, req payment.VerifyRequest) (*order.Order, error) {
	if strings.TrimSpace(req.GatewayOrderID) == "" || strings.TrimSpace(req.GatewayPaymentID) == "" || req.Signature == "" {
		return nil, fmt.Errorf("%w: gateway order id, payment id and signature are required", ErrValidation)
	}
	if err := s.Verify(req.GatewayOrderID, req.GatewayPaymentID, req.Signature); err != nil {
		return nil, err
	}
	return s.orders.RecordPaidOrder(ctx, userID, order.PlaceOrderRequest{
		Items:         req.Items,
		Address:       req.Address,
		PaymentMethod: order.PaymentRazorpay,
		TotalAmount:   req.TotalAmount,
		CouponID:      req.CouponID,
	}, req.GatewayOrderID, req.GatewayPaymentID)
}
