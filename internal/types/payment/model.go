package payment

import "github.com/antonminaichev/storefront/internal/types/order"

type CreateOrderRequest struct {
	Amount float64 `json:"amount"`
}

// GatewayOrder is the order object returned by the payment gateway, passed
// through to the client untouched.
type GatewayOrder map[string]any

type VerifyRequest struct {
	GatewayOrderID   string         `json:"gatewayOrderId"`
	GatewayPaymentID string         `json:"gatewayPaymentId"`
	Signature        string         `json:"signature"`
	Items            []order.Item   `json:"items"`
	Address          *order.Address `json:"address"`
	TotalAmount      float64        `json:"totalAmount"`
	CouponID         string         `json:"couponId,omitempty"`
}
