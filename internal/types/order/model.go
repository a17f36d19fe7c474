package order

import "time"

type OrderStatus string

const (
	StatusPending          OrderStatus = "Pending"
	StatusProcessing       OrderStatus = "Processing"
	StatusReadyForShipping OrderStatus = "Ready-for-Shipping"
	StatusPaid             OrderStatus = "Paid"
	StatusDelivered        OrderStatus = "Delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReadyForShipping, StatusPaid, StatusDelivered:
		return true
	}
	return false
}

const (
	PaymentCOD      = "cod"
	PaymentRazorpay = "razorpay"
)

// Item is a snapshot of a product taken when the order is placed.
type Item struct {
	ProductID string  `bson:"productId" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Size      string  `bson:"size,omitempty" json:"size,omitempty"`
	Image     string  `bson:"image,omitempty" json:"image,omitempty"`
}

type Address struct {
	Name    string `bson:"name" json:"name"`
	Email   string `bson:"email" json:"email"`
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Zip     string `bson:"zip" json:"zip"`
	Country string `bson:"country" json:"country"`
	Phone   string `bson:"phone" json:"phone"`
}

type Order struct {
	ID            string      `bson:"_id" json:"id"`
	UserID        string      `bson:"userId,omitempty" json:"userId,omitempty"`
	Items         []Item      `bson:"items" json:"items"`
	Address       Address     `bson:"address" json:"address"`
	PaymentMethod string      `bson:"paymentMethod" json:"paymentMethod"`
	TotalAmount   float64     `bson:"totalAmount" json:"totalAmount"`
	Status        OrderStatus `bson:"status" json:"status"`
	CouponID      string      `bson:"couponId,omitempty" json:"couponId,omitempty"`

	RazorpayOrderID   string `bson:"razorpayOrderId,omitempty" json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string `bson:"razorpayPaymentId,omitempty" json:"razorpayPaymentId,omitempty"`

	ShipmentID       string         `bson:"shipment_id,omitempty" json:"shipment_id,omitempty"`
	AWBCode          string         `bson:"awb_code,omitempty" json:"awb_code,omitempty"`
	ShippingResponse map[string]any `bson:"shipping_response,omitempty" json:"shipping_response,omitempty"`

	FulfillmentAttempts int    `bson:"fulfillmentAttempts" json:"-"`
	FulfillmentError    string `bson:"fulfillmentError,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Shipment is what the logistics provider hands back for a submitted order.
type Shipment struct {
	ShipmentID string
	AWBCode    string
	Response   map[string]any
}

type PlaceOrderRequest struct {
	Items         []Item   `json:"items"`
	Address       *Address `json:"address"`
	PaymentMethod string   `json:"paymentMethod"`
	TotalAmount   float64  `json:"totalAmount"`
	CouponID      string   `json:"couponId,omitempty"`
}
