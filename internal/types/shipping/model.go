package shipping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Number accepts both JSON numbers and numeric strings; the logistics API
// is not consistent about which one it sends.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse number %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// ID is an identifier the gateway may send as a number or a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(b)
	return nil
}

type Courier struct {
	Name                  string `json:"courier_name"`
	Rate                  Number `json:"rate"`
	EstimatedDeliveryDays Number `json:"estimated_delivery_days"`
}

type ServiceabilityResponse struct {
	Status int `json:"status"`
	Data   struct {
		AvailableCourierCompanies []Courier `json:"available_courier_companies"`
	} `json:"data"`
}

type Serviceability struct {
	Available     bool   `json:"available"`
	DeliveryRange string `json:"delivery_range,omitempty"`
	MinCharges    string `json:"min_charges,omitempty"`
}

type CheckRequest struct {
	Pincode string `json:"pincode"`
}

type OrderItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

// AdhocOrder is the shipment payload accepted by the logistics provider.
type AdhocOrder struct {
	OrderID           string      `json:"order_id"`
	OrderDate         string      `json:"order_date"`
	PickupLocation    string      `json:"pickup_location"`
	BillingName       string      `json:"billing_customer_name"`
	BillingLastName   string      `json:"billing_last_name"`
	BillingAddress    string      `json:"billing_address"`
	BillingCity       string      `json:"billing_city"`
	BillingPincode    string      `json:"billing_pincode"`
	BillingState      string      `json:"billing_state"`
	BillingCountry    string      `json:"billing_country"`
	BillingEmail      string      `json:"billing_email,omitempty"`
	BillingPhone      string      `json:"billing_phone"`
	ShippingIsBilling bool        `json:"shipping_is_billing"`
	OrderItems        []OrderItem `json:"order_items"`
	PaymentMethod     string      `json:"payment_method"`
	SubTotal          float64     `json:"sub_total"`
	Length            float64     `json:"length"`
	Breadth           float64     `json:"breadth"`
	Height            float64     `json:"height"`
	Weight            float64     `json:"weight"`
}

type AdhocOrderResponse struct {
	OrderID    ID             `json:"order_id"`
	ShipmentID ID             `json:"shipment_id"`
	Status     string         `json:"status"`
	AWBCode    string         `json:"awb_code"`
	Raw        map[string]any `json:"-"`
}

// Token is the persisted gateway credential.
type Token struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}
