package fulfillment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antonminaichev/storefront/internal/types/order"
	"github.com/antonminaichev/storefront/internal/types/shipping"
)

var ErrInvalidPayload = errors.New("order cannot be shipped")

const (
	orderDateLayout = "2006-01-02 15:04:05"
	defaultCountry  = "India"
	defaultSKU      = "default-sku"

	// The catalog carries no physical dimensions, every parcel is declared
	// with the same size (cm) and weight (kg).
	parcelLength  = 10
	parcelBreadth = 10
	parcelHeight  = 10
	parcelWeight  = 0.5
)

// GatewayPaymentMethod maps a storefront payment method onto the two values
// the logistics provider understands.
func GatewayPaymentMethod(method string) string {
	if strings.EqualFold(method, order.PaymentCOD) {
		return "COD"
	}
	return "Prepaid"
}

func ExternalOrderID(id string) string {
	return "ORD-" + id
}

// BuildPayload maps an order onto the provider's shipment request.
func BuildPayload(o *order.Order, pickupLocation string) (shipping.AdhocOrder, error) {
	a := o.Address
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", a.Name},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
		{"phone", a.Phone},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return shipping.AdhocOrder{}, fmt.Errorf("%w: missing address %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	if len(o.Items) == 0 {
		return shipping.AdhocOrder{}, fmt.Errorf("%w: no items", ErrInvalidPayload)
	}

	country := a.Country
	if strings.TrimSpace(country) == "" {
		country = defaultCountry
	}

	items := make([]shipping.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		sku := it.ProductID
		if sku == "" {
			sku = defaultSKU
		}
		items = append(items, shipping.OrderItem{
			Name:         it.Name,
			SKU:          sku,
			Units:        it.Quantity,
			SellingPrice: it.Price,
		})
	}

	return shipping.AdhocOrder{
		OrderID:           ExternalOrderID(o.ID),
		OrderDate:         o.CreatedAt.Format(orderDateLayout),
		PickupLocation:    pickupLocation,
		BillingName:       a.Name,
		BillingAddress:    a.Street,
		BillingCity:       a.City,
		BillingPincode:    a.Zip,
		BillingState:      a.State,
		BillingCountry:    country,
		BillingEmail:      a.Email,
		BillingPhone:      a.Phone,
		ShippingIsBilling: true,
		OrderItems:        items,
		PaymentMethod:     GatewayPaymentMethod(o.PaymentMethod),
		SubTotal:          o.TotalAmount,
		Length:            parcelLength,
		Breadth:           parcelBreadth,
		Height:            parcelHeight,
		Weight:            parcelWeight,
	}, nil
}
