package shipping

import (
	"context"
	"fmt"
	"strconv"

	"github.com/antonminaichev/storefront/internal/types/shipping"
	"github.com/antonminaichev/storefront/internal/util/pincode"

	"github.com/shopspring/decimal"
)

type CourierLister interface {
	CheckServiceability(ctx context.Context, pincode string) ([]shipping.Courier, error)
}

type Service struct {
	gateway CourierLister
}

func NewService(gateway CourierLister) *Service {
	return &Service{gateway: gateway}
}

func (s *Service) Check(ctx context.Context, pin string) (*shipping.Serviceability, error) {
	if !pincode.Validate(pin) {
		return nil, ErrInvalidPincode
	}
	couriers, err := s.gateway.CheckServiceability(ctx, pin)
	if err != nil {
		return nil, err
	}
	return Summarize(couriers), nil
}

// Summarize turns a courier list into a serviceability answer. The delivery
// range only counts couriers with a positive estimate, while the minimum
// charge considers every courier; ties go to the first one listed.
func Summarize(couriers []shipping.Courier) *shipping.Serviceability {
	if len(couriers) == 0 {
		return &shipping.Serviceability{Available: false}
	}

	cheapest := couriers[0].Rate
	for _, c := range couriers[1:] {
		if c.Rate < cheapest {
			cheapest = c.Rate
		}
	}
	res := &shipping.Serviceability{
		Available:     true,
		DeliveryRange: "N/A",
		MinCharges:    decimal.NewFromFloat(float64(cheapest)).StringFixed(2),
	}

	var minDays, maxDays float64
	found := false
	for _, c := range couriers {
		d := float64(c.EstimatedDeliveryDays)
		if d <= 0 {
			continue
		}
		if !found || d < minDays {
			minDays = d
		}
		if !found || d > maxDays {
			maxDays = d
		}
		found = true
	}
	if found {
		res.DeliveryRange = fmt.Sprintf("%s-%s", formatDays(minDays), formatDays(maxDays))
	}
	return res
}

func formatDays(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
