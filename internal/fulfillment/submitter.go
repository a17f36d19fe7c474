package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/types/order"
	"github.com/antonminaichev/storefront/internal/types/shipping"

	"go.uber.org/zap"
)

// ErrNotRecorded means the provider accepted the shipment but the order
// could not be updated; resubmitting would create a duplicate shipment.
var ErrNotRecorded = errors.New("shipment created but not recorded")

type Gateway interface {
	CreateAdhocOrder(ctx context.Context, payload shipping.AdhocOrder) (*shipping.AdhocOrderResponse, error)
}

type ShipmentSaver interface {
	SaveShipment(ctx context.Context, id string, s *order.Shipment) error
}

type Submitter struct {
	gateway        Gateway
	repo           ShipmentSaver
	pickupLocation string
}

func NewSubmitter(gateway Gateway, repo ShipmentSaver, pickupLocation string) *Submitter {
	return &Submitter{gateway: gateway, repo: repo, pickupLocation: pickupLocation}
}

// Submit registers the order with the logistics provider and stores the
// returned identifiers, moving the order to Ready-for-Shipping.
func (s *Submitter) Submit(ctx context.Context, o *order.Order) (*order.Shipment, error) {
	payload, err := BuildPayload(o, s.pickupLocation)
	if err != nil {
		return nil, err
	}
	resp, err := s.gateway.CreateAdhocOrder(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	if resp.ShipmentID == "" {
		return nil, fmt.Errorf("create shipment: empty shipment id (status %q)", resp.Status)
	}

	sh := &order.Shipment{
		ShipmentID: string(resp.ShipmentID),
		AWBCode:    resp.AWBCode,
		Response:   resp.Raw,
	}
	if err := s.repo.SaveShipment(ctx, o.ID, sh); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecorded, err)
	}
	return sh, nil
}

// SubmitShipment is Submit for callers off the request path: failures are
// logged and reported as a nil shipment.
func (s *Submitter) SubmitShipment(ctx context.Context, o *order.Order) *order.Shipment {
	sh, err := s.Submit(ctx, o)
	if err != nil {
		logger.Log.Error("shipment submission failed", zap.String("order_id", o.ID), zap.Error(err))
		return nil
	}
	logger.Log.Info("shipment created",
		zap.String("order_id", o.ID),
		zap.String("shipment_id", sh.ShipmentID),
		zap.String("awb_code", sh.AWBCode),
	)
	return sh
}
