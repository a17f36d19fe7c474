package fulfillment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/types/order"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type Repository interface {
	FindOrderByID(ctx context.Context, id string) (*order.Order, error)
	RecordFulfillmentFailure(ctx context.Context, id string, reason string) (int, error)
	ListOrdersAwaitingShipment(ctx context.Context, maxAttempts int) ([]order.Order, error)
}

type Shipper interface {
	Submit(ctx context.Context, o *order.Order) (*order.Shipment, error)
}

type Options struct {
	Workers     int
	Interval    time.Duration
	MaxAttempts int
	QueueSize   int
	NewBackOff  func() backoff.BackOff
}

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Interval <= 0 {
		o.Interval = time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.QueueSize <= 0 {
		o.QueueSize = o.Workers * 3
	}
	if o.NewBackOff == nil {
		o.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Second
			b.MaxInterval = time.Minute
			b.MaxElapsedTime = 0
			return b
		}
	}
}

// Dispatcher submits shipments in the background. Orders reach it either
// through Enqueue right after they are stored, or through the periodic poll
// for orders that still have no shipment.
type Dispatcher struct {
	repo     Repository
	shipper  Shipper
	opts     Options
	jobs     chan string
	inflight sync.Map
}

func NewDispatcher(repo Repository, shipper Shipper, opts Options) *Dispatcher {
	opts.setDefaults()
	return &Dispatcher{
		repo:    repo,
		shipper: shipper,
		opts:    opts,
		jobs:    make(chan string, opts.QueueSize),
	}
}

// Enqueue never blocks. It reports false when the queue is full; the order
// is then picked up by the next poll.
func (d *Dispatcher) Enqueue(orderID string) bool {
	if _, loaded := d.inflight.LoadOrStore(orderID, struct{}{}); loaded {
		return true
	}
	select {
	case d.jobs <- orderID:
		return true
	default:
		d.inflight.Delete(orderID)
		logger.Log.Warn("fulfillment queue full, deferring to poll", zap.String("order_id", orderID))
		return false
	}
}

// Run blocks until ctx is cancelled and every worker has finished its
// current order.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 1; i <= d.opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.workerLoop(ctx, id)
		}(i)
	}

	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	logger.Log.Info("fulfillment dispatcher started",
		zap.Int("workers", d.opts.Workers),
		zap.Duration("interval", d.opts.Interval),
	)
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			logger.Log.Info("fulfillment dispatcher stopped")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *Dispatcher) poll(ctx context.Context) {
	orders, err := d.repo.ListOrdersAwaitingShipment(ctx, d.opts.MaxAttempts)
	if err != nil {
		logger.Log.Error("list orders awaiting shipment", zap.Error(err))
		return
	}
	if len(orders) == 0 {
		return
	}
	logger.Log.Debug("orders awaiting shipment", zap.Int("count", len(orders)))
	for _, o := range orders {
		if !d.Enqueue(o.ID) {
			return
		}
	}
}

func (d *Dispatcher) workerLoop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case orderID := <-d.jobs:
			d.process(ctx, id, orderID)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, worker int, orderID string) {
	defer d.inflight.Delete(orderID)
	log := logger.Log.With(zap.Int("worker", worker), zap.String("order_id", orderID))

	o, err := d.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		log.Error("load order for fulfillment", zap.Error(err))
		return
	}
	if o.ShipmentID != "" {
		return
	}

	attempts := o.FulfillmentAttempts
	op := func() error {
		sh, err := d.shipper.Submit(ctx, o)
		if err == nil {
			log.Info("shipment created", zap.String("shipment_id", sh.ShipmentID), zap.String("awb_code", sh.AWBCode))
			return nil
		}
		if errors.Is(err, ErrNotRecorded) {
			return backoff.Permanent(err)
		}
		n, rerr := d.repo.RecordFulfillmentFailure(ctx, o.ID, err.Error())
		if rerr != nil {
			log.Warn("record fulfillment failure", zap.Error(rerr))
			attempts++
		} else {
			attempts = n
		}
		if errors.Is(err, ErrInvalidPayload) || attempts >= d.opts.MaxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("shipment submission failed, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(d.opts.NewBackOff(), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		log.Error("shipment submission abandoned",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
	}
}
