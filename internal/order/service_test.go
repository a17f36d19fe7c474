package order

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/antonminaichev/storefront/internal/middleware"
	"github.com/antonminaichev/storefront/internal/storage"
	"github.com/antonminaichev/storefront/internal/types/order"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	createOrderFn       func(ctx context.Context, o *order.Order) error
	findOrderByIDFn     func(ctx context.Context, id string) (*order.Order, error)
	listOrdersByUserFn  func(ctx context.Context, userID string) ([]order.Order, error)
	listAllOrdersFn     func(ctx context.Context) ([]order.Order, error)
	updateOrderStatusFn func(ctx context.Context, id string, status order.OrderStatus) error
}

func (m *mockRepo) CreateOrder(ctx context.Context, o *order.Order) error {
	return m.createOrderFn(ctx, o)
}
func (m *mockRepo) FindOrderByID(ctx context.Context, id string) (*order.Order, error) {
	return m.findOrderByIDFn(ctx, id)
}
func (m *mockRepo) ListOrdersByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return m.listOrdersByUserFn(ctx, userID)
}
func (m *mockRepo) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	return m.listAllOrdersFn(ctx)
}
func (m *mockRepo) UpdateOrderStatus(ctx context.Context, id string, status order.OrderStatus) error {
	return m.updateOrderStatusFn(ctx, id, status)
}

type mockFulfiller struct {
	enqueued []string
	full     bool
}

func (f *mockFulfiller) Enqueue(id string) bool {
	if f.full {
		return false
	}
	f.enqueued = append(f.enqueued, id)
	return true
}

type mockCoupons struct {
	redeemFn func(ctx context.Context, id string) error
}

func (m *mockCoupons) Redeem(ctx context.Context, id string) error {
	return m.redeemFn(ctx, id)
}

func storingRepo(created *[]order.Order) *mockRepo {
	return &mockRepo{
		createOrderFn: func(ctx context.Context, o *order.Order) error {
			o.ID = "o" + string(rune('1'+len(*created)))
			*created = append(*created, *o)
			return nil
		},
	}
}

func validRequest() order.PlaceOrderRequest {
	return order.PlaceOrderRequest{
		Items: []order.Item{
			{ProductID: "p1", Name: "Kurta", Price: 300, Quantity: 1},
			{ProductID: "p2", Name: "Scarf", Price: 100, Quantity: 2},
		},
		Address:       &order.Address{Name: "Asha", Street: "MG Road", City: "Hyderabad", State: "TS", Zip: "500001", Phone: "9999999999"},
		PaymentMethod: "cod",
		TotalAmount:   500,
	}
}

func TestPlaceOrderStoresPendingAndEnqueues(t *testing.T) {
	var created []order.Order
	f := &mockFulfiller{}
	svc := NewService(storingRepo(&created), nil, f)

	o, err := svc.PlaceOrder(context.Background(), "u1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, 500.0, o.TotalAmount)
	assert.Len(t, created, 1)
	assert.Equal(t, []string{o.ID}, f.enqueued)
}

func TestPlaceOrderKeepsTotalAsGiven(t *testing.T) {
	for _, total := range []float64{0.01, 499.99, 123456.78} {
		var created []order.Order
		svc := NewService(storingRepo(&created), nil, &mockFulfiller{})
		req := validRequest()
		req.TotalAmount = total

		o, err := svc.PlaceOrder(context.Background(), "u1", req)
		require.NoError(t, err)
		assert.Equal(t, total, o.TotalAmount)
		assert.Equal(t, total, created[0].TotalAmount)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *order.PlaceOrderRequest)
	}{
		{"no items", func(r *order.PlaceOrderRequest) { r.Items = nil }},
		{"no address", func(r *order.PlaceOrderRequest) { r.Address = nil }},
		{"no payment method", func(r *order.PlaceOrderRequest) { r.PaymentMethod = " " }},
		{"unknown payment method", func(r *order.PlaceOrderRequest) { r.PaymentMethod = "bitcoin" }},
		{"zero total", func(r *order.PlaceOrderRequest) { r.TotalAmount = 0 }},
		{"negative total", func(r *order.PlaceOrderRequest) { r.TotalAmount = -5 }},
		{"nan total", func(r *order.PlaceOrderRequest) { r.TotalAmount = math.NaN() }},
		{"zero quantity", func(r *order.PlaceOrderRequest) { r.Items[0].Quantity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created []order.Order
			f := &mockFulfiller{}
			redeemed := false
			coupons := &mockCoupons{redeemFn: func(ctx context.Context, id string) error {
				redeemed = true
				return nil
			}}
			svc := NewService(storingRepo(&created), coupons, f)

			req := validRequest()
			req.CouponID = "c1"
			tt.mutate(&req)

			_, err := svc.PlaceOrder(context.Background(), "u1", req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, created)
			assert.Empty(t, f.enqueued)
			assert.False(t, redeemed)
		})
	}
}

func TestPlaceOrderNormalizesPaymentMethod(t *testing.T) {
	var created []order.Order
	svc := NewService(storingRepo(&created), nil, &mockFulfiller{})

	req := validRequest()
	req.PaymentMethod = " COD "
	o, err := svc.PlaceOrder(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentCOD, o.PaymentMethod)
	assert.Equal(t, order.PaymentCOD, created[0].PaymentMethod)
}

func TestPlaceOrderRedeemsCoupon(t *testing.T) {
	var created []order.Order
	var redeemed string
	coupons := &mockCoupons{redeemFn: func(ctx context.Context, id string) error {
		redeemed = id
		return nil
	}}
	svc := NewService(storingRepo(&created), coupons, &mockFulfiller{})

	req := validRequest()
	req.CouponID = "c1"
	o, err := svc.PlaceOrder(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, "c1", redeemed)
	assert.Equal(t, "c1", o.CouponID)
}

func TestPlaceOrderExhaustedCouponCreatesNothing(t *testing.T) {
	var created []order.Order
	exhausted := errors.New("coupon usage limit reached")
	coupons := &mockCoupons{redeemFn: func(ctx context.Context, id string) error { return exhausted }}
	svc := NewService(storingRepo(&created), coupons, &mockFulfiller{})

	req := validRequest()
	req.CouponID = "c1"
	_, err := svc.PlaceOrder(context.Background(), "u1", req)
	assert.ErrorIs(t, err, ErrCouponRejected)
	assert.ErrorIs(t, err, exhausted)
	assert.Empty(t, created)
}

func TestPlaceOrderPersistenceError(t *testing.T) {
	f := &mockFulfiller{}
	repo := &mockRepo{createOrderFn: func(ctx context.Context, o *order.Order) error {
		return errors.New("disk full")
	}}
	svc := NewService(repo, nil, f)
	_, err := svc.PlaceOrder(context.Background(), "u1", validRequest())
	assert.Error(t, err)
	assert.Empty(t, f.enqueued)
}

func TestPlaceOrderQueueFullStillSucceeds(t *testing.T) {
	var created []order.Order
	svc := NewService(storingRepo(&created), nil, &mockFulfiller{full: true})
	o, err := svc.PlaceOrder(context.Background(), "u1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
}

func TestRecordPaidOrder(t *testing.T) {
	var created []order.Order
	f := &mockFulfiller{}
	svc := NewService(storingRepo(&created), nil, f)

	req := validRequest()
	req.PaymentMethod = ""
	o, err := svc.RecordPaidOrder(context.Background(), "u1", req, "order_1", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.Equal(t, order.PaymentRazorpay, o.PaymentMethod)
	assert.Equal(t, "order_1", created[0].RazorpayOrderID)
	assert.Equal(t, "pay_1", created[0].RazorpayPaymentID)
	assert.Len(t, f.enqueued, 1)
}

func TestUpdateStatus(t *testing.T) {
	var got order.OrderStatus
	repo := &mockRepo{updateOrderStatusFn: func(ctx context.Context, id string, status order.OrderStatus) error {
		if id != "o1" {
			return storage.ErrNotFound
		}
		got = status
		return nil
	}}
	svc := NewService(repo, nil, nil)

	assert.NoError(t, svc.UpdateStatus(context.Background(), "o1", order.StatusDelivered))
	assert.Equal(t, order.StatusDelivered, got)
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), "o1", "Lost"), ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), "o2", order.StatusDelivered), ErrNotFound)
}

func TestRetryFulfillment(t *testing.T) {
	orders := map[string]*order.Order{
		"o1": {ID: "o1", Status: order.StatusPending},
		"o2": {ID: "o2", Status: order.StatusReadyForShipping, ShipmentID: "123"},
	}
	repo := &mockRepo{findOrderByIDFn: func(ctx context.Context, id string) (*order.Order, error) {
		if o, ok := orders[id]; ok {
			return o, nil
		}
		return nil, storage.ErrNotFound
	}}
	f := &mockFulfiller{}
	svc := NewService(repo, nil, f)

	assert.NoError(t, svc.RetryFulfillment(context.Background(), "o1"))
	assert.Equal(t, []string{"o1"}, f.enqueued)
	assert.ErrorIs(t, svc.RetryFulfillment(context.Background(), "o2"), ErrAlreadyShipped)
	assert.ErrorIs(t, svc.RetryFulfillment(context.Background(), "o3"), ErrNotFound)

	f.full = true
	assert.ErrorIs(t, svc.RetryFulfillment(context.Background(), "o1"), ErrQueueFull)
}

func TestListOrders(t *testing.T) {
	repo := &mockRepo{
		listOrdersByUserFn: func(ctx context.Context, userID string) ([]order.Order, error) {
			return []order.Order{{UserID: userID, ID: "1"}}, nil
		},
	}
	svc := NewService(repo, nil, nil)
	orders, err := svc.ListOrders(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestListOrdersHandlerEmpty(t *testing.T) {
	repo := &mockRepo{
		listOrdersByUserFn: func(ctx context.Context, userID string) ([]order.Order, error) {
			return nil, nil
		},
	}
	h := NewHandler(NewService(repo, nil, nil))
	req := httptest.NewRequest(http.MethodGet, "/api/order/user", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	h.ListOrders(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"orders":[]}`, rec.Body.String())
}

func TestPlaceOrderHandlerErrors(t *testing.T) {
	var created []order.Order
	h := NewHandler(NewService(storingRepo(&created), nil, &mockFulfiller{}))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing fields", `{"items":[],"paymentMethod":"cod","totalAmount":10}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/order/place", strings.NewReader(tt.body))
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), "u1"))
		rec := httptest.NewRecorder()
		h.PlaceOrder(rec, req)
		assert.Equal(t, tt.code, rec.Code, tt.name)
		assert.Contains(t, rec.Body.String(), `"success":false`, tt.name)
	}
	assert.Empty(t, created)
}

func TestUpdateStatusHandler(t *testing.T) {
	repo := &mockRepo{updateOrderStatusFn: func(ctx context.Context, id string, status order.OrderStatus) error {
		return nil
	}}
	r := chi.NewRouter()
	r.Patch("/api/order/admin/{id}/status", NewHandler(NewService(repo, nil, nil)).UpdateStatus)

	req := httptest.NewRequest(http.MethodPatch, "/api/order/admin/o1/status", strings.NewReader(`{"status":"Delivered"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPatch, "/api/order/admin/o1/status", strings.NewReader(`{"status":"Teleported"}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
