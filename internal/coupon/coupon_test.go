package coupon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/storage"
	"github.com/antonminaichev/storefront/internal/types/coupon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*coupon.Coupon
	errFind error
}

func newStubCouponRepo(cs ...coupon.Coupon) *stubCouponRepo {
	r := &stubCouponRepo{coupons: map[string]*coupon.Coupon{}}
	for i := range cs {
		c := cs[i]
		r.coupons[c.ID] = &c
	}
	return r
}

func (r *stubCouponRepo) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.coupons {
		if existing.Code == c.Code {
			return storage.ErrDuplicate
		}
	}
	c.ID = "c" + c.Code
	cp := *c
	r.coupons[c.ID] = &cp
	return nil
}

func (r *stubCouponRepo) FindActiveCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	if r.errFind != nil {
		return nil, r.errFind
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coupons {
		if c.Code == code && c.Active {
			cp := *c
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *stubCouponRepo) ListCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]coupon.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (r *stubCouponRepo) RedeemCoupon(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok || !c.Active || c.UsedCount >= c.MaxUses {
		return storage.ErrConditionFailed
	}
	c.UsedCount++
	return nil
}

var save10 = coupon.Coupon{
	ID: "c1", Code: "SAVE10", DiscountType: coupon.DiscountPercent,
	DiscountValue: 10, MaxUses: 5, Active: true,
}

func TestApplyPercent(t *testing.T) {
	svc := NewService(newStubCouponRepo(save10))

	res, err := svc.Apply(context.Background(), "save10", 1000)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Discount)
	assert.Equal(t, "c1", res.CouponID)
}

func TestApplyFlatClampedToCart(t *testing.T) {
	flat := coupon.Coupon{ID: "c2", Code: "FLAT100", DiscountType: coupon.DiscountFlat, DiscountValue: 100, MaxUses: 1, Active: true}
	svc := NewService(newStubCouponRepo(flat))

	res, err := svc.Apply(context.Background(), "FLAT100", 50)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Discount)
}

func TestApplyErrors(t *testing.T) {
	exhausted := save10
	exhausted.ID, exhausted.Code, exhausted.UsedCount = "c3", "USEDUP", 5
	inactive := save10
	inactive.ID, inactive.Code, inactive.Active = "c4", "OLD", false

	svc := NewService(newStubCouponRepo(save10, exhausted, inactive))

	tests := []struct {
		name   string
		code   string
		amount float64
		want   error
	}{
		{"unknown", "NOPE", 100, ErrInvalidCoupon},
		{"inactive", "OLD", 100, ErrInvalidCoupon},
		{"exhausted", "USEDUP", 100, ErrCouponExhausted},
		{"empty code", " ", 100, ErrValidation},
		{"zero cart", "SAVE10", 0, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Apply(context.Background(), tt.code, tt.amount)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestApplyRepoError(t *testing.T) {
	repo := newStubCouponRepo()
	repo.errFind = errors.New("db down")
	_, err := NewService(repo).Apply(context.Background(), "SAVE10", 10)
	assert.EqualError(t, err, "db down")
}

func TestDiscountUnknownType(t *testing.T) {
	_, ok := Discount(&coupon.Coupon{DiscountType: "bogus", DiscountValue: 5}, 100)
	assert.False(t, ok)
}

func TestCreateCoupon(t *testing.T) {
	repo := newStubCouponRepo()
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), coupon.CreateRequest{
		Code: " welcome ", DiscountType: coupon.DiscountFlat, DiscountValue: 50, MaxUses: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", c.Code)
	assert.True(t, c.Active)
	assert.Zero(t, c.UsedCount)

	_, err = svc.Create(context.Background(), coupon.CreateRequest{
		Code: "WELCOME", DiscountType: coupon.DiscountFlat, DiscountValue: 5, MaxUses: 1,
	})
	assert.ErrorIs(t, err, ErrCouponExists)
}

func TestCreateCouponValidation(t *testing.T) {
	svc := NewService(newStubCouponRepo())
	bad := []coupon.CreateRequest{
		{Code: "", DiscountType: coupon.DiscountFlat, DiscountValue: 5, MaxUses: 1},
		{Code: "X", DiscountType: "bogo", DiscountValue: 5, MaxUses: 1},
		{Code: "X", DiscountType: coupon.DiscountFlat, DiscountValue: 0, MaxUses: 1},
		{Code: "X", DiscountType: coupon.DiscountPercent, DiscountValue: 101, MaxUses: 1},
		{Code: "X", DiscountType: coupon.DiscountFlat, DiscountValue: 5, MaxUses: 0},
	}
	for _, req := range bad {
		_, err := svc.Create(context.Background(), req)
		assert.ErrorIs(t, err, ErrValidation, "%+v", req)
	}
}

func TestRedeemStopsAtMaxUses(t *testing.T) {
	limited := save10
	limited.MaxUses = 3
	svc := NewService(newStubCouponRepo(limited))

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, exhausted := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Redeem(context.Background(), "c1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrCouponExhausted):
				exhausted++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, exhausted)
}

func TestApplyHandler(t *testing.T) {
	h := NewHandler(NewService(newStubCouponRepo(save10)))

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"ok", `{"code":"SAVE10","cartAmount":1000}`, http.StatusOK, `"discount":100`},
		{"unknown", `{"code":"NOPE","cartAmount":1000}`, http.StatusBadRequest, `"success":false`},
		{"bad json", `{`, http.StatusBadRequest, `"success":false`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/coupon/apply", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Apply(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestCreateHandlerConflict(t *testing.T) {
	h := NewHandler(NewService(newStubCouponRepo(save10)))
	req := httptest.NewRequest(http.MethodPost, "/api/coupon/admin/create",
		strings.NewReader(`{"code":"save10","discountType":"flat","discountValue":5,"maxUses":1}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApplyHandlerLogsInternalErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	repo := newStubCouponRepo()
	repo.errFind = errors.New("db down")
	h := NewHandler(NewService(repo))

	req := httptest.NewRequest(http.MethodPost, "/api/coupon/apply", strings.NewReader(`{"code":"SAVE10","cartAmount":100}`))
	rec := httptest.NewRecorder()
	h.Apply(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "apply coupon", logs.All()[0].Message)
	assert.Equal(t, "db down", logs.All()[0].ContextMap()["error"])
}
