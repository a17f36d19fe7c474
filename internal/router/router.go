package router

import (
	"github.com/antonminaichev/storefront/internal/coupon"
	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/middleware"
	"github.com/antonminaichev/storefront/internal/order"
	"github.com/antonminaichev/storefront/internal/payment"
	"github.com/antonminaichev/storefront/internal/shipping"
	"github.com/antonminaichev/storefront/internal/user"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	User     *user.Handler
	Order    *order.Handler
	Payment  *payment.Handler
	Coupon   *coupon.Handler
	Shipping *shipping.Handler
}

type RateLimit struct {
	RPS   float64
	Burst int
}

func NewRouter(
	h Handlers,
	jwtSecret []byte,
	users middleware.UserFinder,
	limit RateLimit,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(logger.WithLogging)
	r.Use(chiMiddleware.Recoverer)

	r.Use(middleware.GzipHandler)

	throttle := middleware.RateLimit(limit.RPS, limit.Burst)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.User.Register)
		r.With(throttle).Post("/login", h.User.Login)
		r.With(throttle).Post("/admin/login", h.User.AdminLogin)
	})

	r.With(throttle).Post("/api/shipping/check-pincode", h.Shipping.CheckPincode)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(jwtSecret, users))

		r.Post("/api/order/place", h.Order.PlaceOrder)
		r.Get("/api/order/user", h.Order.ListOrders)
		r.Post("/api/payment/razorpay/create-order", h.Payment.CreateOrder)
		r.Post("/api/payment/razorpay/verify", h.Payment.Verify)
		r.Post("/api/coupon/apply", h.Coupon.Apply)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminMiddleware(jwtSecret))

		r.Get("/api/order/admin/all", h.Order.ListAllOrders)
		r.Patch("/api/order/admin/{id}/status", h.Order.UpdateStatus)
		r.Post("/api/order/admin/{id}/fulfill", h.Order.RetryFulfillment)
		r.Post("/api/coupon/admin/create", h.Coupon.Create)
		r.Get("/api/coupon/admin/all", h.Coupon.List)
	})

	return r
}
