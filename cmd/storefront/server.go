package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/antonminaichev/storefront/internal/coupon"
	"github.com/antonminaichev/storefront/internal/fulfillment"
	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/order"
	"github.com/antonminaichev/storefront/internal/payment"
	"github.com/antonminaichev/storefront/internal/router"
	"github.com/antonminaichev/storefront/internal/shipping"
	"github.com/antonminaichev/storefront/internal/storage"
	"github.com/antonminaichev/storefront/internal/storage/mongo"
	"github.com/antonminaichev/storefront/internal/storage/postgres"
	"github.com/antonminaichev/storefront/internal/user"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := NewConfig()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}
	defer logger.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Log.Warn("failed to close storage", zap.Error(err))
		}
	}()

	shippingClient := shipping.NewClient(shipping.ClientConfig{
		BaseURL:        cfg.ShiprocketAPIURL,
		Email:          cfg.ShiprocketEmail,
		Password:       cfg.ShiprocketPassword,
		PickupPincode:  cfg.ShiprocketPickupPincode,
		TokenFile:      cfg.ShiprocketTokenFile,
		TokenTTL:       cfg.ShiprocketTokenTTL,
		RequestTimeout: cfg.GatewayTimeout,
	})
	submitter := fulfillment.NewSubmitter(shippingClient, store, cfg.ShiprocketPickupLocation)
	dispatcher := fulfillment.NewDispatcher(store, submitter, fulfillment.Options{
		Workers:     cfg.FulfillmentWorkers,
		Interval:    cfg.FulfillmentInterval,
		MaxAttempts: cfg.FulfillmentMaxAttempts,
	})

	userSvc := user.NewService(store, []byte(cfg.JWTSecret), cfg.JWTTTL, user.AdminCredentials{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	couponSvc := coupon.NewService(store)
	orderSvc := order.NewService(store, couponSvc, dispatcher)
	paymentSvc := payment.NewService(payment.NewClient(payment.ClientConfig{
		BaseURL:        cfg.RazorpayAPIURL,
		KeyID:          cfg.RazorpayKeyID,
		KeySecret:      cfg.RazorpayKeySecret,
		RequestTimeout: cfg.GatewayTimeout,
	}), orderSvc, cfg.RazorpayKeySecret)

	r := router.NewRouter(router.Handlers{
		User:     user.NewHandler(userSvc),
		Order:    order.NewHandler(orderSvc),
		Payment:  payment.NewHandler(paymentSvc),
		Coupon:   coupon.NewHandler(couponSvc),
		Shipping: shipping.NewHandler(shipping.NewService(shippingClient)),
	}, []byte(cfg.JWTSecret), store, router.RateLimit{
		RPS:   cfg.PincodeRateRPS,
		Burst: cfg.PincodeRateBurst,
	})

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Info("starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		<-dispatcherDone
		return fmt.Errorf("listen: %w", err)
	}
	logger.Log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-dispatcherDone

	logger.Log.Info("server stopped gracefully")
	return nil
}

// openStorage picks the backend from the connection string scheme.
func openStorage(ctx context.Context, cfg *Config) (storage.Storage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var (
		store storage.Storage
		err   error
	)
	switch storageBackend(cfg.DatabaseConnection) {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.DatabaseConnection)
	default:
		store, err = mongo.NewMongoStorage(ctx, cfg.DatabaseConnection, cfg.DatabaseName)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return store, nil
}

func storageBackend(uri string) string {
	if strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://") {
		return "postgres"
	}
	return "mongo"
}
