package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	Address  string `env:"RUN_ADDRESS" envDefault:"localhost:8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	DatabaseConnection string `env:"DATABASE_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName       string `env:"DATABASE_NAME" envDefault:"storefront"`

	JWTSecret     string        `env:"JWT_SECRET"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"168h"`
	AdminEmail    string        `env:"ADMIN_EMAIL"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`

	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`
	RazorpayAPIURL    string `env:"RAZORPAY_API_URL" envDefault:"https://api.razorpay.com/v1"`

	ShiprocketAPIURL         string        `env:"SHIPROCKET_API_URL" envDefault:"https://apiv2.shiprocket.in/v1/external"`
	ShiprocketEmail          string        `env:"SHIPROCKET_EMAIL"`
	ShiprocketPassword       string        `env:"SHIPROCKET_PASSWORD"`
	ShiprocketPickupPincode  string        `env:"SHIPROCKET_PICKUP_PINCODE" envDefault:"110001"`
	ShiprocketPickupLocation string        `env:"SHIPROCKET_PICKUP_LOCATION" envDefault:"Primary"`
	ShiprocketTokenFile      string        `env:"SHIPROCKET_TOKEN_FILE" envDefault:"shiprocket_token.json"`
	ShiprocketTokenTTL       time.Duration `env:"SHIPROCKET_TOKEN_TTL" envDefault:"240h"`
	GatewayTimeout           time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`

	FulfillmentWorkers     int           `env:"FULFILLMENT_WORKERS" envDefault:"4"`
	FulfillmentInterval    time.Duration `env:"FULFILLMENT_INTERVAL" envDefault:"1m"`
	FulfillmentMaxAttempts int           `env:"FULFILLMENT_MAX_ATTEMPTS" envDefault:"5"`

	PincodeRateRPS   float64 `env:"PINCODE_RATE_RPS" envDefault:"2"`
	PincodeRateBurst int     `env:"PINCODE_RATE_BURST" envDefault:"10"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	address := flag.String("a", cfg.Address, "{Host:port} for server")
	loglevel := flag.String("l", cfg.LogLevel, "Log level for server")
	databaseConnection := flag.String("d", cfg.DatabaseConnection, "Database connection string (mongodb:// or postgres://)")
	databaseName := flag.String("n", cfg.DatabaseName, "Database name for mongodb")
	jwtTTL := flag.Duration("t", cfg.JWTTTL, "TTL for JWT token(e.g. 24h; 30m )")
	workers := flag.Int("w", cfg.FulfillmentWorkers, "Size of fulfillment worker pool")
	interval := flag.Duration("i", cfg.FulfillmentInterval, "Fulfillment poll interval")
	maxAttempts := flag.Int("m", cfg.FulfillmentMaxAttempts, "Shipment submission attempts before giving up")
	tokenFile := flag.String("token-file", cfg.ShiprocketTokenFile, "Shipping gateway token cache file")

	flag.Parse()

	cfg.Address = *address
	cfg.LogLevel = *loglevel
	cfg.DatabaseConnection = *databaseConnection
	cfg.DatabaseName = *databaseName
	cfg.JWTTTL = *jwtTTL
	cfg.FulfillmentWorkers = *workers
	cfg.FulfillmentInterval = *interval
	cfg.FulfillmentMaxAttempts = *maxAttempts
	cfg.ShiprocketTokenFile = *tokenFile

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("ENV JWT_SECRET must be set")
	}
	if c.RazorpayKeySecret == "" {
		return fmt.Errorf("ENV RAZORPAY_KEY_SECRET must be set")
	}
	if c.DatabaseConnection == "" {
		return fmt.Errorf("database connection string must be set")
	}
	return nil
}
