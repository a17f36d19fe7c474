package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antonminaichev/storefront/internal/types/shipping"
)

var (
	ErrInvalidPincode     = errors.New("pincode must be a 6 character string")
	ErrServiceUnavailable = errors.New("shipping service unavailable")
	errUnauthorized       = errors.New("gateway rejected token")
)

const (
	DefaultTokenTTL = 10 * 24 * time.Hour
	defaultWeight   = "0.5"
)

type ClientConfig struct {
	BaseURL        string
	Email          string
	Password       string
	PickupPincode  string
	TokenFile      string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
}

// Client talks to the logistics provider's external API.
type Client struct {
	http          *http.Client
	baseURL       string
	email         string
	password      string
	pickupPincode string
	tokens        *TokenCache
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	c := &Client{
		http:          &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		email:         cfg.Email,
		password:      cfg.Password,
		pickupPincode: cfg.PickupPincode,
	}
	c.tokens = NewTokenCache(cfg.TokenFile, cfg.TokenTTL, c.Login)
	return c
}

type loginResponse struct {
	Token string `json:"token"`
}

func (c *Client) Login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{"email": c.email, "password": c.password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var lr loginResponse
	if err := c.send(req, &lr); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if lr.Token == "" {
		return "", fmt.Errorf("login: %w: empty token", ErrServiceUnavailable)
	}
	return lr.Token, nil
}

// Token returns a bearer token, logging in when the cached one is stale.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.tokens.GetValidToken(ctx)
}

func (c *Client) CheckServiceability(ctx context.Context, pincode string) ([]shipping.Courier, error) {
	q := url.Values{}
	q.Set("pickup_postcode", c.pickupPincode)
	q.Set("delivery_postcode", pincode)
	q.Set("weight", defaultWeight)
	q.Set("cod", "1")

	var sr shipping.ServiceabilityResponse
	if err := c.authorized(ctx, http.MethodGet, "/courier/serviceability/?"+q.Encode(), nil, &sr); err != nil {
		return nil, err
	}
	return sr.Data.AvailableCourierCompanies, nil
}

func (c *Client) CreateAdhocOrder(ctx context.Context, payload shipping.AdhocOrder) (*shipping.AdhocOrderResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var raw map[string]any
	if err := c.authorized(ctx, http.MethodPost, "/orders/create/adhoc", body, &raw); err != nil {
		return nil, err
	}
	// decode twice: once typed, once kept verbatim for the order record
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var resp shipping.AdhocOrderResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrServiceUnavailable, err)
	}
	resp.Raw = raw
	return &resp, nil
}

// authorized performs a bearer-authenticated call; a 401 invalidates the
// cached token and the call is repeated once with a fresh one.
func (c *Client) authorized(ctx context.Context, method, path string, body []byte, out any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.tokens.GetValidToken(ctx)
		if err != nil {
			return err
		}
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		err = c.send(req, out)
		if errors.Is(err, errUnauthorized) && attempt == 0 {
			c.tokens.Invalidate()
			continue
		}
		return err
	}
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, errUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: unexpected status %d: %s", ErrServiceUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode body: %v", ErrServiceUnavailable, err)
	}
	return nil
}
