package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/antonminaichev/storefront/internal/logger"
	"github.com/antonminaichev/storefront/internal/types/shipping"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type LoginFunc func(ctx context.Context) (string, error)

const loginTimeout = 30 * time.Second

// TokenCache keeps one gateway credential for the whole process. Expired
// tokens are refreshed through a single in-flight login call.
type TokenCache struct {
	mu      sync.Mutex
	current *shipping.Token

	path  string
	ttl   time.Duration
	login LoginFunc
	now   func() time.Time
	group singleflight.Group
}

func NewTokenCache(path string, ttl time.Duration, login LoginFunc) *TokenCache {
	tc := &TokenCache{path: path, ttl: ttl, login: login, now: time.Now}
	if t, err := tc.load(); err == nil {
		tc.current = t
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Log.Warn("ignoring unreadable shipping token file", zap.String("path", path), zap.Error(err))
	}
	return tc
}

func (c *TokenCache) GetValidToken(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		// Waiters share this login, so one caller going away must not fail it.
		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loginTimeout)
		defer cancel()
		tok, err := c.login(loginCtx)
		if err != nil {
			return "", err
		}
		t := &shipping.Token{Token: tok, CreatedAt: c.now()}
		c.mu.Lock()
		c.current = t
		c.mu.Unlock()
		if err := c.save(t); err != nil {
			logger.Log.Warn("persist shipping token", zap.Error(err))
		}
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.now().Sub(c.current.CreatedAt) < c.ttl {
		return c.current.Token, true
	}
	return "", false
}

// Invalidate drops the cached token so the next call logs in again.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	if c.path != "" {
		if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Log.Warn("remove shipping token file", zap.Error(err))
		}
	}
}

func (c *TokenCache) load() (*shipping.Token, error) {
	if c.path == "" {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	var t shipping.Token
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if t.Token == "" {
		return nil, os.ErrNotExist
	}
	return &t, nil
}

func (c *TokenCache) save(t *shipping.Token) error {
	if c.path == "" {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
