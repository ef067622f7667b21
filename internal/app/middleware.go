package app

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"receipt2pdf/internal/access"
	"receipt2pdf/internal/handlers"
	u "receipt2pdf/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"
)

const apiKeyLocal = "api_key"

// rateLimits hands out per-key limiters that share one storage. Limiters are
// cached by their limit so keys with equal limits reuse the same handler.
type rateLimits struct {
	store    fiber.Storage
	interval time.Duration
	keys     *access.KeyStore

	mu       sync.RWMutex
	handlers map[int]fiber.Handler
}

func newRateLimits(store fiber.Storage, interval time.Duration, keys *access.KeyStore) *rateLimits {
	return &rateLimits{store: store, interval: interval, keys: keys, handlers: make(map[int]fiber.Handler)}
}

// forLimit returns a cached limiter for the given key limit, creating one if needed.
func (r *rateLimits) forLimit(limit int) fiber.Handler {
	r.mu.RLock()
	h, ok := r.handlers[limit]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handlers[limit]; ok {
		return h
	}
	h = limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        r.interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           r.store,
		KeyGenerator: func(c *fiber.Ctx) string {
			key, _ := c.Locals(apiKeyLocal).(string)
			return "key:" + key
		},
		LimitReached: func(c *fiber.Ctx) error {
			u.Warn("Rate limit exceeded", "scope", "api_key", "path", c.Path())
			return tooManyRequests(c)
		},
	})
	r.handlers[limit] = h
	return h
}

// keyMiddleware applies the limit of the authenticated API key. Keys with a
// limit of 0 are unlimited.
func (r *rateLimits) keyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, ok := c.Locals(apiKeyLocal).(string)
		if !ok || key == "" || r.keys == nil {
			return c.Next()
		}
		limit := r.keys.Limit(key)
		if limit <= 0 {
			return c.Next()
		}
		return r.forLimit(limit)(c)
	}
}

// clientMiddleware limits anonymous clients, identified by IP and user agent.
// Requests carrying a valid API key only count against their key.
func (r *rateLimits) clientMiddleware(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	clientLimiter := limiter.New(limiter.Config{
		Max:               max,
		Expiration:        r.interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           r.store,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "client:" + clientFingerprint(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			u.Warn("Rate limit exceeded", "scope", "client", "client", clientFingerprint(c), "path", c.Path())
			return tooManyRequests(c)
		},
	})
	return func(c *fiber.Ctx) error {
		if key, ok := c.Locals(apiKeyLocal).(string); ok && key != "" {
			return c.Next()
		}
		return clientLimiter(c)
	}
}

func clientFingerprint(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + c.Get(fiber.HeaderUserAgent)))
	return hex.EncodeToString(sum[:])
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(errorBody(fiber.StatusTooManyRequests, "Too Many Requests"))
}

// newRateLimitStore uses Redis when a host is configured and memory otherwise.
// A Redis store that cannot connect falls back to memory.
func newRateLimitStore(cfg u.Config) (store fiber.Storage) {
	if cfg.Cache.RedisHost == "" {
		return memoryStorage.New()
	}
	defer func() {
		if r := recover(); r != nil {
			u.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
			store = memoryStorage.New()
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Cache.RedisHost},
		Database: cfg.Cache.RateLimitDB,
	})
	u.Info("Using Redis for rate limiting", "addr", cfg.Cache.RedisHost, "db", cfg.Cache.RateLimitDB)
	return store
}

// keyAuth validates X-API-Key when present. Requests without the header pass
// through anonymously.
func keyAuth(keys *access.KeyStore) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: apiKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if keys == nil || !keys.Ready() {
				return false, access.ErrKeyStoreNotReady
			}
			if !keys.Validate(key) {
				return false, access.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may pass a nil error
			status := fiber.StatusUnauthorized
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			if errors.Is(err, access.ErrKeyStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(errorBody(status, err.Error()))
		},
	})
}

// RegisterMiddleware attaches global middleware to the app
func RegisterMiddleware(app *fiber.App, cfg u.Config, keys *access.KeyStore, svc *handlers.ReceiptService) {
	limits := newRateLimits(newRateLimitStore(cfg), cfg.RateLimiter.Interval, keys)

	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			return svc.Ready(c.Context())
		},
	}))

	app.Use(keyAuth(keys))

	app.Use(limits.keyMiddleware())

	if cfg.RateLimiter.EnableUserLimiter || cfg.RateLimiter.UserLimit > 0 {
		app.Use(limits.clientMiddleware(cfg.RateLimiter.UserLimit))
	}

	app.Use(func(c *fiber.Ctx) error {
		u.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", c.GetRespHeader(fiber.HeaderXRequestID))
		return c.Next()
	})
}
