package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/localperks/review-rewards/pkg/config"
)

// IdentityType distinguishes anonymous callers (keyed by IP) from
// authenticated callers (keyed by user ID).
type IdentityType int

const (
	IdentityAnonymous IdentityType = iota
	IdentityAuthenticated
)

// Rule is the effective limit applied to a single request
type Rule struct {
	Limit  int
	Burst  int
	Window time.Duration
}

// Result reports the outcome of a limiter check
type Result struct {
	Allowed      bool
	Limit        int
	Remaining    int
	Window       time.Duration
	RetryAfter   time.Duration
	ResetAfter   time.Duration
	IdentityKey  string
	EndpointKey  string
	IdentityType IdentityType
}

// Sliding-window limiter over a Redis sorted set. One member per request,
// scored by arrival time; members older than the window are pruned on
// every check so the count is exact at window boundaries.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now_ms - window_ms)
local count = redis.call('ZCARD', key)

if count < limit then
	redis.call('ZADD', key, now_ms, member)
	redis.call('PEXPIRE', key, window_ms)
	return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry_ms = 0
if oldest[2] then
	retry_ms = math.ceil(tonumber(oldest[2]) + window_ms - now_ms)
end
return {0, 0, retry_ms}
`)

// Limiter applies per-identity sliding-window rate limits backed by Redis
type Limiter struct {
	client *redis.Client
	script *redis.Script
	cfg    config.RateLimitConfig
	now    func() time.Time
}

// NewLimiter creates a limiter from configuration
func NewLimiter(client *redis.Client, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		script: slidingWindowScript,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithNow overrides the limiter's clock (used in tests)
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// RuleFor resolves the effective rule for an endpoint and identity type
func (l *Limiter) RuleFor(endpoint string, identity IdentityType) Rule {
	rule := Rule{Window: l.cfg.Window()}
	if identity == IdentityAuthenticated {
		rule.Limit = l.cfg.DefaultLimit
		rule.Burst = l.cfg.DefaultBurst
	} else {
		rule.Limit = l.cfg.AnonymousLimit
		rule.Burst = l.cfg.AnonymousBurst
	}

	if override, ok := l.cfg.EndpointOverrides[endpoint]; ok {
		if identity == IdentityAuthenticated {
			if override.AuthenticatedLimit > 0 {
				rule.Limit = override.AuthenticatedLimit
			}
			rule.Burst = override.AuthenticatedBurst
		} else {
			if override.AnonymousLimit > 0 {
				rule.Limit = override.AnonymousLimit
			}
			rule.Burst = override.AnonymousBurst
		}
		if override.WindowSeconds > 0 {
			rule.Window = time.Duration(override.WindowSeconds) * time.Second
		}
	}

	if rule.Burst < 0 {
		rule.Burst = 0
	}
	return rule
}

// Allow checks and records one request for the given identity on the endpoint
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string, rule Rule, identityType IdentityType) (*Result, error) {
	result := &Result{
		Allowed:      true,
		Limit:        rule.Limit,
		Remaining:    rule.Limit,
		Window:       rule.Window,
		IdentityKey:  identity,
		EndpointKey:  endpoint,
		IdentityType: identityType,
	}

	// Disabled limiter or non-positive limit: bypass without touching Redis.
	if !l.cfg.Enabled || rule.Limit <= 0 {
		if rule.Limit < 0 {
			result.Remaining = 0
		}
		return result, nil
	}

	window := rule.Window
	if window <= 0 {
		window = l.cfg.Window()
	}

	now := l.now()
	key := fmt.Sprintf("%s:%s:%s", l.cfg.RedisPrefix, endpoint, identity)
	member := fmt.Sprintf("%d-%s", now.UnixNano(), identity)

	values, err := l.script.Run(ctx, l.client,
		[]string{key},
		rule.Limit+rule.Burst,
		window.Milliseconds(),
		now.UnixMilli(),
		member,
	).Slice()
	if err != nil {
		// Fail open: a broken limiter must not take the API down.
		return result, err
	}
	if len(values) != 3 {
		return result, fmt.Errorf("unexpected limiter script reply: %v", values)
	}

	result.Allowed = toInt(values[0]) == 1
	result.Remaining = toInt(values[1])
	result.RetryAfter = time.Duration(toInt(values[2])) * time.Millisecond
	result.ResetAfter = window
	return result, nil
}

// toInt coerces Lua script reply values to int
func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
