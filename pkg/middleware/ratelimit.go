package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/observability"
)

// LoginRateLimitConfig bounds login attempts per client. Forwarding headers are only
// honored when the connection comes from one of TrustedProxies.
type LoginRateLimitConfig struct {
	MaxAttempts    int
	Window         time.Duration
	TrustedProxies []*net.IPNet
}

// LoginRateLimiter limits login attempts per client IP using a Redis counter shared by all
// instances. A limiter without a Redis client allows everything.
type LoginRateLimiter struct {
	redis   *redis.Client
	config  LoginRateLimitConfig
	prefix  string
	metrics *observability.Metrics
}

// NewLoginRateLimiter creates a new LoginRateLimiter. client and metrics may be nil.
func NewLoginRateLimiter(client *redis.Client, config LoginRateLimitConfig, metrics *observability.Metrics) *LoginRateLimiter {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 10
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &LoginRateLimiter{
		redis:   client,
		config:  config,
		prefix:  "prodhub:ratelimit:login",
		metrics: metrics,
	}
}

// Allow counts an attempt for key and reports whether it is within the limit
func (l *LoginRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.redis == nil {
		return true, nil
	}
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}
	// the first attempt opens the window; later attempts must not extend it
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.config.Window).Err(); err != nil {
			return true, fmt.Errorf("redis error: %w", err)
		}
	}
	return count <= int64(l.config.MaxAttempts), nil
}

// TTL returns the time until key's window resets
func (l *LoginRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return l.redis.TTL(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Result()
}

// Handler answers 429 once a client exceeds its attempts for the window
func (l *LoginRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := "ip:" + ClientIP(r, l.config.TrustedProxies)

		allowed, err := l.Allow(ctx, key)
		if err != nil {
			observability.FromContext(ctx).WithError(err).Warn("Login rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			retryAfter := l.config.Window
			if ttl, err := l.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = ttl
			}
			if l.metrics != nil {
				l.metrics.RateLimitedTotal.WithLabelValues("login").Inc()
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			httputil.WriteTooManyRequests(w, "Too many login attempts, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller's address. The peer address is used unless the peer is a
// trusted proxy, in which case X-Forwarded-For is walked from the right and the first
// untrusted hop wins. X-Real-IP is the fallback when a trusted proxy sends no
// X-Forwarded-For.
func ClientIP(r *http.Request, trusted []*net.IPNet) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop, trusted) || i == 0 {
				return hop
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func isTrusted(addr string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ParseTrustedProxies parses IP addresses and CIDR ranges. A bare address is treated as a
// single-host range.
func ParseTrustedProxies(entries []string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			entry = fmt.Sprintf("%s/%d", entry, bits)
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}
