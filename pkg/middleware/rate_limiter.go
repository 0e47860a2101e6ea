package middleware

import (
	"CrowdGuard/pkg/logger"
	"fmt"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// userEmailKey is where the bearer-auth middleware leaves the caller's email.
const userEmailKey = "user_email"

const defaultRate = "300-M"

// RateLimiterConfig is the runtime-replaceable limiter policy.
//
// Rate and RouteRates use the limiter format ("300-M", "20-S"); RouteRates is keyed
// by gin route pattern. Identifier is "ip" or "user"; anonymous callers fall back to
// their IP. ExemptUsers entries are path.Match globs ("*@control.example").
type RateLimiterConfig struct {
	Rate         string            `json:"rate"`
	RouteRates   map[string]string `json:"route_rates"`
	Identifier   string            `json:"identifier" binding:"omitempty,oneof=ip user"`
	TrustedCIDRs []string          `json:"trusted_cidrs"`
	BlockedCIDRs []string          `json:"blocked_cidrs"`
	ExemptUsers  []string          `json:"exempt_users"`
	SkipPaths    []string          `json:"skip_paths"`
	AddHeaders   bool              `json:"add_headers"`
}

type policy struct {
	cfg     RateLimiterConfig
	trusted []*net.IPNet
	blocked []*net.IPNet
}

func compilePolicy(cfg RateLimiterConfig) (*policy, error) {
	if cfg.Rate == "" {
		cfg.Rate = defaultRate
	}
	if cfg.Identifier == "" {
		cfg.Identifier = "ip"
	}
	if _, err := limiter.NewRateFromFormatted(cfg.Rate); err != nil {
		return nil, fmt.Errorf("rate %q: %w", cfg.Rate, err)
	}
	for route, r := range cfg.RouteRates {
		if _, err := limiter.NewRateFromFormatted(r); err != nil {
			return nil, fmt.Errorf("rate %q for %s: %w", r, route, err)
		}
	}
	p := &policy{cfg: cfg}
	var err error
	if p.trusted, err = parseCIDRs(cfg.TrustedCIDRs); err != nil {
		return nil, err
	}
	if p.blocked, err = parseCIDRs(cfg.BlockedCIDRs); err != nil {
		return nil, err
	}
	return p, nil
}

func parseCIDRs(list []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(list))
	for _, s := range list {
		_, n, err := net.ParseCIDR(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("cidr %q: %w", s, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func (p *policy) skipped(c *gin.Context) bool {
	route := routeOf(c)
	for _, prefix := range p.cfg.SkipPaths {
		if prefix != "" && strings.HasPrefix(route, prefix) {
			return true
		}
	}
	return false
}

func (p *policy) exempt(user string) bool {
	if user == "" {
		return false
	}
	for _, pattern := range p.cfg.ExemptUsers {
		if ok, _ := path.Match(strings.ToLower(strings.TrimSpace(pattern)), user); ok {
			return true
		}
	}
	return false
}

// rateFor returns the rate for the request and the counter scope: routes with their
// own rate count separately from the caller's global budget.
func (p *policy) rateFor(c *gin.Context) (rate, scope string) {
	route := routeOf(c)
	if r, ok := p.cfg.RouteRates[route]; ok && r != "" {
		return r, route
	}
	return p.cfg.Rate, ""
}

func (p *policy) key(ip, user, scope string) string {
	k := "ip:" + ip
	if p.cfg.Identifier == "user" && user != "" {
		k = "user:" + user
	}
	if scope != "" {
		k += "|" + scope
	}
	return k
}

// MetricsObserver is told about every limiter decision.
type MetricsObserver interface {
	OnAllow(route string)
	OnDeny(route, reason string)
}

type PrometheusObserver struct {
	decisions *prometheus.CounterVec
}

// NewPrometheusObserver registers the decision counter on reg.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	p := &PrometheusObserver{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "API rate limiter decisions by route and outcome",
		}, []string{"route", "decision"}),
	}
	if reg != nil {
		reg.MustRegister(p.decisions)
	}
	return p
}

func (p *PrometheusObserver) OnAllow(route string) { p.decisions.WithLabelValues(route, "allow").Inc() }
func (p *PrometheusObserver) OnDeny(route, reason string) {
	p.decisions.WithLabelValues(route, reason).Inc()
}

// RateLimiter throttles API callers. The policy can be swapped at runtime without
// resetting counters; one limiter is kept per distinct rate.
type RateLimiter struct {
	store    limiter.Store
	policy   atomic.Pointer[policy]
	limiters sync.Map
	observer MetricsObserver
}

// NewRateLimiter uses an in-memory store when store is nil.
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) (*RateLimiter, error) {
	p, err := compilePolicy(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = memory.NewStore()
	}
	l := &RateLimiter{store: store}
	l.policy.Store(p)
	return l, nil
}

// NewRedisStore keeps limiter counters in redis so every instance shares them.
func NewRedisStore(client *redis.Client) (limiter.Store, error) {
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "crowdguard:ratelimit"})
}

func (l *RateLimiter) WithObserver(observer MetricsObserver) *RateLimiter {
	l.observer = observer
	return l
}

// Config returns the policy in effect, with defaults filled in.
func (l *RateLimiter) Config() RateLimiterConfig {
	return l.policy.Load().cfg
}

// UpdateConfig replaces the policy. An invalid policy leaves the current one in place.
func (l *RateLimiter) UpdateConfig(cfg RateLimiterConfig) error {
	p, err := compilePolicy(cfg)
	if err != nil {
		return err
	}
	l.policy.Store(p)
	return nil
}

func (l *RateLimiter) limiterFor(rate string) *limiter.Limiter {
	if v, ok := l.limiters.Load(rate); ok {
		return v.(*limiter.Limiter)
	}
	// rates are validated when the policy is compiled
	r, _ := limiter.NewRateFromFormatted(rate)
	v, _ := l.limiters.LoadOrStore(rate, limiter.New(l.store, r))
	return v.(*limiter.Limiter)
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := l.policy.Load()
		if p.skipped(c) {
			c.Next()
			return
		}

		ip := strings.TrimPrefix(c.ClientIP(), "::ffff:")
		if inNets(ip, p.trusted) {
			c.Next()
			return
		}
		if inNets(ip, p.blocked) {
			l.deny(c, "blocked")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
			return
		}
		user := strings.ToLower(c.GetString(userEmailKey))
		if p.exempt(user) {
			c.Next()
			return
		}

		rate, scope := p.rateFor(c)
		lctx, err := l.limiterFor(rate).Get(c.Request.Context(), p.key(ip, user, scope))
		if err != nil {
			// an unreachable store must not take the API down with it
			logger.Warn("rate limiter store failed", zap.Error(err))
			c.Next()
			return
		}
		wait := time.Until(time.Unix(lctx.Reset, 0))
		if wait < 0 {
			wait = 0
		}
		if p.cfg.AddHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			c.Header("X-RateLimit-Reset", strconv.Itoa(int(wait.Seconds())))
		}
		if lctx.Reached {
			seconds := int(wait.Round(time.Second).Seconds())
			c.Header("Retry-After", strconv.Itoa(seconds))
			l.deny(c, "throttled")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": fmt.Sprintf("Request was throttled. Expected available in %d seconds.", seconds),
			})
			return
		}
		if l.observer != nil {
			l.observer.OnAllow(routeOf(c))
		}
		c.Next()
	}
}

func (l *RateLimiter) deny(c *gin.Context, reason string) {
	if l.observer != nil {
		l.observer.OnDeny(routeOf(c), reason)
	}
}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return c.Request.URL.Path
}

func inNets(ip string, nets []*net.IPNet) bool {
	if len(nets) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}
