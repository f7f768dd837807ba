// Package httpprobe checks whether external URLs answer, politely: requests
// are rate limited, transient failures retried with exponential backoff and
// hosts that keep failing are skipped for a while.
package httpprobe

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/infrastructure/cache"
	"github.com/doeshing/spechealth/internal/ports"
)

const (
	maxDrainBytes = 64 << 10
	// breakerTrips is the number of consecutive failed probes after which a
	// host is skipped until breakerCooldown has passed.
	breakerTrips    = 3
	breakerCooldown = 30 * time.Second
)

// Config tunes a Prober.
type Config struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Retries           int
	RetryInterval     time.Duration
	UserAgent         string
}

// ConfigFrom maps the user settings onto a Config, filling defaults.
func ConfigFrom(s domain.HTTPSettings) Config {
	cfg := Config{
		Timeout:           s.Timeout,
		RequestsPerSecond: s.RequestsPerSecond,
		Burst:             s.Burst,
		Retries:           s.Retries,
		UserAgent:         s.UserAgent,
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = domain.DefaultHTTPClientTimeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = domain.DefaultProbeRatePerSecond
	}
	if c.Burst <= 0 {
		c.Burst = domain.DefaultProbeBurst
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 250 * time.Millisecond
	}
	if c.UserAgent == "" {
		c.UserAgent = domain.DefaultUserAgent
	}
	return c
}

// Prober implements ports.URLProber over net/http.
type Prober struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	cache   ports.CacheRepository
	logger  ports.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// New builds a prober. cache and logger may be nil.
func New(cfg Config, cacheRepo ports.CacheRepository, logger ports.Logger) *Prober {
	cfg = cfg.withDefaults()
	return &Prober{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cache:    cacheRepo,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// WithClient replaces the HTTP client, e.g. with an httptest server's.
func (p *Prober) WithClient(client *http.Client) *Prober {
	p.client = client
	return p
}

// errStatus marks responses worth retrying.
var errStatus = errors.New("retryable status")

// Probe reports whether rawURL answers with a status below 400. Cached
// outcomes are served without touching the network.
func (p *Prober) Probe(ctx context.Context, rawURL string) ports.ProbeResult {
	key := cache.Key(rawURL)
	if res, ok := p.cached(key, rawURL); ok {
		return res
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ports.ProbeResult{URL: rawURL, Err: errors.Newf("invalid URL %q", rawURL)}
	}

	var status int
	_, err = p.breaker(u.Host).Execute(func() (interface{}, error) {
		var err error
		status, err = p.fetch(ctx, rawURL)
		return nil, err
	})

	res := ports.ProbeResult{URL: rawURL, StatusCode: status}
	definitive := false
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		res.Err = errors.Newf("host %s skipped after repeated failures", u.Host)
		return res
	case errors.Is(err, errStatus):
		// Retries exhausted on 429/5xx; the status code tells the story.
	case err != nil:
		res.Err = err
	default:
		res.Reachable = status < http.StatusBadRequest
		definitive = true
	}

	// Outages and throttling are transient: only answers the server stands
	// by (2xx/3xx and 4xx other than 429) are cached.
	if definitive && ctx.Err() == nil {
		p.store(key, res)
	}
	p.debug("probed url", map[string]interface{}{"url": rawURL, "status": status, "reachable": res.Reachable})
	return res
}

// fetch issues HEAD (falling back to GET for servers that refuse HEAD) and
// retries transport errors and 429/5xx answers.
func (p *Prober) fetch(ctx context.Context, rawURL string) (int, error) {
	var status int
	op := func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		code, err := p.request(ctx, http.MethodHead, rawURL)
		if err == nil && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
			code, err = p.request(ctx, http.MethodGet, rawURL)
		}
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		status = code
		if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
			return errors.Wrapf(errStatus, "HTTP %d", code)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.cfg.RetryInterval
	policy.MaxInterval = 5 * time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(p.cfg.Retries)), ctx))
	return status, err
}

func (p *Prober) request(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, backoff.Permanent(errors.Wrap(err, "build request"))
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "%s %s", method, rawURL)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	return resp.StatusCode, nil
}

func (p *Prober) breaker(host string) *gobreaker.CircuitBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cb, ok := p.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    host,
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.debug("circuit breaker state changed", map[string]interface{}{
				"host": name, "from": from.String(), "to": to.String(),
			})
		},
	})
	p.breakers[host] = cb
	return cb
}

func (p *Prober) cached(key, rawURL string) (ports.ProbeResult, bool) {
	if p.cache == nil {
		return ports.ProbeResult{}, false
	}
	entry, ok, err := p.cache.Get(key)
	if err != nil {
		p.debug("probe cache read failed", map[string]interface{}{"error": err.Error()})
		return ports.ProbeResult{}, false
	}
	if !ok {
		return ports.ProbeResult{}, false
	}
	res := ports.ProbeResult{URL: rawURL, StatusCode: entry.StatusCode, Reachable: entry.Reachable, FromCache: true}
	if entry.Error != "" {
		res.Err = errors.New(entry.Error)
	}
	return res, true
}

func (p *Prober) store(key string, res ports.ProbeResult) {
	if p.cache == nil {
		return
	}
	entry := domain.CacheEntry{Key: key, URL: res.URL, StatusCode: res.StatusCode, Reachable: res.Reachable}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if err := p.cache.Set(entry); err != nil {
		p.debug("probe cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (p *Prober) debug(msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, fields)
	}
}

var _ ports.URLProber = (*Prober)(nil)
