// Package ratelimit throttles clients by IP using fixed one-minute windows.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// IdleTimeout is how long a client may stay silent before it is forgotten.
	IdleTimeout time.Duration
	// Methods limits which HTTP methods are counted; empty counts all.
	Methods []string
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		IdleTimeout:       10 * time.Minute,
		Methods:           []string{http.MethodPost},
	}
}

// Limiter counts requests per client. It runs a background sweep until Stop.
type Limiter struct {
	cfg     Config
	methods map[string]struct{}
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*usage

	rejected atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
}

type usage struct {
	start, last time.Time
	count       int
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}

	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		clients: map[string]*usage{},
		done:    make(chan struct{}),
	}
	if len(cfg.Methods) > 0 {
		l.methods = make(map[string]struct{}, len(cfg.Methods))
		for _, m := range cfg.Methods {
			l.methods[m] = struct{}{}
		}
	}
	go l.sweep()
	return l
}

// Allow records a request from ip and reports whether it fits the budget.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	u := l.clients[ip]
	if u == nil || now.Sub(u.start) >= window {
		l.clients[ip] = &usage{start: now, last: now, count: 1}
		return true
	}
	u.count++
	u.last = now
	if u.count <= l.cfg.RequestsPerMinute {
		return true
	}
	l.rejected.Add(1)
	return false
}

// RetryAfter is how long ip must wait for its window to reset.
func (l *Limiter) RetryAfter(ip string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := l.clients[ip]
	if u == nil {
		return 0
	}
	return max(window-l.now().Sub(u.start), 0)
}

func (l *Limiter) sweep() {
	t := time.NewTicker(l.cfg.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
			l.cleanupStaleEntries()
		}
	}
}

func (l *Limiter) cleanupStaleEntries() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.IdleTimeout)
	n := 0
	for ip, u := range l.clients {
		if u.last.Before(cutoff) {
			delete(l.clients, ip)
			n++
		}
	}
	return n
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop ends the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

type Metrics struct {
	TotalHits   int64 // rejected requests
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   l.rejected.Load(),
		ClientCount: int64(l.ActiveClients()),
	}
}

func (l *Limiter) counts(method string) bool {
	if l.methods == nil {
		return true
	}
	_, ok := l.methods[method]
	return ok
}

// Middleware rejects over-budget requests with 429 and a Retry-After header.
// onLimit, when set, writes the rejection body instead of the plain default.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.counts(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ip := extractIP(r)
			if l.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}

			secs := int(l.RetryAfter(ip)/time.Second) + 1
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			if onLimit == nil {
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
