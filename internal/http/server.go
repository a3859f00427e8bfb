package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"finpal/internal/log"
	"finpal/internal/middleware/ratelimit"
	"finpal/internal/middleware/security"
	"finpal/internal/middleware/trace"
	"finpal/internal/services"
	appweb "finpal/web"
)

// Options configures optional server behavior. The zero value is usable.
type Options struct {
	Logger *log.Logger
	// RateLimitPerMinute bounds POST requests per client IP; 0 uses the limiter default.
	RateLimitPerMinute int
	// BlockSuspicious rejects requests the detector flags instead of only logging them.
	BlockSuspicious bool
	// TrustedProxies are extra CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
}

// Server serves the budgeting UI and JSON API.
type Server struct {
	http.Server
	templates *template.Template
	svc       *services.BudgetService
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	metrics      appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	started            time.Time
	profilesUpdated    int64
	budgetsUpdated     int64
	expensesCreated    int64
	statementsImported int64
}

func (m *appMetrics) inc(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, svc *services.BudgetService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentHTTP})
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	limitCfg := ratelimit.DefaultConfig()
	limitCfg.RequestsPerMinute = opts.RateLimitPerMinute

	s := &Server{
		svc:      svc,
		logger:   logger,
		detector: detector,
		limiter:  ratelimit.NewLimiter(limitCfg),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
		metrics:  appMetrics{started: time.Now()},
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err, log.FieldComponent, log.ComponentTemplate)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(opts.BlockSuspicious)(handler)
	handler = log.Inject(logger, trace.RequestID)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleLanding)
	mux.HandleFunc("GET /u/{user}/{$}", s.handleUserPage)
	mux.HandleFunc("POST /u/{user}/profile", s.handleUpdateProfile)
	mux.HandleFunc("POST /u/{user}/budget", s.handleUpdateBudget)
	mux.HandleFunc("POST /u/{user}/expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /u/{user}/statements", s.handleImportStatement)
	mux.HandleFunc("GET /u/{user}/ui/summary", s.handleSummaryPartial)

	mux.HandleFunc("GET /api/tax", s.handleAPITax)
	mux.HandleFunc("GET /api/users/{user}/summary", s.handleAPISummary)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldComponent, log.ComponentRateLimit)
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		Notify(NotificationError, "Too many requests. Please slow down.").
		HTML(`<div class="error">Rate limit exceeded. Please try again later.</div>`).
		Write(w)
}

// Shutdown stops background goroutines and then the HTTP server. It is safe
// to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
