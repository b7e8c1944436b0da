package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"suryasakshi/internal/attachments"
	"suryasakshi/internal/auth"
	"suryasakshi/internal/core"
	"suryasakshi/internal/ledger"
	"suryasakshi/internal/log"
	"suryasakshi/internal/middleware/ratelimit"
	"suryasakshi/internal/middleware/security"
	"suryasakshi/internal/middleware/trace"
	"suryasakshi/internal/services"
	appweb "suryasakshi/web"

	"github.com/shopspring/decimal"
)

// multipartOverhead is allowed on top of the file size for multipart framing.
const multipartOverhead = 64 << 10

// Options carries the server's collaborators.
type Options struct {
	Addr               string
	Ledger             *services.Ledger
	Files              ledger.AttachmentStore
	Verifier           ledger.CredentialVerifier
	Sessions           *auth.Sessions
	LoginRatePerMinute int
	MaxUploadBytes     int64
	// SecureCookies marks the session cookie Secure. Enable behind TLS.
	SecureCookies bool
	Logger        *log.Logger
}

type Server struct {
	http.Server
	ledger    *services.Ledger
	resources map[core.Category]resource
	files     ledger.AttachmentStore
	verifier  ledger.CredentialVerifier
	sessions  *auth.Sessions
	state     *appState
	templates *template.Template
	logger    *log.Logger

	detector     *security.Detector
	loginLimiter *ratelimit.Limiter
	tracer       *trace.Middleware

	maxUpload     int64
	secureCookies bool
	startedAt     time.Time
	shutdownOnce  sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:        opts.Ledger,
		resources:     resourcesFor(opts.Ledger),
		files:         opts.Files,
		verifier:      opts.Verifier,
		sessions:      opts.Sessions,
		state:         newAppState(),
		logger:        logger,
		detector:      security.NewDetector(),
		loginLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.LoginRatePerMinute}),
		maxUpload:     maxUpload,
		secureCookies: opts.SecureCookies,
		startedAt:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	limitLogin := s.loginLimiter.Middleware(s.detector.ExtractClientIP, loginLimited)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("GET /{$}", s.requirePage(s.handleIndex))

	mux.Handle("POST /api/login", limitLogin(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("GET /api/period", s.requireAuth(s.handleGetPeriod))
	mux.HandleFunc("PUT /api/period", s.requireAuth(s.handleSetPeriod))
	mux.HandleFunc("GET /api/dashboard", s.requireAuth(s.handleDashboard))
	mux.HandleFunc("GET /api/activity", s.requireAuth(s.handleActivity))

	mux.HandleFunc("GET /api/{category}", s.requireAuth(s.handleListRecords))
	mux.HandleFunc("POST /api/{category}", s.requireAuth(s.handleCreateRecord))
	mux.HandleFunc("GET /api/{category}/export", s.requireAuth(s.handleExport))
	mux.HandleFunc("GET /api/{category}/{id}", s.requireAuth(s.handleGetRecord))
	mux.HandleFunc("PUT /api/{category}/{id}", s.requireAuth(s.handleUpdateRecord))
	mux.HandleFunc("DELETE /api/{category}/{id}", s.requireAuth(s.handleDeleteRecord))
	mux.HandleFunc("POST /api/{category}/{id}/attachment", s.requireAuth(s.handleUploadAttachment))

	mux.HandleFunc("GET "+attachments.URLPrefix, s.requireAuth(s.handleAttachment))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = log.Middleware(logger)(s.tracer.Middleware(headers.Middleware(s.detector.Middleware(mux))))
	return s
}

func resourcesFor(l *services.Ledger) map[core.Category]resource {
	return map[core.Category]resource{
		core.SilageSales:      newResource(l.SilageSales),
		core.MaizePurchases:   newResource(l.MaizePurchases),
		core.OtherExpenses:    newResource(l.OtherExpenses),
		core.SoybeanPurchases: newResource(l.SoybeanPurchases),
		core.SoybeanSales:     newResource(l.SoybeanSales),
		core.Purchases:        newResource(l.Purchases),
	}
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.loginLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

var templateFuncs = template.FuncMap{
	"rupees": core.FormatRupees,
	"pct": func(v float64) string {
		return decimal.NewFromFloat(v).StringFixed(1) + "%"
	},
	"kg": func(d *decimal.Decimal) string {
		if d == nil {
			return ""
		}
		return d.StringFixed(2) + " kg"
	},
}
