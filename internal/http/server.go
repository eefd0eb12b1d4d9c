package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"backoffice/internal/catalog"
	"backoffice/internal/log"
	"backoffice/internal/middleware/ratelimit"
	"backoffice/internal/middleware/security"
	"backoffice/internal/middleware/trace"
	"backoffice/internal/schema"
	"backoffice/internal/services"
	appweb "backoffice/web"
)

// OrderProcessor handles one order synchronously.
type OrderProcessor interface {
	Process(ctx context.Context, orderID string) (services.OrderInsights, error)
}

// Dependencies are the collaborators the handlers call into.
type Dependencies struct {
	Backend catalog.Backend
	// Processor backs POST /process-order/{id}; nil answers 503.
	Processor OrderProcessor
	Schemas   *schema.Catalog
	// Ready reports whether the data backend answers; nil means always ready.
	Ready func(ctx context.Context) error
	// CacheEntries reports the sales report cache size for /metrics.
	CacheEntries func() int
}

type Config struct {
	Addr              string
	RequestsPerMinute int
	// ImageSources are extra origins allowed to serve product images.
	ImageSources []string
	Logger       *log.Logger
}

type Server struct {
	http.Server
	router    *chi.Mux
	deps      Dependencies
	templates *template.Template
	logger    *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	headers          *security.HeadersMiddleware

	startedAt     time.Time
	ordersCreated atomic.Int64
	now           func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(cfg Config, deps Dependencies) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limiterCfg := ratelimit.DefaultConfig()
	if cfg.RequestsPerMinute > 0 {
		limiterCfg.RequestsPerMinute = cfg.RequestsPerMinute
	}
	headersCfg := security.DefaultHeadersConfig()
	headersCfg.ImageSources = cfg.ImageSources

	detector := security.NewDetector()
	s := &Server{
		router:           chi.NewRouter(),
		deps:             deps,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(limiterCfg),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		headers:          security.NewHeadersMiddleware(headersCfg),
		startedAt:        time.Now(),
		now:              time.Now,
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Error("Failed parsing templates",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
	}
	s.templates = t

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.StripSlashes)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.securityDetector.Middleware)
	r.Use(s.headers.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit,
		http.MethodPost, http.MethodPut, http.MethodDelete)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limit)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.listCategories)
			r.Post("/", s.createCategory)
			r.Put("/{id}", s.updateCategory)
			r.Delete("/{id}", s.deleteCategory)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Post("/", s.createProduct)
			r.Post("/with-image", s.createProductWithImage)
			r.Put("/{id}", s.updateProduct)
			r.Delete("/{id}", s.deleteProduct)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.listOrders)
			r.Post("/", s.createOrder)
			r.Get("/{id}", s.getOrder)
			r.Put("/{id}", s.updateOrder)
			r.Delete("/{id}", s.deleteOrder)
		})
		r.Post("/process-order/{id}", s.processOrder)
		r.Get("/dashboard/sales", s.salesReport)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(limit)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
		})
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/products/{id}/image", s.handleImagePreview)
		r.Get("/{kind}", s.handleScreen)
		r.Get("/{kind}/new", s.handleNewForm)
		r.Get("/{kind}/{id}/edit", s.handleEditForm)
		r.Post("/{kind}", s.handleSubmit)
		r.Post("/{kind}/{id}", s.handleSubmit)
		r.Delete("/{kind}/{id}", s.handleDelete)
	})
}

// onRateLimit answers API clients with JSON and the console with a
// notification.
func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") != "" {
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			TriggerErrorNotification("Muitas requisições. Tente novamente em instantes.").
			Write(w)
		return
	}
	writeDetail(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// Router exposes the route tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown stops the limiter cleanup and drains the HTTP server. It runs once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
