package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-console/internal/console/handler"
	"github.com/xela07ax/spaceai-console/internal/infra/auth"
	"github.com/xela07ax/spaceai-console/internal/metrics"
)

// Handlers - обработчики бизнес-доменов, собираются в main
type Handlers struct {
	Auth         *handler.AuthHandler      // /auth/token
	Dashboard    *handler.DashboardHandler // /api/v1/dashboard
	Audit        *handler.AuditHandler     // /v1/audit
	Bots         chi.Router                // /v1/bots
	Agents       chi.Router                // /v1/agents
	Products     chi.Router                // /v1/products
	Metrics      chi.Router                // /v1/metrics
	Integrations chi.Router                // /v1/integrations
}

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Интерфейс для проверки токенов (RS256)
	authValidator auth.TokenValidator
	handlers      Handlers

	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer // nil - /metrics на отдельном порту
}

// NewConsoleServer инициализирует сервер админки со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	h Handlers,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		authValidator: validator,
		handlers:      h,
		metrics:       m,
		gatherer:      gatherer,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.handlers.Auth.Login)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		if s.gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		r.Get("/api/v1/dashboard", s.handlers.Dashboard.GetStats)

		// Коллекции: список, сводка, CRUD, статусы и действия
		r.Mount("/v1/bots", s.handlers.Bots)
		r.Mount("/v1/agents", s.handlers.Agents)
		r.Mount("/v1/products", s.handlers.Products)
		r.Mount("/v1/metrics", s.handlers.Metrics)
		r.Mount("/v1/integrations", s.handlers.Integrations)

		// Аудит и Логи (Observability)
		r.Get("/v1/audit", s.handlers.Audit.GetLogs)
	})
}

// requestLogger пишет каждый запрос в zap и в гистограмму латентности
func (s *ConsoleServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		if s.metrics != nil {
			s.metrics.RequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(status)).
				Observe(elapsed.Seconds())
		}
		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", elapsed),
			zap.String("remote", r.RemoteAddr))
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
