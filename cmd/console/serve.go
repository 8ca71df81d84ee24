package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/spaceai-console/internal/audit"
	"github.com/xela07ax/spaceai-console/internal/broadcast"
	"github.com/xela07ax/spaceai-console/internal/console/handler"
	"github.com/xela07ax/spaceai-console/internal/console/server"
	"github.com/xela07ax/spaceai-console/internal/console/service"
	"github.com/xela07ax/spaceai-console/internal/domain"
	"github.com/xela07ax/spaceai-console/internal/entity"
	"github.com/xela07ax/spaceai-console/internal/health"
	"github.com/xela07ax/spaceai-console/internal/infra"
	"github.com/xela07ax/spaceai-console/internal/infra/auth"
	"github.com/xela07ax/spaceai-console/internal/kv"
	"github.com/xela07ax/spaceai-console/internal/metrics"
	"github.com/xela07ax/spaceai-console/internal/repository/postgres"
	"github.com/xela07ax/spaceai-console/internal/repository/rediskv"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Console API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := infra.LoadConfig(configFile)
		if err != nil {
			return err
		}
		logger, err := infra.NewLogger(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, logger)
	},
}

// backends - внешние ресурсы, выбранные storage.driver
type backends struct {
	kv   kv.Store
	rdb  *redis.Client
	db   *postgres.DB
	sink audit.Sink
	logs audit.Reader
}

func (b *backends) Close() {
	if b.rdb != nil {
		b.rdb.Close()
	}
	if b.db != nil {
		b.db.Close()
	}
}

func openBackends(ctx context.Context, cfg *infra.Config, m *metrics.Metrics, logger *zap.Logger) (*backends, error) {
	b := &backends{}
	var base kv.Store

	switch cfg.Storage.Driver {
	case infra.DriverMemory:
		mem := audit.NewMemorySink(0)
		b.kv, b.sink, b.logs = kv.NewMemory(), mem, mem
		return b, nil

	case infra.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		b.db = db
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			b.Close()
			return nil, fmt.Errorf("database unreachable: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		repo := postgres.NewAuditRepo(db)
		base, b.sink, b.logs = postgres.NewKVRepo(db), repo, repo

	case infra.DriverRedis:
		mem := audit.NewMemorySink(0)
		b.sink, b.logs = mem, mem
	}

	// Redis нужен и как KV (driver=redis), и для сигналов между инстансами
	b.rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := b.rdb.Ping(ctx).Err(); err != nil {
		b.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	if base == nil {
		base = rediskv.New(b.rdb, "")
	}

	rc := cfg.Reliability
	b.kv = kv.NewReliable("storage:"+cfg.Storage.Driver, base, kv.ReliableOptions{
		Attempts:      rc.Attempts,
		Timeout:       rc.Timeout,
		RateLimit:     rc.RateLimit,
		RateBurst:     rc.RateBurst,
		CBMaxRequests: rc.CBMaxRequests,
		CBInterval:    rc.CBInterval,
		CBTimeout:     rc.CBTimeout,
		CBFailures:    rc.CBFailures,
		OnStateChange: func(name string, _, to gobreaker.State) {
			m.StorageBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}, logger)
	return b, nil
}

// collections - пять коллекций консоли поверх одного KV
type collections struct {
	bots         *service.Collection[domain.Bot, domain.BotStats]
	agents       *service.Collection[domain.Agent, domain.AgentStats]
	products     *service.Collection[domain.Product, domain.ProductStats]
	metrics      *service.Collection[domain.MetricSnapshot, domain.MetricStats]
	integrations *service.Collection[domain.Integration, domain.IntegrationStats]
}

func loadCollections(
	ctx context.Context,
	cfg *infra.Config,
	store kv.Store,
	auditor audit.Auditor,
	notifier broadcast.Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*collections, error) {
	seeds := service.NewSeeds(cfg.Storage.SeedDemo)
	ns := cfg.Storage.Namespace

	bots := entity.New(service.BotKind(seeds.Bots), store, ns, logger)
	agents := entity.New(service.AgentKind(seeds.Agents), store, ns, logger)
	products := entity.New(service.ProductKind(seeds.Products), store, ns, logger)
	snaps := entity.New(service.MetricKind(seeds.Metrics), store, ns, logger)
	integrations := entity.New(service.IntegrationKind(seeds.Integrations), store, ns, logger)

	for _, l := range []interface{ Load(context.Context) error }{bots, agents, products, snaps, integrations} {
		if err := l.Load(ctx); err != nil {
			return nil, fmt.Errorf("load collections: %w", err)
		}
	}

	return &collections{
		bots:         service.NewCollection(bots, auditor, notifier, m, logger),
		agents:       service.NewCollection(agents, auditor, notifier, m, logger),
		products:     service.NewCollection(products, auditor, notifier, m, logger),
		metrics:      service.NewCollection(snaps, auditor, notifier, m, logger),
		integrations: service.NewCollection(integrations, auditor, notifier, m, logger),
	}, nil
}

func serve(ctx context.Context, cfg *infra.Config, logger *zap.Logger) error {
	instanceID := cfg.Server.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	logger = logger.With(zap.String("instance", instanceID))

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	// 2. Инфраструктура и ресурсы
	b, err := openBackends(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	journal := audit.NewJournal(b.sink, audit.JournalOptions{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
		OnDepth:       func(n int) { m.AuditBufferFill.Set(float64(n)) },
	}, logger)
	journal.Start()
	defer journal.Stop()

	var notifier broadcast.Notifier = broadcast.Nop{}
	channel := infra.ChangeChannel(cfg.Storage.Namespace)
	if b.rdb != nil {
		notifier = broadcast.NewPublisher(b.rdb, channel, instanceID, logger)
	}

	// 3. Коллекции
	cols, err := loadCollections(ctx, cfg, b.kv, journal, notifier, m, logger)
	if err != nil {
		return err
	}

	// Контекст для фоновых горутин: слушатель, мониторинг.
	// Defer-ы выполняются в обратном порядке: cancel, ожидание горутин, затем journal и бэкенды.
	var bg sync.WaitGroup
	defer bg.Wait()
	appCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if b.rdb != nil {
		listener := broadcast.NewListener(b.rdb, channel, instanceID, logger)
		listener.Register(service.KindBots, cols.bots)
		listener.Register(service.KindAgents, cols.agents)
		listener.Register(service.KindProducts, cols.products)
		listener.Register(service.KindMetrics, cols.metrics)
		listener.Register(service.KindIntegrations, cols.integrations)
		listener.OnReload = func(kind string, err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			m.ReloadsTotal.WithLabelValues(kind, result).Inc()
		}
		bg.Go(func() { listener.Run(appCtx) })
	}

	checker := health.NewChecker(health.DefaultProbers(), health.CheckerOptions{
		Timeout:           cfg.Health.Timeout,
		DegradedThreshold: cfg.Health.DegradedThreshold,
	}, logger)
	monitor := health.NewMonitor(cols.integrations, checker, cfg.Health.Interval, m, logger)
	bg.Go(func() { monitor.Run(appCtx) })

	// 4. Auth
	validator, authSvc, err := newAuth(cfg)
	if err != nil {
		return err
	}

	// 5. HTTP
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Addr == "" {
		gatherer = reg
	} else {
		bg.Go(func() { serveMetrics(appCtx, cfg.Metrics.Addr, reg, logger) })
	}

	api := server.NewConsoleServer(logger, validator, server.Handlers{
		Auth: handler.NewAuthHandler(authSvc),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(
			cols.bots, cols.agents, cols.products, cols.metrics, cols.integrations)),
		Audit:        handler.NewAuditHandler(service.NewAuditService(b.logs)),
		Bots:         handler.NewEntityHandler[domain.Bot, domain.BotStats](cols.bots).Routes(),
		Agents:       handler.NewEntityHandler[domain.Agent, domain.AgentStats](cols.agents).Routes(),
		Products:     handler.NewEntityHandler[domain.Product, domain.ProductStats](cols.products).Routes(),
		Metrics:      handler.NewEntityHandler[domain.MetricSnapshot, domain.MetricStats](cols.metrics).Routes(),
		Integrations: handler.NewIntegrationHandler(cols.integrations, monitor).Routes(),
	}, m, gatherer)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 6. gRPC health консоли
	var grpcSrv *grpc.Server
	if cfg.Server.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen gRPC: %w", err)
		}
		gs, hs := health.NewGRPCServer()
		grpcSrv = gs
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		defer hs.Shutdown()
		go func() {
			logger.Info("console gRPC health server started", zap.String("addr", lis.Addr().String()))
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("gRPC server failed", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Console API started", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 7. Graceful Shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("Console API stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	cancel()
	bg.Wait()
	logger.Info("Console API exited properly")
	return nil
}

func newAuth(cfg *infra.Config) (*auth.BaseValidator, *service.AuthService, error) {
	pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.public_key_path: %w", err)
	}
	priv, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.private_key_path: %w", err)
	}
	validator := auth.NewBaseValidator(pub, cfg.Auth.Issuer)
	authSvc := service.NewAuthService(service.NewStaticUsers(cfg.Auth.Users), priv, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	return validator, authSvc, nil
}

// serveMetrics - отдельный порт для Prometheus (metrics.addr)
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	logger.Info("metrics server started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
