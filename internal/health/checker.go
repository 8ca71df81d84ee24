package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-console/internal/domain"
)

// Outcome - результат одной проверки
type Outcome struct {
	Status  domain.IntegrationStatus
	Latency time.Duration
	Err     error
}

type CheckerOptions struct {
	Timeout           time.Duration // На одну проверку
	DegradedThreshold time.Duration // Медленнее - degraded
	CBFailures        uint32        // Подряд отказов до размыкания
	CBTimeout         time.Duration // Сколько держать разомкнутым
}

// Checker выбирает Prober по типу интеграции и держит по предохранителю на интеграцию,
// чтобы мертвый бэкенд не съедал таймаут на каждом тике.
type Checker struct {
	probers map[domain.ProbeKind]Prober
	opts    CheckerOptions
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewChecker(probers map[domain.ProbeKind]Prober, opts CheckerOptions, logger *zap.Logger) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.DegradedThreshold <= 0 {
		opts.DegradedThreshold = 800 * time.Millisecond
	}
	if opts.CBFailures == 0 {
		opts.CBFailures = 3
	}
	if opts.CBTimeout <= 0 {
		opts.CBTimeout = time.Minute
	}
	return &Checker{
		probers:  probers,
		opts:     opts,
		logger:   logger.Named("health-checker"),
		now:      time.Now,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// DefaultProbers - все поддерживаемые типы проверок
func DefaultProbers() map[domain.ProbeKind]Prober {
	return map[domain.ProbeKind]Prober{
		domain.ProbeGRPC: GRPCProber{},
		domain.ProbeHTTP: HTTPProber{},
		domain.ProbeMock: MockProber{},
	}
}

func (c *Checker) Check(ctx context.Context, in domain.Integration) Outcome {
	prober, ok := c.probers[in.Kind]
	if !ok {
		return Outcome{Status: domain.IntegrationOffline, Err: fmt.Errorf("no prober for kind %q", in.Kind)}
	}

	start := c.now()
	_, err := c.breaker(in.ID).Execute(func() (interface{}, error) {
		pCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
		return nil, prober.Probe(pCtx, in.Endpoint)
	})
	latency := c.now().Sub(start)

	var tErr *ThrottleError
	switch {
	case err == nil && latency > c.opts.DegradedThreshold:
		return Outcome{Status: domain.IntegrationDegraded, Latency: latency}
	case err == nil:
		return Outcome{Status: domain.IntegrationOnline, Latency: latency}
	case errors.As(err, &tErr):
		// Отвечает, но перегружен
		return Outcome{Status: domain.IntegrationDegraded, Latency: latency, Err: err}
	default:
		return Outcome{Status: domain.IntegrationOffline, Latency: latency, Err: err}
	}
}

// Forget удаляет предохранитель удаленной интеграции
func (c *Checker) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.breakers, id)
}

func (c *Checker) breaker(id string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[id]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "integration:" + id,
		MaxRequests: 1,
		Timeout:     c.opts.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.opts.CBFailures
		},
		IsSuccessful: func(err error) bool {
			var tErr *ThrottleError
			return err == nil || errors.As(err, &tErr)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("integration circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	c.breakers[id] = cb
	return cb
}
