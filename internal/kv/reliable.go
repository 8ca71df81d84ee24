package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReliableOptions - настройки обертки, приходят из секции reliability конфига
type ReliableOptions struct {
	Attempts      uint
	Timeout       time.Duration // На одну попытку
	RateLimit     float64       // Операций в секунду
	RateBurst     int
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	CBFailures    uint32 // Подряд, после которых предохранитель размыкается

	// OnStateChange вызывается при переключении предохранителя (метрики)
	OnStateChange func(name string, from, to gobreaker.State)
}

func DefaultReliableOptions() ReliableOptions {
	return ReliableOptions{
		Attempts:      3,
		Timeout:       2 * time.Second,
		RateLimit:     200,
		RateBurst:     50,
		CBMaxRequests: 3,
		CBInterval:    5 * time.Second,
		CBTimeout:     30 * time.Second,
		CBFailures:    5,
	}
}

// Reliable оборачивает Store: Rate Limiter -> Circuit Breaker -> Retries.
// ErrNotFound - нормальный ответ, он не ретраится и не размыкает предохранитель.
type Reliable struct {
	next    Store
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	opts    ReliableOptions
	logger  *zap.Logger
}

func NewReliable(name string, next Store, opts ReliableOptions, logger *zap.Logger) *Reliable {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	failures := opts.CBFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: opts.CBMaxRequests,
		Interval:    opts.CBInterval,
		Timeout:     opts.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("kv circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if opts.OnStateChange != nil {
				opts.OnStateChange(name, from, to)
			}
		},
	})

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Reliable{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(limit, opts.RateBurst),
		opts:    opts,
		logger:  logger.Named("kv-reliable"),
	}
}

func (r *Reliable) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := r.do(ctx, func(ctx context.Context) error {
		v, err := r.next.Get(ctx, key)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Reliable) Set(ctx context.Context, key string, value []byte) error {
	return r.do(ctx, func(ctx context.Context) error {
		return r.next.Set(ctx, key, value)
	})
}

// State - текущее состояние предохранителя (для /health)
func (r *Reliable) State() gobreaker.State {
	return r.cb.State()
}

func (r *Reliable) do(ctx context.Context, op func(ctx context.Context) error) error {
	// 1. Rate Limiter
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("kv: rate limit: %w", err)
	}

	// 2. Circuit Breaker
	_, err := r.cb.Execute(func() (interface{}, error) {
		// 3. Retries с экспоненциальной задержкой
		rt := retry.New(
			retry.Context(ctx),
			retry.Attempts(r.opts.Attempts),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				return !errors.Is(err, ErrNotFound)
			}),
			retry.DelayType(retry.BackOffDelay),
		)
		return nil, rt.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
			defer cancel()
			return op(tCtx)
		})
	})
	return err
}
