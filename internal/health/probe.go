// Package health проверяет доступность внешних бэкендов (экран Backend Integration).
package health

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Prober - один способ проверки эндпоинта
type Prober interface {
	Probe(ctx context.Context, endpoint string) error
}

// ThrottleError - бэкенд жив, но просит подождать (HTTP 429)
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

// GRPCProber ходит в стандартный grpc.health.v1.Health/Check
type GRPCProber struct {
	Service  string // Пусто - общий статус сервера
	DialOpts []grpc.DialOption
}

func (p GRPCProber) Probe(ctx context.Context, endpoint string) error {
	opts := p.DialOpts
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: p.Service})
	if err != nil {
		return fmt.Errorf("grpc health check: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("grpc health status %s", resp.GetStatus())
	}
	return nil
}

// HTTPProber - GET, 2xx/3xx считаются доступностью
type HTTPProber struct {
	Client *http.Client
}

func (p HTTPProber) Probe(ctx context.Context, endpoint string) error {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("http probe request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http probe: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &ThrottleError{
			RetryAfter: time.Duration(retryAfter) * time.Second,
			Cause:      errors.New(resp.Status),
		}
	case resp.StatusCode >= 400:
		return fmt.Errorf("http probe status %s", resp.Status)
	}
	return nil
}

// MockProber имитирует бэкенд для демо-стендов: задержка 50-300мс
type MockProber struct {
	FailRate float64 // Доля отказов, 0..1
}

func (p MockProber) Probe(ctx context.Context, _ string) error {
	latency := time.Duration(50+rand.IntN(250)) * time.Millisecond

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return ctx.Err()
	}

	if p.FailRate > 0 && rand.Float64() < p.FailRate {
		return errors.New("service internal error")
	}
	return nil
}
