package health

import (
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewGRPCServer поднимает grpc.health.v1 консоли, чтобы инстансы могли проверять друг друга.
// Статус меняется через возвращаемый *grpchealth.Server (SetServingStatus / Shutdown).
func NewGRPCServer() (*grpc.Server, *grpchealth.Server) {
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}
