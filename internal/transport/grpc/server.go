package grpc

import (
	"context"
	"time"

	"rental-inventory/internal/store"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// LedgerService is the health service name probes ask for.
const LedgerService = "rental.inventory.v1.Ledger"

// NewServer builds the gRPC server that carries health and reflection.
func NewServer(log *zap.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(NewLoggingUnaryServerInterceptor(log)))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthSrv.SetServingStatus(LedgerService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, healthSrv)

	reflection.Register(srv)
	return srv, healthSrv
}

// WatchStore mirrors the store readiness into the health status until ctx is
// done, then reports NOT_SERVING.
func WatchStore(ctx context.Context, st *store.Store, hs *health.Server, every time.Duration, log *zap.Logger) {
	last := grpc_health_v1.HealthCheckResponse_UNKNOWN
	set := func(s grpc_health_v1.HealthCheckResponse_ServingStatus) {
		if s == last {
			return
		}
		last = s
		hs.SetServingStatus("", s)
		hs.SetServingStatus(LedgerService, s)
		log.Info("health status changed", zap.String("status", s.String()))
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if st.Ready() {
			set(grpc_health_v1.HealthCheckResponse_SERVING)
		} else {
			set(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		}
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}
