package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"rental-inventory/internal/repository/memory"
	"rental-inventory/internal/store"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealth_FollowsStoreReadiness(t *testing.T) {
	log := zap.NewNop()
	st := store.New()
	srv, hs := NewServer(log)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		WatchStore(ctx, st, hs, 5*time.Millisecond, log)
		close(done)
	}()

	waitFor := func(want grpc_health_v1.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: LedgerService})
			if err == nil && resp.GetStatus() == want {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("status never became %s (last %v, %v)", want, resp.GetStatus(), err)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	waitFor(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	if err := st.Refresh(context.Background(), memory.New()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	waitFor(grpc_health_v1.HealthCheckResponse_SERVING)

	cancel()
	<-done
	waitFor(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}
