package refresh_test

import (
	"context"
	"testing"
	"time"

	"rental-inventory/internal/models"
	"rental-inventory/internal/refresh"
	"rental-inventory/internal/repository/memory"
	"rental-inventory/internal/store"

	"go.uber.org/zap"
)

func TestScheduler_PicksUpForeignWrites(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	st := store.New()

	s := refresh.NewScheduler(st, repo, 10*time.Millisecond, zap.NewNop())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if !st.Ready() {
		t.Fatalf("store should be loaded after Start")
	}

	// written by "another process" straight into the repository
	if err := repo.Products().Create(ctx, &models.Product{Code: "TENT", TotalOwned: 2}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(st.Snapshot().Products()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("refresh never picked up the product")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduler_StopAfterContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := refresh.NewScheduler(store.New(), memory.New(), time.Minute, zap.NewNop())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("Stop did not return")
	}
}
