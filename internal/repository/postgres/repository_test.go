package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental-inventory/internal/migrate"
	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"
	"rental-inventory/internal/repository/postgres"
	"rental-inventory/pkg/testutil"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func setupRepo(t *testing.T) *postgres.Repository {
	t.Helper()
	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateLedgerDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return postgres.New(db)
}

func TestProductRepo_CRUD(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	p := &models.Product{
		Code:                 "GEN-5KW",
		Name:                 "Generator 5kW",
		TotalOwned:           10,
		CurrentPhysicalStock: 10,
		PricePerDay:          decimal.RequireFromString("45.00"),
	}
	if err := repo.Products().Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Products().GetByCode(ctx, "gen-5kw")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if got == nil || got.ID != p.ID || got.Version != 1 {
		t.Fatalf("GetByCode mismatch: %+v", got)
	}

	got.CurrentPhysicalStock = 7
	if err := repo.Products().Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}

	// p still carries version 1
	p.CurrentPhysicalStock = 3
	if err := repo.Products().Update(ctx, p); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	reloaded, _ := repo.Products().GetByID(ctx, p.ID)
	if reloaded.CurrentPhysicalStock != 7 {
		t.Fatalf("stale update leaked: %+v", reloaded)
	}

	missing, err := repo.Products().GetByID(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing: %v %+v", err, missing)
	}

	ok, err := repo.Products().Delete(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: %v %v", ok, err)
	}
}

func TestProductRepo_NegativeStockRejected(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	p := &models.Product{Code: "LADDER", Name: "Ladder", TotalOwned: 2, CurrentPhysicalStock: 2}
	if err := repo.Products().Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	p.CurrentPhysicalStock = -1
	if err := repo.Products().Update(ctx, p); err == nil {
		t.Fatalf("expected check constraint violation")
	}
}

func TestOrderRepo_WithItems(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	cust := &models.Customer{Name: "Acme Events"}
	if err := repo.Customers().Create(ctx, cust); err != nil {
		t.Fatalf("Customer Create: %v", err)
	}
	p := &models.Product{Code: "TENT", Name: "Tent", TotalOwned: 5, CurrentPhysicalStock: 5}
	if err := repo.Products().Create(ctx, p); err != nil {
		t.Fatalf("Product Create: %v", err)
	}

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	ord := &models.Order{
		CustomerID:         cust.ID,
		RentalStartDate:    start,
		ExpectedReturnDate: start.AddDate(0, 0, 5),
		Status:             models.OrderStatusBooked,
	}

	err := repo.WithTx(ctx, func(tx repository.Repository) error {
		if err := tx.Orders().Create(ctx, ord); err != nil {
			return err
		}
		return tx.OrderItems().BulkCreate(ctx, []models.OrderItem{
			{OrderID: ord.ID, ProductID: p.ID, Quantity: 4},
		})
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	got, err := repo.Orders().GetByID(ctx, ord.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || len(got.Items) != 1 || got.Items[0].Quantity != 4 {
		t.Fatalf("order mismatch: %+v", got)
	}

	it := got.Items[0]
	it.ExportedQuantity = 4
	if err := repo.OrderItems().Update(ctx, &it); err != nil {
		t.Fatalf("item Update: %v", err)
	}
	it.ReturnedQuantity = 5
	if err := repo.OrderItems().Update(ctx, &it); err == nil {
		t.Fatalf("expected returned > quantity to violate constraint")
	}

	got.Status = models.OrderStatusActive
	if err := repo.Orders().Update(ctx, got); err != nil {
		t.Fatalf("order Update: %v", err)
	}

	ok, err := repo.Orders().Delete(ctx, ord.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: %v %v", ok, err)
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	p := &models.Product{Code: "DRILL", Name: "Drill", TotalOwned: 3, CurrentPhysicalStock: 3}
	if err := repo.Products().Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx repository.Repository) error {
		cur, err := tx.Products().GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		cur.CurrentPhysicalStock = 0
		if err := tx.Products().Update(ctx, cur); err != nil {
			return err
		}
		if err := tx.InventoryLogs().Append(ctx, &models.InventoryLog{
			ProductID: p.ID, ActionType: models.ActionAdjust, Quantity: 3, Timestamp: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := repo.Products().GetByID(ctx, p.ID)
	if got.CurrentPhysicalStock != 3 || got.Version != 1 {
		t.Fatalf("rollback failed: %+v", got)
	}
	logs, err := repo.InventoryLogs().List(ctx)
	if err != nil {
		t.Fatalf("List logs: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected no logs, got %d", len(logs))
	}
}
