package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/models"
	"rental-inventory/internal/repository/memory"
	"rental-inventory/internal/service"
	"rental-inventory/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MockEventBus records published events. PublishErr, when set, is returned
// from every call after recording.
type MockEventBus struct {
	mu         sync.Mutex
	Inventory  []service.InventoryLoggedEvent
	Statuses   []service.OrderStatusChangedEvent
	PublishErr error
}

func (m *MockEventBus) PublishInventoryLogged(ctx context.Context, e service.InventoryLoggedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inventory = append(m.Inventory, e)
	return m.PublishErr
}

func (m *MockEventBus) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses = append(m.Statuses, e)
	return m.PublishErr
}

type fixture struct {
	ctx    context.Context
	now    time.Time
	repo   *memory.Repository
	store  *store.Store
	events *MockEventBus

	catalog  service.CatalogService
	orders   service.OrderService
	stock    service.StockMutator
	avail    *service.AvailabilityEngine
	forecast *service.ForecastEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		now:    time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		repo:   memory.New(),
		store:  store.New(),
		events: &MockEventBus{},
	}
	clk := clock.Func(func() time.Time { return f.now })
	log := zap.NewNop()

	f.catalog = service.NewCatalogService(f.repo, f.store, clk, log)
	f.orders = service.NewOrderService(f.repo, f.store, clk, f.events, log)
	f.stock = service.NewStockService(f.repo, f.store, clk, f.events, log)
	f.avail = service.NewAvailabilityEngine(f.store)
	f.forecast = service.NewForecastEngine(f.store, clk, log)
	return f
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func (f *fixture) addProduct(t *testing.T, code string, owned int, price string) *models.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(f.ctx, service.ProductInput{
		Code:        code,
		Name:        code,
		TotalOwned:  owned,
		PricePerDay: decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("CreateProduct %s: %v", code, err)
	}
	return p
}

func (f *fixture) addCustomer(t *testing.T, name string) int64 {
	t.Helper()
	c, err := f.catalog.CreateCustomer(f.ctx, service.CustomerInput{Name: name})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	return c.ID
}

func (f *fixture) book(t *testing.T, customerID int64, start, end string, items ...service.CreateOrderItem) *models.Order {
	t.Helper()
	o, err := f.orders.CreateOrder(f.ctx, service.CreateOrderInput{
		CustomerID:         customerID,
		RentalStartDate:    day(start),
		ExpectedReturnDate: day(end),
		Items:              items,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return o
}

func (f *fixture) productNow(t *testing.T, id int64) models.Product {
	t.Helper()
	p, ok := f.store.Snapshot().Product(id)
	if !ok {
		t.Fatalf("product %d missing from store", id)
	}
	return p
}

func (f *fixture) orderNow(t *testing.T, id int64) models.Order {
	t.Helper()
	o, ok := f.store.Snapshot().Order(id)
	if !ok {
		t.Fatalf("order %d missing from store", id)
	}
	return o
}

func line(productID int64, qty int) service.CreateOrderItem {
	return service.CreateOrderItem{ProductID: productID, Quantity: qty}
}

func externalLine(productID int64, qty int, supplierID int64) service.CreateOrderItem {
	return service.CreateOrderItem{ProductID: productID, Quantity: qty, IsExternal: true, SupplierID: &supplierID}
}

// assertCounters checks returned <= exported <= quantity on every line.
func assertCounters(t *testing.T, o models.Order) {
	t.Helper()
	for _, it := range o.Items {
		if it.ReturnedQuantity > it.ExportedQuantity || it.ExportedQuantity > it.Quantity {
			t.Fatalf("item %d counters broken: quantity=%d exported=%d returned=%d",
				it.ID, it.Quantity, it.ExportedQuantity, it.ReturnedQuantity)
		}
	}
}
