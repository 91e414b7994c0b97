package service_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/models"
	"rental-inventory/internal/service"
	"rental-inventory/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestCreateOrder_Booked(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 10, "100")
	q := f.addProduct(t, "Q", 0, "40")
	cust := f.addCustomer(t, "Acme")

	special := decimal.NewFromInt(80)
	o, err := f.orders.CreateOrder(f.ctx, service.CreateOrderInput{
		CustomerID:         cust,
		RentalStartDate:    time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC),
		ExpectedReturnDate: day("2024-01-15"),
		Note:               "  wedding  ",
		Items: []service.CreateOrderItem{
			{ProductID: p.ID, Quantity: 4, PricePerDay: &special},
			externalLine(q.ID, 2, 11),
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.Status != models.OrderStatusBooked || o.Note != "wedding" {
		t.Fatalf("unexpected order: %+v", o)
	}
	if !o.RentalStartDate.Equal(day("2024-01-10")) {
		t.Fatalf("start date not truncated: %v", o.RentalStartDate)
	}
	// six rental days: 80*4*6 + 40*2*6
	if want := decimal.NewFromInt(2400); !o.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", o.TotalAmount, want)
	}
	if len(o.Items) != 2 || o.Items[0].ID == 0 || o.Items[1].SupplierID == nil || *o.Items[1].SupplierID != 11 {
		t.Fatalf("unexpected items: %+v", o.Items)
	}
	if !o.Items[1].PricePerDay.Equal(q.PricePerDay) {
		t.Fatalf("price should default to the product price")
	}

	got, err := f.orders.GetOrder(f.ctx, o.ID)
	if err != nil || len(got.Items) != 2 {
		t.Fatalf("GetOrder: %+v, %v", got, err)
	}
	if len(f.events.Statuses) != 1 || f.events.Statuses[0].To != string(models.OrderStatusBooked) {
		t.Fatalf("unexpected status events: %+v", f.events.Statuses)
	}
}

func TestCreateOrder_ChecksAvailability(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 10, "100")
	cust := f.addCustomer(t, "Acme")

	f.book(t, cust, "2024-01-10", "2024-01-15", line(p.ID, 8))

	_, err := f.orders.CreateOrder(f.ctx, service.CreateOrderInput{
		CustomerID:         cust,
		RentalStartDate:    day("2024-01-14"),
		ExpectedReturnDate: day("2024-01-20"),
		Items:              []service.CreateOrderItem{line(p.ID, 3)},
	})
	if !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "available 2") {
		t.Fatalf("error should carry the free amount: %v", err)
	}

	f.book(t, cust, "2024-01-16", "2024-01-20", line(p.ID, 10))
	f.book(t, cust, "2024-01-14", "2024-01-20", externalLine(p.ID, 30, 1))
	f.book(t, cust, "2024-01-14", "2024-01-14", line(p.ID, 2))

	if n := len(f.store.Snapshot().Orders()); n != 4 {
		t.Fatalf("expected 4 orders, got %d", n)
	}
}

func TestCreateOrder_MergesDuplicateLines(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 5, "10")
	cust := f.addCustomer(t, "Acme")
	s1, s2 := int64(1), int64(2)

	_, err := f.orders.CreateOrder(f.ctx, service.CreateOrderInput{
		CustomerID:         cust,
		RentalStartDate:    day("2024-01-10"),
		ExpectedReturnDate: day("2024-01-10"),
		Items: []service.CreateOrderItem{
			{ProductID: p.ID, Quantity: 3, SupplierID: &s1},
			{ProductID: p.ID, Quantity: 3, SupplierID: &s2},
		},
	})
	if !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("owned lines must be checked together, got %v", err)
	}

	q := f.addProduct(t, "Q", 0, "10")
	o := f.book(t, cust, "2024-01-10", "2024-01-10",
		line(p.ID, 2), line(p.ID, 1), externalLine(q.ID, 4, 1), externalLine(q.ID, 1, 1))
	if len(o.Items) != 2 {
		t.Fatalf("expected 2 lines after merge, got %+v", o.Items)
	}
	if o.Items[0].Quantity != 3 || o.Items[0].IsExternal {
		t.Fatalf("owned lines not merged: %+v", o.Items[0])
	}
	if o.Items[1].Quantity != 5 || !o.Items[1].IsExternal {
		t.Fatalf("same-supplier lines not merged: %+v", o.Items[1])
	}
}

func TestCreateOrder_RejectsMixedSourcesForOneProduct(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 5, "10")
	cust := f.addCustomer(t, "Acme")

	tests := []struct {
		name  string
		items []service.CreateOrderItem
	}{
		{"owned and sub-rented", []service.CreateOrderItem{line(p.ID, 2), externalLine(p.ID, 1, 7)}},
		{"sub-rented then owned", []service.CreateOrderItem{externalLine(p.ID, 1, 7), line(p.ID, 2)}},
		{"two suppliers", []service.CreateOrderItem{externalLine(p.ID, 1, 7), externalLine(p.ID, 1, 8)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(f.ctx, service.CreateOrderInput{
				CustomerID:         cust,
				RentalStartDate:    day("2024-01-10"),
				ExpectedReturnDate: day("2024-01-11"),
				Items:              tt.items,
			})
			if !errors.Is(err, service.ErrMixedLineSources) {
				t.Fatalf("expected ErrMixedLineSources, got %v", err)
			}
		})
	}
	if n := len(f.store.Snapshot().Orders()); n != 0 {
		t.Fatalf("rejected orders must not be stored, got %d", n)
	}
}

func TestCreateOrder_SeesBookingsFromAnotherProcess(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 10, "10")
	cust := f.addCustomer(t, "Acme")

	// A second process shares the repository but has its own store, loaded
	// before the first booking.
	other := store.New()
	if err := other.Refresh(f.ctx, f.repo); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	clk := clock.Fixed(f.now)
	otherOrders := service.NewOrderService(f.repo, other, clk, &MockEventBus{}, zap.NewNop())
	otherAvail := service.NewAvailabilityEngine(other)

	f.book(t, cust, "2024-01-10", "2024-01-15", line(p.ID, 8))

	in := func(qty int) service.CreateOrderInput {
		return service.CreateOrderInput{
			CustomerID:         cust,
			RentalStartDate:    day("2024-01-12"),
			ExpectedReturnDate: day("2024-01-20"),
			Items:              []service.CreateOrderItem{line(p.ID, qty)},
		}
	}
	if _, err := otherOrders.CreateOrder(f.ctx, in(8)); !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := otherOrders.CreateOrder(f.ctx, in(2)); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if n, _ := otherAvail.CheckAvailability(f.ctx, p.ID, day("2024-01-12"), day("2024-01-15")); n != 0 {
		t.Fatalf("second store should know both bookings, available %d", n)
	}
	if n, _ := otherAvail.CheckAvailability(f.ctx, p.ID, day("2024-01-16"), day("2024-01-20")); n != 8 {
		t.Fatalf("expected 8 available after the first booking ends, got %d", n)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 5, "10")
	cust := f.addCustomer(t, "Acme")

	tests := []struct {
		name string
		in   service.CreateOrderInput
		want error
	}{
		{"no items", service.CreateOrderInput{CustomerID: cust, RentalStartDate: day("2024-01-10"), ExpectedReturnDate: day("2024-01-11")}, service.ErrEmptyItems},
		{"return before start", service.CreateOrderInput{CustomerID: cust, RentalStartDate: day("2024-01-10"), ExpectedReturnDate: day("2024-01-09"), Items: []service.CreateOrderItem{line(p.ID, 1)}}, service.ErrInvalidDateRange},
		{"missing dates", service.CreateOrderInput{CustomerID: cust, Items: []service.CreateOrderItem{line(p.ID, 1)}}, service.ErrInvalidDateRange},
		{"zero quantity", service.CreateOrderInput{CustomerID: cust, RentalStartDate: day("2024-01-10"), ExpectedReturnDate: day("2024-01-11"), Items: []service.CreateOrderItem{line(p.ID, 0)}}, service.ErrInvalidQuantity},
		{"unknown customer", service.CreateOrderInput{CustomerID: 404, RentalStartDate: day("2024-01-10"), ExpectedReturnDate: day("2024-01-11"), Items: []service.CreateOrderItem{line(p.ID, 1)}}, service.ErrCustomerNotFound},
		{"unknown product", service.CreateOrderInput{CustomerID: cust, RentalStartDate: day("2024-01-10"), ExpectedReturnDate: day("2024-01-11"), Items: []service.CreateOrderItem{line(404, 1)}}, service.ErrProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.orders.CreateOrder(f.ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if n := len(f.store.Snapshot().Orders()); n != 0 {
		t.Fatalf("rejected orders must not be stored, got %d", n)
	}
}

func TestCreateOrder_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 5, "10")
	cust := f.addCustomer(t, "Acme")

	f.repo.FailCommit = func() error { return errors.New("connection reset") }
	_, err := f.orders.CreateOrder(f.ctx, service.CreateOrderInput{
		CustomerID:         cust,
		RentalStartDate:    day("2024-01-10"),
		ExpectedReturnDate: day("2024-01-11"),
		Items:              []service.CreateOrderItem{line(p.ID, 1)},
	})
	if !errors.Is(err, service.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if got := f.productNow(t, p.ID).Version; got != p.Version {
		t.Fatalf("store product changed on failed commit: version %d", got)
	}
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 5, "10")
	cust := f.addCustomer(t, "Acme")

	o := f.book(t, cust, "2024-01-10", "2024-01-11", line(p.ID, 5))
	got, err := f.orders.CancelOrder(f.ctx, o.ID, "customer called")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got.Status != models.OrderStatusCancelled || !strings.Contains(got.Note, "customer called") {
		t.Fatalf("unexpected order: %+v", got)
	}
	if avail, _ := f.avail.CheckAvailability(f.ctx, p.ID, day("2024-01-10"), day("2024-01-11")); avail != 5 {
		t.Fatalf("cancelled order still reserves units: %d", avail)
	}
	if _, err := f.orders.CancelOrder(f.ctx, o.ID, ""); !errors.Is(err, service.ErrOrderClosed) {
		t.Fatalf("expected ErrOrderClosed, got %v", err)
	}

	active := f.book(t, cust, "2024-01-10", "2024-01-11", line(p.ID, 1))
	if _, err := f.stock.ExportStock(f.ctx, active.ID, p.ID, 1, ""); err != nil {
		t.Fatalf("ExportStock: %v", err)
	}
	if _, err := f.orders.CancelOrder(f.ctx, active.ID, ""); !errors.Is(err, service.ErrOrderNotCancellable) {
		t.Fatalf("expected ErrOrderNotCancellable, got %v", err)
	}
	if _, err := f.orders.CancelOrder(f.ctx, 404, ""); !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 5, "10")
	o := f.book(t, f.addCustomer(t, "Acme"), "2024-01-10", "2024-01-11", line(p.ID, 1))

	if _, err := f.orders.DeleteOrder(f.ctx, o.ID); !errors.Is(err, service.ErrOrderNotDeletable) {
		t.Fatalf("expected ErrOrderNotDeletable, got %v", err)
	}
	if _, err := f.orders.CancelOrder(f.ctx, o.ID, ""); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	deleted, err := f.orders.DeleteOrder(f.ctx, o.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteOrder: %v, %v", deleted, err)
	}
	if _, err := f.orders.GetOrder(f.ctx, o.ID); !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if stored, _ := f.repo.Orders().GetByID(f.ctx, o.ID); stored != nil {
		t.Fatalf("order still in repository")
	}
}

func TestListOrders_Filters(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "P", 5, "10")
	q := f.addProduct(t, "Q", 5, "10")
	acme := f.addCustomer(t, "Acme")
	globex := f.addCustomer(t, "Globex")

	o1 := f.book(t, acme, "2024-01-01", "2024-01-05", line(p.ID, 1))
	f.book(t, acme, "2024-01-10", "2024-01-11", line(q.ID, 1))
	o3 := f.book(t, globex, "2024-01-10", "2024-01-11", line(p.ID, 1))
	if _, err := f.stock.ExportStock(f.ctx, o1.ID, p.ID, 1, ""); err != nil {
		t.Fatalf("ExportStock: %v", err)
	}

	list, _ := f.orders.ListOrders(f.ctx, service.OrderListFilter{ProductID: p.ID})
	if len(list) != 2 || list[0].ID != o1.ID || list[1].ID != o3.ID {
		t.Fatalf("product filter: %+v", list)
	}
	list, _ = f.orders.ListOrders(f.ctx, service.OrderListFilter{CustomerID: acme})
	if len(list) != 2 {
		t.Fatalf("customer filter: %d", len(list))
	}
	booked := models.OrderStatusBooked
	list, _ = f.orders.ListOrders(f.ctx, service.OrderListFilter{Status: &booked, CustomerID: acme})
	if len(list) != 1 {
		t.Fatalf("status filter: %d", len(list))
	}

	overdue, err := f.orders.ListOverdueOrders(f.ctx)
	if err != nil {
		t.Fatalf("ListOverdueOrders: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != o1.ID {
		t.Fatalf("expected the active order past its return date: %+v", overdue)
	}
}
