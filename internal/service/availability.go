package service

import (
	"context"
	"time"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/models"
	"rental-inventory/internal/store"
)

// AvailabilityEngine answers how many owned units of a product are not yet
// promised to bookings overlapping a period. Physical stock is ignored so
// bookings can be taken ahead of returns.
type AvailabilityEngine struct {
	store *store.Store
}

func NewAvailabilityEngine(st *store.Store) *AvailabilityEngine {
	return &AvailabilityEngine{store: st}
}

func (e *AvailabilityEngine) CheckAvailability(ctx context.Context, productID int64, start, end time.Time) (int, error) {
	return e.CheckAvailabilityExcluding(ctx, productID, start, end, 0)
}

// CheckAvailabilityExcluding ignores the reservation held by excludeOrderID,
// which lets an existing order be re-validated against everybody else.
func (e *AvailabilityEngine) CheckAvailabilityExcluding(ctx context.Context, productID int64, start, end time.Time, excludeOrderID int64) (int, error) {
	start, end = clock.Date(start), clock.Date(end)
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}

	snap := e.store.Snapshot()
	p, ok := snap.Product(productID)
	if !ok {
		return 0, ErrProductNotFound
	}
	return available(snap, &p, start, end, excludeOrderID), nil
}

func available(snap *store.Snapshot, p *models.Product, start, end time.Time, excludeOrderID int64) int {
	reserved := 0
	snap.EachOpenOrder(func(o *models.Order) {
		if o.ID != excludeOrderID {
			reserved += reservedBy(o, p.ID, start, end)
		}
	})
	return max(0, p.TotalOwned-reserved)
}

// availableIn is available computed over orders read from the repository.
func availableIn(orders []models.Order, p *models.Product, start, end time.Time) int {
	reserved := 0
	for i := range orders {
		if orders[i].Status.IsOpen() {
			reserved += reservedBy(&orders[i], p.ID, start, end)
		}
	}
	return max(0, p.TotalOwned-reserved)
}

// reservedBy is the number of owned units of productID the order holds
// during [start, end].
func reservedBy(o *models.Order, productID int64, start, end time.Time) int {
	if !overlaps(o, start, end) {
		return 0
	}
	n := 0
	for _, it := range o.Items {
		if it.ProductID == productID && !it.IsExternal {
			n += it.Quantity
		}
	}
	return n
}
