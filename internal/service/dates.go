package service

import (
	"math"
	"time"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/models"

	"github.com/shopspring/decimal"
)

// overlaps reports whether the order's rental interval intersects
// [start, end], comparing calendar dates.
func overlaps(o *models.Order, start, end time.Time) bool {
	return !clock.Date(o.RentalStartDate).After(end) && !clock.Date(o.ExpectedReturnDate).Before(start)
}

// rentalDays counts started days between from and to, inclusive of the
// first day: the same calendar day is one day.
func rentalDays(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours()/24)) + 1
}

func amountFor(items []models.OrderItem, days int) decimal.Decimal {
	total := decimal.Zero
	n := decimal.NewFromInt(int64(days))
	for _, it := range items {
		total = total.Add(it.PricePerDay.Mul(decimal.NewFromInt(int64(it.Quantity))).Mul(n))
	}
	return total
}
