package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/models"
	"rental-inventory/internal/store"

	"go.uber.org/zap"
)

const maxForecastDays = 366

// ForecastEngine projects physical stock forward using scheduled exports
// and returns of open orders.
type ForecastEngine struct {
	store    *store.Store
	clock    clock.Clock
	cache    ForecastCache
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewForecastEngine(st *store.Store, clk clock.Clock, log *zap.Logger) *ForecastEngine {
	return &ForecastEngine{store: st, clock: clk, log: log}
}

// WithCache enables caching of GetAllProductsForecast results.
func (e *ForecastEngine) WithCache(c ForecastCache, ttl time.Duration) *ForecastEngine {
	e.cache = c
	e.cacheTTL = ttl
	return e
}

func (e *ForecastEngine) GetForecastStockForDate(ctx context.Context, productID int64, date time.Time) (*Forecast, error) {
	snap := e.store.Snapshot()
	p, ok := snap.Product(productID)
	if !ok {
		return nil, ErrProductNotFound
	}
	f := forecastFor(snap, &p, clock.Date(date), clock.Today(e.clock))
	return &f, nil
}

// GetForecastStockRange evaluates the forecast for start and the following
// days-1 days. Every day is projected from today's physical stock.
func (e *ForecastEngine) GetForecastStockRange(ctx context.Context, productID int64, start time.Time, days int) ([]ForecastDay, error) {
	if days < 1 || days > maxForecastDays {
		return nil, ErrInvalidDateRange
	}

	snap := e.store.Snapshot()
	p, ok := snap.Product(productID)
	if !ok {
		return nil, ErrProductNotFound
	}

	today := clock.Today(e.clock)
	start = clock.Date(start)
	series := make([]ForecastDay, 0, days)
	for i := 0; i < days; i++ {
		f := forecastFor(snap, &p, start.AddDate(0, 0, i), today)
		series = append(series, ForecastDay{
			Date:            f.Date,
			PhysicalStock:   f.PhysicalStock,
			ForecastStock:   f.ForecastStock,
			ExpectedReturns: f.ExpectedReturns,
			ExpectedExports: f.ExpectedExports,
		})
	}
	return series, nil
}

// GetAllProductsForecast returns one forecast per product ordered by code.
func (e *ForecastEngine) GetAllProductsForecast(ctx context.Context, date time.Time) ([]Forecast, error) {
	snap := e.store.Snapshot()
	date = clock.Date(date)
	today := clock.Today(e.clock)

	key := fmt.Sprintf("forecast:all:%d:%s:%s", snap.Generation, date.Format(time.DateOnly), today.Format(time.DateOnly))
	if e.cache != nil {
		var cached []Forecast
		hit, err := e.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			e.log.Warn("forecast cache read failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	products := snap.Products()
	out := make([]Forecast, 0, len(products))
	for i := range products {
		out = append(out, forecastFor(snap, &products[i], date, today))
	}

	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, key, out, e.cacheTTL); err != nil {
			e.log.Warn("forecast cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

// forecastFor splits the pending work of open orders into exports scheduled
// between today and date and returns due by date. Exports whose start date
// already passed are not counted.
func forecastFor(snap *store.Snapshot, p *models.Product, date, today time.Time) Forecast {
	f := Forecast{
		ProductID:     p.ID,
		ProductCode:   p.Code,
		Date:          date,
		PhysicalStock: p.CurrentPhysicalStock,
	}

	snap.EachOpenOrder(func(o *models.Order) {
		start := clock.Date(o.RentalStartDate)
		due := clock.Date(o.ExpectedReturnDate)

		for _, it := range o.Items {
			if it.ProductID != p.ID || it.IsExternal {
				continue
			}
			if n := it.PendingExport(); n > 0 && !start.Before(today) && !start.After(date) {
				f.ExpectedExports += n
				f.Breakdown = append(f.Breakdown, entry(snap, o, ForecastExport, n, start))
			}
			if n := it.Outstanding(); n > 0 && !due.After(date) {
				f.ExpectedReturns += n
				f.Breakdown = append(f.Breakdown, entry(snap, o, ForecastReturn, n, due))
			}
		}
	})

	f.ForecastStock = max(0, f.PhysicalStock+f.ExpectedReturns-f.ExpectedExports)
	sort.Slice(f.Breakdown, func(i, j int) bool {
		a, b := f.Breakdown[i], f.Breakdown[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.OrderID < b.OrderID
	})
	return f
}

func entry(snap *store.Snapshot, o *models.Order, typ ForecastEntryType, qty int, date time.Time) ForecastEntry {
	e := ForecastEntry{Type: typ, OrderID: o.ID, Quantity: qty, Date: date}
	if c, ok := snap.Customer(o.CustomerID); ok {
		e.CustomerName = c.Name
	}
	return e
}
