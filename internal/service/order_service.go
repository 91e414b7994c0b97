package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"
	"rental-inventory/internal/store"

	"go.uber.org/zap"
)

type orderService struct {
	repo   repository.Repository
	store  *store.Store
	clock  clock.Clock
	events EventBus
	log    *zap.Logger

	// bookingMu serializes availability check, commit and store update of
	// bookings made through this process.
	bookingMu sync.Mutex
}

func NewOrderService(repo repository.Repository, st *store.Store, clk clock.Clock, events EventBus, log *zap.Logger) OrderService {
	return &orderService{
		repo:   repo,
		store:  st,
		clock:  clk,
		events: events,
		log:    log,
	}
}

type lineKey struct {
	isExternal bool
	supplierID int64
}

// mergeLines folds repeated lines for the same product into one. Owned lines
// of a product always merge, whatever supplier they name. Stock events
// address a line by product only, so a product may come from one source per
// order: owned stock or a single supplier.
func mergeLines(in []CreateOrderItem) ([]CreateOrderItem, error) {
	out := make([]CreateOrderItem, 0, len(in))
	index := make(map[int64]int, len(in))
	sources := make(map[int64]lineKey, len(in))
	for _, it := range in {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		k := lineKey{isExternal: it.IsExternal}
		if it.IsExternal && it.SupplierID != nil {
			k.supplierID = *it.SupplierID
		}
		if i, ok := index[it.ProductID]; ok {
			if sources[it.ProductID] != k {
				return nil, fmt.Errorf("%w: product %d", ErrMixedLineSources, it.ProductID)
			}
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		sources[it.ProductID] = k
		out = append(out, it)
	}
	return out, nil
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}
	start, end := clock.Date(in.RentalStartDate), clock.Date(in.ExpectedReturnDate)
	if in.RentalStartDate.IsZero() || in.ExpectedReturnDate.IsZero() || end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	lines, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}

	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()

	var (
		order   *models.Order
		touched []models.Product
		current []models.Order
	)

	err = s.repo.WithTx(ctx, func(tx repository.Repository) error {
		touched = touched[:0]

		cust, err := tx.Customers().GetByID(ctx, in.CustomerID)
		if err != nil {
			return persistence(err)
		}
		if cust == nil {
			return ErrCustomerNotFound
		}

		// Bump every owned product first: bookings of the same product
		// serialize on the row, and the orders read afterwards include
		// every booking committed before ours.
		products := make(map[int64]*models.Product, len(lines))
		for _, ln := range lines {
			if _, ok := products[ln.ProductID]; ok {
				continue
			}
			p, err := tx.Products().GetByID(ctx, ln.ProductID)
			if err != nil {
				return persistence(err)
			}
			if p == nil {
				return ErrProductNotFound
			}
			products[ln.ProductID] = p
		}
		owned := false
		for _, ln := range lines {
			if ln.IsExternal {
				continue
			}
			owned = true
			p := products[ln.ProductID]
			if err := tx.Products().Update(ctx, p); err != nil {
				return persistence(err)
			}
			touched = append(touched, *p)
		}

		current = nil
		if owned {
			if current, err = tx.Orders().List(ctx); err != nil {
				return persistence(err)
			}
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, ln := range lines {
			p := products[ln.ProductID]
			if !ln.IsExternal {
				if avail := availableIn(current, p, start, end); ln.Quantity > avail {
					return fmt.Errorf("%w: product %s requested %d, available %d",
						ErrUnavailable, p.Code, ln.Quantity, avail)
				}
			}

			price := p.PricePerDay
			if ln.PricePerDay != nil {
				price = *ln.PricePerDay
			}
			items = append(items, models.OrderItem{
				ProductID:   ln.ProductID,
				Quantity:    ln.Quantity,
				IsExternal:  ln.IsExternal,
				SupplierID:  ln.SupplierID,
				PricePerDay: price,
			})
		}

		order = &models.Order{
			CustomerID:         in.CustomerID,
			RentalStartDate:    start,
			ExpectedReturnDate: end,
			Status:             models.OrderStatusBooked,
			TotalAmount:        amountFor(items, rentalDays(start, end)),
			Note:               strings.TrimSpace(in.Note),
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return persistence(err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.OrderItems().BulkCreate(ctx, items); err != nil {
			return persistence(err)
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, persistence(err)
	}

	// Orders read inside the transaction also carry bookings other
	// processes made since the last refresh.
	s.store.Apply(store.Changes{Products: touched, Orders: append(current, *order)})
	s.publishStatus(ctx, order, "")
	s.log.Info("order booked",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", order.CustomerID),
		zap.Int("items", len(order.Items)),
		zap.String("total_amount", order.TotalAmount.String()))

	out := order.Clone()
	return &out, nil
}

func (s *orderService) publishStatus(ctx context.Context, o *models.Order, from models.OrderStatus) {
	if s.events == nil {
		return
	}
	err := s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		From:       string(from),
		To:         string(o.Status),
		StaffName:  staffOrSystem(ctx),
		ChangedAt:  o.UpdatedAt,
	})
	if err != nil {
		s.log.Warn("publish order status failed", zap.Int64("order_id", o.ID), zap.Error(err))
	}
}

func (s *orderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := s.store.Snapshot().Order(id)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (s *orderService) ListOrders(ctx context.Context, f OrderListFilter) ([]models.Order, error) {
	all := s.store.Snapshot().Orders()
	out := all[:0]
	for _, o := range all {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.CustomerID != 0 && o.CustomerID != f.CustomerID {
			continue
		}
		if f.ProductID != 0 && !hasProduct(&o, f.ProductID) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func hasProduct(o *models.Order, productID int64) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

// ListOverdueOrders returns active orders whose expected return date is
// before today.
func (s *orderService) ListOverdueOrders(ctx context.Context) ([]models.Order, error) {
	today := clock.Today(s.clock)
	active := models.OrderStatusActive
	list, err := s.ListOrders(ctx, OrderListFilter{Status: &active})
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, o := range list {
		if clock.Date(o.ExpectedReturnDate).Before(today) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *orderService) CancelOrder(ctx context.Context, id int64, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		o, err := tx.Orders().GetByID(ctx, id)
		if err != nil {
			return persistence(err)
		}
		if o == nil {
			return ErrOrderNotFound
		}
		switch o.Status {
		case models.OrderStatusBooked:
		case models.OrderStatusCompleted, models.OrderStatusCancelled:
			return ErrOrderClosed
		default:
			return ErrOrderNotCancellable
		}

		o.Status = models.OrderStatusCancelled
		if reason = strings.TrimSpace(reason); reason != "" {
			o.Note = strings.TrimSpace(o.Note + "\ncancelled: " + reason)
		}
		if err := tx.Orders().Update(ctx, o); err != nil {
			return persistence(err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.store.Apply(store.Changes{Orders: []models.Order{*order}})
	s.publishStatus(ctx, order, models.OrderStatusBooked)
	out := order.Clone()
	return &out, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		o, err := tx.Orders().GetByID(ctx, id)
		if err != nil {
			return persistence(err)
		}
		if o == nil {
			return ErrOrderNotFound
		}
		if o.Status != models.OrderStatusCancelled {
			return ErrOrderNotDeletable
		}
		deleted, err = tx.Orders().Delete(ctx, id)
		return persistence(err)
	})
	if err != nil {
		return false, persistence(err)
	}
	if deleted {
		s.store.Apply(store.Changes{DeletedOrders: []int64{id}})
	}
	return deleted, nil
}
