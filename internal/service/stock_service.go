package service

import (
	"context"
	"time"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"
	"rental-inventory/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	notePhantomExport = "phantom export reconciled on return"
	noteAutoRestock   = "auto-restock on forced completion"
)

type stockService struct {
	repo   repository.Repository
	store  *store.Store
	clock  clock.Clock
	events EventBus
	log    *zap.Logger
}

func NewStockService(repo repository.Repository, st *store.Store, clk clock.Clock, events EventBus, log *zap.Logger) StockMutator {
	return &stockService{
		repo:   repo,
		store:  st,
		clock:  clk,
		events: events,
		log:    log,
	}
}

// mutation collects the rows one transaction changed so they can be written
// once each and published to the store after commit.
type mutation struct {
	products   map[int64]*models.Product
	dirty      map[int64]bool
	order      *models.Order
	orderDirty bool
	prevStatus models.OrderStatus
	items      map[int64]*models.OrderItem
	logs       []models.InventoryLog
}

func newMutation() *mutation {
	return &mutation{
		products: make(map[int64]*models.Product),
		dirty:    make(map[int64]bool),
		items:    make(map[int64]*models.OrderItem),
	}
}

func (m *mutation) product(ctx context.Context, tx repository.Repository, id int64) (*models.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	p, err := tx.Products().GetByID(ctx, id)
	if err != nil {
		return nil, persistence(err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	m.products[id] = p
	return p, nil
}

func (m *mutation) loadOrder(ctx context.Context, tx repository.Repository, id int64) error {
	ord, err := tx.Orders().GetByID(ctx, id)
	if err != nil {
		return persistence(err)
	}
	if ord == nil {
		return ErrOrderNotFound
	}
	m.order = ord
	m.prevStatus = ord.Status
	return nil
}

func (m *mutation) touchProduct(p *models.Product) {
	m.dirty[p.ID] = true
}

func (m *mutation) setStatus(s models.OrderStatus) {
	m.order.Status = s
	m.orderDirty = true
}

func (m *mutation) touchItem(it *models.OrderItem) {
	m.items[it.ID] = it
}

func (m *mutation) appendLog(l models.InventoryLog) {
	m.logs = append(m.logs, l)
}

// flush writes every collected row through tx.
func (m *mutation) flush(ctx context.Context, tx repository.Repository) error {
	for id := range m.dirty {
		if err := tx.Products().Update(ctx, m.products[id]); err != nil {
			return persistence(err)
		}
	}
	for _, it := range m.items {
		if err := tx.OrderItems().Update(ctx, it); err != nil {
			return persistence(err)
		}
	}
	if m.order != nil && m.orderDirty {
		if err := tx.Orders().Update(ctx, m.order); err != nil {
			return persistence(err)
		}
	}
	for i := range m.logs {
		if err := tx.InventoryLogs().Append(ctx, &m.logs[i]); err != nil {
			return persistence(err)
		}
	}
	return nil
}

func (m *mutation) changes() store.Changes {
	var ch store.Changes
	for id := range m.dirty {
		ch.Products = append(ch.Products, *m.products[id])
	}
	if m.order != nil {
		ch.Orders = []models.Order{m.order.Clone()}
	}
	ch.Logs = m.logs
	return ch
}

func (s *stockService) newLog(ctx context.Context, productID, orderID int64, action models.ActionType, qty int, note string, at time.Time) models.InventoryLog {
	return models.InventoryLog{
		ID:         uuid.New(),
		ProductID:  productID,
		OrderID:    orderID,
		ActionType: action,
		Quantity:   qty,
		Timestamp:  at,
		StaffName:  staffOrSystem(ctx),
		Note:       note,
	}
}

// commit runs fn in one repository transaction and, only if it committed,
// publishes the collected rows to the store and the event bus.
func (s *stockService) commit(ctx context.Context, fn func(tx repository.Repository, m *mutation) error) (*mutation, error) {
	var m *mutation
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		m = newMutation()
		if err := fn(tx, m); err != nil {
			return err
		}
		return m.flush(ctx, tx)
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.store.Apply(m.changes())
	s.publish(ctx, m)
	return m, nil
}

func (s *stockService) publish(ctx context.Context, m *mutation) {
	if s.events == nil {
		return
	}
	for _, l := range m.logs {
		stockAfter := 0
		if p, ok := m.products[l.ProductID]; ok {
			stockAfter = p.CurrentPhysicalStock
		}
		err := s.events.PublishInventoryLogged(ctx, InventoryLoggedEvent{
			LogID:      l.ID,
			ProductID:  l.ProductID,
			OrderID:    l.OrderID,
			ActionType: string(l.ActionType),
			Quantity:   l.Quantity,
			StockAfter: stockAfter,
			StaffName:  l.StaffName,
			Note:       l.Note,
			Timestamp:  l.Timestamp,
		})
		if err != nil {
			s.log.Warn("publish inventory event failed", zap.String("log_id", l.ID.String()), zap.Error(err))
		}
	}
	if m.order != nil && m.order.Status != m.prevStatus {
		err := s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
			OrderID:    m.order.ID,
			CustomerID: m.order.CustomerID,
			From:       string(m.prevStatus),
			To:         string(m.order.Status),
			StaffName:  staffOrSystem(ctx),
			ChangedAt:  m.order.UpdatedAt,
		})
		if err != nil {
			s.log.Warn("publish order status failed", zap.Int64("order_id", m.order.ID), zap.Error(err))
		}
	}
}

func (m *mutation) result(productID int64, phantom int) *StockResult {
	res := &StockResult{Logs: m.logs, PhantomQuantity: phantom}
	if p, ok := m.products[productID]; ok {
		res.Product = *p
	}
	if m.order != nil {
		res.Order = m.order.Clone()
	}
	return res
}

// lineFor loads the order, the product and the order line the product's
// stock events apply to, in that order of checks.
func (m *mutation) lineFor(ctx context.Context, tx repository.Repository, orderID, productID int64) (*models.Product, *models.OrderItem, error) {
	if err := m.loadOrder(ctx, tx, orderID); err != nil {
		return nil, nil, err
	}
	if !m.order.Status.IsOpen() {
		return nil, nil, ErrOrderClosed
	}
	p, err := m.product(ctx, tx, productID)
	if err != nil {
		return nil, nil, err
	}
	it := m.order.ItemForProduct(productID)
	if it == nil {
		return nil, nil, ErrOrderItemNotFound
	}
	return p, it, nil
}

func (s *stockService) ExportStock(ctx context.Context, orderID, productID int64, qty int, note string) (*StockResult, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	now := s.clock.Now()

	m, err := s.commit(ctx, func(tx repository.Repository, m *mutation) error {
		p, it, err := m.lineFor(ctx, tx, orderID, productID)
		if err != nil {
			return err
		}
		if it.ExportedQuantity+qty > it.Quantity {
			return ErrExceedsOrderedQuantity
		}

		// sub-rented units never pass through own stock
		if !it.IsExternal {
			if qty > p.CurrentPhysicalStock {
				return ErrInsufficientStock
			}
			p.CurrentPhysicalStock -= qty
			m.touchProduct(p)
		}

		it.ExportedQuantity += qty
		m.touchItem(it)
		m.appendLog(s.newLog(ctx, productID, orderID, models.ActionExport, qty, note, now))

		if m.order.Status == models.OrderStatusBooked {
			m.setStatus(models.OrderStatusActive)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock exported",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", productID),
		zap.Int("qty", qty))
	return m.result(productID, 0), nil
}

func (s *stockService) ImportStock(ctx context.Context, orderID, productID int64, qty int, note string) (*StockResult, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	now := s.clock.Now()
	staff := staffOrSystem(ctx)
	phantom := 0

	m, err := s.commit(ctx, func(tx repository.Repository, m *mutation) error {
		phantom = 0
		p, it, err := m.lineFor(ctx, tx, orderID, productID)
		if err != nil {
			return err
		}
		if it.ReturnedQuantity+qty > it.Quantity {
			return ErrExceedsOrderedQuantity
		}
		// Units coming back that were never recorded as going out: record
		// the missing export first so returned never exceeds exported.
		if excess := it.ReturnedQuantity + qty - it.ExportedQuantity; excess > 0 {
			phantom = excess
			if !it.IsExternal {
				p.CurrentPhysicalStock -= phantom
			}
			it.ExportedQuantity += phantom
			m.appendLog(s.newLog(ctx, productID, orderID, models.ActionAdjust, phantom, notePhantomExport, now))
			if m.order.Status == models.OrderStatusBooked {
				m.setStatus(models.OrderStatusActive)
			}
		}

		if !it.IsExternal {
			p.CurrentPhysicalStock += qty
			m.touchProduct(p)
		}
		it.ReturnedQuantity += qty
		if it.FullyReturned() {
			it.ReturnedAt = &now
			it.ReturnedBy = staff
		}
		m.touchItem(it)
		m.appendLog(s.newLog(ctx, productID, orderID, models.ActionImport, qty, note, now))

		if m.order.AllReturned() {
			complete(m, now, staff)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if phantom > 0 {
		s.log.Warn("phantom export reconciled",
			zap.Int64("order_id", orderID),
			zap.Int64("product_id", productID),
			zap.Int("phantom_qty", phantom))
	}
	s.log.Info("stock imported",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", productID),
		zap.Int("qty", qty),
		zap.String("order_status", string(m.order.Status)))
	return m.result(productID, phantom), nil
}

// complete closes the order and bills the elapsed rental days.
func complete(m *mutation, at time.Time, staff string) {
	actual := at
	m.setStatus(models.OrderStatusCompleted)
	m.order.ActualReturnDate = &actual
	m.order.CompletedBy = staff
	days := rentalDays(clock.Date(m.order.RentalStartDate), actual)
	m.order.FinalAmount = decimal.NewNullDecimal(amountFor(m.order.Items, days))
}

func (s *stockService) ForceCompleteOrder(ctx context.Context, orderID int64, staffName string) (*models.Order, error) {
	if staffName == "" {
		staffName = staffOrSystem(ctx)
	}
	ctx = WithStaff(ctx, staffName)
	now := s.clock.Now()
	restocked := 0

	m, err := s.commit(ctx, func(tx repository.Repository, m *mutation) error {
		restocked = 0
		if err := m.loadOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if !m.order.Status.IsOpen() {
			return ErrOrderClosed
		}

		for i := range m.order.Items {
			it := &m.order.Items[i]
			out := it.Outstanding()
			if it.IsExternal || out <= 0 {
				continue
			}
			p, err := m.product(ctx, tx, it.ProductID)
			if err != nil {
				return err
			}
			p.CurrentPhysicalStock += out
			m.touchProduct(p)
			it.ReturnedQuantity = it.ExportedQuantity
			it.ReturnedAt = &now
			it.ReturnedBy = staffName
			m.touchItem(it)
			m.appendLog(s.newLog(ctx, it.ProductID, orderID, models.ActionImport, out, noteAutoRestock, now))
			restocked += out
		}

		complete(m, now, staffName)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order force-completed",
		zap.Int64("order_id", orderID),
		zap.String("staff", staffName),
		zap.Int("restocked", restocked),
		zap.String("final_amount", m.order.FinalAmount.Decimal.String()))
	ord := m.order.Clone()
	return &ord, nil
}

func (s *stockService) UpdateProductStock(ctx context.Context, productID int64, newStock int, action models.ActionType, qty int, note string) (*models.Product, error) {
	if newStock < 0 || qty < 0 {
		return nil, ErrInvalidQuantity
	}
	if !action.Valid() {
		return nil, ErrInvalidActionType
	}
	now := s.clock.Now()

	m, err := s.commit(ctx, func(tx repository.Repository, m *mutation) error {
		p, err := m.product(ctx, tx, productID)
		if err != nil {
			return err
		}
		p.CurrentPhysicalStock = newStock
		m.touchProduct(p)
		m.appendLog(s.newLog(ctx, productID, 0, action, qty, note, now))
		return nil
	})
	if err != nil {
		return nil, err
	}

	p := *m.products[productID]
	return &p, nil
}
