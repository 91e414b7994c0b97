// Package store holds the read-side mirror of the ledger. Queries read an
// immutable Snapshot; confirmed writes are published as a new Snapshot.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"github.com/google/uuid"
)

type Snapshot struct {
	Generation uint64

	products  map[int64]models.Product
	orders    map[int64]models.Order
	customers map[int64]models.Customer
	logs      []models.InventoryLog
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		products:  map[int64]models.Product{},
		orders:    map[int64]models.Order{},
		customers: map[int64]models.Customer{},
	}
}

func (s *Snapshot) Product(id int64) (models.Product, bool) {
	p, ok := s.products[id]
	return p, ok
}

// Products are ordered by code.
func (s *Snapshot) Products() []models.Product {
	list := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}

func (s *Snapshot) Order(id int64) (models.Order, bool) {
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, false
	}
	return o.Clone(), true
}

// Orders are ordered by id.
func (s *Snapshot) Orders() []models.Order {
	list := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		list = append(list, o.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// EachOpenOrder calls fn for every BOOKED or ACTIVE order without copying.
// fn must not modify the order.
func (s *Snapshot) EachOpenOrder(fn func(o *models.Order)) {
	for id := range s.orders {
		o := s.orders[id]
		if o.Status.IsOpen() {
			fn(&o)
		}
	}
}

func (s *Snapshot) Customer(id int64) (models.Customer, bool) {
	c, ok := s.customers[id]
	return c, ok
}

func (s *Snapshot) Customers() []models.Customer {
	list := make([]models.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Logs returns the inventory log in append order.
func (s *Snapshot) Logs() []models.InventoryLog {
	list := make([]models.InventoryLog, len(s.logs))
	copy(list, s.logs)
	return list
}

// Changes is a batch of confirmed rows published atomically by Apply.
type Changes struct {
	Products        []models.Product
	DeletedProducts []int64
	Orders          []models.Order
	DeletedOrders   []int64
	Customers       []models.Customer
	Logs            []models.InventoryLog
}

func (c Changes) Empty() bool {
	return len(c.Products) == 0 && len(c.DeletedProducts) == 0 &&
		len(c.Orders) == 0 && len(c.DeletedOrders) == 0 &&
		len(c.Customers) == 0 && len(c.Logs) == 0
}

type Store struct {
	mu    sync.RWMutex
	snap  *Snapshot
	ready bool
}

func New() *Store {
	return &Store{snap: emptySnapshot()}
}

func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Generation changes every time a new snapshot is published.
func (s *Store) Generation() uint64 {
	return s.Snapshot().Generation
}

// Ready reports whether the store has been loaded from the repository once.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Store) Apply(ch Changes) {
	if ch.Empty() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.copyMaps()
	next.Generation = s.snap.Generation + 1

	// Commits can reach Apply out of order; an older row never replaces a
	// newer one.
	for _, p := range ch.Products {
		if have, ok := next.products[p.ID]; ok && have.Version > p.Version {
			continue
		}
		next.products[p.ID] = p
	}
	for _, id := range ch.DeletedProducts {
		delete(next.products, id)
	}
	for _, o := range ch.Orders {
		if have, ok := next.orders[o.ID]; ok && revision(&have) > revision(&o) {
			continue
		}
		next.orders[o.ID] = o.Clone()
	}
	for _, id := range ch.DeletedOrders {
		delete(next.orders, id)
	}
	for _, c := range ch.Customers {
		next.customers[c.ID] = c
	}
	if len(ch.Logs) > 0 {
		next.logs = append(s.snap.logs[:len(s.snap.logs):len(s.snap.logs)], ch.Logs...)
	}

	s.snap = next
}

func (s *Snapshot) copyMaps() *Snapshot {
	next := &Snapshot{
		products:  make(map[int64]models.Product, len(s.products)),
		orders:    make(map[int64]models.Order, len(s.orders)),
		customers: make(map[int64]models.Customer, len(s.customers)),
		logs:      s.logs,
	}
	for k, v := range s.products {
		next.products[k] = v
	}
	for k, v := range s.orders {
		next.orders[k] = v
	}
	for k, v := range s.customers {
		next.customers[k] = v
	}
	return next
}

// Refresh reloads every entity from repo. Rows published by Apply while the
// load was running are kept when they carry a newer version than the loaded
// copy.
func (s *Store) Refresh(ctx context.Context, repo repository.Repository) error {
	products, err := repo.Products().List(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	orders, err := repo.Orders().List(ctx)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	customers, err := repo.Customers().List(ctx)
	if err != nil {
		return fmt.Errorf("load customers: %w", err)
	}
	logs, err := repo.InventoryLogs().List(ctx)
	if err != nil {
		return fmt.Errorf("load inventory logs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap
	next := emptySnapshot()
	next.Generation = cur.Generation + 1

	for _, p := range products {
		if have, ok := cur.products[p.ID]; ok && have.Version > p.Version {
			p = have
		}
		next.products[p.ID] = p
	}
	for _, o := range orders {
		if have, ok := cur.orders[o.ID]; ok && revision(&have) > revision(&o) {
			o = have
		}
		next.orders[o.ID] = o.Clone()
	}
	for _, c := range customers {
		next.customers[c.ID] = c
	}

	seen := make(map[uuid.UUID]struct{}, len(logs))
	for _, l := range logs {
		seen[l.ID] = struct{}{}
	}
	for _, l := range cur.logs {
		if _, ok := seen[l.ID]; !ok {
			logs = append(logs, l)
		}
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.Before(logs[j].Timestamp) })
	next.logs = logs

	s.snap = next
	s.ready = true
	return nil
}

// revision grows with every write to the order row or any of its items.
func revision(o *models.Order) int64 {
	rev := o.Version
	for _, it := range o.Items {
		rev += it.Version
	}
	return rev
}
