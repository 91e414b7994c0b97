// Package memory is a process-local Repository used by tests, demos and the
// "memory" backend. Transactions work on a private copy of the data that is
// swapped in on commit, so a failed transaction leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	products  map[int64]models.Product
	orders    map[int64]models.Order // items live in items
	items     map[int64]models.OrderItem
	customers map[int64]models.Customer
	logs      []models.InventoryLog

	productSeq  int64
	orderSeq    int64
	itemSeq     int64
	customerSeq int64
}

func newState() *state {
	return &state{
		products:  make(map[int64]models.Product),
		orders:    make(map[int64]models.Order),
		items:     make(map[int64]models.OrderItem),
		customers: make(map[int64]models.Customer),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:    make(map[int64]models.Product, len(s.products)),
		orders:      make(map[int64]models.Order, len(s.orders)),
		items:       make(map[int64]models.OrderItem, len(s.items)),
		customers:   make(map[int64]models.Customer, len(s.customers)),
		logs:        make([]models.InventoryLog, len(s.logs)),
		productSeq:  s.productSeq,
		orderSeq:    s.orderSeq,
		itemSeq:     s.itemSeq,
		customerSeq: s.customerSeq,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	copy(c.logs, s.logs)
	return c
}

type Repository struct {
	mu   *sync.Mutex
	st   *state
	inTx bool

	// FailCommit, when set, makes every transaction fail with the returned
	// error after fn succeeded. Used to exercise rollback paths.
	FailCommit func() error
}

func New() *Repository {
	return &Repository{mu: &sync.Mutex{}, st: newState()}
}

func (r *Repository) lock() {
	if !r.inTx {
		r.mu.Lock()
	}
}

func (r *Repository) unlock() {
	if !r.inTx {
		r.mu.Unlock()
	}
}

func (r *Repository) Products() repository.ProductRepo { return productRepo{r} }
func (r *Repository) Orders() repository.OrderRepo { return orderRepo{r} }
func (r *Repository) OrderItems() repository.OrderItemRepo { return orderItemRepo{r} }
func (r *Repository) Customers() repository.CustomerRepo { return customerRepo{r} }
func (r *Repository) InventoryLogs() repository.InventoryLogRepo { return inventoryLogRepo{r} }

// WithTx serializes transactions: the repository mutex is held for the whole
// of fn, which runs against a cloned state.
func (r *Repository) WithTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &Repository{mu: r.mu, st: r.st.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if r.FailCommit != nil {
		if err := r.FailCommit(); err != nil {
			return err
		}
	}
	r.st = tx.st
	return nil
}

type productRepo struct{ r *Repository }

func (p productRepo) List(ctx context.Context) ([]models.Product, error) {
	p.r.lock()
	defer p.r.unlock()
	list := make([]models.Product, 0, len(p.r.st.products))
	for _, v := range p.r.st.products {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func (p productRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	p.r.lock()
	defer p.r.unlock()
	v, ok := p.r.st.products[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (p productRepo) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	p.r.lock()
	defer p.r.unlock()
	for _, v := range p.r.st.products {
		if strings.EqualFold(v.Code, code) {
			return &v, nil
		}
	}
	return nil, nil
}

func (p productRepo) Create(ctx context.Context, prod *models.Product) error {
	p.r.lock()
	defer p.r.unlock()
	for _, v := range p.r.st.products {
		if strings.EqualFold(v.Code, prod.Code) {
			return repository.ErrConflict
		}
	}
	p.r.st.productSeq++
	now := time.Now()
	prod.ID = p.r.st.productSeq
	prod.Version = 1
	prod.CreatedAt, prod.UpdatedAt = now, now
	p.r.st.products[prod.ID] = *prod
	return nil
}

func (p productRepo) Update(ctx context.Context, prod *models.Product) error {
	p.r.lock()
	defer p.r.unlock()
	cur, ok := p.r.st.products[prod.ID]
	if !ok || cur.Version != prod.Version {
		return repository.ErrConflict
	}
	prod.Version++
	prod.UpdatedAt = time.Now()
	p.r.st.products[prod.ID] = *prod
	return nil
}

func (p productRepo) Delete(ctx context.Context, id int64) (bool, error) {
	p.r.lock()
	defer p.r.unlock()
	if _, ok := p.r.st.products[id]; !ok {
		return false, nil
	}
	delete(p.r.st.products, id)
	return true, nil
}

type orderRepo struct{ r *Repository }

func (o orderRepo) withItems(ord models.Order) models.Order {
	ord.Items = nil
	for _, it := range o.r.st.items {
		if it.OrderID == ord.ID {
			ord.Items = append(ord.Items, it)
		}
	}
	sort.Slice(ord.Items, func(i, j int) bool { return ord.Items[i].ID < ord.Items[j].ID })
	return ord
}

func (o orderRepo) List(ctx context.Context) ([]models.Order, error) {
	o.r.lock()
	defer o.r.unlock()
	list := make([]models.Order, 0, len(o.r.st.orders))
	for _, v := range o.r.st.orders {
		list = append(list, o.withItems(v))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (o orderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	o.r.lock()
	defer o.r.unlock()
	v, ok := o.r.st.orders[id]
	if !ok {
		return nil, nil
	}
	ord := o.withItems(v)
	return &ord, nil
}

func (o orderRepo) Create(ctx context.Context, ord *models.Order) error {
	o.r.lock()
	defer o.r.unlock()
	o.r.st.orderSeq++
	now := time.Now()
	ord.ID = o.r.st.orderSeq
	ord.Version = 1
	ord.CreatedAt, ord.UpdatedAt = now, now
	row := ord.Clone()
	row.Items = nil
	o.r.st.orders[ord.ID] = row
	return nil
}

func (o orderRepo) Update(ctx context.Context, ord *models.Order) error {
	o.r.lock()
	defer o.r.unlock()
	cur, ok := o.r.st.orders[ord.ID]
	if !ok || cur.Version != ord.Version {
		return repository.ErrConflict
	}
	ord.Version++
	ord.UpdatedAt = time.Now()
	row := ord.Clone()
	row.Items = nil
	o.r.st.orders[ord.ID] = row
	return nil
}

func (o orderRepo) Delete(ctx context.Context, id int64) (bool, error) {
	o.r.lock()
	defer o.r.unlock()
	if _, ok := o.r.st.orders[id]; !ok {
		return false, nil
	}
	delete(o.r.st.orders, id)
	for itemID, it := range o.r.st.items {
		if it.OrderID == id {
			delete(o.r.st.items, itemID)
		}
	}
	return true, nil
}

type orderItemRepo struct{ r *Repository }

func (o orderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	o.r.lock()
	defer o.r.unlock()
	now := time.Now()
	for i := range items {
		if _, ok := o.r.st.orders[items[i].OrderID]; !ok {
			return repository.ErrNotFound
		}
		o.r.st.itemSeq++
		items[i].ID = o.r.st.itemSeq
		items[i].Version = 1
		items[i].CreatedAt, items[i].UpdatedAt = now, now
		o.r.st.items[items[i].ID] = items[i]
	}
	return nil
}

func (o orderItemRepo) Update(ctx context.Context, it *models.OrderItem) error {
	o.r.lock()
	defer o.r.unlock()
	cur, ok := o.r.st.items[it.ID]
	if !ok || cur.Version != it.Version {
		return repository.ErrConflict
	}
	it.Version++
	it.UpdatedAt = time.Now()
	o.r.st.items[it.ID] = *it
	return nil
}

type customerRepo struct{ r *Repository }

func (c customerRepo) List(ctx context.Context) ([]models.Customer, error) {
	c.r.lock()
	defer c.r.unlock()
	list := make([]models.Customer, 0, len(c.r.st.customers))
	for _, v := range c.r.st.customers {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (c customerRepo) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	c.r.lock()
	defer c.r.unlock()
	v, ok := c.r.st.customers[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (c customerRepo) Create(ctx context.Context, cust *models.Customer) error {
	c.r.lock()
	defer c.r.unlock()
	c.r.st.customerSeq++
	cust.ID = c.r.st.customerSeq
	cust.CreatedAt = time.Now()
	c.r.st.customers[cust.ID] = *cust
	return nil
}

type inventoryLogRepo struct{ r *Repository }

func (l inventoryLogRepo) Append(ctx context.Context, entry *models.InventoryLog) error {
	l.r.lock()
	defer l.r.unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	l.r.st.logs = append(l.r.st.logs, *entry)
	return nil
}

func (l inventoryLogRepo) List(ctx context.Context) ([]models.InventoryLog, error) {
	l.r.lock()
	defer l.r.unlock()
	list := make([]models.InventoryLog, len(l.r.st.logs))
	copy(list, l.r.st.logs)
	return list, nil
}
