package postgres

import (
	"context"

	"rental-inventory/internal/repository"

	"gorm.io/gorm"
)

type Repository struct {
	DB *gorm.DB

	products      repository.ProductRepo
	orders        repository.OrderRepo
	orderItems    repository.OrderItemRepo
	customers     repository.CustomerRepo
	inventoryLogs repository.InventoryLogRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:            db,
		products:      NewProductRepo(db),
		orders:        NewOrderRepo(db),
		orderItems:    NewOrderItemRepo(db),
		customers:     NewCustomerRepo(db),
		inventoryLogs: NewInventoryLogRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

func (r *Repository) Products() repository.ProductRepo { return r.products }
func (r *Repository) Orders() repository.OrderRepo { return r.orders }
func (r *Repository) OrderItems() repository.OrderItemRepo { return r.orderItems }
func (r *Repository) Customers() repository.CustomerRepo { return r.customers }
func (r *Repository) InventoryLogs() repository.InventoryLogRepo { return r.inventoryLogs }

// WithTx runs fn against repositories bound to a single database
// transaction. Versioned updates inside fn return repository.ErrConflict on
// lost races, which rolls the whole transaction back.
func (r *Repository) WithTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
