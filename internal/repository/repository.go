package repository

import (
	"context"
	"errors"

	"rental-inventory/internal/models"
)

var (
	// ErrConflict is returned by versioned updates when the stored row was
	// changed by someone else since it was read.
	ErrConflict = errors.New("concurrent modification")
	ErrNotFound = errors.New("record not found")
)

// Getters return (nil, nil) when the record does not exist.

type ProductRepo interface {
	List(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetByCode(ctx context.Context, code string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	// Update writes p if the stored version still equals p.Version and
	// bumps p.Version on success.
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int64) (bool, error)
}

type OrderRepo interface {
	// List and GetByID return orders with their items loaded.
	List(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	// Create inserts the order row only; items go through OrderItemRepo.
	Create(ctx context.Context, o *models.Order) error
	Update(ctx context.Context, o *models.Order) error
	// Delete removes the order together with its items.
	Delete(ctx context.Context, id int64) (bool, error)
}

type OrderItemRepo interface {
	BulkCreate(ctx context.Context, items []models.OrderItem) error
	Update(ctx context.Context, it *models.OrderItem) error
}

type CustomerRepo interface {
	List(ctx context.Context) ([]models.Customer, error)
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	Create(ctx context.Context, c *models.Customer) error
}

// InventoryLogRepo is append-only.
type InventoryLogRepo interface {
	Append(ctx context.Context, l *models.InventoryLog) error
	List(ctx context.Context) ([]models.InventoryLog, error)
}

// Repository is the persistence boundary of the ledger. Backends must make
// WithTx atomic: either every write issued through tx is applied or none is.
type Repository interface {
	Products() ProductRepo
	Orders() OrderRepo
	OrderItems() OrderItemRepo
	Customers() CustomerRepo
	InventoryLogs() InventoryLogRepo

	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
