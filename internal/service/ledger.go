package service

import (
	"context"
	"time"

	"rental-inventory/internal/models"

	"github.com/shopspring/decimal"
)

type ForecastEntryType string

const (
	ForecastExport ForecastEntryType = "export"
	ForecastReturn ForecastEntryType = "return"
)

type ForecastEntry struct {
	Type         ForecastEntryType
	OrderID      int64
	Quantity     int
	Date         time.Time
	CustomerName string
}

type Forecast struct {
	ProductID       int64
	ProductCode     string
	Date            time.Time
	PhysicalStock   int
	ExpectedReturns int
	ExpectedExports int
	ForecastStock   int
	Breakdown       []ForecastEntry
}

type ForecastDay struct {
	Date            time.Time
	PhysicalStock   int
	ForecastStock   int
	ExpectedReturns int
	ExpectedExports int
}

// StockResult is what a stock mutation committed.
type StockResult struct {
	Product         models.Product
	Order           models.Order
	Logs            []models.InventoryLog
	PhantomQuantity int
}

type StockMutator interface {
	ExportStock(ctx context.Context, orderID, productID int64, qty int, note string) (*StockResult, error)
	ImportStock(ctx context.Context, orderID, productID int64, qty int, note string) (*StockResult, error)
	ForceCompleteOrder(ctx context.Context, orderID int64, staffName string) (*models.Order, error)
	UpdateProductStock(ctx context.Context, productID int64, newStock int, action models.ActionType, qty int, note string) (*models.Product, error)
}

type CreateOrderItem struct {
	ProductID  int64
	Quantity   int
	IsExternal bool
	SupplierID *int64
	// PricePerDay overrides the product's price when set.
	PricePerDay *decimal.Decimal
}

type CreateOrderInput struct {
	CustomerID         int64
	RentalStartDate    time.Time
	ExpectedReturnDate time.Time
	Note               string
	Items              []CreateOrderItem
}

type OrderListFilter struct {
	Status     *models.OrderStatus
	CustomerID int64
	ProductID  int64
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, f OrderListFilter) ([]models.Order, error)
	ListOverdueOrders(ctx context.Context) ([]models.Order, error)
	CancelOrder(ctx context.Context, id int64, reason string) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int64) (bool, error)
}

type ProductInput struct {
	Code       string
	Name       string
	TotalOwned int
	// InitialStock defaults to TotalOwned.
	InitialStock *int
	PricePerDay  decimal.Decimal
}

type ProductPatch struct {
	Code        *string
	Name        *string
	TotalOwned  *int
	PricePerDay *decimal.Decimal
}

type CustomerInput struct {
	Name  string
	Phone string
	Email string
}

type LogFilter struct {
	ProductID int64
	OrderID   int64
	Limit     int
}

type CatalogService interface {
	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)

	CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)

	// ListInventoryLogs returns matching entries newest first.
	ListInventoryLogs(ctx context.Context, f LogFilter) ([]models.InventoryLog, error)
}
