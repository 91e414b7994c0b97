package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusBooked    OrderStatus = "BOOKED"
	OrderStatusActive    OrderStatus = "ACTIVE"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsOpen reports whether the order still holds a reservation on stock.
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusBooked || s == OrderStatusActive
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusBooked, OrderStatusActive, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type ActionType string

const (
	ActionExport ActionType = "EXPORT"
	ActionImport ActionType = "IMPORT"
	ActionAdjust ActionType = "ADJUST"
	ActionClean  ActionType = "CLEAN"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionExport, ActionImport, ActionAdjust, ActionClean:
		return true
	}
	return false
}

type Product struct {
	ID                   int64           `gorm:"primaryKey"`
	Code                 string          `gorm:"type:text;not null;uniqueIndex"`
	Name                 string          `gorm:"type:text;not null"`
	TotalOwned           int             `gorm:"not null;default:0"`
	CurrentPhysicalStock int             `gorm:"not null;default:0"`
	PricePerDay          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Version              int64           `gorm:"not null;default:1"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string { return "products" }

type Customer struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"type:text;not null"`
	Phone string `gorm:"type:text"`
	Email string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (Customer) TableName() string { return "customers" }

type Order struct {
	ID                 int64               `gorm:"primaryKey"`
	CustomerID         int64               `gorm:"not null;index"`
	RentalStartDate    time.Time           `gorm:"type:date;not null;index"`
	ExpectedReturnDate time.Time           `gorm:"type:date;not null;index"`
	ActualReturnDate   *time.Time          `gorm:"type:timestamptz"`
	Status             OrderStatus         `gorm:"type:text;not null;default:'BOOKED';index"`
	TotalAmount        decimal.Decimal     `gorm:"type:numeric(14,2);not null;default:0"`
	FinalAmount        decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	CompletedBy        string              `gorm:"type:text"`
	Note               string              `gorm:"type:text"`
	Version            int64               `gorm:"not null;default:1"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// ItemForProduct returns the line that stock events for productID apply to.
// Owned lines win over sub-rented lines of the same product.
func (o *Order) ItemForProduct(productID int64) *OrderItem {
	var external *OrderItem
	for i := range o.Items {
		it := &o.Items[i]
		if it.ProductID != productID {
			continue
		}
		if !it.IsExternal {
			return it
		}
		if external == nil {
			external = it
		}
	}
	return external
}

func (o *Order) AllReturned() bool {
	for _, it := range o.Items {
		if !it.FullyReturned() {
			return false
		}
	}
	return true
}

// Clone copies the order including its items slice.
func (o Order) Clone() Order {
	if o.Items != nil {
		items := make([]OrderItem, len(o.Items))
		copy(items, o.Items)
		o.Items = items
	}
	if o.ActualReturnDate != nil {
		t := *o.ActualReturnDate
		o.ActualReturnDate = &t
	}
	return o
}

type OrderItem struct {
	ID               int64           `gorm:"primaryKey"`
	OrderID          int64           `gorm:"not null;index"`
	ProductID        int64           `gorm:"not null;index"`
	Quantity         int             `gorm:"not null"`
	IsExternal       bool            `gorm:"not null;default:false"`
	SupplierID       *int64          `gorm:"index"`
	ExportedQuantity int             `gorm:"not null;default:0"`
	ReturnedQuantity int             `gorm:"not null;default:0"`
	PricePerDay      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	ReturnedAt       *time.Time      `gorm:"type:timestamptz"`
	ReturnedBy       string          `gorm:"type:text"`
	Version          int64           `gorm:"not null;default:1"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

// Outstanding is the number of units currently out with the customer.
func (it *OrderItem) Outstanding() int { return it.ExportedQuantity - it.ReturnedQuantity }

// PendingExport is the number of booked units not yet handed out.
func (it *OrderItem) PendingExport() int { return it.Quantity - it.ExportedQuantity }

func (it *OrderItem) FullyReturned() bool { return it.ReturnedQuantity >= it.Quantity }

type InventoryLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProductID  int64      `gorm:"not null;index"`
	OrderID    int64      `gorm:"not null;default:0;index"`
	ActionType ActionType `gorm:"type:text;not null;index"`
	Quantity   int        `gorm:"not null"`
	Timestamp  time.Time  `gorm:"not null;index"`
	StaffName  string     `gorm:"type:text"`
	Note       string     `gorm:"type:text"`
}

func (InventoryLog) TableName() string { return "inventory_logs" }
