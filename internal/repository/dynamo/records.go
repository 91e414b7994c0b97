package dynamo

import (
	"time"

	"rental-inventory/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Money is stored as decimal strings so no precision is lost in N attributes.

type productRecord struct {
	ID                   int64     `dynamodbav:"id"`
	Code                 string    `dynamodbav:"code"`
	Name                 string    `dynamodbav:"name"`
	TotalOwned           int       `dynamodbav:"total_owned"`
	CurrentPhysicalStock int       `dynamodbav:"current_physical_stock"`
	PricePerDay          string    `dynamodbav:"price_per_day"`
	Version              int64     `dynamodbav:"version"`
	CreatedAt            time.Time `dynamodbav:"created_at"`
	UpdatedAt            time.Time `dynamodbav:"updated_at"`
}

func toProductRecord(p *models.Product) productRecord {
	return productRecord{
		ID:                   p.ID,
		Code:                 p.Code,
		Name:                 p.Name,
		TotalOwned:           p.TotalOwned,
		CurrentPhysicalStock: p.CurrentPhysicalStock,
		PricePerDay:          p.PricePerDay.String(),
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func (r productRecord) model() models.Product {
	return models.Product{
		ID:                   r.ID,
		Code:                 r.Code,
		Name:                 r.Name,
		TotalOwned:           r.TotalOwned,
		CurrentPhysicalStock: r.CurrentPhysicalStock,
		PricePerDay:          parseDecimal(r.PricePerDay),
		Version:              r.Version,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type productCodeRecord struct {
	Code      string `dynamodbav:"code"`
	ProductID int64  `dynamodbav:"product_id"`
}

type customerRecord struct {
	ID        int64     `dynamodbav:"id"`
	Name      string    `dynamodbav:"name"`
	Phone     string    `dynamodbav:"phone,omitempty"`
	Email     string    `dynamodbav:"email,omitempty"`
	CreatedAt time.Time `dynamodbav:"created_at"`
}

type orderRecord struct {
	ID                 int64      `dynamodbav:"id"`
	CustomerID         int64      `dynamodbav:"customer_id"`
	RentalStartDate    time.Time  `dynamodbav:"rental_start_date"`
	ExpectedReturnDate time.Time  `dynamodbav:"expected_return_date"`
	ActualReturnDate   *time.Time `dynamodbav:"actual_return_date,omitempty"`
	Status             string     `dynamodbav:"status"`
	TotalAmount        string     `dynamodbav:"total_amount"`
	FinalAmount        string     `dynamodbav:"final_amount,omitempty"`
	CompletedBy        string     `dynamodbav:"completed_by,omitempty"`
	Note               string     `dynamodbav:"note,omitempty"`
	Version            int64      `dynamodbav:"version"`
	CreatedAt          time.Time  `dynamodbav:"created_at"`
	UpdatedAt          time.Time  `dynamodbav:"updated_at"`
}

func toOrderRecord(o *models.Order) orderRecord {
	rec := orderRecord{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		RentalStartDate:    o.RentalStartDate,
		ExpectedReturnDate: o.ExpectedReturnDate,
		ActualReturnDate:   o.ActualReturnDate,
		Status:             string(o.Status),
		TotalAmount:        o.TotalAmount.String(),
		CompletedBy:        o.CompletedBy,
		Note:               o.Note,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if o.FinalAmount.Valid {
		rec.FinalAmount = o.FinalAmount.Decimal.String()
	}
	return rec
}

func (r orderRecord) model() models.Order {
	o := models.Order{
		ID:                 r.ID,
		CustomerID:         r.CustomerID,
		RentalStartDate:    r.RentalStartDate,
		ExpectedReturnDate: r.ExpectedReturnDate,
		ActualReturnDate:   r.ActualReturnDate,
		Status:             models.OrderStatus(r.Status),
		TotalAmount:        parseDecimal(r.TotalAmount),
		CompletedBy:        r.CompletedBy,
		Note:               r.Note,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.FinalAmount != "" {
		o.FinalAmount = decimal.NewNullDecimal(parseDecimal(r.FinalAmount))
	}
	return o
}

type orderItemRecord struct {
	OrderID          int64      `dynamodbav:"order_id"`
	ID               int64      `dynamodbav:"id"`
	ProductID        int64      `dynamodbav:"product_id"`
	Quantity         int        `dynamodbav:"quantity"`
	IsExternal       bool       `dynamodbav:"is_external"`
	SupplierID       *int64     `dynamodbav:"supplier_id,omitempty"`
	ExportedQuantity int        `dynamodbav:"exported_quantity"`
	ReturnedQuantity int        `dynamodbav:"returned_quantity"`
	PricePerDay      string     `dynamodbav:"price_per_day"`
	ReturnedAt       *time.Time `dynamodbav:"returned_at,omitempty"`
	ReturnedBy       string     `dynamodbav:"returned_by,omitempty"`
	Version          int64      `dynamodbav:"version"`
	CreatedAt        time.Time  `dynamodbav:"created_at"`
	UpdatedAt        time.Time  `dynamodbav:"updated_at"`
}

func toOrderItemRecord(it *models.OrderItem) orderItemRecord {
	return orderItemRecord{
		OrderID:          it.OrderID,
		ID:               it.ID,
		ProductID:        it.ProductID,
		Quantity:         it.Quantity,
		IsExternal:       it.IsExternal,
		SupplierID:       it.SupplierID,
		ExportedQuantity: it.ExportedQuantity,
		ReturnedQuantity: it.ReturnedQuantity,
		PricePerDay:      it.PricePerDay.String(),
		ReturnedAt:       it.ReturnedAt,
		ReturnedBy:       it.ReturnedBy,
		Version:          it.Version,
		CreatedAt:        it.CreatedAt,
		UpdatedAt:        it.UpdatedAt,
	}
}

func (r orderItemRecord) model() models.OrderItem {
	return models.OrderItem{
		ID:               r.ID,
		OrderID:          r.OrderID,
		ProductID:        r.ProductID,
		Quantity:         r.Quantity,
		IsExternal:       r.IsExternal,
		SupplierID:       r.SupplierID,
		ExportedQuantity: r.ExportedQuantity,
		ReturnedQuantity: r.ReturnedQuantity,
		PricePerDay:      parseDecimal(r.PricePerDay),
		ReturnedAt:       r.ReturnedAt,
		ReturnedBy:       r.ReturnedBy,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type inventoryLogRecord struct {
	ID         string    `dynamodbav:"id"`
	ProductID  int64     `dynamodbav:"product_id"`
	OrderID    int64     `dynamodbav:"order_id"`
	ActionType string    `dynamodbav:"action_type"`
	Quantity   int       `dynamodbav:"quantity"`
	Timestamp  time.Time `dynamodbav:"timestamp"`
	StaffName  string    `dynamodbav:"staff_name,omitempty"`
	Note       string    `dynamodbav:"note,omitempty"`
}

func (r inventoryLogRecord) model() models.InventoryLog {
	id, _ := uuid.Parse(r.ID)
	return models.InventoryLog{
		ID:         id,
		ProductID:  r.ProductID,
		OrderID:    r.OrderID,
		ActionType: models.ActionType(r.ActionType),
		Quantity:   r.Quantity,
		Timestamp:  r.Timestamp,
		StaffName:  r.StaffName,
		Note:       r.Note,
	}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
