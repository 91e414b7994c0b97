package dto

import (
	"time"

	"rental-inventory/internal/models"
	"rental-inventory/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductRequest struct {
	Code         string          `json:"code" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	TotalOwned   int             `json:"total_owned" binding:"min=0"`
	InitialStock *int            `json:"initial_stock" binding:"omitempty,min=0"`
	PricePerDay  decimal.Decimal `json:"price_per_day"`
}

type ProductPatchRequest struct {
	Code        *string          `json:"code"`
	Name        *string          `json:"name"`
	TotalOwned  *int             `json:"total_owned" binding:"omitempty,min=0"`
	PricePerDay *decimal.Decimal `json:"price_per_day"`
}

type ProductResponse struct {
	ID                   int64           `json:"id"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	TotalOwned           int             `json:"total_owned"`
	CurrentPhysicalStock int             `json:"current_physical_stock"`
	PricePerDay          decimal.Decimal `json:"price_per_day"`
	Version              int64           `json:"version"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func NewProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:                   p.ID,
		Code:                 p.Code,
		Name:                 p.Name,
		TotalOwned:           p.TotalOwned,
		CurrentPhysicalStock: p.CurrentPhysicalStock,
		PricePerDay:          p.PricePerDay,
		Version:              p.Version,
		UpdatedAt:            p.UpdatedAt,
	}
}

type StockAdjustRequest struct {
	NewStock   int    `json:"new_stock" binding:"min=0"`
	ActionType string `json:"action_type" binding:"required"`
	Quantity   int    `json:"quantity" binding:"min=0"`
	Note       string `json:"note"`
}

type CustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Email string `json:"email" binding:"omitempty,email"`
}

type CustomerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewCustomerResponse(c *models.Customer) CustomerResponse {
	return CustomerResponse{ID: c.ID, Name: c.Name, Phone: c.Phone, Email: c.Email, CreatedAt: c.CreatedAt}
}

type OrderItemRequest struct {
	ProductID   int64            `json:"product_id" binding:"required"`
	Quantity    int              `json:"quantity" binding:"required,min=1"`
	IsExternal  bool             `json:"is_external"`
	SupplierID  *int64           `json:"supplier_id"`
	PricePerDay *decimal.Decimal `json:"price_per_day"`
}

// OrderRequest dates use the YYYY-MM-DD layout.
type OrderRequest struct {
	CustomerID         int64              `json:"customer_id" binding:"required"`
	RentalStartDate    string             `json:"rental_start_date" binding:"required"`
	ExpectedReturnDate string             `json:"expected_return_date" binding:"required"`
	Note               string             `json:"note"`
	Items              []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type OrderItemResponse struct {
	ID               int64           `json:"id"`
	ProductID        int64           `json:"product_id"`
	Quantity         int             `json:"quantity"`
	IsExternal       bool            `json:"is_external"`
	SupplierID       *int64          `json:"supplier_id,omitempty"`
	ExportedQuantity int             `json:"exported_quantity"`
	ReturnedQuantity int             `json:"returned_quantity"`
	PricePerDay      decimal.Decimal `json:"price_per_day"`
	ReturnedAt       *time.Time      `json:"returned_at,omitempty"`
	ReturnedBy       string          `json:"returned_by,omitempty"`
}

type OrderResponse struct {
	ID                 int64               `json:"id"`
	CustomerID         int64               `json:"customer_id"`
	RentalStartDate    string              `json:"rental_start_date"`
	ExpectedReturnDate string              `json:"expected_return_date"`
	ActualReturnDate   *time.Time          `json:"actual_return_date,omitempty"`
	Status             string              `json:"status"`
	TotalAmount        decimal.Decimal     `json:"total_amount"`
	FinalAmount        decimal.NullDecimal `json:"final_amount"`
	CompletedBy        string              `json:"completed_by,omitempty"`
	Note               string              `json:"note,omitempty"`
	Items              []OrderItemResponse `json:"items"`
}

func NewOrderResponse(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		RentalStartDate:    o.RentalStartDate.Format(time.DateOnly),
		ExpectedReturnDate: o.ExpectedReturnDate.Format(time.DateOnly),
		ActualReturnDate:   o.ActualReturnDate,
		Status:             string(o.Status),
		TotalAmount:        o.TotalAmount,
		FinalAmount:        o.FinalAmount,
		CompletedBy:        o.CompletedBy,
		Note:               o.Note,
		Items:              make([]OrderItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:               it.ID,
			ProductID:        it.ProductID,
			Quantity:         it.Quantity,
			IsExternal:       it.IsExternal,
			SupplierID:       it.SupplierID,
			ExportedQuantity: it.ExportedQuantity,
			ReturnedQuantity: it.ReturnedQuantity,
			PricePerDay:      it.PricePerDay,
			ReturnedAt:       it.ReturnedAt,
			ReturnedBy:       it.ReturnedBy,
		})
	}
	return resp
}

func NewOrderList(list []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(list))
	for i := range list {
		out = append(out, NewOrderResponse(&list[i]))
	}
	return out
}

type StockMoveRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Note      string `json:"note"`
}

type ForceCompleteRequest struct {
	StaffName string `json:"staff_name"`
}

type InventoryLogResponse struct {
	ID         uuid.UUID `json:"id"`
	ProductID  int64     `json:"product_id"`
	OrderID    int64     `json:"order_id,omitempty"`
	ActionType string    `json:"action_type"`
	Quantity   int       `json:"quantity"`
	Timestamp  time.Time `json:"timestamp"`
	StaffName  string    `json:"staff_name,omitempty"`
	Note       string    `json:"note,omitempty"`
}

func NewInventoryLogList(logs []models.InventoryLog) []InventoryLogResponse {
	out := make([]InventoryLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, InventoryLogResponse{
			ID:         l.ID,
			ProductID:  l.ProductID,
			OrderID:    l.OrderID,
			ActionType: string(l.ActionType),
			Quantity:   l.Quantity,
			Timestamp:  l.Timestamp,
			StaffName:  l.StaffName,
			Note:       l.Note,
		})
	}
	return out
}

type StockMoveResponse struct {
	Product         ProductResponse        `json:"product"`
	Order           OrderResponse          `json:"order"`
	Logs            []InventoryLogResponse `json:"logs"`
	PhantomQuantity int                    `json:"phantom_quantity"`
}

func NewStockMoveResponse(r *service.StockResult) StockMoveResponse {
	return StockMoveResponse{
		Product:         NewProductResponse(&r.Product),
		Order:           NewOrderResponse(&r.Order),
		Logs:            NewInventoryLogList(r.Logs),
		PhantomQuantity: r.PhantomQuantity,
	}
}

type AvailabilityResponse struct {
	ProductID int64  `json:"product_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available int    `json:"available"`
}

type ForecastEntryResponse struct {
	Type         string `json:"type"`
	OrderID      int64  `json:"order_id"`
	Quantity     int    `json:"quantity"`
	Date         string `json:"date"`
	CustomerName string `json:"customer_name,omitempty"`
}

type ForecastResponse struct {
	ProductID       int64                   `json:"product_id"`
	ProductCode     string                  `json:"product_code"`
	Date            string                  `json:"date"`
	PhysicalStock   int                     `json:"physical_stock"`
	ExpectedReturns int                     `json:"expected_returns"`
	ExpectedExports int                     `json:"expected_exports"`
	ForecastStock   int                     `json:"forecast_stock"`
	Breakdown       []ForecastEntryResponse `json:"breakdown"`
}

func NewForecastResponse(f *service.Forecast) ForecastResponse {
	resp := ForecastResponse{
		ProductID:       f.ProductID,
		ProductCode:     f.ProductCode,
		Date:            f.Date.Format(time.DateOnly),
		PhysicalStock:   f.PhysicalStock,
		ExpectedReturns: f.ExpectedReturns,
		ExpectedExports: f.ExpectedExports,
		ForecastStock:   f.ForecastStock,
		Breakdown:       make([]ForecastEntryResponse, 0, len(f.Breakdown)),
	}
	for _, e := range f.Breakdown {
		resp.Breakdown = append(resp.Breakdown, ForecastEntryResponse{
			Type:         string(e.Type),
			OrderID:      e.OrderID,
			Quantity:     e.Quantity,
			Date:         e.Date.Format(time.DateOnly),
			CustomerName: e.CustomerName,
		})
	}
	return resp
}

type ForecastDayResponse struct {
	Date            string `json:"date"`
	PhysicalStock   int    `json:"physical_stock"`
	ForecastStock   int    `json:"forecast_stock"`
	ExpectedReturns int    `json:"expected_returns"`
	ExpectedExports int    `json:"expected_exports"`
}

func NewForecastSeries(days []service.ForecastDay) []ForecastDayResponse {
	out := make([]ForecastDayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, ForecastDayResponse{
			Date:            d.Date.Format(time.DateOnly),
			PhysicalStock:   d.PhysicalStock,
			ForecastStock:   d.ForecastStock,
			ExpectedReturns: d.ExpectedReturns,
			ExpectedExports: d.ExpectedExports,
		})
	}
	return out
}
