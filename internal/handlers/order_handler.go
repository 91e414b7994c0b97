package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rental-inventory/internal/dto"
	"rental-inventory/internal/models"
	"rental-inventory/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders service.OrderService
	stock  service.StockMutator
	log    *zap.Logger
}

func NewOrderHandler(orders service.OrderService, stock service.StockMutator, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, stock: stock, log: log}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	start, err := time.Parse(time.DateOnly, req.RentalStartDate)
	if err != nil {
		badRequest(c, h.log, "rental_start_date must be YYYY-MM-DD", err)
		return
	}
	end, err := time.Parse(time.DateOnly, req.ExpectedReturnDate)
	if err != nil {
		badRequest(c, h.log, "expected_return_date must be YYYY-MM-DD", err)
		return
	}

	in := service.CreateOrderInput{
		CustomerID:         req.CustomerID,
		RentalStartDate:    start,
		ExpectedReturnDate: end,
		Note:               req.Note,
		Items:              make([]service.CreateOrderItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.CreateOrderItem{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			IsExternal:  it.IsExternal,
			SupplierID:  it.SupplierID,
			PricePerDay: it.PricePerDay,
		})
	}

	o, err := h.orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewOrderResponse(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}

// List supports status, customer_id and product_id query filters.
func (h *OrderHandler) List(c *gin.Context) {
	var f service.OrderListFilter
	if s := c.Query("status"); s != "" {
		st := models.OrderStatus(strings.ToUpper(s))
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid status", []dto.FieldError{{Field: "status", Message: "unknown order status"}}))
			return
		}
		f.Status = &st
	}
	var ok bool
	if f.CustomerID, ok = queryInt64(c, "customer_id"); !ok {
		return
	}
	if f.ProductID, ok = queryInt64(c, "product_id"); !ok {
		return
	}

	list, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderList(list))
}

func (h *OrderHandler) ListOverdue(c *gin.Context) {
	list, err := h.orders.ListOverdueOrders(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderList(list))
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, h.log, "invalid request body", err)
			return
		}
	}
	o, err := h.orders.CancelOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) Export(c *gin.Context) {
	h.move(c, h.stock.ExportStock)
}

func (h *OrderHandler) Import(c *gin.Context) {
	h.move(c, h.stock.ImportStock)
}

type stockMove func(ctx context.Context, orderID, productID int64, qty int, note string) (*service.StockResult, error)

func (h *OrderHandler) move(c *gin.Context, fn stockMove) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.StockMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	res, err := fn(c.Request.Context(), id, req.ProductID, req.Quantity, req.Note)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStockMoveResponse(res))
}

// Complete force-completes the order. The staff name from the body wins over
// the caller identity.
func (h *OrderHandler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ForceCompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, h.log, "invalid request body", err)
			return
		}
	}
	o, err := h.stock.ForceCompleteOrder(c.Request.Context(), id, strings.TrimSpace(req.StaffName))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(o))
}
