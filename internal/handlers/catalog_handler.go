package handlers

import (
	"net/http"

	"rental-inventory/internal/dto"
	"rental-inventory/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalog service.CatalogService
	log     *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log}
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}

	p, err := h.catalog.CreateProduct(c.Request.Context(), service.ProductInput{
		Code:         req.Code,
		Name:         req.Name,
		TotalOwned:   req.TotalOwned,
		InitialStock: req.InitialStock,
		PricePerDay:  req.PricePerDay,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewProductResponse(p))
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ProductPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}

	p, err := h.catalog.UpdateProduct(c.Request.Context(), id, service.ProductPatch{
		Code:        req.Code,
		Name:        req.Name,
		TotalOwned:  req.TotalOwned,
		PricePerDay: req.PricePerDay,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProductResponse(p))
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProductResponse(p))
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	list, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]dto.ProductResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.NewProductResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) CreateCustomer(c *gin.Context) {
	var req dto.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	cust, err := h.catalog.CreateCustomer(c.Request.Context(), service.CustomerInput{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCustomerResponse(cust))
}

func (h *CatalogHandler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cust, err := h.catalog.GetCustomer(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCustomerResponse(cust))
}

func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	list, err := h.catalog.ListCustomers(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]dto.CustomerResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.NewCustomerResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

// ListInventoryLogs supports product_id, order_id and limit query filters.
func (h *CatalogHandler) ListInventoryLogs(c *gin.Context) {
	productID, ok := queryInt64(c, "product_id")
	if !ok {
		return
	}
	orderID, ok := queryInt64(c, "order_id")
	if !ok {
		return
	}
	limit, ok := queryInt64(c, "limit")
	if !ok {
		return
	}

	logs, err := h.catalog.ListInventoryLogs(c.Request.Context(), service.LogFilter{
		ProductID: productID,
		OrderID:   orderID,
		Limit:     int(limit),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInventoryLogList(logs))
}
