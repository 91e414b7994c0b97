package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/dto"
	"rental-inventory/internal/models"
	"rental-inventory/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultForecastDays = 14

type InventoryHandler struct {
	avail    *service.AvailabilityEngine
	forecast *service.ForecastEngine
	stock    service.StockMutator
	clock    clock.Clock
	log      *zap.Logger
}

func NewInventoryHandler(avail *service.AvailabilityEngine, forecast *service.ForecastEngine, stock service.StockMutator, clk clock.Clock, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{avail: avail, forecast: forecast, stock: stock, clock: clk, log: log}
}

// Availability answers how many units can still be booked for [start, end].
// end defaults to start.
func (h *InventoryHandler) Availability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	start, ok := queryDate(c, "start", clock.Today(h.clock))
	if !ok {
		return
	}
	end, ok := queryDate(c, "end", start)
	if !ok {
		return
	}

	n, err := h.avail.CheckAvailability(c.Request.Context(), id, start, end)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.AvailabilityResponse{
		ProductID: id,
		Start:     start.Format(time.DateOnly),
		End:       end.Format(time.DateOnly),
		Available: n,
	})
}

func (h *InventoryHandler) Forecast(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	date, ok := queryDate(c, "date", clock.Today(h.clock))
	if !ok {
		return
	}

	f, err := h.forecast.GetForecastStockForDate(c.Request.Context(), id, date)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewForecastResponse(f))
}

func (h *InventoryHandler) ForecastRange(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	start, ok := queryDate(c, "start", clock.Today(h.clock))
	if !ok {
		return
	}
	days := defaultForecastDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, h.log, "invalid days", err)
			return
		}
		days = n
	}

	series, err := h.forecast.GetForecastStockRange(c.Request.Context(), id, start, days)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewForecastSeries(series))
}

func (h *InventoryHandler) ForecastAll(c *gin.Context) {
	date, ok := queryDate(c, "date", clock.Today(h.clock))
	if !ok {
		return
	}

	list, err := h.forecast.GetAllProductsForecast(c.Request.Context(), date)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	out := make([]dto.ForecastResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.NewForecastResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

// AdjustStock sets the physical stock directly and records the action.
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.StockAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}

	p, err := h.stock.UpdateProductStock(c.Request.Context(), id, req.NewStock,
		models.ActionType(strings.ToUpper(req.ActionType)), req.Quantity, req.Note)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProductResponse(p))
}
