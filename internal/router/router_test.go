package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/dto"
	"rental-inventory/internal/repository/memory"
	"rental-inventory/internal/router"
	"rental-inventory/internal/service"
	"rental-inventory/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type nopBus struct{}

func (nopBus) PublishInventoryLogged(context.Context, service.InventoryLoggedEvent) error { return nil }
func (nopBus) PublishOrderStatusChanged(context.Context, service.OrderStatusChangedEvent) error {
	return nil
}

func newServer(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.New()
	st := store.New()
	clk := clock.Fixed(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	r := router.Router(router.Deps{
		Store:        st,
		Catalog:      service.NewCatalogService(repo, st, clk, log),
		Orders:       service.NewOrderService(repo, st, clk, nopBus{}, log),
		Stock:        service.NewStockService(repo, st, clk, nopBus{}, log),
		Availability: service.NewAvailabilityEngine(st),
		Forecast:     service.NewForecastEngine(st, clk, log),
		Clock:        clk,
	}, log)
	return r, st
}

func do(t *testing.T, r http.Handler, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Staff-Name", "dana")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

func TestHealth_ReportsStoreReadiness(t *testing.T) {
	r, st := newServer(t)

	if code := do(t, r, http.MethodGet, "/health", nil, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first load, got %d", code)
	}
	if err := st.Refresh(context.Background(), memory.New()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if code := do(t, r, http.MethodGet, "/health", nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRentalLifecycle(t *testing.T) {
	r, _ := newServer(t)

	var p dto.ProductResponse
	if code := do(t, r, http.MethodPost, "/api/v1/products", map[string]any{
		"code": "PROJ", "name": "Projector", "total_owned": 10, "price_per_day": "100",
	}, &p); code != http.StatusCreated {
		t.Fatalf("create product: %d", code)
	}
	var cust dto.CustomerResponse
	if code := do(t, r, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Acme"}, &cust); code != http.StatusCreated {
		t.Fatalf("create customer: %d", code)
	}

	var o dto.OrderResponse
	code := do(t, r, http.MethodPost, "/api/v1/orders", map[string]any{
		"customer_id":          cust.ID,
		"rental_start_date":    "2024-01-10",
		"expected_return_date": "2024-01-14",
		"items":                []map[string]any{{"product_id": p.ID, "quantity": 4}},
	}, &o)
	if code != http.StatusCreated || o.Status != "BOOKED" || o.TotalAmount.String() != "2000" {
		t.Fatalf("create order: %d %+v", code, o)
	}

	var avail dto.AvailabilityResponse
	do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/availability?start=2024-01-12&end=2024-01-20", p.ID), nil, &avail)
	if avail.Available != 6 {
		t.Fatalf("expected 6 available, got %+v", avail)
	}

	var moved dto.StockMoveResponse
	code = do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/export", o.ID), map[string]any{"product_id": p.ID, "quantity": 4}, &moved)
	if code != http.StatusOK || moved.Order.Status != "ACTIVE" || moved.Product.CurrentPhysicalStock != 6 {
		t.Fatalf("export: %d %+v", code, moved)
	}

	var fc dto.ForecastResponse
	do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/forecast?date=2024-01-14", p.ID), nil, &fc)
	if fc.PhysicalStock != 6 || fc.ExpectedReturns != 4 || fc.ForecastStock != 10 {
		t.Fatalf("unexpected forecast: %+v", fc)
	}

	code = do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/import", o.ID), map[string]any{"product_id": p.ID, "quantity": 4}, &moved)
	if code != http.StatusOK || moved.Order.Status != "COMPLETED" || moved.Product.CurrentPhysicalStock != 10 {
		t.Fatalf("import: %d %+v", code, moved)
	}

	var logs []dto.InventoryLogResponse
	do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/inventory-logs?order_id=%d", o.ID), nil, &logs)
	if len(logs) != 2 || logs[0].ActionType != "IMPORT" || logs[0].StaffName != "dana" {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	var body dto.BaseError
	if code := do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/export", o.ID), map[string]any{"product_id": p.ID, "quantity": 1}, &body); code != http.StatusConflict {
		t.Fatalf("export on a completed order: expected 409, got %d %+v", code, body)
	}
}

func TestErrorResponses(t *testing.T) {
	r, _ := newServer(t)

	var p dto.ProductResponse
	do(t, r, http.MethodPost, "/api/v1/products", map[string]any{"code": "TENT", "name": "Tent", "total_owned": 2, "price_per_day": "30"}, &p)
	var cust dto.CustomerResponse
	do(t, r, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Acme"}, &cust)
	order := func(qty int) map[string]any {
		return map[string]any{
			"customer_id":          cust.ID,
			"rental_start_date":    "2024-01-10",
			"expected_return_date": "2024-01-12",
			"items":                []map[string]any{{"product_id": p.ID, "quantity": qty}},
		}
	}
	var o dto.OrderResponse
	do(t, r, http.MethodPost, "/api/v1/orders", order(1), &o)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"bad id", http.MethodGet, "/api/v1/products/abc", nil, http.StatusBadRequest, "validation_error"},
		{"unknown product", http.MethodGet, "/api/v1/products/404", nil, http.StatusNotFound, "not_found"},
		{"duplicate code", http.MethodPost, "/api/v1/products", map[string]any{"code": "tent", "name": "x"}, http.StatusConflict, "conflict"},
		{"missing body fields", http.MethodPost, "/api/v1/orders", map[string]any{"customer_id": cust.ID}, http.StatusBadRequest, "validation_error"},
		{"bad date", http.MethodGet, fmt.Sprintf("/api/v1/products/%d/forecast?date=10.01.2024", p.ID), nil, http.StatusBadRequest, "validation_error"},
		{"overbooked", http.MethodPost, "/api/v1/orders", order(2), http.StatusUnprocessableEntity, "unavailable"},
		{"exceeds ordered", http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/export", o.ID), map[string]any{"product_id": p.ID, "quantity": 2}, http.StatusUnprocessableEntity, "exceeds_ordered_quantity"},
		{"bad action", http.MethodPost, fmt.Sprintf("/api/v1/products/%d/stock", p.ID), map[string]any{"new_stock": 1, "action_type": "steal"}, http.StatusBadRequest, "validation_error"},
		{"delete booked order", http.MethodDelete, fmt.Sprintf("/api/v1/orders/%d", o.ID), nil, http.StatusConflict, "conflict"},
		{"product in use", http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", p.ID), nil, http.StatusConflict, "conflict"},
		{"unknown status filter", http.MethodGet, "/api/v1/orders?status=lost", nil, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body dto.BaseError
			if code := do(t, r, tt.method, tt.path, tt.body, &body); code != tt.wantCode || body.Code != tt.wantErr {
				t.Fatalf("expected %d %s, got %d %+v", tt.wantCode, tt.wantErr, code, body)
			}
		})
	}
}

func TestAdjustStockAndCancel(t *testing.T) {
	r, _ := newServer(t)

	var p dto.ProductResponse
	do(t, r, http.MethodPost, "/api/v1/products", map[string]any{"code": "CHAIR", "name": "Chair", "total_owned": 50, "price_per_day": "2"}, &p)

	var adjusted dto.ProductResponse
	code := do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/products/%d/stock", p.ID),
		map[string]any{"new_stock": 47, "action_type": "clean", "quantity": 3, "note": "washed"}, &adjusted)
	if code != http.StatusOK || adjusted.CurrentPhysicalStock != 47 {
		t.Fatalf("adjust: %d %+v", code, adjusted)
	}

	var cust dto.CustomerResponse
	do(t, r, http.MethodPost, "/api/v1/customers", map[string]any{"name": "Acme"}, &cust)
	var o dto.OrderResponse
	do(t, r, http.MethodPost, "/api/v1/orders", map[string]any{
		"customer_id":          cust.ID,
		"rental_start_date":    "2024-01-10",
		"expected_return_date": "2024-01-10",
		"items":                []map[string]any{{"product_id": p.ID, "quantity": 20}},
	}, &o)

	var cancelled dto.OrderResponse
	code = do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", o.ID), map[string]any{"reason": "weather"}, &cancelled)
	if code != http.StatusOK || cancelled.Status != "CANCELLED" {
		t.Fatalf("cancel: %d %+v", code, cancelled)
	}
	if code := do(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/orders/%d", o.ID), nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete cancelled order: %d", code)
	}

	var list []dto.OrderResponse
	do(t, r, http.MethodGet, "/api/v1/orders", nil, &list)
	if len(list) != 0 {
		t.Fatalf("expected no orders, got %+v", list)
	}
}
