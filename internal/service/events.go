package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type InventoryLoggedEvent struct {
	LogID      uuid.UUID `json:"log_id"`
	ProductID  int64     `json:"product_id"`
	OrderID    int64     `json:"order_id,omitempty"`
	ActionType string    `json:"action_type"`
	Quantity   int       `json:"quantity"`
	StockAfter int       `json:"stock_after"`
	StaffName  string    `json:"staff_name,omitempty"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID    int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	StaffName  string    `json:"staff_name,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

// EventBus receives ledger events after the transaction that produced them
// committed. Publishing failures never undo a committed mutation.
type EventBus interface {
	PublishInventoryLogged(ctx context.Context, e InventoryLoggedEvent) error
	PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error
}
