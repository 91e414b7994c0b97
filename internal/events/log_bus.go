package events

import (
	"context"

	"rental-inventory/internal/service"

	"go.uber.org/zap"
)

// LogBus writes ledger events to the log. Used when no broker is configured.
type LogBus struct {
	log *zap.Logger
}

func NewLogBus(log *zap.Logger) *LogBus {
	return &LogBus{log: log}
}

func (b *LogBus) PublishInventoryLogged(_ context.Context, e service.InventoryLoggedEvent) error {
	b.log.Debug(TypeInventoryLogged,
		zap.Int64("product_id", e.ProductID),
		zap.Int64("order_id", e.OrderID),
		zap.String("action", e.ActionType),
		zap.Int("quantity", e.Quantity),
		zap.String("staff", e.StaffName),
	)
	return nil
}

func (b *LogBus) PublishOrderStatusChanged(_ context.Context, e service.OrderStatusChangedEvent) error {
	b.log.Debug(TypeOrderStatusChanged,
		zap.Int64("order_id", e.OrderID),
		zap.String("from", e.From),
		zap.String("to", e.To),
	)
	return nil
}
