package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"rental-inventory/internal/service"

	"github.com/segmentio/kafka-go"
)

const (
	TypeInventoryLogged    = "inventory.logged"
	TypeOrderStatusChanged = "order.status_changed"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope wraps every message on the ledger topic.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// LedgerProducer publishes committed ledger events. Messages are keyed by
// product or order id so a partition sees one entity's events in order.
type LedgerProducer struct {
	writer messageWriter
}

func NewLedgerProducer(brokers []string, topic string) *LedgerProducer {
	return &LedgerProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *LedgerProducer) PublishInventoryLogged(ctx context.Context, e service.InventoryLoggedEvent) error {
	return p.send(ctx, "product:"+strconv.FormatInt(e.ProductID, 10), TypeInventoryLogged, e)
}

func (p *LedgerProducer) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	return p.send(ctx, "order:"+strconv.FormatInt(e.OrderID, 10), TypeOrderStatusChanged, e)
}

func (p *LedgerProducer) send(ctx context.Context, key, typ string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(Envelope{Type: typ, Payload: body})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *LedgerProducer) Close() error {
	return p.writer.Close()
}
