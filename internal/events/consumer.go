package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"rental-inventory/internal/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	ScanExport = "export"
	ScanImport = "import"
)

// ScanMessage is one barcode scan at the warehouse door.
type ScanMessage struct {
	Action    string `json:"action"`
	OrderID   int64  `json:"order_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	StaffName string `json:"staff_name"`
	Note      string `json:"note"`
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultRetryInterval    = 200 * time.Millisecond
	defaultMaxRetryInterval = 10 * time.Second
)

// ScanConsumer applies scans from handheld scanners through the stock
// mutator, one at a time in partition order. Rejected scans are logged and
// committed. A persistence failure is retried with backoff until it succeeds
// or the consumer stops; nothing after it is fetched meanwhile, so its offset
// is never committed past.
type ScanConsumer struct {
	reader messageReader
	stock  service.StockMutator
	log    *zap.Logger

	retryInterval    time.Duration
	maxRetryInterval time.Duration
}

func NewScanConsumer(brokers []string, groupID, topic string, stock service.StockMutator, log *zap.Logger) *ScanConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          1,
		MaxBytes:          10e6,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return &ScanConsumer{
		reader:           r,
		stock:            stock,
		log:              log,
		retryInterval:    defaultRetryInterval,
		maxRetryInterval: defaultMaxRetryInterval,
	}
}

func (c *ScanConsumer) Run(ctx context.Context) error {
	c.log.Info("scan consumer started")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			c.log.Error("fetch scan message", zap.Error(err))
			continue
		}

		if err := c.apply(ctx, m); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.log.Warn("scan left uncommitted on shutdown", zap.Int64("offset", m.Offset))
				return nil
			}
			c.log.Warn("scan rejected", zap.ByteString("value", m.Value), zap.Error(err))
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.Error("commit scan message", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// apply handles m, retrying persistence failures until they clear or ctx is
// done. Any other error is returned at once.
func (c *ScanConsumer) apply(ctx context.Context, m kafka.Message) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = c.maxRetryInterval
	b.MaxElapsedTime = 0
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultRetryInterval
	}
	if b.MaxInterval <= 0 {
		b.MaxInterval = defaultMaxRetryInterval
	}

	op := func() error {
		err := c.handle(ctx, m)
		if err != nil && !errors.Is(err, service.ErrPersistence) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Error("scan not applied, retrying",
			zap.Int64("offset", m.Offset), zap.Duration("wait", wait), zap.Error(err))
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

func (c *ScanConsumer) handle(ctx context.Context, m kafka.Message) error {
	var sm ScanMessage
	if err := json.Unmarshal(m.Value, &sm); err != nil {
		return fmt.Errorf("decode scan: %w", err)
	}
	if sm.StaffName != "" {
		ctx = service.WithStaff(ctx, sm.StaffName)
	}

	var (
		res *service.StockResult
		err error
	)
	switch strings.ToLower(sm.Action) {
	case ScanExport:
		res, err = c.stock.ExportStock(ctx, sm.OrderID, sm.ProductID, sm.Quantity, sm.Note)
	case ScanImport:
		res, err = c.stock.ImportStock(ctx, sm.OrderID, sm.ProductID, sm.Quantity, sm.Note)
	default:
		return fmt.Errorf("unknown scan action %q", sm.Action)
	}
	if err != nil {
		return err
	}

	c.log.Info("scan applied",
		zap.String("action", sm.Action),
		zap.Int64("order_id", sm.OrderID),
		zap.Int64("product_id", sm.ProductID),
		zap.Int("qty", sm.Quantity),
		zap.Int("stock_after", res.Product.CurrentPhysicalStock),
		zap.String("order_status", string(res.Order.Status)))
	return nil
}

func (c *ScanConsumer) Close() error { return c.reader.Close() }
