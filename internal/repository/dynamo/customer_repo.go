package dynamo

import (
	"context"
	"sort"
	"time"

	"rental-inventory/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

type customerRepo struct{ r *Repository }

func (c customerRepo) List(ctx context.Context) ([]models.Customer, error) {
	var recs []customerRecord
	if err := c.r.scan(ctx, c.r.tables.Customers, &recs); err != nil {
		return nil, err
	}
	list := make([]models.Customer, 0, len(recs))
	for _, rec := range recs {
		list = append(list, models.Customer(rec))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (c customerRepo) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	var rec customerRecord
	found, err := c.r.get(ctx, c.r.tables.Customers, numKey("id", id), &rec)
	if err != nil || !found {
		return nil, err
	}
	m := models.Customer(rec)
	return &m, nil
}

func (c customerRepo) Create(ctx context.Context, cust *models.Customer) error {
	id, err := c.r.nextID(ctx, "customers")
	if err != nil {
		return err
	}
	row := *cust
	row.ID = id
	row.CreatedAt = time.Now()

	if err := c.r.put(ctx, c.r.tables.Customers, numKey("id", id), customerRecord(row), notExists("id")); err != nil {
		return err
	}
	*cust = row
	return nil
}

type inventoryLogRepo struct{ r *Repository }

func (l inventoryLogRepo) Append(ctx context.Context, entry *models.InventoryLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	rec := inventoryLogRecord{
		ID:         entry.ID.String(),
		ProductID:  entry.ProductID,
		OrderID:    entry.OrderID,
		ActionType: string(entry.ActionType),
		Quantity:   entry.Quantity,
		Timestamp:  entry.Timestamp,
		StaffName:  entry.StaffName,
		Note:       entry.Note,
	}
	key := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: rec.ID}}
	return l.r.put(ctx, l.r.tables.InventoryLogs, key, rec, notExists("id"))
}

func (l inventoryLogRepo) List(ctx context.Context) ([]models.InventoryLog, error) {
	var recs []inventoryLogRecord
	if err := l.r.scan(ctx, l.r.tables.InventoryLogs, &recs); err != nil {
		return nil, err
	}
	list := make([]models.InventoryLog, 0, len(recs))
	for _, rec := range recs {
		list = append(list, rec.model())
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	return list, nil
}
