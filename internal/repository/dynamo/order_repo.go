package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type orderRepo struct{ r *Repository }

func itemKey(orderID, id int64) map[string]types.AttributeValue {
	key := numKey("order_id", orderID)
	key["id"] = numKey("id", id)["id"]
	return key
}

func (r *Repository) queryItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	keyCond := expression.Key("order_id").Equal(expression.Value(orderID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, err
	}

	var raw []map[string]types.AttributeValue
	p := dynamodb.NewQueryPaginator(r.api, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tables.OrderItems),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query order items: %w", err)
		}
		raw = append(raw, page.Items...)
	}

	var recs []orderItemRecord
	if err := attributevalue.UnmarshalListOfMaps(raw, &recs); err != nil {
		return nil, err
	}

	byID := make(map[int64]models.OrderItem, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec.model()
	}
	if r.tx != nil {
		for id, it := range r.tx.items {
			if it.OrderID == orderID {
				byID[id] = it
			}
		}
	}

	items := make([]models.OrderItem, 0, len(byID))
	for _, it := range byID {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (o orderRepo) getRow(ctx context.Context, id int64) (*models.Order, error) {
	if o.r.tx != nil {
		if v, ok := o.r.tx.orders[id]; ok {
			return &v, nil
		}
	}
	var rec orderRecord
	found, err := o.r.get(ctx, o.r.tables.Orders, numKey("id", id), &rec)
	if err != nil || !found {
		return nil, err
	}
	m := rec.model()
	return &m, nil
}

func (o orderRepo) List(ctx context.Context) ([]models.Order, error) {
	var orders []orderRecord
	if err := o.r.scan(ctx, o.r.tables.Orders, &orders); err != nil {
		return nil, err
	}
	var items []orderItemRecord
	if err := o.r.scan(ctx, o.r.tables.OrderItems, &items); err != nil {
		return nil, err
	}

	byOrder := make(map[int64][]models.OrderItem)
	for _, rec := range items {
		byOrder[rec.OrderID] = append(byOrder[rec.OrderID], rec.model())
	}

	list := make([]models.Order, 0, len(orders))
	for _, rec := range orders {
		ord := rec.model()
		ord.Items = byOrder[ord.ID]
		sort.Slice(ord.Items, func(i, j int) bool { return ord.Items[i].ID < ord.Items[j].ID })
		list = append(list, ord)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (o orderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ord, err := o.getRow(ctx, id)
	if err != nil || ord == nil {
		return nil, err
	}
	items, err := o.r.queryItems(ctx, id)
	if err != nil {
		return nil, err
	}
	ord.Items = items
	return ord, nil
}

func (o orderRepo) Create(ctx context.Context, ord *models.Order) error {
	id, err := o.r.nextID(ctx, "orders")
	if err != nil {
		return err
	}

	now := time.Now()
	row := ord.Clone()
	row.ID = id
	row.Version = 1
	row.CreatedAt, row.UpdatedAt = now, now
	row.Items = nil

	err = o.r.atomically(ctx, func(tx *Repository) error {
		if err := tx.put(ctx, tx.tables.Orders, numKey("id", id), toOrderRecord(&row), notExists("id")); err != nil {
			return err
		}
		tx.tx.orders[id] = row
		return nil
	})
	if err != nil {
		return err
	}
	ord.ID, ord.Version = row.ID, row.Version
	ord.CreatedAt, ord.UpdatedAt = now, now
	return nil
}

func (o orderRepo) Update(ctx context.Context, ord *models.Order) error {
	row := ord.Clone()
	row.Version = ord.Version + 1
	row.UpdatedAt = time.Now()
	row.Items = nil

	err := o.r.atomically(ctx, func(tx *Repository) error {
		if err := tx.put(ctx, tx.tables.Orders, numKey("id", row.ID), toOrderRecord(&row), versionIs(ord.Version)); err != nil {
			return err
		}
		tx.tx.orders[row.ID] = row
		return nil
	})
	if err != nil {
		return err
	}
	ord.Version, ord.UpdatedAt = row.Version, row.UpdatedAt
	return nil
}

func (o orderRepo) Delete(ctx context.Context, id int64) (bool, error) {
	ord, err := o.GetByID(ctx, id)
	if err != nil || ord == nil {
		return false, err
	}
	err = o.r.atomically(ctx, func(tx *Repository) error {
		for _, it := range ord.Items {
			if err := tx.delete(ctx, tx.tables.OrderItems, itemKey(id, it.ID)); err != nil {
				return err
			}
			delete(tx.tx.items, it.ID)
		}
		if err := tx.delete(ctx, tx.tables.Orders, numKey("id", id)); err != nil {
			return err
		}
		delete(tx.tx.orders, id)
		return nil
	})
	return err == nil, err
}

type orderItemRepo struct{ r *Repository }

func (o orderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	orders := orderRepo(o)
	for _, it := range items {
		ord, err := orders.getRow(ctx, it.OrderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return repository.ErrNotFound
		}
	}

	now := time.Now()
	rows := make([]models.OrderItem, len(items))
	for i := range items {
		id, err := o.r.nextID(ctx, "order_items")
		if err != nil {
			return err
		}
		rows[i] = items[i]
		rows[i].ID = id
		rows[i].Version = 1
		rows[i].CreatedAt, rows[i].UpdatedAt = now, now
	}

	err := o.r.atomically(ctx, func(tx *Repository) error {
		for _, row := range rows {
			if err := tx.put(ctx, tx.tables.OrderItems, itemKey(row.OrderID, row.ID), toOrderItemRecord(&row), notExists("id")); err != nil {
				return err
			}
			tx.tx.items[row.ID] = row
		}
		return nil
	})
	if err != nil {
		return err
	}
	copy(items, rows)
	return nil
}

func (o orderItemRepo) Update(ctx context.Context, it *models.OrderItem) error {
	row := *it
	row.Version = it.Version + 1
	row.UpdatedAt = time.Now()

	err := o.r.atomically(ctx, func(tx *Repository) error {
		if err := tx.put(ctx, tx.tables.OrderItems, itemKey(row.OrderID, row.ID), toOrderItemRecord(&row), versionIs(it.Version)); err != nil {
			return err
		}
		tx.tx.items[row.ID] = row
		return nil
	})
	if err != nil {
		return err
	}
	*it = row
	return nil
}
