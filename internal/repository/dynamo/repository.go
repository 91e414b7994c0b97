package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB rejects larger transactions.
const maxTransactItems = 100

var ErrTransactionTooLarge = errors.New("transaction exceeds dynamodb item limit")

type Repository struct {
	api    API
	tables Tables
	tx     *txBuffer
}

func New(api API, tables Tables) *Repository {
	return &Repository{api: api, tables: tables}
}

func (r *Repository) Products() repository.ProductRepo { return productRepo{r} }
func (r *Repository) Orders() repository.OrderRepo { return orderRepo{r} }
func (r *Repository) OrderItems() repository.OrderItemRepo { return orderItemRepo{r} }
func (r *Repository) Customers() repository.CustomerRepo { return customerRepo{r} }
func (r *Repository) InventoryLogs() repository.InventoryLogRepo { return inventoryLogRepo{r} }

// WithTx buffers every write issued through tx and commits them with one
// TransactWriteItems call. Reads inside fn see the buffered rows.
func (r *Repository) WithTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	return r.atomically(ctx, func(tx *Repository) error { return fn(tx) })
}

// atomically runs fn inside the current transaction, or a fresh one.
func (r *Repository) atomically(ctx context.Context, fn func(tx *Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx := &Repository{api: r.api, tables: r.tables, tx: newTxBuffer()}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.tx.commit(ctx, r.api)
}

type txWrite struct {
	key  string
	item types.TransactWriteItem
}

type txBuffer struct {
	writes []txWrite
	index  map[string]int

	products map[int64]models.Product
	orders   map[int64]models.Order
	items    map[int64]models.OrderItem
}

func newTxBuffer() *txBuffer {
	return &txBuffer{
		index:    make(map[string]int),
		products: make(map[int64]models.Product),
		orders:   make(map[int64]models.Order),
		items:    make(map[int64]models.OrderItem),
	}
}

// add queues a write. A second write to the same key replaces the first but
// keeps its condition, which was evaluated against the stored row.
func (b *txBuffer) add(key string, item types.TransactWriteItem) {
	i, ok := b.index[key]
	if !ok {
		b.index[key] = len(b.writes)
		b.writes = append(b.writes, txWrite{key: key, item: item})
		return
	}

	prev := b.writes[i].item
	if prev.Put != nil && item.Put != nil {
		item.Put.ConditionExpression = prev.Put.ConditionExpression
		item.Put.ExpressionAttributeNames = prev.Put.ExpressionAttributeNames
		item.Put.ExpressionAttributeValues = prev.Put.ExpressionAttributeValues
	}
	b.writes[i].item = item
}

func (b *txBuffer) commit(ctx context.Context, api API) error {
	if len(b.writes) == 0 {
		return nil
	}
	if len(b.writes) > maxTransactItems {
		return fmt.Errorf("%w: %d items", ErrTransactionTooLarge, len(b.writes))
	}

	items := make([]types.TransactWriteItem, len(b.writes))
	for i, w := range b.writes {
		items[i] = w.item
	}

	_, err := api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	return mapWriteError(err)
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return repository.ErrConflict
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return repository.ErrConflict
			}
		}
	}
	return err
}

func numKey(name string, v int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)},
	}
}

func writeKey(table string, key map[string]types.AttributeValue) string {
	names := make([]string, 0, len(key))
	for k := range key {
		names = append(names, k)
	}
	sort.Strings(names)

	s := table
	for _, k := range names {
		switch av := key[k].(type) {
		case *types.AttributeValueMemberN:
			s += "|" + k + "=" + av.Value
		case *types.AttributeValueMemberS:
			s += "|" + k + "=" + av.Value
		}
	}
	return s
}

// put writes item, guarded by cond when non-nil. key identifies the row for
// transaction de-duplication.
func (r *Repository) put(ctx context.Context, table string, key map[string]types.AttributeValue, record any, cond *expression.ConditionBuilder) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", table, err)
	}

	p := &types.Put{TableName: aws.String(table), Item: item}
	if cond != nil {
		expr, err := expression.NewBuilder().WithCondition(*cond).Build()
		if err != nil {
			return err
		}
		p.ConditionExpression = expr.Condition()
		p.ExpressionAttributeNames = expr.Names()
		p.ExpressionAttributeValues = expr.Values()
	}

	if r.tx != nil {
		r.tx.add(writeKey(table, key), types.TransactWriteItem{Put: p})
		return nil
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 p.TableName,
		Item:                      p.Item,
		ConditionExpression:       p.ConditionExpression,
		ExpressionAttributeNames:  p.ExpressionAttributeNames,
		ExpressionAttributeValues: p.ExpressionAttributeValues,
	})
	return mapWriteError(err)
}

func (r *Repository) delete(ctx context.Context, table string, key map[string]types.AttributeValue) error {
	if r.tx != nil {
		r.tx.add(writeKey(table, key), types.TransactWriteItem{
			Delete: &types.Delete{TableName: aws.String(table), Key: key},
		})
		return nil
	}
	_, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(table), Key: key})
	return mapWriteError(err)
}

// get loads one item into out and reports whether it existed.
func (r *Repository) get(ctx context.Context, table string, key map[string]types.AttributeValue, out any) (bool, error) {
	res, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("get %s: %w", table, err)
	}
	if res.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", table, err)
	}
	return true, nil
}

func (r *Repository) scan(ctx context.Context, table string, out any) error {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{
		TableName:      aws.String(table),
		ConsistentRead: aws.Bool(true),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, page.Items...)
	}
	return attributevalue.UnmarshalListOfMaps(items, out)
}

// nextID hands out monotonically increasing ids from the counters table.
// Ids consumed by a rolled back transaction are not reused.
func (r *Repository) nextID(ctx context.Context, name string) (int64, error) {
	update := expression.Add(expression.Name("value"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return 0, err
	}

	res, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tables.Counters),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}

	var out struct {
		Value int64 `dynamodbav:"value"`
	}
	if err := attributevalue.UnmarshalMap(res.Attributes, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

func versionIs(v int64) *expression.ConditionBuilder {
	c := expression.Name("version").Equal(expression.Value(v))
	return &c
}

func notExists(attr string) *expression.ConditionBuilder {
	c := expression.AttributeNotExists(expression.Name(attr))
	return &c
}
