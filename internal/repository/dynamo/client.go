// Package dynamo is the DynamoDB Repository backend. Each entity has its own
// table; writes issued inside WithTx are buffered and committed with a single
// TransactWriteItems call guarded by version conditions.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// API is the subset of *dynamodb.Client the repository uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type Options struct {
	Region      string
	Endpoint    string // e.g. http://localhost:8000 for dynamodb-local
	TablePrefix string
	AccessKey   string
	SecretKey   string
}

type Tables struct {
	Products      string
	ProductCodes  string
	Orders        string
	OrderItems    string
	Customers     string
	InventoryLogs string
	Counters      string
}

func TablesWithPrefix(prefix string) Tables {
	return Tables{
		Products:      prefix + "products",
		ProductCodes:  prefix + "product-codes",
		Orders:        prefix + "orders",
		OrderItems:    prefix + "order-items",
		Customers:     prefix + "customers",
		InventoryLogs: prefix + "inventory-logs",
		Counters:      prefix + "counters",
	}
}

func NewClient(ctx context.Context, opt Options) (*dynamodb.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opt.Region)}
	if opt.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if opt.Endpoint != "" {
			o.BaseEndpoint = aws.String(opt.Endpoint)
		}
	}), nil
}

type tableKey struct {
	name    string
	typ     types.ScalarAttributeType
	sortKey string
	sortTyp types.ScalarAttributeType
}

// EnsureTables creates missing tables with on-demand billing. Intended for
// local and test environments; production tables are provisioned outside.
func EnsureTables(ctx context.Context, client *dynamodb.Client, t Tables, log *zap.Logger) error {
	specs := map[string]tableKey{
		t.Products:      {name: "id", typ: types.ScalarAttributeTypeN},
		t.ProductCodes:  {name: "code", typ: types.ScalarAttributeTypeS},
		t.Orders:        {name: "id", typ: types.ScalarAttributeTypeN},
		t.OrderItems:    {name: "order_id", typ: types.ScalarAttributeTypeN, sortKey: "id", sortTyp: types.ScalarAttributeTypeN},
		t.Customers:     {name: "id", typ: types.ScalarAttributeTypeN},
		t.InventoryLogs: {name: "id", typ: types.ScalarAttributeTypeS},
		t.Counters:      {name: "name", typ: types.ScalarAttributeTypeS},
	}

	for table, k := range specs {
		in := &dynamodb.CreateTableInput{
			TableName:   aws.String(table),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(k.name), AttributeType: k.typ},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(k.name), KeyType: types.KeyTypeHash},
			},
		}
		if k.sortKey != "" {
			in.AttributeDefinitions = append(in.AttributeDefinitions,
				types.AttributeDefinition{AttributeName: aws.String(k.sortKey), AttributeType: k.sortTyp})
			in.KeySchema = append(in.KeySchema,
				types.KeySchemaElement{AttributeName: aws.String(k.sortKey), KeyType: types.KeyTypeRange})
		}

		_, err := client.CreateTable(ctx, in)
		var inUse *types.ResourceInUseException
		switch {
		case errors.As(err, &inUse):
			continue
		case err != nil:
			log.Error("create dynamodb table", zap.String("table", table), zap.Error(err))
			return err
		}
		log.Info("DynamoDB table created", zap.String("table", table))
	}
	return nil
}
