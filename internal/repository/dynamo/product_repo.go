package dynamo

import (
	"context"
	"sort"
	"strings"
	"time"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type productRepo struct{ r *Repository }

func codeKey(code string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"code": &types.AttributeValueMemberS{Value: strings.ToLower(code)},
	}
}

func (p productRepo) List(ctx context.Context) ([]models.Product, error) {
	var recs []productRecord
	if err := p.r.scan(ctx, p.r.tables.Products, &recs); err != nil {
		return nil, err
	}
	list := make([]models.Product, 0, len(recs))
	for _, rec := range recs {
		list = append(list, rec.model())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func (p productRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	if p.r.tx != nil {
		if v, ok := p.r.tx.products[id]; ok {
			return &v, nil
		}
	}
	var rec productRecord
	found, err := p.r.get(ctx, p.r.tables.Products, numKey("id", id), &rec)
	if err != nil || !found {
		return nil, err
	}
	m := rec.model()
	return &m, nil
}

func (p productRepo) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	var rec productCodeRecord
	found, err := p.r.get(ctx, p.r.tables.ProductCodes, codeKey(code), &rec)
	if err != nil || !found {
		return nil, err
	}
	return p.GetByID(ctx, rec.ProductID)
}

// Create claims the lower-cased code in the codes table; a taken code fails
// the transaction with repository.ErrConflict.
func (p productRepo) Create(ctx context.Context, prod *models.Product) error {
	id, err := p.r.nextID(ctx, "products")
	if err != nil {
		return err
	}

	now := time.Now()
	row := *prod
	row.ID = id
	row.Version = 1
	row.CreatedAt, row.UpdatedAt = now, now

	err = p.r.atomically(ctx, func(tx *Repository) error {
		if err := tx.put(ctx, tx.tables.ProductCodes, codeKey(row.Code),
			productCodeRecord{Code: strings.ToLower(row.Code), ProductID: id}, notExists("code")); err != nil {
			return err
		}
		if err := tx.put(ctx, tx.tables.Products, numKey("id", id), toProductRecord(&row), notExists("id")); err != nil {
			return err
		}
		tx.tx.products[id] = row
		return nil
	})
	if err != nil {
		return err
	}
	*prod = row
	return nil
}

func (p productRepo) Update(ctx context.Context, prod *models.Product) error {
	cur, err := p.GetByID(ctx, prod.ID)
	if err != nil {
		return err
	}
	if cur == nil {
		return repository.ErrConflict
	}

	row := *prod
	row.Version = prod.Version + 1
	row.UpdatedAt = time.Now()

	err = p.r.atomically(ctx, func(tx *Repository) error {
		if !strings.EqualFold(cur.Code, row.Code) {
			if err := tx.delete(ctx, tx.tables.ProductCodes, codeKey(cur.Code)); err != nil {
				return err
			}
			if err := tx.put(ctx, tx.tables.ProductCodes, codeKey(row.Code),
				productCodeRecord{Code: strings.ToLower(row.Code), ProductID: row.ID}, notExists("code")); err != nil {
				return err
			}
		}
		if err := tx.put(ctx, tx.tables.Products, numKey("id", row.ID), toProductRecord(&row), versionIs(prod.Version)); err != nil {
			return err
		}
		tx.tx.products[row.ID] = row
		return nil
	})
	if err != nil {
		return err
	}
	*prod = row
	return nil
}

func (p productRepo) Delete(ctx context.Context, id int64) (bool, error) {
	cur, err := p.GetByID(ctx, id)
	if err != nil || cur == nil {
		return false, err
	}
	err = p.r.atomically(ctx, func(tx *Repository) error {
		if err := tx.delete(ctx, tx.tables.ProductCodes, codeKey(cur.Code)); err != nil {
			return err
		}
		if err := tx.delete(ctx, tx.tables.Products, numKey("id", id)); err != nil {
			return err
		}
		delete(tx.tx.products, id)
		return nil
	})
	return err == nil, err
}
