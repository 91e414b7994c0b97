package postgres

import (
	"context"
	"errors"
	"time"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) repository.OrderRepo { return &orderRepo{db: db} }

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id ASC")
}

func (r *orderRepo) List(ctx context.Context) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).Preload("Items", preloadItems).First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	if o.Version == 0 {
		o.Version = 1
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(o).Error
}

func (r *orderRepo) Update(ctx context.Context, o *models.Order) error {
	now := time.Now()
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", o.ID, o.Version).
		Updates(map[string]any{
			"customer_id":          o.CustomerID,
			"rental_start_date":    o.RentalStartDate,
			"expected_return_date": o.ExpectedReturnDate,
			"actual_return_date":   o.ActualReturnDate,
			"status":               o.Status,
			"total_amount":         o.TotalAmount,
			"final_amount":         o.FinalAmount,
			"completed_by":         o.CompletedBy,
			"note":                 o.Note,
			"version":              o.Version + 1,
			"updated_at":           now,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return repository.ErrConflict
	}
	o.Version++
	o.UpdatedAt = now
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, "id = ?", id)
		deleted = res.RowsAffected > 0
		return res.Error
	})
	return deleted, err
}
