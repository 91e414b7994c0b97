package postgres

import (
	"context"
	"time"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"gorm.io/gorm"
)

type orderItemRepo struct{ db *gorm.DB }

func NewOrderItemRepo(db *gorm.DB) repository.OrderItemRepo { return &orderItemRepo{db: db} }

func (r *orderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].Version == 0 {
			items[i].Version = 1
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderItemRepo) Update(ctx context.Context, it *models.OrderItem) error {
	now := time.Now()
	tx := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND version = ?", it.ID, it.Version).
		Updates(map[string]any{
			"quantity":          it.Quantity,
			"exported_quantity": it.ExportedQuantity,
			"returned_quantity": it.ReturnedQuantity,
			"price_per_day":     it.PricePerDay,
			"returned_at":       it.ReturnedAt,
			"returned_by":       it.ReturnedBy,
			"version":           it.Version + 1,
			"updated_at":        now,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return repository.ErrConflict
	}
	it.Version++
	it.UpdatedAt = now
	return nil
}
