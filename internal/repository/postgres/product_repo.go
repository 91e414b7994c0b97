package postgres

import (
	"context"
	"errors"
	"time"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"gorm.io/gorm"
)

type productRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) repository.ProductRepo { return &productRepo{db: db} }

func (r *productRepo) List(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	err := r.db.WithContext(ctx).Order("code ASC").Find(&list).Error
	return list, err
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).Where("lower(code) = lower(?)", code).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) error {
	now := time.Now()
	tx := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]any{
			"code":                   p.Code,
			"name":                   p.Name,
			"total_owned":            p.TotalOwned,
			"current_physical_stock": p.CurrentPhysicalStock,
			"price_per_day":          p.PricePerDay,
			"version":                p.Version + 1,
			"updated_at":             now,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return repository.ErrConflict
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	return tx.RowsAffected > 0, tx.Error
}
