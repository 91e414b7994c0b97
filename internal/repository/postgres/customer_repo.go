package postgres

import (
	"context"
	"errors"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"gorm.io/gorm"
)

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepo(db *gorm.DB) repository.CustomerRepo { return &customerRepo{db: db} }

func (r *customerRepo) List(ctx context.Context) ([]models.Customer, error) {
	var list []models.Customer
	err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *customerRepo) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) Create(ctx context.Context, c *models.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}
