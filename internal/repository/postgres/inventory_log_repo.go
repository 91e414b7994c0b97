package postgres

import (
	"context"

	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type inventoryLogRepo struct{ db *gorm.DB }

func NewInventoryLogRepo(db *gorm.DB) repository.InventoryLogRepo {
	return &inventoryLogRepo{db: db}
}

func (r *inventoryLogRepo) Append(ctx context.Context, l *models.InventoryLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *inventoryLogRepo) List(ctx context.Context) ([]models.InventoryLog, error) {
	var list []models.InventoryLog
	err := r.db.WithContext(ctx).Order("timestamp ASC, id ASC").Find(&list).Error
	return list, err
}
