package service

import (
	"context"
	"errors"
	"strings"

	"rental-inventory/internal/clock"
	"rental-inventory/internal/models"
	"rental-inventory/internal/repository"
	"rental-inventory/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const noteInitialStock = "initial stock"

type catalogService struct {
	repo  repository.Repository
	store *store.Store
	clock clock.Clock
	log   *zap.Logger
}

func NewCatalogService(repo repository.Repository, st *store.Store, clk clock.Clock, log *zap.Logger) CatalogService {
	return &catalogService{
		repo:  repo,
		store: st,
		clock: clk,
		log:   log,
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, ErrInvalidName
	}
	if in.TotalOwned < 0 || in.PricePerDay.IsNegative() {
		return nil, ErrInvalidQuantity
	}
	stock := in.TotalOwned
	if in.InitialStock != nil {
		stock = *in.InitialStock
	}
	if stock < 0 {
		return nil, ErrInvalidQuantity
	}

	p := &models.Product{
		Code:                 code,
		Name:                 name,
		TotalOwned:           in.TotalOwned,
		CurrentPhysicalStock: stock,
		PricePerDay:          in.PricePerDay,
	}
	var logs []models.InventoryLog

	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		logs = nil
		if existing, err := tx.Products().GetByCode(ctx, code); err != nil {
			return persistence(err)
		} else if existing != nil {
			return ErrCodeAlreadyExists
		}
		if err := tx.Products().Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrCodeAlreadyExists
			}
			return persistence(err)
		}
		if stock > 0 {
			l := models.InventoryLog{
				ID:         uuid.New(),
				ProductID:  p.ID,
				ActionType: models.ActionAdjust,
				Quantity:   stock,
				Timestamp:  s.clock.Now(),
				StaffName:  staffOrSystem(ctx),
				Note:       noteInitialStock,
			}
			if err := tx.InventoryLogs().Append(ctx, &l); err != nil {
				return persistence(err)
			}
			logs = append(logs, l)
		}
		return nil
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.store.Apply(store.Changes{Products: []models.Product{*p}, Logs: logs})
	s.log.Info("product created", zap.Int64("product_id", p.ID), zap.String("code", p.Code))
	out := *p
	return &out, nil
}

// UpdateProduct patches catalogue fields. Physical stock is changed through
// the stock mutator only.
func (s *catalogService) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*models.Product, error) {
	var p *models.Product
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		cur, err := tx.Products().GetByID(ctx, id)
		if err != nil {
			return persistence(err)
		}
		if cur == nil {
			return ErrProductNotFound
		}

		if patch.Code != nil {
			code := strings.TrimSpace(*patch.Code)
			if code == "" {
				return ErrInvalidName
			}
			if !strings.EqualFold(code, cur.Code) {
				if existing, err := tx.Products().GetByCode(ctx, code); err != nil {
					return persistence(err)
				} else if existing != nil && existing.ID != cur.ID {
					return ErrCodeAlreadyExists
				}
			}
			cur.Code = code
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return ErrInvalidName
			}
			cur.Name = name
		}
		if patch.TotalOwned != nil {
			if *patch.TotalOwned < 0 {
				return ErrInvalidQuantity
			}
			cur.TotalOwned = *patch.TotalOwned
		}
		if patch.PricePerDay != nil {
			if patch.PricePerDay.IsNegative() {
				return ErrInvalidQuantity
			}
			cur.PricePerDay = *patch.PricePerDay
		}

		if err := tx.Products().Update(ctx, cur); err != nil {
			return persistence(err)
		}
		p = cur
		return nil
	})
	if err != nil {
		return nil, persistence(err)
	}

	s.store.Apply(store.Changes{Products: []models.Product{*p}})
	out := *p
	return &out, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := s.store.Snapshot().Product(id)
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.Snapshot().Products(), nil
}

// DeleteProduct refuses products that any order line still references.
func (s *catalogService) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		p, err := tx.Products().GetByID(ctx, id)
		if err != nil {
			return persistence(err)
		}
		if p == nil {
			return ErrProductNotFound
		}
		orders, err := tx.Orders().List(ctx)
		if err != nil {
			return persistence(err)
		}
		for i := range orders {
			if hasProduct(&orders[i], id) {
				return ErrProductInUse
			}
		}
		deleted, err = tx.Products().Delete(ctx, id)
		return persistence(err)
	})
	if err != nil {
		return false, persistence(err)
	}
	if deleted {
		s.store.Apply(store.Changes{DeletedProducts: []int64{id}})
	}
	return deleted, nil
}

func (s *catalogService) CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	c := &models.Customer{
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
		Email: strings.TrimSpace(in.Email),
	}
	if c.Name == "" {
		return nil, ErrInvalidName
	}
	if err := s.repo.Customers().Create(ctx, c); err != nil {
		return nil, persistence(err)
	}
	s.store.Apply(store.Changes{Customers: []models.Customer{*c}})
	out := *c
	return &out, nil
}

func (s *catalogService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, ok := s.store.Snapshot().Customer(id)
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &c, nil
}

func (s *catalogService) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.store.Snapshot().Customers(), nil
}

func (s *catalogService) ListInventoryLogs(ctx context.Context, f LogFilter) ([]models.InventoryLog, error) {
	logs := s.store.Snapshot().Logs()
	out := make([]models.InventoryLog, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		l := logs[i]
		if f.ProductID != 0 && l.ProductID != f.ProductID {
			continue
		}
		if f.OrderID != 0 && l.OrderID != f.OrderID {
			continue
		}
		out = append(out, l)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
