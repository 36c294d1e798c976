package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID, forUpdate bool) (*models.Payment, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q listQuery) ([]models.Payment, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID, forUpdate bool) (*models.Payment, error) {
	query := r.db.WithContext(ctx).Where("id = ? AND domain = ?", id, domain)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var payment models.Payment
	if err := query.First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Payment{}).Error
}

type listQuery struct {
	domain         enums.DocumentDomain
	counterpartyID *uuid.UUID
	limit          int
	offset         int
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{}).Where("domain = ?", q.domain)
	if q.counterpartyID != nil {
		query = query.Where("counterparty_id = ?", *q.counterpartyID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Payment
	err := query.
		Order("date DESC").Order("created_at DESC").Order("id DESC").
		Limit(q.limit).Offset(q.offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
