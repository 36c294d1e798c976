package inspection

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// Repository persists inspections and the raw-material batches they mint.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, inspection *models.IncomingInspection) error
	FindByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.IncomingInspection, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	TransitionStatus(ctx context.Context, id uuid.UUID, to enums.InspectionStatus, updates map[string]any) (int64, error)
	List(ctx context.Context, q listQuery) ([]models.IncomingInspection, int64, error)
	CreateBatch(ctx context.Context, batch *models.RawMaterialBatch) error
	PurchaseDocumentExists(ctx context.Context, id uuid.UUID) (bool, error)
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

func (r *repository) Create(ctx context.Context, inspection *models.IncomingInspection) error {
	return r.db.WithContext(ctx).Create(inspection).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.IncomingInspection, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row models.IncomingInspection
	if err := query.First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.IncomingInspection{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// TransitionStatus closes a PENDING inspection; zero rows means it was not pending.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, to enums.InspectionStatus, updates map[string]any) (int64, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.IncomingInspection{}).
		Where("id = ? AND status = ?", id, enums.InspectionPending).
		Updates(values)
	return res.RowsAffected, res.Error
}

type listQuery struct {
	status     *enums.InspectionStatus
	supplierID *uuid.UUID
	limit      int
	offset     int
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.IncomingInspection, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.IncomingInspection{})
	if q.status != nil {
		query = query.Where("status = ?", *q.status)
	}
	if q.supplierID != nil {
		query = query.Where("supplier_id = ?", *q.supplierID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.IncomingInspection
	err := query.
		Order("inspection_date DESC").Order("id DESC").
		Limit(q.limit).Offset(q.offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) CreateBatch(ctx context.Context, batch *models.RawMaterialBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repository) PurchaseDocumentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommercialDocument{}).
		Where("id = ? AND domain = ?", id, enums.DomainPurchase).
		Count(&count).Error
	return count > 0, err
}
