package trace

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
)

// Repository is read-only; every lookup returns gorm.ErrRecordNotFound for a
// missing primary row and skips missing related rows.
type Repository interface {
	BatchByCode(ctx context.Context, code string) (*models.RawMaterialBatch, error)
	ProductByCode(ctx context.Context, code string) (*models.FinishedProduct, error)
	Item(ctx context.Context, id uuid.UUID) (*models.StockItem, error)
	Supplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	Document(ctx context.Context, id uuid.UUID) (*models.CommercialDocument, error)
	Inspection(ctx context.Context, id uuid.UUID) (*models.IncomingInspection, error)
	JobOrder(ctx context.Context, id uuid.UUID) (*models.JobOrder, error)
	Batches(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.RawMaterialBatch, error)
	Suppliers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Supplier, error)
	Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.FinishedProduct, error)
	JobOrderNumbers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	UsagesOfBatch(ctx context.Context, batchID uuid.UUID) ([]models.FinishedProductMaterial, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) BatchByCode(ctx context.Context, code string) (*models.RawMaterialBatch, error) {
	var batch models.RawMaterialBatch
	if err := r.db.WithContext(ctx).Where("traceability_code = ?", code).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) ProductByCode(ctx context.Context, code string) (*models.FinishedProduct, error) {
	var product models.FinishedProduct
	err := r.db.WithContext(ctx).
		Preload("Materials").
		Where("traceability_code = ?", code).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) Item(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	return findOptional[models.StockItem](ctx, r.db, id)
}

func (r *repository) Supplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	return findOptional[models.Supplier](ctx, r.db, id)
}

func (r *repository) Document(ctx context.Context, id uuid.UUID) (*models.CommercialDocument, error) {
	return findOptional[models.CommercialDocument](ctx, r.db, id)
}

func (r *repository) Inspection(ctx context.Context, id uuid.UUID) (*models.IncomingInspection, error) {
	return findOptional[models.IncomingInspection](ctx, r.db, id)
}

func (r *repository) JobOrder(ctx context.Context, id uuid.UUID) (*models.JobOrder, error) {
	var order models.JobOrder
	err := r.db.WithContext(ctx).
		Preload("Materials", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Batches(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.RawMaterialBatch, error) {
	out := make(map[uuid.UUID]models.RawMaterialBatch, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.RawMaterialBatch
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repository) Suppliers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Supplier, error) {
	out := make(map[uuid.UUID]models.Supplier, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Supplier
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repository) Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.FinishedProduct, error) {
	out := make(map[uuid.UUID]models.FinishedProduct, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.FinishedProduct
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repository) JobOrderNumbers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.JobOrder
	if err := r.db.WithContext(ctx).Select("id", "doc_no").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.DocNo
	}
	return out, nil
}

// UsagesOfBatch lists the forward links of one batch, oldest product first.
func (r *repository) UsagesOfBatch(ctx context.Context, batchID uuid.UUID) ([]models.FinishedProductMaterial, error) {
	var rows []models.FinishedProductMaterial
	err := r.db.WithContext(ctx).
		Joins("JOIN finished_products fp ON fp.id = finished_product_materials.finished_product_id").
		Where("finished_product_materials.raw_material_batch_id = ?", batchID).
		Order("fp.production_date ASC").Order("fp.traceability_code ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func findOptional[T any](ctx context.Context, db *gorm.DB, id uuid.UUID) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
