package production

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// Repository persists BOMs, job orders and finished products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateBOM(ctx context.Context, bom *models.BOM) error
	FindBOM(ctx context.Context, id uuid.UUID) (*models.BOM, error)
	FindActiveBOMForProduct(ctx context.Context, productItemID uuid.UUID) (*models.BOM, error)
	UpdateBOM(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ReplaceBOMItems(ctx context.Context, bomID uuid.UUID, items []models.BOMItem) error
	ListBOMs(ctx context.Context, q bomQuery) ([]models.BOM, int64, error)

	CreateJobOrder(ctx context.Context, order *models.JobOrder) error
	FindJobOrder(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.JobOrder, error)
	UpdateJobOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	TransitionJobOrder(ctx context.Context, id uuid.UUID, from []enums.JobOrderStatus, updates map[string]any) (int64, error)
	ReplaceMaterials(ctx context.Context, jobOrderID uuid.UUID, lines []models.JobOrderMaterial) error
	DeleteJobOrder(ctx context.Context, id uuid.UUID) error
	ListJobOrders(ctx context.Context, q jobOrderQuery) ([]models.JobOrder, int64, error)
	RecordIssue(ctx context.Context, materialLineID uuid.UUID, qty decimal.Decimal, batchID *uuid.UUID) error

	ConsumeBatch(ctx context.Context, batchID uuid.UUID, weight decimal.Decimal) (decimal.Decimal, error)
	CountBatches(ctx context.Context, ids []uuid.UUID) (int64, error)
	CreateFinishedProduct(ctx context.Context, product *models.FinishedProduct) error
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

func (r *repository) CreateBOM(ctx context.Context, bom *models.BOM) error {
	return r.db.WithContext(ctx).Create(bom).Error
}

func (r *repository) FindBOM(ctx context.Context, id uuid.UUID) (*models.BOM, error) {
	var bom models.BOM
	err := r.db.WithContext(ctx).
		Preload("Items", orderBOMItems).
		Where("id = ?", id).
		First(&bom).Error
	if err != nil {
		return nil, err
	}
	return &bom, nil
}

// FindActiveBOMForProduct returns the newest active BOM of a product.
func (r *repository) FindActiveBOMForProduct(ctx context.Context, productItemID uuid.UUID) (*models.BOM, error) {
	var bom models.BOM
	err := r.db.WithContext(ctx).
		Preload("Items", orderBOMItems).
		Where("product_item_id = ? AND is_active = ?", productItemID, true).
		Order("created_at DESC").Order("id DESC").
		First(&bom).Error
	if err != nil {
		return nil, err
	}
	return &bom, nil
}

func orderBOMItems(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

func (r *repository) UpdateBOM(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.BOM{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ReplaceBOMItems(ctx context.Context, bomID uuid.UUID, items []models.BOMItem) error {
	if err := r.db.WithContext(ctx).
		Where("bom_id = ?", bomID).
		Delete(&models.BOMItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].BOMID = bomID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

type bomQuery struct {
	productItemID *uuid.UUID
	limit         int
	offset        int
}

func (r *repository) ListBOMs(ctx context.Context, q bomQuery) ([]models.BOM, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BOM{})
	if q.productItemID != nil {
		query = query.Where("product_item_id = ?", *q.productItemID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BOM
	err := query.
		Preload("Items", orderBOMItems).
		Order("created_at DESC").Order("id DESC").
		Limit(q.limit).Offset(q.offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) CreateJobOrder(ctx context.Context, order *models.JobOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindJobOrder(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.JobOrder, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.JobOrder
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	var materials []models.JobOrderMaterial
	if err := r.db.WithContext(ctx).
		Where("job_order_id = ?", order.ID).
		Order("line_no ASC").
		Find(&materials).Error; err != nil {
		return nil, err
	}
	order.Materials = materials
	return &order, nil
}

func (r *repository) UpdateJobOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.JobOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// TransitionJobOrder applies updates only while the order is in one of from.
func (r *repository) TransitionJobOrder(ctx context.Context, id uuid.UUID, from []enums.JobOrderStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.JobOrder{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) ReplaceMaterials(ctx context.Context, jobOrderID uuid.UUID, lines []models.JobOrderMaterial) error {
	if err := r.db.WithContext(ctx).
		Where("job_order_id = ?", jobOrderID).
		Delete(&models.JobOrderMaterial{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].JobOrderID = jobOrderID
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) DeleteJobOrder(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("job_order_id = ?", id).
		Delete(&models.JobOrderMaterial{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.JobOrder{}).Error
}

type jobOrderQuery struct {
	status *enums.JobOrderStatus
	limit  int
	offset int
}

func (r *repository) ListJobOrders(ctx context.Context, q jobOrderQuery) ([]models.JobOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.JobOrder{})
	if q.status != nil {
		query = query.Where("status = ?", *q.status)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.JobOrder
	err := query.
		Preload("Materials", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Order("created_at DESC").Order("id DESC").
		Limit(q.limit).Offset(q.offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// RecordIssue increments a material line's issued quantity and remembers the batch.
func (r *repository) RecordIssue(ctx context.Context, materialLineID uuid.UUID, qty decimal.Decimal, batchID *uuid.UUID) error {
	updates := map[string]any{
		"issued_qty": gorm.Expr("issued_qty + ?", qty),
	}
	if batchID != nil {
		updates["raw_material_batch_id"] = *batchID
	}
	return r.db.WithContext(ctx).
		Model(&models.JobOrderMaterial{}).
		Where("id = ?", materialLineID).
		UpdateColumns(updates).Error
}

// ConsumeBatch lowers the batch's remaining weight in place and returns the new
// value. gorm.ErrRecordNotFound means no such batch.
func (r *repository) ConsumeBatch(ctx context.Context, batchID uuid.UUID, weight decimal.Decimal) (decimal.Decimal, error) {
	var batch models.RawMaterialBatch
	res := r.db.WithContext(ctx).
		Model(&batch).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "remaining_weight"}}}).
		Where("id = ?", batchID).
		UpdateColumn("remaining_weight", gorm.Expr("remaining_weight - ?", weight))
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return batch.RemainingWeight, nil
}

func (r *repository) CountBatches(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RawMaterialBatch{}).
		Where("id IN ?", ids).
		Count(&count).Error
	return count, err
}

// CreateFinishedProduct inserts the product and its consumed-batch links.
func (r *repository) CreateFinishedProduct(ctx context.Context, product *models.FinishedProduct) error {
	return r.db.WithContext(ctx).Create(product).Error
}
