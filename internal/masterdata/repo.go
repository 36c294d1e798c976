package masterdata

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
)

// Repository reads master data rows and moves counterparty outstanding balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	FindItem(ctx context.Context, id uuid.UUID) (*models.StockItem, error)
	FindLocation(ctx context.Context, id uuid.UUID) (*models.StockLocation, error)
	AddCustomerOutstanding(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (int64, error)
	AddSupplierOutstanding(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (int64, error)
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

func (r *repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var row models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var row models.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	var row models.StockItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindLocation(ctx context.Context, id uuid.UUID) (*models.StockLocation, error) {
	var row models.StockLocation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Outstanding moves in place so concurrent invoices and payments never lose an update.
func (r *repository) AddCustomerOutstanding(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		UpdateColumn("outstanding_amount", gorm.Expr("outstanding_amount + ?", delta))
	return res.RowsAffected, res.Error
}

func (r *repository) AddSupplierOutstanding(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Supplier{}).
		Where("id = ?", id).
		UpdateColumn("outstanding_amount", gorm.Expr("outstanding_amount + ?", delta))
	return res.RowsAffected, res.Error
}
