package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// Repository persists stock transactions and moves balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTransaction(ctx context.Context, txn *models.StockTransaction) error
	ApplyDelta(ctx context.Context, itemID, locationID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	FindTransaction(ctx context.Context, id uuid.UUID) (*models.StockTransaction, error)
	ListTransactions(ctx context.Context, q transactionQuery) ([]models.StockTransaction, int64, error)
	ListBalances(ctx context.Context, q balanceQuery) ([]models.StockBalance, int64, error)
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

// CreateTransaction inserts the header and its lines in one call.
func (r *repository) CreateTransaction(ctx context.Context, txn *models.StockTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// ApplyDelta increments the (item, location) balance, creating it on first
// movement, and returns the quantity after the change. The upsert takes the
// row lock, so writers of one pair serialize while other pairs proceed.
func (r *repository) ApplyDelta(ctx context.Context, itemID, locationID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	row := models.StockBalance{
		ItemID:     itemID,
		LocationID: locationID,
		Quantity:   delta,
	}
	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "item_id"}, {Name: "location_id"}},
				DoUpdates: clause.Assignments(map[string]any{
					"quantity":   gorm.Expr("stock_balances.quantity + excluded.quantity"),
					"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "quantity"}}},
		).
		Create(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Quantity, nil
}

func (r *repository) FindTransaction(ctx context.Context, id uuid.UUID) (*models.StockTransaction, error) {
	var row models.StockTransaction
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

type transactionQuery struct {
	txType *enums.StockTransactionType
	limit  int
	offset int
}

func (r *repository) ListTransactions(ctx context.Context, q transactionQuery) ([]models.StockTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockTransaction{})
	if q.txType != nil {
		query = query.Where("type = ?", *q.txType)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockTransaction
	err := query.
		Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Limit(q.limit).Offset(q.offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

type balanceQuery struct {
	itemID     *uuid.UUID
	locationID *uuid.UUID
	limit      int
	offset     int
}

func (r *repository) ListBalances(ctx context.Context, q balanceQuery) ([]models.StockBalance, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockBalance{})
	if q.itemID != nil {
		query = query.Where("item_id = ?", *q.itemID)
	}
	if q.locationID != nil {
		query = query.Where("location_id = ?", *q.locationID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockBalance
	err := query.
		Order("item_id ASC").Order("location_id ASC").
		Limit(q.limit).Offset(q.offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
