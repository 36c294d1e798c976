package traceability

import (
	"context"

	"gorm.io/gorm"
)

// Repository manages the per-prefix, per-day counters in trace_code_counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Increment(ctx context.Context, prefix, day string) (int64, error)
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

const incrementSQL = `
INSERT INTO trace_code_counters (prefix, day, last_number)
VALUES (?, ?, 1)
ON CONFLICT (prefix, day) DO UPDATE
SET last_number = trace_code_counters.last_number + 1
RETURNING last_number`

func (r *repository) Increment(ctx context.Context, prefix, day string) (int64, error) {
	var row struct {
		LastNumber int64 `gorm:"column:last_number"`
	}
	if err := r.db.WithContext(ctx).Raw(incrementSQL, prefix, day).Scan(&row).Error; err != nil {
		return 0, err
	}
	return row.LastNumber, nil
}
