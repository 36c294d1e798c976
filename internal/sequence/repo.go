package sequence

import (
	"context"

	"gorm.io/gorm"
)

// Issued is the outcome of one counter increment.
type Issued struct {
	Number int64  `gorm:"column:issued"`
	Prefix string `gorm:"column:prefix"`
	Format string `gorm:"column:format"`
}

// Repository manages document_sequences rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Increment(ctx context.Context, typeCode string) (Issued, error)
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

// The upsert holds the row lock until the surrounding transaction ends, so
// concurrent callers for one type queue behind each other while other types
// stay independent.
const incrementSQL = `
INSERT INTO document_sequences (type_code, prefix, next_number, format, updated_at)
VALUES (?, ?, 2, ?, CURRENT_TIMESTAMP)
ON CONFLICT (type_code) DO UPDATE
SET next_number = document_sequences.next_number + 1,
    updated_at = CURRENT_TIMESTAMP
RETURNING next_number - 1 AS issued, prefix, format`

func (r *repository) Increment(ctx context.Context, typeCode string) (Issued, error) {
	var issued Issued
	err := r.db.WithContext(ctx).
		Raw(incrementSQL, typeCode, typeCode, DefaultFormat).
		Scan(&issued).Error
	return issued, err
}
