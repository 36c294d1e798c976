package documents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// Repository persists commercial documents and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, doc *models.CommercialDocument) error
	FindByID(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID, forUpdate bool) (*models.CommercialDocument, error)
	UpdateHeader(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ReplaceItems(ctx context.Context, documentID uuid.UUID, items []models.DocumentLineItem) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.DocumentStatus, to enums.DocumentStatus, transferable bool) (int64, error)
	List(ctx context.Context, q listQuery) ([]models.CommercialDocument, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
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

// Create inserts the header and its lines together.
func (r *repository) Create(ctx context.Context, doc *models.CommercialDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// FindByID loads a document of the given domain with its lines in line order.
// forUpdate takes the header row lock for the rest of the transaction.
func (r *repository) FindByID(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID, forUpdate bool) (*models.CommercialDocument, error) {
	query := r.db.WithContext(ctx).Where("id = ? AND domain = ?", id, domain)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var doc models.CommercialDocument
	if err := query.First(&doc).Error; err != nil {
		return nil, err
	}
	items, err := r.items(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Items = items
	return &doc, nil
}

func (r *repository) items(ctx context.Context, documentID uuid.UUID) ([]models.DocumentLineItem, error) {
	var items []models.DocumentLineItem
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("line_no ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) UpdateHeader(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.CommercialDocument{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ReplaceItems deletes every line of the document and inserts items in their place.
func (r *repository) ReplaceItems(ctx context.Context, documentID uuid.UUID, items []models.DocumentLineItem) error {
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&models.DocumentLineItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].DocumentID = documentID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// TransitionStatus moves the document to `to` only while its status is one of
// from, and reports how many rows changed.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.DocumentStatus, to enums.DocumentStatus, transferable bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CommercialDocument{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":          to,
			"is_transferable": transferable,
		})
	return res.RowsAffected, res.Error
}

type listQuery struct {
	domain         enums.DocumentDomain
	docType        *enums.DocumentType
	status         *enums.DocumentStatus
	counterpartyID *uuid.UUID
	limit          int
	offset         int
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.CommercialDocument, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CommercialDocument{}).
		Where("domain = ?", q.domain)
	if q.docType != nil {
		query = query.Where("type = ?", *q.docType)
	}
	if q.status != nil {
		query = query.Where("status = ?", *q.status)
	}
	if q.counterpartyID != nil {
		query = query.Where("counterparty_id = ?", *q.counterpartyID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CommercialDocument
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Order("created_at DESC").Order("id DESC").
		Limit(q.limit).Offset(q.offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Delete removes the lines first, then the header.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", id).
		Delete(&models.DocumentLineItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.CommercialDocument{}).Error
}
