package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// StockBalance is the on-hand quantity of one item at one location. It only moves by signed increments.
type StockBalance struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID     uuid.UUID       `gorm:"column:item_id;type:uuid;not null;uniqueIndex:ux_stock_balances_item_location,priority:1" json:"itemId"`
	LocationID uuid.UUID       `gorm:"column:location_id;type:uuid;not null;uniqueIndex:ux_stock_balances_item_location,priority:2" json:"locationId"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:numeric(20,4);not null" json:"quantity"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (b *StockBalance) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

// StockTransaction is an immutable ledger entry; its lines drive balance deltas.
type StockTransaction struct {
	ID              uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Type            enums.StockTransactionType `gorm:"column:type;not null" json:"type"`
	DocNo           string                     `gorm:"column:doc_no;not null;uniqueIndex:ux_stock_transactions_doc_no" json:"docNo"`
	Date            time.Time                  `gorm:"column:date;not null" json:"date"`
	LocationFromID  *uuid.UUID                 `gorm:"column:location_from_id;type:uuid" json:"locationFromId"`
	LocationToID    *uuid.UUID                 `gorm:"column:location_to_id;type:uuid" json:"locationToId"`
	RefDocumentType *string                    `gorm:"column:ref_document_type" json:"refDocumentType"`
	RefDocumentID   *uuid.UUID                 `gorm:"column:ref_document_id;type:uuid" json:"refDocumentId"`
	Description     *string                    `gorm:"column:description" json:"description"`
	CreatedBy       *uuid.UUID                 `gorm:"column:created_by;type:uuid" json:"createdBy"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`

	Items []StockTransactionItem `gorm:"foreignKey:TransactionID;references:ID" json:"items"`
}

func (s *StockTransaction) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

type StockTransactionItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;index" json:"transactionId"`
	ItemID        uuid.UUID       `gorm:"column:item_id;type:uuid;not null" json:"itemId"`
	Qty           decimal.Decimal `gorm:"column:qty;type:numeric(20,4);not null" json:"qty"`
	UOM           *string         `gorm:"column:uom" json:"uom"`
	UnitCost      decimal.Decimal `gorm:"column:unit_cost;type:numeric(20,4);not null" json:"unitCost"`
	Notes         *string         `gorm:"column:notes" json:"notes"`
}

func (i *StockTransactionItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
