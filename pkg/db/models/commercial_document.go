package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// CommercialDocument is a sales or purchase document; Domain decides which.
type CommercialDocument struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Domain         enums.DocumentDomain `gorm:"column:domain;not null;uniqueIndex:ux_commercial_documents_domain_doc_no,priority:1" json:"domain"`
	Type           enums.DocumentType   `gorm:"column:type;not null" json:"type"`
	DocNo          string               `gorm:"column:doc_no;not null;uniqueIndex:ux_commercial_documents_domain_doc_no,priority:2" json:"docNo"`
	CounterpartyID uuid.UUID            `gorm:"column:counterparty_id;type:uuid;not null" json:"counterpartyId"`
	Date           time.Time            `gorm:"column:date;not null" json:"date"`
	Currency       enums.Currency       `gorm:"column:currency;not null;default:MYR" json:"currency"`
	ExchangeRate   decimal.Decimal      `gorm:"column:exchange_rate;type:numeric(20,6);not null" json:"exchangeRate"`
	Status         enums.DocumentStatus `gorm:"column:status;not null" json:"status"`
	IsTransferable bool                 `gorm:"column:is_transferable;not null" json:"isTransferable"`
	RefDocID       *uuid.UUID           `gorm:"column:ref_doc_id;type:uuid" json:"refDocId"`

	BranchID    *uuid.UUID `gorm:"column:branch_id;type:uuid" json:"branchId"`
	Agent       *string    `gorm:"column:agent" json:"agent"`
	Terms       *string    `gorm:"column:terms" json:"terms"`
	Description *string    `gorm:"column:description" json:"description"`
	Project     *string    `gorm:"column:project" json:"project"`
	RefNo       *string    `gorm:"column:ref_no" json:"refNo"`
	ExtNo       *string    `gorm:"column:ext_no" json:"extNo"`

	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(20,4);not null" json:"subtotal"`
	TaxAmount   decimal.Decimal `gorm:"column:tax_amount;type:numeric(20,4);not null" json:"taxAmount"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric(20,4);not null" json:"total"`
	Outstanding decimal.Decimal `gorm:"column:outstanding;type:numeric(20,4);not null" json:"outstanding"`

	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid" json:"createdBy"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Items []DocumentLineItem `gorm:"foreignKey:DocumentID;references:ID" json:"items"`
}

func (d *CommercialDocument) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// DocumentLineItem is owned by exactly one document and replaced in bulk on edit.
type DocumentLineItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DocumentID   uuid.UUID       `gorm:"column:document_id;type:uuid;not null;index" json:"documentId"`
	LineNo       int             `gorm:"column:line_no;not null" json:"lineNo"`
	ItemID       *uuid.UUID      `gorm:"column:item_id;type:uuid" json:"itemId"`
	Description  *string         `gorm:"column:description" json:"description"`
	Qty          decimal.Decimal `gorm:"column:qty;type:numeric(20,4);not null" json:"qty"`
	UOM          *string         `gorm:"column:uom" json:"uom"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(20,4);not null" json:"unitPrice"`
	Discount     decimal.Decimal `gorm:"column:discount;type:numeric(20,4);not null" json:"discount"`
	TaxCode      *string         `gorm:"column:tax_code" json:"taxCode"`
	TaxRate      decimal.Decimal `gorm:"column:tax_rate;type:numeric(9,4);not null" json:"taxRate"`
	TaxInclusive bool            `gorm:"column:tax_inclusive;not null;default:false" json:"taxInclusive"`
	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(20,4);not null" json:"subtotal"`
	TaxAmount    decimal.Decimal `gorm:"column:tax_amount;type:numeric(20,4);not null" json:"taxAmount"`
	Total        decimal.Decimal `gorm:"column:total;type:numeric(20,4);not null" json:"total"`

	PlannedWeight      decimal.NullDecimal `gorm:"column:planned_weight;type:numeric(20,4)" json:"plannedWeight"`
	ActualWeight       decimal.NullDecimal `gorm:"column:actual_weight;type:numeric(20,4)" json:"actualWeight"`
	WeightUnit         *string             `gorm:"column:weight_unit" json:"weightUnit"`
	PlannedArrivalDate *time.Time          `gorm:"column:planned_arrival_date" json:"plannedArrivalDate"`
	ActualArrivalDate  *time.Time          `gorm:"column:actual_arrival_date" json:"actualArrivalDate"`
	PaymentMethod      *string             `gorm:"column:payment_method" json:"paymentMethod"`
}

func (l *DocumentLineItem) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}
