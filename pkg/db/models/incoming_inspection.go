package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// IncomingInspection tracks a received purchase line from PENDING to PASSED or REJECTED.
type IncomingInspection struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PurchaseDocID        uuid.UUID              `gorm:"column:purchase_doc_id;type:uuid;not null;index" json:"purchaseDocId"`
	PurchaseDocItemID    *uuid.UUID             `gorm:"column:purchase_doc_item_id;type:uuid" json:"purchaseDocItemId"`
	ItemID               uuid.UUID              `gorm:"column:item_id;type:uuid;not null" json:"itemId"`
	SupplierID           uuid.UUID              `gorm:"column:supplier_id;type:uuid;not null;index" json:"supplierId"`
	InspectionDate       time.Time              `gorm:"column:inspection_date;not null" json:"inspectionDate"`
	WrongItem            bool                   `gorm:"column:wrong_item;not null;default:false" json:"wrongItem"`
	WrongItemDescription *string                `gorm:"column:wrong_item_description" json:"wrongItemDescription"`
	WeightDifference     decimal.NullDecimal    `gorm:"column:weight_difference;type:numeric(20,4)" json:"weightDifference"`
	HandlingMethod       *enums.HandlingMethod  `gorm:"column:handling_method" json:"handlingMethod"`
	HandlingNotes        *string                `gorm:"column:handling_notes" json:"handlingNotes"`
	InspectorID          *uuid.UUID             `gorm:"column:inspector_id;type:uuid" json:"inspectorId"`
	Status               enums.InspectionStatus `gorm:"column:status;not null;index" json:"status"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (i *IncomingInspection) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
