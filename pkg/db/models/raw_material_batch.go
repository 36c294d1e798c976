package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RawMaterialBatch is minted once per passed inspection. RemainingWeight only decreases.
type RawMaterialBatch struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TraceabilityCode    string          `gorm:"column:traceability_code;not null;uniqueIndex:ux_raw_material_batches_traceability_code" json:"traceabilityCode"`
	ItemID              uuid.UUID       `gorm:"column:item_id;type:uuid;not null" json:"itemId"`
	PurchaseDocID       uuid.UUID       `gorm:"column:purchase_doc_id;type:uuid;not null" json:"purchaseDocId"`
	PurchaseDocItemID   *uuid.UUID      `gorm:"column:purchase_doc_item_id;type:uuid" json:"purchaseDocItemId"`
	InspectionID        uuid.UUID       `gorm:"column:inspection_id;type:uuid;not null;uniqueIndex:ux_raw_material_batches_inspection_id" json:"inspectionId"`
	SupplierID          uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null" json:"supplierId"`
	Weight              decimal.Decimal `gorm:"column:weight;type:numeric(20,4);not null" json:"weight"`
	WeightUnit          string          `gorm:"column:weight_unit;not null;default:KG" json:"weightUnit"`
	RemainingWeight     decimal.Decimal `gorm:"column:remaining_weight;type:numeric(20,4);not null" json:"remainingWeight"`
	WarehouseLocationID *uuid.UUID      `gorm:"column:warehouse_location_id;type:uuid" json:"warehouseLocationId"`
	ReceivedDate        time.Time       `gorm:"column:received_date;not null" json:"receivedDate"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (b *RawMaterialBatch) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}
