package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// BOM is the material recipe for one unit of a product item.
type BOM struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductItemID uuid.UUID `gorm:"column:product_item_id;type:uuid;not null;index" json:"productItemId"`
	Version       string    `gorm:"column:version;not null" json:"version"`
	Description   *string   `gorm:"column:description" json:"description"`
	IsActive      bool      `gorm:"column:is_active;not null" json:"isActive"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Items []BOMItem `gorm:"foreignKey:BOMID;references:ID" json:"items"`
}

func (BOM) TableName() string { return "boms" }

func (b *BOM) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

type BOMItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BOMID          uuid.UUID       `gorm:"column:bom_id;type:uuid;not null;index" json:"bomId"`
	LineNo         int             `gorm:"column:line_no;not null" json:"lineNo"`
	MaterialItemID uuid.UUID       `gorm:"column:material_item_id;type:uuid;not null" json:"materialItemId"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:numeric(20,4);not null" json:"quantity"`
	UOM            *string         `gorm:"column:uom" json:"uom"`
	IsSubAssembly  bool            `gorm:"column:is_sub_assembly;not null;default:false" json:"isSubAssembly"`
	Notes          *string         `gorm:"column:notes" json:"notes"`
}

func (BOMItem) TableName() string { return "bom_items" }

func (i *BOMItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// JobOrder moves PLANNED -> IN_PROGRESS -> COMPLETED, or to CANCELLED.
type JobOrder struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DocNo           string               `gorm:"column:doc_no;not null;uniqueIndex:ux_job_orders_doc_no" json:"docNo"`
	ProductItemID   uuid.UUID            `gorm:"column:product_item_id;type:uuid;not null" json:"productItemId"`
	BOMID           *uuid.UUID           `gorm:"column:bom_id;type:uuid" json:"bomId"`
	PlannedQty      decimal.Decimal      `gorm:"column:planned_qty;type:numeric(20,4);not null" json:"plannedQty"`
	CompletedQty    decimal.Decimal      `gorm:"column:completed_qty;type:numeric(20,4);not null" json:"completedQty"`
	PlannedWeight   decimal.NullDecimal  `gorm:"column:planned_weight;type:numeric(20,4)" json:"plannedWeight"`
	ActualWeight    decimal.NullDecimal  `gorm:"column:actual_weight;type:numeric(20,4)" json:"actualWeight"`
	YieldRate       decimal.NullDecimal  `gorm:"column:yield_rate;type:numeric(9,4)" json:"yieldRate"`
	Color           *string              `gorm:"column:color" json:"color"`
	ProductionCycle *string              `gorm:"column:production_cycle" json:"productionCycle"`
	PlannedStart    *time.Time           `gorm:"column:planned_start" json:"plannedStart"`
	PlannedEnd      *time.Time           `gorm:"column:planned_end" json:"plannedEnd"`
	ActualStart     *time.Time           `gorm:"column:actual_start" json:"actualStart"`
	ActualEnd       *time.Time           `gorm:"column:actual_end" json:"actualEnd"`
	Status          enums.JobOrderStatus `gorm:"column:status;not null;index" json:"status"`
	Description     *string              `gorm:"column:description" json:"description"`
	CreatedBy       *uuid.UUID           `gorm:"column:created_by;type:uuid" json:"createdBy"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Materials []JobOrderMaterial `gorm:"foreignKey:JobOrderID;references:ID" json:"materials"`
}

func (j *JobOrder) BeforeCreate(*gorm.DB) error {
	assignID(&j.ID)
	return nil
}

type JobOrderMaterial struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	JobOrderID         uuid.UUID       `gorm:"column:job_order_id;type:uuid;not null;index" json:"jobOrderId"`
	LineNo             int             `gorm:"column:line_no;not null" json:"lineNo"`
	MaterialItemID     uuid.UUID       `gorm:"column:material_item_id;type:uuid;not null" json:"materialItemId"`
	RequiredQty        decimal.Decimal `gorm:"column:required_qty;type:numeric(20,4);not null" json:"requiredQty"`
	IssuedQty          decimal.Decimal `gorm:"column:issued_qty;type:numeric(20,4);not null" json:"issuedQty"`
	UOM                *string         `gorm:"column:uom" json:"uom"`
	RawMaterialBatchID *uuid.UUID      `gorm:"column:raw_material_batch_id;type:uuid" json:"rawMaterialBatchId"`
}

func (m *JobOrderMaterial) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// FinishedProduct is minted once per completed job order; Materials is the forward trace record.
type FinishedProduct struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TraceabilityCode    string          `gorm:"column:traceability_code;not null;uniqueIndex:ux_finished_products_traceability_code" json:"traceabilityCode"`
	ItemID              uuid.UUID       `gorm:"column:item_id;type:uuid;not null" json:"itemId"`
	JobOrderID          uuid.UUID       `gorm:"column:job_order_id;type:uuid;not null;uniqueIndex:ux_finished_products_job_order_id" json:"jobOrderId"`
	Weight              decimal.Decimal `gorm:"column:weight;type:numeric(20,4);not null" json:"weight"`
	WeightUnit          string          `gorm:"column:weight_unit;not null;default:KG" json:"weightUnit"`
	Color               *string         `gorm:"column:color" json:"color"`
	ProductionDate      time.Time       `gorm:"column:production_date;not null" json:"productionDate"`
	WarehouseLocationID *uuid.UUID      `gorm:"column:warehouse_location_id;type:uuid" json:"warehouseLocationId"`
	QRCodeData          json.RawMessage `gorm:"column:qr_code_data;type:jsonb" json:"qrCodeData"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`

	Materials []FinishedProductMaterial `gorm:"foreignKey:FinishedProductID;references:ID" json:"materials"`
}

func (p *FinishedProduct) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

type FinishedProductMaterial struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FinishedProductID  uuid.UUID       `gorm:"column:finished_product_id;type:uuid;not null;index" json:"finishedProductId"`
	RawMaterialBatchID uuid.UUID       `gorm:"column:raw_material_batch_id;type:uuid;not null;index" json:"rawMaterialBatchId"`
	UsedWeight         decimal.Decimal `gorm:"column:used_weight;type:numeric(20,4);not null" json:"usedWeight"`
}

func (m *FinishedProductMaterial) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
