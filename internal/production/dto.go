package production

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

const (
	// SequenceTypeCode numbers job orders.
	SequenceTypeCode = "JO"
	// DefaultBOMVersion is stamped on a BOM created without a version.
	DefaultBOMVersion = "V1.0"
	// DefaultWeightUnit is used for finished products when none is given.
	DefaultWeightUnit = "KG"
)

type BOMLineInput struct {
	MaterialItemID uuid.UUID
	Quantity       decimal.Decimal
	UOM            *string
	IsSubAssembly  bool
	Notes          *string
}

type CreateBOMInput struct {
	ProductItemID uuid.UUID
	Version       string
	Description   *string
	Items         []BOMLineInput
}

// UpdateBOMInput patches a BOM. A non-nil Items replaces every line.
type UpdateBOMInput struct {
	ID          uuid.UUID
	Version     *string
	Description *string
	Items       []BOMLineInput
}

type ListBOMsParams struct {
	ProductItemID *uuid.UUID
	pagination.Params
}

// ExpandedBOM is a BOM with every sub-assembly line replaced by its own expansion.
type ExpandedBOM struct {
	ID            uuid.UUID      `json:"id"`
	ProductItemID uuid.UUID      `json:"productItemId"`
	Version       string         `json:"version"`
	Lines         []ExpandedLine `json:"lines"`
}

type ExpandedLine struct {
	MaterialItemID uuid.UUID       `json:"materialItemId"`
	Quantity       decimal.Decimal `json:"quantity"`
	UOM            *string         `json:"uom,omitempty"`
	IsSubAssembly  bool            `json:"isSubAssembly"`
	Notes          *string         `json:"notes,omitempty"`
	// Expansion is nil for plain materials and for sub-assemblies without an active BOM.
	Expansion *ExpandedBOM `json:"expansion,omitempty"`
}

type MaterialInput struct {
	MaterialItemID     uuid.UUID
	RequiredQty        decimal.Decimal
	UOM                *string
	RawMaterialBatchID *uuid.UUID
}

type CreateJobOrderInput struct {
	ProductItemID   uuid.UUID
	BOMID           *uuid.UUID
	PlannedQty      decimal.Decimal
	PlannedWeight   decimal.NullDecimal
	Color           *string
	ProductionCycle *string
	PlannedStart    *time.Time
	PlannedEnd      *time.Time
	Description     *string
	CreatedBy       *uuid.UUID
	Materials       []MaterialInput
}

// UpdateJobOrderInput patches an open job order. Materials may only be replaced
// while the order is PLANNED.
type UpdateJobOrderInput struct {
	ID              uuid.UUID
	PlannedQty      *decimal.Decimal
	PlannedWeight   decimal.NullDecimal
	Color           *string
	ProductionCycle *string
	PlannedStart    *time.Time
	PlannedEnd      *time.Time
	Description     *string
	Materials       []MaterialInput
}

type IssueMaterialInput struct {
	JobOrderID     uuid.UUID
	MaterialLineID uuid.UUID
	Qty            decimal.Decimal
	BatchID        *uuid.UUID
	ActorUserID    *uuid.UUID
}

type OutputInput struct {
	JobOrderID   uuid.UUID
	Qty          decimal.Decimal
	ActualWeight decimal.NullDecimal
}

// UsedMaterial links a finished product to the batch weight it consumed.
type UsedMaterial struct {
	BatchID    uuid.UUID
	UsedWeight decimal.Decimal
}

type CompleteInput struct {
	JobOrderID          uuid.UUID
	Weight              decimal.Decimal
	WeightUnit          string
	WarehouseLocationID *uuid.UUID
	UsedMaterials       []UsedMaterial
	ActorUserID         *uuid.UUID
}

// CompleteResult is the completed order and the product minted for it.
type CompleteResult struct {
	JobOrder        *models.JobOrder        `json:"jobOrder"`
	FinishedProduct *models.FinishedProduct `json:"finishedProduct"`
}

type ListJobOrdersParams struct {
	Status *enums.JobOrderStatus
	pagination.Params
}

// qrPayload is embedded in the finished product's QR code.
type qrPayload struct {
	TraceabilityCode string          `json:"traceabilityCode"`
	ProductItemID    uuid.UUID       `json:"productItemId"`
	JobOrderDocNo    string          `json:"jobOrderDocNo"`
	ProductionDate   time.Time       `json:"productionDate"`
	Weight           decimal.Decimal `json:"weight"`
	Color            *string         `json:"color,omitempty"`
}
