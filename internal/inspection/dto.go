package inspection

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

// DefaultWeightUnit applies when a pass does not name a unit.
const DefaultWeightUnit = "KG"

type CreateInput struct {
	PurchaseDocID        uuid.UUID
	PurchaseDocItemID    *uuid.UUID
	ItemID               uuid.UUID
	SupplierID           uuid.UUID
	InspectionDate       *time.Time
	WrongItem            bool
	WrongItemDescription *string
	WeightDifference     decimal.NullDecimal
	HandlingMethod       *enums.HandlingMethod
	HandlingNotes        *string
	InspectorID          *uuid.UUID
}

// UpdateInput patches a PENDING inspection; nil fields are kept.
// ClearWeightDifference resets a recorded difference to null.
type UpdateInput struct {
	ID                    uuid.UUID
	InspectionDate        *time.Time
	WrongItem             *bool
	WrongItemDescription  *string
	WeightDifference      decimal.NullDecimal
	ClearWeightDifference bool
	HandlingMethod       *enums.HandlingMethod
	HandlingNotes        *string
	InspectorID          *uuid.UUID
}

type PassInput struct {
	ID                  uuid.UUID
	Weight              decimal.Decimal
	WeightUnit          string
	WarehouseLocationID *uuid.UUID
	InspectorID         *uuid.UUID
	ActorUserID         *uuid.UUID
}

// PassResult is the passed inspection and the batch minted for it.
type PassResult struct {
	Inspection *models.IncomingInspection `json:"inspection"`
	Batch      *models.RawMaterialBatch   `json:"batch"`
}

type RejectInput struct {
	ID             uuid.UUID
	HandlingMethod *enums.HandlingMethod
	HandlingNotes  *string
	InspectorID    *uuid.UUID
	ActorUserID    *uuid.UUID
}

type ListParams struct {
	Status     *enums.InspectionStatus
	SupplierID *uuid.UUID
	pagination.Params
}
