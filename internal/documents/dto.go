package documents

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

// Draft is the input for a new document of either domain.
type Draft struct {
	Domain         enums.DocumentDomain
	Type           enums.DocumentType
	CounterpartyID uuid.UUID
	Date           time.Time
	Currency       enums.Currency
	ExchangeRate   *decimal.Decimal
	RefDocID       *uuid.UUID
	BranchID       *uuid.UUID
	Agent          *string
	Terms          *string
	Description    *string
	Project        *string
	RefNo          *string
	ExtNo          *string
	CreatedBy      *uuid.UUID
	Items          []LineInput
}

// LineInput is one document line before its amounts are derived.
type LineInput struct {
	ItemID             *uuid.UUID
	Description        *string
	Qty                decimal.Decimal
	UOM                *string
	UnitPrice          decimal.Decimal
	Discount           decimal.Decimal
	TaxCode            *string
	TaxRate            decimal.Decimal
	TaxInclusive       bool
	PlannedWeight      decimal.NullDecimal
	ActualWeight       decimal.NullDecimal
	WeightUnit         *string
	PlannedArrivalDate *time.Time
	ActualArrivalDate  *time.Time
	PaymentMethod      *string
}

// Patch carries the fields an update changes. A nil Items keeps the current lines;
// a non-nil Items replaces all of them.
type Patch struct {
	CounterpartyID *uuid.UUID
	Date           *time.Time
	Currency       *enums.Currency
	ExchangeRate   *decimal.Decimal
	BranchID       *uuid.UUID
	Agent          *string
	Terms          *string
	Description    *string
	Project        *string
	RefNo          *string
	ExtNo          *string
	Items          []LineInput
}

type UpdateInput struct {
	Domain     enums.DocumentDomain
	DocumentID uuid.UUID
	Patch      Patch
}

// TransitionInput addresses approve and cancel.
type TransitionInput struct {
	Domain      enums.DocumentDomain
	DocumentID  uuid.UUID
	ActorUserID *uuid.UUID
}

type TransferInput struct {
	Domain      enums.DocumentDomain
	DocumentID  uuid.UUID
	TargetType  enums.DocumentType
	ActorUserID *uuid.UUID
}

// TransferResult returns both sides of a transform plus any inspections it opened.
type TransferResult struct {
	Source        *models.CommercialDocument `json:"source"`
	Target        *models.CommercialDocument `json:"target"`
	InspectionIDs []uuid.UUID                `json:"inspectionIds,omitempty"`
}

// ListParams filter a domain's documents.
type ListParams struct {
	Domain         enums.DocumentDomain
	Type           *enums.DocumentType
	Status         *enums.DocumentStatus
	CounterpartyID *uuid.UUID
	pagination.Params
}
