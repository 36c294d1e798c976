package documents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// Transfer is the transaction-scoped unit of work handed to every effect of a
// transform. Source is already TRANSFERRED and Target is persisted when effects run.
type Transfer struct {
	Tx            *gorm.DB
	Domain        enums.DocumentDomain
	Source        *models.CommercialDocument
	Target        *models.CommercialDocument
	ActorID       *uuid.UUID
	At            time.Time
	InspectionIDs []uuid.UUID
}

// TransferEffect is a side effect bound to a target document type. Returning an
// error aborts the whole transform.
type TransferEffect interface {
	Apply(ctx context.Context, t *Transfer) error
}

// TransferEffectFunc adapts a function to TransferEffect.
type TransferEffectFunc func(ctx context.Context, t *Transfer) error

func (f TransferEffectFunc) Apply(ctx context.Context, t *Transfer) error {
	return f(ctx, t)
}

type effectKey struct {
	domain enums.DocumentDomain
	target enums.DocumentType
}

// Effects maps (domain, target type) to the side effects run on transfer.
type Effects struct {
	byTarget map[effectKey][]TransferEffect
}

func NewEffects() *Effects {
	return &Effects{byTarget: map[effectKey][]TransferEffect{}}
}

// Register appends an effect; effects for one target run in registration order.
func (e *Effects) Register(domain enums.DocumentDomain, target enums.DocumentType, effect TransferEffect) *Effects {
	key := effectKey{domain: domain, target: target}
	e.byTarget[key] = append(e.byTarget[key], effect)
	return e
}

func (e *Effects) For(domain enums.DocumentDomain, target enums.DocumentType) []TransferEffect {
	if e == nil {
		return nil
	}
	return e.byTarget[effectKey{domain: domain, target: target}]
}

// InspectionOpener records a PENDING incoming inspection in the caller's transaction.
type InspectionOpener interface {
	OpenPending(ctx context.Context, tx *gorm.DB, inspection *models.IncomingInspection) error
}

// OutstandingAdjuster moves a counterparty's running balance in the caller's transaction.
type OutstandingAdjuster interface {
	AdjustOutstanding(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID, delta decimal.Decimal) error
}

// DefaultEffects wires the stock side effects: goods received opens inspections,
// an invoice in either domain raises the counterparty's outstanding amount.
func DefaultEffects(inspections InspectionOpener, outstanding OutstandingAdjuster) *Effects {
	e := NewEffects()
	if inspections != nil {
		e.Register(enums.DomainPurchase, enums.DocTypeGoodsReceived, OpenInspections(inspections))
	}
	if outstanding != nil {
		invoice := RaiseOutstanding(outstanding)
		e.Register(enums.DomainSales, enums.DocTypeInvoice, invoice)
		e.Register(enums.DomainPurchase, enums.DocTypeInvoice, invoice)
	}
	return e
}

// OpenInspections creates one PENDING inspection per target line that names an item.
func OpenInspections(opener InspectionOpener) TransferEffect {
	return TransferEffectFunc(func(ctx context.Context, t *Transfer) error {
		for i := range t.Target.Items {
			line := &t.Target.Items[i]
			if line.ItemID == nil {
				continue
			}
			lineID := line.ID
			inspection := &models.IncomingInspection{
				PurchaseDocID:     t.Target.ID,
				PurchaseDocItemID: &lineID,
				ItemID:            *line.ItemID,
				SupplierID:        t.Target.CounterpartyID,
				InspectionDate:    t.At,
				WeightDifference:  WeightDifference(line.PlannedWeight, line.ActualWeight),
				Status:            enums.InspectionPending,
			}
			if err := opener.OpenPending(ctx, t.Tx, inspection); err != nil {
				return err
			}
			t.InspectionIDs = append(t.InspectionIDs, inspection.ID)
		}
		return nil
	})
}

// RaiseOutstanding adds the new invoice's total to its counterparty's balance.
func RaiseOutstanding(adjuster OutstandingAdjuster) TransferEffect {
	return TransferEffectFunc(func(ctx context.Context, t *Transfer) error {
		return adjuster.AdjustOutstanding(ctx, t.Tx, t.Domain, t.Target.CounterpartyID, t.Target.Total)
	})
}

// WeightDifference is actual - planned when both are known.
func WeightDifference(planned, actual decimal.NullDecimal) decimal.NullDecimal {
	if !planned.Valid || !actual.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: actual.Decimal.Sub(planned.Decimal), Valid: true}
}
