package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/api/middleware"
	"github.com/asdwsxzc123/jiale-mrp/api/responses"
	"github.com/asdwsxzc123/jiale-mrp/api/validators"
	"github.com/asdwsxzc123/jiale-mrp/internal/documents"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

type documentLineRequest struct {
	ItemID             *uuid.UUID          `json:"itemId"`
	Description        *string             `json:"description"`
	Qty                decimal.Decimal     `json:"qty"`
	UOM                *string             `json:"uom"`
	UnitPrice          decimal.Decimal     `json:"unitPrice" validate:"dgte0"`
	Discount           decimal.Decimal     `json:"discount" validate:"dgte0"`
	TaxCode            *string             `json:"taxCode"`
	TaxRate            decimal.Decimal     `json:"taxRate" validate:"dgte0"`
	TaxInclusive       bool                `json:"taxInclusive"`
	PlannedWeight      decimal.NullDecimal `json:"plannedWeight"`
	ActualWeight       decimal.NullDecimal `json:"actualWeight"`
	WeightUnit         *string             `json:"weightUnit"`
	PlannedArrivalDate *time.Time          `json:"plannedArrivalDate"`
	ActualArrivalDate  *time.Time          `json:"actualArrivalDate"`
	PaymentMethod      *string             `json:"paymentMethod"`
}

func (r documentLineRequest) toInput() documents.LineInput {
	return documents.LineInput{
		ItemID:             r.ItemID,
		Description:        r.Description,
		Qty:                r.Qty,
		UOM:                r.UOM,
		UnitPrice:          r.UnitPrice,
		Discount:           r.Discount,
		TaxCode:            r.TaxCode,
		TaxRate:            r.TaxRate,
		TaxInclusive:       r.TaxInclusive,
		PlannedWeight:      r.PlannedWeight,
		ActualWeight:       r.ActualWeight,
		WeightUnit:         r.WeightUnit,
		PlannedArrivalDate: r.PlannedArrivalDate,
		ActualArrivalDate:  r.ActualArrivalDate,
		PaymentMethod:      r.PaymentMethod,
	}
}

func documentLines(lines []documentLineRequest) []documents.LineInput {
	if lines == nil {
		return nil
	}
	out := make([]documents.LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.toInput())
	}
	return out
}

type documentCreateRequest struct {
	Type           string                `json:"type" validate:"required"`
	CounterpartyID uuid.UUID             `json:"counterpartyId" validate:"required"`
	Date           *time.Time            `json:"date"`
	Currency       string                `json:"currency"`
	ExchangeRate   *decimal.Decimal      `json:"exchangeRate"`
	RefDocID       *uuid.UUID            `json:"refDocId"`
	BranchID       *uuid.UUID            `json:"branchId"`
	Agent          *string               `json:"agent"`
	Terms          *string               `json:"terms"`
	Description    *string               `json:"description"`
	Project        *string               `json:"project"`
	RefNo          *string               `json:"refNo"`
	ExtNo          *string               `json:"extNo"`
	Items          []documentLineRequest `json:"items" validate:"required,min=1,dive"`
}

func (r documentCreateRequest) toDraft(domain enums.DocumentDomain) documents.Draft {
	draft := documents.Draft{
		Domain:         domain,
		Type:           enums.DocumentType(r.Type),
		CounterpartyID: r.CounterpartyID,
		Currency:       enums.Currency(r.Currency),
		ExchangeRate:   r.ExchangeRate,
		RefDocID:       r.RefDocID,
		BranchID:       r.BranchID,
		Agent:          r.Agent,
		Terms:          r.Terms,
		Description:    r.Description,
		Project:        r.Project,
		RefNo:          r.RefNo,
		ExtNo:          r.ExtNo,
		Items:          documentLines(r.Items),
	}
	if r.Date != nil {
		draft.Date = *r.Date
	}
	return draft
}

type documentUpdateRequest struct {
	CounterpartyID *uuid.UUID            `json:"counterpartyId"`
	Date           *time.Time            `json:"date"`
	Currency       *string               `json:"currency"`
	ExchangeRate   *decimal.Decimal      `json:"exchangeRate"`
	BranchID       *uuid.UUID            `json:"branchId"`
	Agent          *string               `json:"agent"`
	Terms          *string               `json:"terms"`
	Description    *string               `json:"description"`
	Project        *string               `json:"project"`
	RefNo          *string               `json:"refNo"`
	ExtNo          *string               `json:"extNo"`
	Items          []documentLineRequest `json:"items" validate:"omitempty,min=1,dive"`
}

func (r documentUpdateRequest) toPatch() documents.Patch {
	patch := documents.Patch{
		CounterpartyID: r.CounterpartyID,
		Date:           r.Date,
		ExchangeRate:   r.ExchangeRate,
		BranchID:       r.BranchID,
		Agent:          r.Agent,
		Terms:          r.Terms,
		Description:    r.Description,
		Project:        r.Project,
		RefNo:          r.RefNo,
		ExtNo:          r.ExtNo,
		Items:          documentLines(r.Items),
	}
	if r.Currency != nil {
		currency := enums.Currency(*r.Currency)
		patch.Currency = &currency
	}
	return patch
}

type documentTransferRequest struct {
	TargetType string `json:"targetType" validate:"required"`
}

// DocumentList pages a domain's documents with optional type, status and counterparty filters.
func DocumentList(domain enums.DocumentDomain, svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := documents.ListParams{Domain: domain, Params: pagination.FromQuery(r.URL.Query())}

		if raw := validators.QueryString(r, "type", 32); raw != nil {
			docType, err := enums.ParseDocumentType(domain, *raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter"))
				return
			}
			params.Type = &docType
		}
		if raw := validators.QueryString(r, "status", 32); raw != nil {
			status, err := enums.ParseDocumentStatus(*raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		counterpartyID, err := validators.QueryUUID(r, "counterpartyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.CounterpartyID = counterpartyID

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func DocumentCreate(domain enums.DocumentDomain, svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload documentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft := payload.toDraft(domain)
		draft.CreatedBy = middleware.ActorUserID(r.Context())

		doc, err := svc.Create(r.Context(), draft)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, doc)
	}
}

func DocumentGet(domain enums.DocumentDomain, svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := svc.Get(r.Context(), domain, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}

// DocumentUpdate patches a DRAFT document; an items array replaces every line.
func DocumentUpdate(domain enums.DocumentDomain, svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload documentUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		doc, err := svc.Update(r.Context(), documents.UpdateInput{
			Domain:     domain,
			DocumentID: id,
			Patch:      payload.toPatch(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}

func DocumentDelete(domain enums.DocumentDomain, svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), domain, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func DocumentApprove(domain enums.DocumentDomain, svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return documentTransition(domain, svc.Approve, logg)
}

func DocumentCancel(domain enums.DocumentDomain, svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return documentTransition(domain, svc.Cancel, logg)
}

func documentTransition(
	domain enums.DocumentDomain,
	apply func(context.Context, documents.TransitionInput) (*models.CommercialDocument, error),
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := apply(r.Context(), documents.TransitionInput{
			Domain:      domain,
			DocumentID:  id,
			ActorUserID: middleware.ActorUserID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}

// DocumentTransfer derives a target document from an approved source and applies its effects.
func DocumentTransfer(domain enums.DocumentDomain, svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload documentTransferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transfer(r.Context(), documents.TransferInput{
			Domain:      domain,
			DocumentID:  id,
			TargetType:  enums.DocumentType(payload.TargetType),
			ActorUserID: middleware.ActorUserID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
