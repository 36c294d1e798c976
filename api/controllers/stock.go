package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/api/middleware"
	"github.com/asdwsxzc123/jiale-mrp/api/responses"
	"github.com/asdwsxzc123/jiale-mrp/api/validators"
	"github.com/asdwsxzc123/jiale-mrp/internal/inventory"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

type stockLineRequest struct {
	ItemID   uuid.UUID       `json:"itemId" validate:"required"`
	Qty      decimal.Decimal `json:"qty"`
	UOM      *string         `json:"uom"`
	UnitCost decimal.Decimal `json:"unitCost"`
	Notes    *string         `json:"notes"`
}

type stockTransactionRequest struct {
	Type            string             `json:"type" validate:"required"`
	Date            *time.Time         `json:"date"`
	LocationFromID  *uuid.UUID         `json:"locationFromId"`
	LocationToID    *uuid.UUID         `json:"locationToId"`
	RefDocumentType *string            `json:"refDocumentType"`
	RefDocumentID   *uuid.UUID         `json:"refDocumentId"`
	Description     *string            `json:"description"`
	Items           []stockLineRequest `json:"items" validate:"required,min=1,dive"`
}

func (r stockTransactionRequest) toInput() inventory.ApplyInput {
	input := inventory.ApplyInput{
		Type:            enums.StockTransactionType(r.Type),
		LocationFromID:  r.LocationFromID,
		LocationToID:    r.LocationToID,
		RefDocumentType: r.RefDocumentType,
		RefDocumentID:   r.RefDocumentID,
		Description:     r.Description,
		Items:           make([]inventory.LineInput, 0, len(r.Items)),
	}
	if r.Date != nil {
		input.Date = *r.Date
	}
	for _, line := range r.Items {
		input.Items = append(input.Items, inventory.LineInput{
			ItemID:   line.ItemID,
			Qty:      line.Qty,
			UOM:      line.UOM,
			UnitCost: line.UnitCost,
			Notes:    line.Notes,
		})
	}
	return input
}

// StockTransactionList pages the stock ledger, optionally by transaction type.
func StockTransactionList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := inventory.ListTransactionsParams{Params: pagination.FromQuery(r.URL.Query())}
		if raw := validators.QueryString(r, "type", 32); raw != nil {
			txType, err := enums.ParseStockTransactionType(*raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter"))
				return
			}
			params.Type = &txType
		}

		page, err := svc.ListTransactions(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// StockTransactionCreate records a ledger entry and applies its balance movements.
func StockTransactionCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload stockTransactionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := payload.toInput()
		input.CreatedBy = middleware.ActorUserID(r.Context())

		tx, err := svc.ApplyTransaction(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tx)
	}
}

func StockTransactionGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tx, err := svc.GetTransaction(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tx)
	}
}

// StockBalanceList pages on-hand balances filtered by item and location.
func StockBalanceList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.QueryUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := validators.QueryUUID(r, "locationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListBalances(r.Context(), inventory.ListBalancesParams{
			ItemID:     itemID,
			LocationID: locationID,
			Params:     pagination.FromQuery(r.URL.Query()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
