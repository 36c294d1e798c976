package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/api/middleware"
	"github.com/asdwsxzc123/jiale-mrp/api/responses"
	"github.com/asdwsxzc123/jiale-mrp/api/validators"
	"github.com/asdwsxzc123/jiale-mrp/internal/inspection"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

type inspectionCreateRequest struct {
	PurchaseDocID        uuid.UUID           `json:"purchaseDocId" validate:"required"`
	PurchaseDocItemID    *uuid.UUID          `json:"purchaseDocItemId"`
	ItemID               uuid.UUID           `json:"itemId" validate:"required"`
	SupplierID           uuid.UUID           `json:"supplierId" validate:"required"`
	InspectionDate       *time.Time          `json:"inspectionDate"`
	WrongItem            bool                `json:"wrongItem"`
	WrongItemDescription *string             `json:"wrongItemDescription"`
	WeightDifference     decimal.NullDecimal `json:"weightDifference"`
	HandlingMethod       *string             `json:"handlingMethod"`
	HandlingNotes        *string             `json:"handlingNotes"`
	InspectorID          *uuid.UUID          `json:"inspectorId"`
}

type inspectionUpdateRequest struct {
	InspectionDate        *time.Time          `json:"inspectionDate"`
	WrongItem             *bool               `json:"wrongItem"`
	WrongItemDescription  *string             `json:"wrongItemDescription"`
	WeightDifference      decimal.NullDecimal `json:"weightDifference"`
	ClearWeightDifference bool                `json:"clearWeightDifference"`
	HandlingMethod        *string             `json:"handlingMethod"`
	HandlingNotes         *string             `json:"handlingNotes"`
	InspectorID           *uuid.UUID          `json:"inspectorId"`
}

type inspectionPassRequest struct {
	Weight              decimal.Decimal `json:"weight"`
	WeightUnit          string          `json:"weightUnit"`
	WarehouseLocationID *uuid.UUID      `json:"warehouseLocationId"`
	InspectorID         *uuid.UUID      `json:"inspectorId"`
}

type inspectionRejectRequest struct {
	HandlingMethod *string    `json:"handlingMethod"`
	HandlingNotes  *string    `json:"handlingNotes"`
	InspectorID    *uuid.UUID `json:"inspectorId"`
}

func handlingMethod(raw *string) *enums.HandlingMethod {
	if raw == nil {
		return nil
	}
	method := enums.HandlingMethod(*raw)
	return &method
}

// InspectionList pages inspections by status and supplier.
func InspectionList(svc inspection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := inspection.ListParams{Params: pagination.FromQuery(r.URL.Query())}
		if raw := validators.QueryString(r, "status", 16); raw != nil {
			status, err := enums.ParseInspectionStatus(*raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		supplierID, err := validators.QueryUUID(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.SupplierID = supplierID

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func InspectionCreate(svc inspection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload inspectionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), inspection.CreateInput{
			PurchaseDocID:        payload.PurchaseDocID,
			PurchaseDocItemID:    payload.PurchaseDocItemID,
			ItemID:               payload.ItemID,
			SupplierID:           payload.SupplierID,
			InspectionDate:       payload.InspectionDate,
			WrongItem:            payload.WrongItem,
			WrongItemDescription: payload.WrongItemDescription,
			WeightDifference:     payload.WeightDifference,
			HandlingMethod:       handlingMethod(payload.HandlingMethod),
			HandlingNotes:        payload.HandlingNotes,
			InspectorID:          payload.InspectorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func InspectionGet(svc inspection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		found, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}

func InspectionUpdate(svc inspection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload inspectionUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), inspection.UpdateInput{
			ID:                    id,
			InspectionDate:        payload.InspectionDate,
			WrongItem:             payload.WrongItem,
			WrongItemDescription:  payload.WrongItemDescription,
			WeightDifference:      payload.WeightDifference,
			ClearWeightDifference: payload.ClearWeightDifference,
			HandlingMethod:        handlingMethod(payload.HandlingMethod),
			HandlingNotes:         payload.HandlingNotes,
			InspectorID:           payload.InspectorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// InspectionPass passes a pending inspection and mints its raw material batch.
func InspectionPass(svc inspection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload inspectionPassRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Pass(r.Context(), inspection.PassInput{
			ID:                  id,
			Weight:              payload.Weight,
			WeightUnit:          payload.WeightUnit,
			WarehouseLocationID: payload.WarehouseLocationID,
			InspectorID:         payload.InspectorID,
			ActorUserID:         middleware.ActorUserID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func InspectionReject(svc inspection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload inspectionRejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rejected, err := svc.Reject(r.Context(), inspection.RejectInput{
			ID:             id,
			HandlingMethod: handlingMethod(payload.HandlingMethod),
			HandlingNotes:  payload.HandlingNotes,
			InspectorID:    payload.InspectorID,
			ActorUserID:    middleware.ActorUserID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rejected)
	}
}
