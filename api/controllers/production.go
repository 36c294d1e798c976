package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/api/middleware"
	"github.com/asdwsxzc123/jiale-mrp/api/responses"
	"github.com/asdwsxzc123/jiale-mrp/api/validators"
	"github.com/asdwsxzc123/jiale-mrp/internal/production"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

type bomLineRequest struct {
	MaterialItemID uuid.UUID       `json:"materialItemId" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	UOM            *string         `json:"uom"`
	IsSubAssembly  bool            `json:"isSubAssembly"`
	Notes          *string         `json:"notes"`
}

func bomLines(lines []bomLineRequest) []production.BOMLineInput {
	if lines == nil {
		return nil
	}
	out := make([]production.BOMLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, production.BOMLineInput{
			MaterialItemID: line.MaterialItemID,
			Quantity:       line.Quantity,
			UOM:            line.UOM,
			IsSubAssembly:  line.IsSubAssembly,
			Notes:          line.Notes,
		})
	}
	return out
}

type bomCreateRequest struct {
	ProductItemID uuid.UUID        `json:"productItemId" validate:"required"`
	Version       string           `json:"version" validate:"max=32"`
	Description   *string          `json:"description"`
	Items         []bomLineRequest `json:"items" validate:"required,min=1,dive"`
}

type bomUpdateRequest struct {
	Version     *string          `json:"version"`
	Description *string          `json:"description"`
	Items       []bomLineRequest `json:"items" validate:"omitempty,min=1,dive"`
}

type materialRequest struct {
	MaterialItemID     uuid.UUID       `json:"materialItemId" validate:"required"`
	RequiredQty        decimal.Decimal `json:"requiredQty"`
	UOM                *string         `json:"uom"`
	RawMaterialBatchID *uuid.UUID      `json:"rawMaterialBatchId"`
}

func materialInputs(lines []materialRequest) []production.MaterialInput {
	if lines == nil {
		return nil
	}
	out := make([]production.MaterialInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, production.MaterialInput{
			MaterialItemID:     line.MaterialItemID,
			RequiredQty:        line.RequiredQty,
			UOM:                line.UOM,
			RawMaterialBatchID: line.RawMaterialBatchID,
		})
	}
	return out
}

type jobOrderCreateRequest struct {
	ProductItemID   uuid.UUID           `json:"productItemId" validate:"required"`
	BOMID           *uuid.UUID          `json:"bomId"`
	PlannedQty      decimal.Decimal     `json:"plannedQty"`
	PlannedWeight   decimal.NullDecimal `json:"plannedWeight"`
	Color           *string             `json:"color"`
	ProductionCycle *string             `json:"productionCycle"`
	PlannedStart    *time.Time          `json:"plannedStart"`
	PlannedEnd      *time.Time          `json:"plannedEnd"`
	Description     *string             `json:"description"`
	Materials       []materialRequest   `json:"materials" validate:"omitempty,dive"`
}

type jobOrderUpdateRequest struct {
	PlannedQty      *decimal.Decimal    `json:"plannedQty"`
	PlannedWeight   decimal.NullDecimal `json:"plannedWeight"`
	Color           *string             `json:"color"`
	ProductionCycle *string             `json:"productionCycle"`
	PlannedStart    *time.Time          `json:"plannedStart"`
	PlannedEnd      *time.Time          `json:"plannedEnd"`
	Description     *string             `json:"description"`
	Materials       []materialRequest   `json:"materials" validate:"omitempty,min=1,dive"`
}

type issueMaterialRequest struct {
	MaterialLineID uuid.UUID       `json:"materialLineId" validate:"required"`
	Qty            decimal.Decimal `json:"qty"`
	BatchID        *uuid.UUID      `json:"batchId"`
}

type outputRequest struct {
	Qty          decimal.Decimal     `json:"qty"`
	ActualWeight decimal.NullDecimal `json:"actualWeight"`
}

type usedMaterialRequest struct {
	BatchID    uuid.UUID       `json:"batchId" validate:"required"`
	UsedWeight decimal.Decimal `json:"usedWeight"`
}

type completeRequest struct {
	Weight              decimal.Decimal       `json:"weight"`
	WeightUnit          string                `json:"weightUnit"`
	WarehouseLocationID *uuid.UUID            `json:"warehouseLocationId"`
	UsedMaterials       []usedMaterialRequest `json:"usedMaterials" validate:"omitempty,dive"`
}

func BOMList(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productItemID, err := validators.QueryUUID(r, "productItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListBOMs(r.Context(), production.ListBOMsParams{
			ProductItemID: productItemID,
			Params:        pagination.FromQuery(r.URL.Query()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func BOMCreate(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload bomCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bom, err := svc.CreateBOM(r.Context(), production.CreateBOMInput{
			ProductItemID: payload.ProductItemID,
			Version:       payload.Version,
			Description:   payload.Description,
			Items:         bomLines(payload.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bom)
	}
}

func BOMGet(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bom, err := svc.GetBOM(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bom)
	}
}

func BOMUpdate(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bomUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bom, err := svc.UpdateBOM(r.Context(), production.UpdateBOMInput{
			ID:          id,
			Version:     payload.Version,
			Description: payload.Description,
			Items:       bomLines(payload.Items),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bom)
	}
}

// BOMDelete deactivates a BOM; rows are kept so past job orders still resolve.
func BOMDelete(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.DeactivateBOM(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func BOMExpand(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		expanded, err := svc.ExpandBOM(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, expanded)
	}
}

func JobOrderList(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := production.ListJobOrdersParams{Params: pagination.FromQuery(r.URL.Query())}
		if raw := validators.QueryString(r, "status", 16); raw != nil {
			status, err := enums.ParseJobOrderStatus(*raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		page, err := svc.ListJobOrders(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// JobOrderCreate plans a job order; without materials they are seeded from the BOM.
func JobOrderCreate(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload jobOrderCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CreateJobOrder(r.Context(), production.CreateJobOrderInput{
			ProductItemID:   payload.ProductItemID,
			BOMID:           payload.BOMID,
			PlannedQty:      payload.PlannedQty,
			PlannedWeight:   payload.PlannedWeight,
			Color:           payload.Color,
			ProductionCycle: payload.ProductionCycle,
			PlannedStart:    payload.PlannedStart,
			PlannedEnd:      payload.PlannedEnd,
			Description:     payload.Description,
			CreatedBy:       middleware.ActorUserID(r.Context()),
			Materials:       materialInputs(payload.Materials),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func JobOrderGet(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetJobOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func JobOrderUpdate(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload jobOrderUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateJobOrder(r.Context(), production.UpdateJobOrderInput{
			ID:              id,
			PlannedQty:      payload.PlannedQty,
			PlannedWeight:   payload.PlannedWeight,
			Color:           payload.Color,
			ProductionCycle: payload.ProductionCycle,
			PlannedStart:    payload.PlannedStart,
			PlannedEnd:      payload.PlannedEnd,
			Description:     payload.Description,
			Materials:       materialInputs(payload.Materials),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func JobOrderDelete(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveJobOrder(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func JobOrderCancel(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CancelJobOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// JobOrderIssue consumes batch weight against one material line.
func JobOrderIssue(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload issueMaterialRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.IssueMaterial(r.Context(), production.IssueMaterialInput{
			JobOrderID:     id,
			MaterialLineID: payload.MaterialLineID,
			Qty:            payload.Qty,
			BatchID:        payload.BatchID,
			ActorUserID:    middleware.ActorUserID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func JobOrderOutput(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload outputRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Output(r.Context(), production.OutputInput{
			JobOrderID:   id,
			Qty:          payload.Qty,
			ActualWeight: payload.ActualWeight,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// JobOrderComplete finishes an in-progress order and mints its finished product.
func JobOrderComplete(svc production.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload completeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		used := make([]production.UsedMaterial, 0, len(payload.UsedMaterials))
		for _, m := range payload.UsedMaterials {
			used = append(used, production.UsedMaterial{BatchID: m.BatchID, UsedWeight: m.UsedWeight})
		}
		result, err := svc.Complete(r.Context(), production.CompleteInput{
			JobOrderID:          id,
			Weight:              payload.Weight,
			WeightUnit:          payload.WeightUnit,
			WarehouseLocationID: payload.WarehouseLocationID,
			UsedMaterials:       used,
			ActorUserID:         middleware.ActorUserID(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
