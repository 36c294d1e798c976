package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/internal/traceability"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox/payloads"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

var (
	hundred         = decimal.NewFromInt(100)
	openStatuses    = []enums.JobOrderStatus{enums.JobOrderPlanned, enums.JobOrderInProgress}
	runningStatuses = []enums.JobOrderStatus{enums.JobOrderInProgress}
)

// CreateJobOrder numbers a new PLANNED order. When a BOM is named and no
// materials are given, requirements are seeded from the BOM lines scaled by
// the planned quantity.
func (s *service) CreateJobOrder(ctx context.Context, input CreateJobOrderInput) (*models.JobOrder, error) {
	var errs error
	if input.ProductItemID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("productItemId is required"))
	}
	if !input.PlannedQty.IsPositive() {
		errs = multierr.Append(errs, errors.New("plannedQty must be greater than zero"))
	}
	errs = multierr.Append(errs, validatePlannedWeight(input.PlannedWeight))
	errs = multierr.Append(errs, validateMaterials(input.Materials))
	if err := pkgerrors.Collect(pkgerrors.CodeValidation, errs, "invalid job order"); err != nil {
		return nil, err
	}

	var created *models.JobOrder
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.masterData.Item(ctx, tx, input.ProductItemID); err != nil {
			return err
		}

		materials := input.Materials
		if input.BOMID != nil {
			bom, err := repo.FindBOM(ctx, *input.BOMID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "bom not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom")
			}
			if bom.ProductItemID != input.ProductItemID {
				return pkgerrors.New(pkgerrors.CodeValidation, "bom does not belong to the product")
			}
			if len(materials) == 0 {
				materials = materialsFromBOM(bom, input.PlannedQty)
			}
		}
		if err := s.checkMaterialItems(ctx, tx, materials); err != nil {
			return err
		}

		docNo, err := s.sequence.Next(ctx, tx, SequenceTypeCode)
		if err != nil {
			return err
		}
		order := &models.JobOrder{
			DocNo:           docNo,
			ProductItemID:   input.ProductItemID,
			BOMID:           input.BOMID,
			PlannedQty:      input.PlannedQty,
			CompletedQty:    decimal.Zero,
			PlannedWeight:   input.PlannedWeight,
			Color:           input.Color,
			ProductionCycle: input.ProductionCycle,
			PlannedStart:    input.PlannedStart,
			PlannedEnd:      input.PlannedEnd,
			Status:          enums.JobOrderPlanned,
			Description:     input.Description,
			CreatedBy:       input.CreatedBy,
			Materials:       buildMaterials(materials),
		}
		if err := repo.CreateJobOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job order")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.jobContext(ctx, created), "job order created")
	return created, nil
}

func (s *service) UpdateJobOrder(ctx context.Context, input UpdateJobOrderInput) (*models.JobOrder, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job order id is required")
	}
	var errs error
	if input.PlannedQty != nil && !input.PlannedQty.IsPositive() {
		errs = multierr.Append(errs, errors.New("plannedQty must be greater than zero"))
	}
	errs = multierr.Append(errs, validatePlannedWeight(input.PlannedWeight))
	if input.Materials != nil {
		errs = multierr.Append(errs, validateMaterials(input.Materials))
	}
	if err := pkgerrors.Collect(pkgerrors.CodeValidation, errs, "invalid job order update"); err != nil {
		return nil, err
	}

	var updated *models.JobOrder
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockJobOrder(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return invalidJobState(order, "update")
		}

		updates := map[string]any{}
		if input.PlannedQty != nil {
			updates["planned_qty"] = *input.PlannedQty
		}
		if input.PlannedWeight.Valid {
			updates["planned_weight"] = input.PlannedWeight
		}
		if input.Color != nil {
			updates["color"] = *input.Color
		}
		if input.ProductionCycle != nil {
			updates["production_cycle"] = *input.ProductionCycle
		}
		if input.PlannedStart != nil {
			updates["planned_start"] = *input.PlannedStart
		}
		if input.PlannedEnd != nil {
			updates["planned_end"] = *input.PlannedEnd
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		if input.Materials != nil {
			if order.Status != enums.JobOrderPlanned {
				return invalidJobState(order, "replace materials of")
			}
			if err := s.checkMaterialItems(ctx, tx, input.Materials); err != nil {
				return err
			}
			if err := repo.ReplaceMaterials(ctx, order.ID, buildMaterials(input.Materials)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace job order materials")
			}
		}
		if err := repo.UpdateJobOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update job order")
		}
		updated, err = s.reloadJobOrder(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.jobContext(ctx, updated), "job order updated")
	return updated, nil
}

// RemoveJobOrder deletes a PLANNED order. Its number is not reused.
func (s *service) RemoveJobOrder(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "job order id is required")
	}
	var removed *models.JobOrder
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		order, err := s.lockJobOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Status != enums.JobOrderPlanned {
			return invalidJobState(order, "delete")
		}
		if err := s.repo.WithTx(tx).DeleteJobOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete job order")
		}
		removed = order
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.jobContext(ctx, removed), "job order removed")
	return nil
}

func (s *service) GetJobOrder(ctx context.Context, id uuid.UUID) (*models.JobOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job order id is required")
	}
	order, err := s.repo.FindJobOrder(ctx, id, false)
	if err != nil {
		return nil, notFound(err, "job order")
	}
	return order, nil
}

func (s *service) ListJobOrders(ctx context.Context, params ListJobOrdersParams) (pagination.Page[models.JobOrder], error) {
	p := params.Params.Normalize()
	if params.Status != nil && !params.Status.IsValid() {
		return pagination.Page[models.JobOrder]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid job order status %q", *params.Status)
	}
	rows, total, err := s.repo.ListJobOrders(ctx, jobOrderQuery{
		status: params.Status,
		limit:  p.PageSize,
		offset: p.Offset(),
	})
	if err != nil {
		return pagination.Page[models.JobOrder]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list job orders")
	}
	return pagination.NewPage(rows, total, p), nil
}

func (s *service) CancelJobOrder(ctx context.Context, id uuid.UUID) (*models.JobOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job order id is required")
	}
	var cancelled *models.JobOrder
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		order, err := s.lockJobOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return invalidJobState(order, "cancel")
		}
		if err := s.transition(ctx, tx, order, openStatuses, map[string]any{"status": enums.JobOrderCancelled}); err != nil {
			return err
		}
		order.Status = enums.JobOrderCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.jobContext(ctx, cancelled), "job order cancelled")
	return cancelled, nil
}

// IssueMaterial records qty against one material line. The first issue starts
// the order; naming a batch also draws its remaining weight down by qty.
func (s *service) IssueMaterial(ctx context.Context, input IssueMaterialInput) (*models.JobOrder, error) {
	if input.JobOrderID == uuid.Nil || input.MaterialLineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job order id and material line id are required")
	}
	if !input.Qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be greater than zero")
	}

	var issued *models.JobOrder
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockJobOrder(ctx, tx, input.JobOrderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return invalidJobState(order, "issue material to")
		}
		if !hasMaterialLine(order, input.MaterialLineID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "material line not found on job order")
		}

		if order.Status == enums.JobOrderPlanned {
			start := s.now().UTC()
			err := s.transition(ctx, tx, order, []enums.JobOrderStatus{enums.JobOrderPlanned}, map[string]any{
				"status":       enums.JobOrderInProgress,
				"actual_start": start,
			})
			if err != nil {
				return err
			}
		}

		if input.BatchID != nil {
			remaining, err := repo.ConsumeBatch(ctx, *input.BatchID, input.Qty)
			if err != nil {
				return notFound(err, "raw material batch")
			}
			if s.strict && remaining.IsNegative() {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "insufficient batch weight: batch %s would fall to %s", *input.BatchID, remaining.String()).
					WithDetails(map[string]any{
						"batch_id":  *input.BatchID,
						"qty":       input.Qty,
						"remaining": remaining,
					})
			}
		}
		if err := repo.RecordIssue(ctx, input.MaterialLineID, input.Qty, input.BatchID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record material issue")
		}

		issued, err = s.reloadJobOrder(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(s.jobContext(ctx, issued), map[string]any{
		"material_line_id": input.MaterialLineID.String(),
		"qty":              input.Qty.String(),
	})
	s.logg.Info(logCtx, "material issued")
	return issued, nil
}

func (s *service) Output(ctx context.Context, input OutputInput) (*models.JobOrder, error) {
	if input.JobOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job order id is required")
	}
	if !input.Qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be greater than zero")
	}
	if input.ActualWeight.Valid && input.ActualWeight.Decimal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actualWeight must not be negative")
	}

	var updated *models.JobOrder
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		order, err := s.lockJobOrder(ctx, tx, input.JobOrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.JobOrderInProgress {
			return invalidJobState(order, "record output for")
		}
		updates := map[string]any{"completed_qty": gorm.Expr("completed_qty + ?", input.Qty)}
		if input.ActualWeight.Valid {
			updates["actual_weight"] = input.ActualWeight
		}
		if err := s.transition(ctx, tx, order, runningStatuses, updates); err != nil {
			return err
		}
		updated, err = s.reloadJobOrder(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(s.jobContext(ctx, updated), "qty", input.Qty.String()), "job order output recorded")
	return updated, nil
}

// Complete closes an IN_PROGRESS order and mints its finished product. The
// used materials are recorded as given; they are not reconciled against issues.
func (s *service) Complete(ctx context.Context, input CompleteInput) (*CompleteResult, error) {
	if err := validateCompletion(input); err != nil {
		return nil, err
	}
	unit := input.WeightUnit
	if unit == "" {
		unit = DefaultWeightUnit
	}

	started := time.Now()
	var result *CompleteResult
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		result = nil
		repo := s.repo.WithTx(tx)
		order, err := s.lockJobOrder(ctx, tx, input.JobOrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.JobOrderInProgress {
			return invalidJobState(order, "complete")
		}
		if input.WarehouseLocationID != nil {
			if _, err := s.masterData.Location(ctx, tx, *input.WarehouseLocationID); err != nil {
				return err
			}
		}
		if err := s.checkBatches(ctx, repo, input.UsedMaterials); err != nil {
			return err
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":        enums.JobOrderCompleted,
			"actual_end":    now,
			"actual_weight": input.Weight,
		}
		yield := yieldRate(input.Weight, order.PlannedWeight)
		if yield.Valid {
			updates["yield_rate"] = yield
		}
		if err := s.transition(ctx, tx, order, runningStatuses, updates); err != nil {
			return err
		}

		code, err := s.codes.Issue(ctx, tx, traceability.PrefixFinishedProduct)
		if err != nil {
			return err
		}
		qr, err := json.Marshal(qrPayload{
			TraceabilityCode: code,
			ProductItemID:    order.ProductItemID,
			JobOrderDocNo:    order.DocNo,
			ProductionDate:   now,
			Weight:           input.Weight,
			Color:            order.Color,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode qr code data")
		}

		product := &models.FinishedProduct{
			TraceabilityCode:    code,
			ItemID:              order.ProductItemID,
			JobOrderID:          order.ID,
			Weight:              input.Weight,
			WeightUnit:          unit,
			Color:               order.Color,
			ProductionDate:      now,
			WarehouseLocationID: input.WarehouseLocationID,
			QRCodeData:          qr,
			Materials:           make([]models.FinishedProductMaterial, 0, len(input.UsedMaterials)),
		}
		consumed := make([]payloads.ConsumedBatch, 0, len(input.UsedMaterials))
		for _, used := range input.UsedMaterials {
			product.Materials = append(product.Materials, models.FinishedProductMaterial{
				RawMaterialBatchID: used.BatchID,
				UsedWeight:         used.UsedWeight,
			})
			consumed = append(consumed, payloads.ConsumedBatch{BatchID: used.BatchID, UsedWeight: used.UsedWeight})
		}
		if err := repo.CreateFinishedProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create finished product")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventJobOrderCompleted,
			AggregateType: enums.AggregateJobOrder,
			AggregateID:   order.ID,
			Actor:         outbox.Actor(input.ActorUserID),
			Data: payloads.JobOrderCompletedEvent{
				JobOrderID:        order.ID,
				DocNo:             order.DocNo,
				FinishedProductID: product.ID,
				TraceabilityCode:  product.TraceabilityCode,
				Weight:            product.Weight,
				Materials:         consumed,
				CompletedAt:       now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit job order event")
		}

		completed, err := s.reloadJobOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		result = &CompleteResult{JobOrder: completed, FinishedProduct: product}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CodeIssued(traceability.PrefixFinishedProduct)
	s.metrics.ObserveDuration("job_order_complete", time.Since(started))
	logCtx := s.logg.WithField(s.jobContext(ctx, result.JobOrder), "traceability_code", result.FinishedProduct.TraceabilityCode)
	s.logg.Info(logCtx, "job order completed")
	return result, nil
}

func (s *service) checkBatches(ctx context.Context, repo Repository, used []UsedMaterial) error {
	ids := make([]uuid.UUID, 0, len(used))
	seen := map[uuid.UUID]struct{}{}
	for _, u := range used {
		if _, ok := seen[u.BatchID]; ok {
			continue
		}
		seen[u.BatchID] = struct{}{}
		ids = append(ids, u.BatchID)
	}
	count, err := repo.CountBatches(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup raw material batches")
	}
	if int(count) != len(ids) {
		return pkgerrors.New(pkgerrors.CodeValidation, "raw material batch not found")
	}
	return nil
}

func (s *service) checkMaterialItems(ctx context.Context, tx *gorm.DB, materials []MaterialInput) error {
	var errs error
	for i, m := range materials {
		if _, err := s.masterData.Item(ctx, tx, m.MaterialItemID); err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				return err
			}
			errs = multierr.Append(errs, fmt.Errorf("materials[%d]: %s", i, pkgerrors.MessageOf(err)))
		}
	}
	return pkgerrors.Collect(pkgerrors.CodeValidation, errs, "job order references are invalid")
}

func (s *service) lockJobOrder(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.JobOrder, error) {
	order, err := s.repo.WithTx(tx).FindJobOrder(ctx, id, true)
	if err != nil {
		return nil, notFound(err, "job order")
	}
	return order, nil
}

func (s *service) reloadJobOrder(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.JobOrder, error) {
	order, err := s.repo.WithTx(tx).FindJobOrder(ctx, id, false)
	if err != nil {
		return nil, notFound(err, "job order")
	}
	return order, nil
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, order *models.JobOrder, from []enums.JobOrderStatus, updates map[string]any) error {
	affected, err := s.repo.WithTx(tx).TransitionJobOrder(ctx, order.ID, from, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update job order")
	}
	if affected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "job order %s changed status concurrently", order.DocNo)
	}
	return nil
}

func (s *service) jobContext(ctx context.Context, order *models.JobOrder) context.Context {
	return s.logg.WithFields(s.logg.WithDocNo(ctx, order.DocNo), map[string]any{
		"job_order_id": order.ID.String(),
		"status":       order.Status,
	})
}

func hasMaterialLine(order *models.JobOrder, lineID uuid.UUID) bool {
	for _, m := range order.Materials {
		if m.ID == lineID {
			return true
		}
	}
	return false
}

// yieldRate is weight / plannedWeight * 100, unset without a positive plan.
func yieldRate(weight decimal.Decimal, planned decimal.NullDecimal) decimal.NullDecimal {
	if !planned.Valid || !planned.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(weight.Div(planned.Decimal).Mul(hundred).Round(4))
}

func materialsFromBOM(bom *models.BOM, plannedQty decimal.Decimal) []MaterialInput {
	materials := make([]MaterialInput, 0, len(bom.Items))
	for _, item := range bom.Items {
		materials = append(materials, MaterialInput{
			MaterialItemID: item.MaterialItemID,
			RequiredQty:    item.Quantity.Mul(plannedQty),
			UOM:            item.UOM,
		})
	}
	return materials
}

func buildMaterials(inputs []MaterialInput) []models.JobOrderMaterial {
	lines := make([]models.JobOrderMaterial, 0, len(inputs))
	for i, in := range inputs {
		lines = append(lines, models.JobOrderMaterial{
			LineNo:             i + 1,
			MaterialItemID:     in.MaterialItemID,
			RequiredQty:        in.RequiredQty,
			IssuedQty:          decimal.Zero,
			UOM:                in.UOM,
			RawMaterialBatchID: in.RawMaterialBatchID,
		})
	}
	return lines
}

func validatePlannedWeight(w decimal.NullDecimal) error {
	if w.Valid && w.Decimal.IsNegative() {
		return errors.New("plannedWeight must not be negative")
	}
	return nil
}

func validateMaterials(materials []MaterialInput) error {
	var errs error
	for i, m := range materials {
		if m.MaterialItemID == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("materials[%d]: materialItemId is required", i))
		}
		if m.RequiredQty.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("materials[%d]: requiredQty must not be negative", i))
		}
	}
	return errs
}

func validateCompletion(input CompleteInput) error {
	if input.JobOrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "job order id is required")
	}
	var errs error
	if !input.Weight.IsPositive() {
		errs = multierr.Append(errs, errors.New("weight must be greater than zero"))
	}
	for i, used := range input.UsedMaterials {
		if used.BatchID == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("usedMaterials[%d]: batchId is required", i))
		}
		if !used.UsedWeight.IsPositive() {
			errs = multierr.Append(errs, fmt.Errorf("usedMaterials[%d]: usedWeight must be greater than zero", i))
		}
	}
	return pkgerrors.Collect(pkgerrors.CodeValidation, errs, "invalid job order completion")
}

func invalidJobState(order *models.JobOrder, op string) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s job order %s in status %s", op, order.DocNo, order.Status).
		WithDetails(map[string]any{"job_order_id": order.ID, "status": order.Status})
}
