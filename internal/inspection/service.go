package inspection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/internal/masterdata"
	"github.com/asdwsxzc123/jiale-mrp/internal/traceability"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox/payloads"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

type txRunner interface {
	WithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type codeIssuer interface {
	Issue(ctx context.Context, tx *gorm.DB, prefix string) (string, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type masterData interface {
	Counterparty(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID) (*masterdata.Counterparty, error)
	Item(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockItem, error)
	Location(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockLocation, error)
}

// Service owns incoming inspections from PENDING to PASSED or REJECTED.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.IncomingInspection, error)
	Update(ctx context.Context, input UpdateInput) (*models.IncomingInspection, error)
	Get(ctx context.Context, id uuid.UUID) (*models.IncomingInspection, error)
	List(ctx context.Context, params ListParams) (pagination.Page[models.IncomingInspection], error)
	OpenPending(ctx context.Context, tx *gorm.DB, inspection *models.IncomingInspection) error
	Pass(ctx context.Context, input PassInput) (*PassResult, error)
	Reject(ctx context.Context, input RejectInput) (*models.IncomingInspection, error)
}

type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Codes      codeIssuer
	Outbox     outboxEmitter
	MasterData masterData
	Metrics    *metrics.Engine
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	codes      codeIssuer
	outbox     outboxEmitter
	masterData masterData
	metrics    *metrics.Engine
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inspection repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Codes == nil {
		return nil, fmt.Errorf("traceability generator required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.MasterData == nil {
		return nil, fmt.Errorf("master data service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		codes:      params.Codes,
		outbox:     params.Outbox,
		masterData: params.MasterData,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.IncomingInspection, error) {
	var errs error
	if input.PurchaseDocID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("purchaseDocId is required"))
	}
	if input.ItemID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("itemId is required"))
	}
	if input.SupplierID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("supplierId is required"))
	}
	errs = multierr.Append(errs, validateHandling(input.HandlingMethod))
	if err := pkgerrors.Collect(pkgerrors.CodeValidation, errs, "invalid inspection"); err != nil {
		return nil, err
	}

	date := s.now().UTC()
	if input.InspectionDate != nil {
		date = *input.InspectionDate
	}
	row := &models.IncomingInspection{
		PurchaseDocID:        input.PurchaseDocID,
		PurchaseDocItemID:    input.PurchaseDocItemID,
		ItemID:               input.ItemID,
		SupplierID:           input.SupplierID,
		InspectionDate:       date,
		WrongItem:            input.WrongItem,
		WrongItemDescription: input.WrongItemDescription,
		WeightDifference:     input.WeightDifference,
		HandlingMethod:       input.HandlingMethod,
		HandlingNotes:        input.HandlingNotes,
		InspectorID:          input.InspectorID,
		Status:               enums.InspectionPending,
	}

	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		exists, err := s.repo.WithTx(tx).PurchaseDocumentExists(ctx, input.PurchaseDocID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup purchase document")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeValidation, "purchase document not found")
		}
		if _, err := s.masterData.Counterparty(ctx, tx, enums.DomainPurchase, input.SupplierID); err != nil {
			return err
		}
		if _, err := s.masterData.Item(ctx, tx, input.ItemID); err != nil {
			return err
		}
		row.ID = uuid.Nil
		return s.OpenPending(ctx, tx, row)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "inspection_id", row.ID.String()), "inspection created")
	return row, nil
}

// OpenPending inserts a PENDING inspection inside the caller's transaction. The
// documents engine calls it while transferring to GOODS_RECEIVED.
func (s *service) OpenPending(ctx context.Context, tx *gorm.DB, inspection *models.IncomingInspection) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inspections must be opened inside a transaction")
	}
	if inspection == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inspection required")
	}
	inspection.Status = enums.InspectionPending
	if inspection.InspectionDate.IsZero() {
		inspection.InspectionDate = s.now().UTC()
	}
	if err := s.repo.WithTx(tx).Create(ctx, inspection); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inspection")
	}
	return nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.IncomingInspection, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inspection id is required")
	}
	if err := validateHandling(input.HandlingMethod); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if input.ClearWeightDifference && input.WeightDifference.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weightDifference and clearWeightDifference are mutually exclusive")
	}

	var updated *models.IncomingInspection
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := s.lock(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if row.Status != enums.InspectionPending {
			return invalidState(row, "update")
		}

		updates := map[string]any{}
		if input.InspectionDate != nil {
			updates["inspection_date"] = *input.InspectionDate
		}
		if input.WrongItem != nil {
			updates["wrong_item"] = *input.WrongItem
		}
		if input.WrongItemDescription != nil {
			updates["wrong_item_description"] = *input.WrongItemDescription
		}
		switch {
		case input.ClearWeightDifference:
			updates["weight_difference"] = nil
		case input.WeightDifference.Valid:
			updates["weight_difference"] = input.WeightDifference
		}
		if input.HandlingMethod != nil {
			updates["handling_method"] = *input.HandlingMethod
		}
		if input.HandlingNotes != nil {
			updates["handling_notes"] = *input.HandlingNotes
		}
		if input.InspectorID != nil {
			updates["inspector_id"] = *input.InspectorID
		}
		if err := repo.Update(ctx, row.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inspection")
		}
		updated, err = repo.FindByID(ctx, row.ID, false)
		if err != nil {
			return notFound(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "inspection_id", updated.ID.String()), "inspection updated")
	return updated, nil
}

// Pass closes a PENDING inspection and mints exactly one raw-material batch whose
// remaining weight starts at the passed weight.
func (s *service) Pass(ctx context.Context, input PassInput) (*PassResult, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inspection id is required")
	}
	if !input.Weight.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be greater than zero")
	}
	unit := input.WeightUnit
	if unit == "" {
		unit = DefaultWeightUnit
	}

	var result *PassResult
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		result = nil
		repo := s.repo.WithTx(tx)
		row, err := s.lock(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if row.Status != enums.InspectionPending {
			return invalidState(row, "pass")
		}
		if input.WarehouseLocationID != nil {
			if _, err := s.masterData.Location(ctx, tx, *input.WarehouseLocationID); err != nil {
				return err
			}
		}

		updates := map[string]any{}
		if input.InspectorID != nil {
			updates["inspector_id"] = *input.InspectorID
		}
		if err := s.close(ctx, repo, row, enums.InspectionPassed, updates); err != nil {
			return err
		}

		code, err := s.codes.Issue(ctx, tx, traceability.PrefixRawMaterial)
		if err != nil {
			return err
		}
		batch := &models.RawMaterialBatch{
			TraceabilityCode:    code,
			ItemID:              row.ItemID,
			PurchaseDocID:       row.PurchaseDocID,
			PurchaseDocItemID:   row.PurchaseDocItemID,
			InspectionID:        row.ID,
			SupplierID:          row.SupplierID,
			Weight:              input.Weight,
			WeightUnit:          unit,
			RemainingWeight:     input.Weight,
			WarehouseLocationID: input.WarehouseLocationID,
			ReceivedDate:        s.now().UTC(),
		}
		if err := repo.CreateBatch(ctx, batch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create raw material batch")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventInspectionPassed,
			AggregateType: enums.AggregateIncomingInspection,
			AggregateID:   row.ID,
			Actor:         outbox.Actor(input.ActorUserID),
			Data: payloads.InspectionPassedEvent{
				InspectionID:     row.ID,
				BatchID:          batch.ID,
				TraceabilityCode: batch.TraceabilityCode,
				ItemID:           batch.ItemID,
				SupplierID:       batch.SupplierID,
				Weight:           batch.Weight,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit inspection event")
		}
		result = &PassResult{Inspection: row, Batch: batch}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CodeIssued(traceability.PrefixRawMaterial)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"inspection_id":     result.Inspection.ID.String(),
		"traceability_code": result.Batch.TraceabilityCode,
		"weight":            result.Batch.Weight.String(),
	})
	s.logg.Info(logCtx, "inspection passed")
	return result, nil
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.IncomingInspection, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inspection id is required")
	}
	if err := validateHandling(input.HandlingMethod); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	var rejected *models.IncomingInspection
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := s.lock(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if row.Status != enums.InspectionPending {
			return invalidState(row, "reject")
		}

		updates := map[string]any{}
		if input.HandlingMethod != nil {
			updates["handling_method"] = *input.HandlingMethod
			row.HandlingMethod = input.HandlingMethod
		}
		if input.HandlingNotes != nil {
			updates["handling_notes"] = *input.HandlingNotes
			row.HandlingNotes = input.HandlingNotes
		}
		if input.InspectorID != nil {
			updates["inspector_id"] = *input.InspectorID
			row.InspectorID = input.InspectorID
		}
		if err := s.close(ctx, repo, row, enums.InspectionRejected, updates); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventInspectionRejected,
			AggregateType: enums.AggregateIncomingInspection,
			AggregateID:   row.ID,
			Actor:         outbox.Actor(input.ActorUserID),
			Data: payloads.InspectionRejectedEvent{
				InspectionID:   row.ID,
				PurchaseDocID:  row.PurchaseDocID,
				SupplierID:     row.SupplierID,
				HandlingMethod: row.HandlingMethod,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit inspection event")
		}
		rejected = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "inspection_id", rejected.ID.String()), "inspection rejected")
	return rejected, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.IncomingInspection, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inspection id is required")
	}
	row, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, notFound(err)
	}
	return row, nil
}

func (s *service) List(ctx context.Context, params ListParams) (pagination.Page[models.IncomingInspection], error) {
	p := params.Params.Normalize()
	if params.Status != nil && !params.Status.IsValid() {
		return pagination.Page[models.IncomingInspection]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid inspection status %q", *params.Status)
	}
	rows, total, err := s.repo.List(ctx, listQuery{
		status:     params.Status,
		supplierID: params.SupplierID,
		limit:      p.PageSize,
		offset:     p.Offset(),
	})
	if err != nil {
		return pagination.Page[models.IncomingInspection]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inspections")
	}
	return pagination.NewPage(rows, total, p), nil
}

func (s *service) lock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.IncomingInspection, error) {
	row, err := s.repo.WithTx(tx).FindByID(ctx, id, true)
	if err != nil {
		return nil, notFound(err)
	}
	return row, nil
}

func (s *service) close(ctx context.Context, repo Repository, row *models.IncomingInspection, to enums.InspectionStatus, updates map[string]any) error {
	affected, err := repo.TransitionStatus(ctx, row.ID, to, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inspection status")
	}
	if affected == 0 {
		return invalidState(row, "close")
	}
	row.Status = to
	return nil
}

func validateHandling(method *enums.HandlingMethod) error {
	if method != nil && !method.IsValid() {
		return fmt.Errorf("invalid handling method %q", *method)
	}
	return nil
}

func invalidState(row *models.IncomingInspection, op string) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s inspection in status %s", op, row.Status).
		WithDetails(map[string]any{"inspection_id": row.ID, "status": row.Status})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inspection not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inspection")
}

