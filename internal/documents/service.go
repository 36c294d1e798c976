package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/internal/masterdata"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox/payloads"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

var maxTaxRate = decimal.NewFromInt(100)

type txRunner interface {
	WithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type docNumberer interface {
	Next(ctx context.Context, tx *gorm.DB, typeCode string) (string, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type masterData interface {
	Counterparty(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID) (*masterdata.Counterparty, error)
	Item(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockItem, error)
}

// Service drives sales and purchase documents through one shared life cycle.
type Service interface {
	Create(ctx context.Context, draft Draft) (*models.CommercialDocument, error)
	Update(ctx context.Context, input UpdateInput) (*models.CommercialDocument, error)
	Approve(ctx context.Context, input TransitionInput) (*models.CommercialDocument, error)
	Cancel(ctx context.Context, input TransitionInput) (*models.CommercialDocument, error)
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
	Get(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID) (*models.CommercialDocument, error)
	List(ctx context.Context, params ListParams) (pagination.Page[models.CommercialDocument], error)
	Remove(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID) error
}

type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Sequence   docNumberer
	Outbox     outboxEmitter
	MasterData masterData
	Effects    *Effects
	Metrics    *metrics.Engine
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	sequence   docNumberer
	outbox     outboxEmitter
	masterData masterData
	effects    *Effects
	metrics    *metrics.Engine
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("documents repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sequence == nil {
		return nil, fmt.Errorf("sequence allocator required")
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
	effects := params.Effects
	if effects == nil {
		effects = NewEffects()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		sequence:   params.Sequence,
		outbox:     params.Outbox,
		masterData: params.MasterData,
		effects:    effects,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func (s *service) Create(ctx context.Context, draft Draft) (*models.CommercialDocument, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	started := time.Now()
	var created *models.CommercialDocument
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		var err error
		created, err = s.createInTx(ctx, tx, draft)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DocumentTransition(string(created.Domain), "create")
	s.metrics.ObserveDuration("document_create", time.Since(started))
	s.logg.Info(s.docContext(ctx, created), "document created")
	return created, nil
}

// createInTx numbers, prices and inserts a validated draft.
func (s *service) createInTx(ctx context.Context, tx *gorm.DB, draft Draft) (*models.CommercialDocument, error) {
	if _, err := s.masterData.Counterparty(ctx, tx, draft.Domain, draft.CounterpartyID); err != nil {
		return nil, err
	}
	lines, err := s.buildLines(ctx, tx, draft.Items)
	if err != nil {
		return nil, err
	}

	docNo, err := s.sequence.Next(ctx, tx, TypeCode(draft.Domain, draft.Type))
	if err != nil {
		return nil, err
	}

	currency := draft.Currency
	if currency == "" {
		currency = enums.DefaultCurrency
	}
	rate := decimal.NewFromInt(1)
	if draft.ExchangeRate != nil {
		rate = *draft.ExchangeRate
	}
	date := draft.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	totals := SumLines(lines)

	doc := &models.CommercialDocument{
		Domain:         draft.Domain,
		Type:           draft.Type,
		DocNo:          docNo,
		CounterpartyID: draft.CounterpartyID,
		Date:           date,
		Currency:       currency,
		ExchangeRate:   rate,
		Status:         enums.DocumentStatusDraft,
		IsTransferable: true,
		RefDocID:       draft.RefDocID,
		BranchID:       draft.BranchID,
		Agent:          draft.Agent,
		Terms:          draft.Terms,
		Description:    draft.Description,
		Project:        draft.Project,
		RefNo:          draft.RefNo,
		ExtNo:          draft.ExtNo,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		Total:          totals.Total,
		Outstanding:    totals.Total,
		CreatedBy:      draft.CreatedBy,
		Items:          lines,
	}
	if err := s.repo.WithTx(tx).Create(ctx, doc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create document")
	}
	return doc, nil
}

// buildLines resolves item references and derives every line's amounts.
func (s *service) buildLines(ctx context.Context, tx *gorm.DB, inputs []LineInput) ([]models.DocumentLineItem, error) {
	var errs error
	lines := make([]models.DocumentLineItem, 0, len(inputs))
	for i, in := range inputs {
		description := in.Description
		if in.ItemID != nil {
			item, err := s.masterData.Item(ctx, tx, *in.ItemID)
			if err != nil {
				if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
					return nil, err
				}
				errs = multierr.Append(errs, fmt.Errorf("items[%d]: %s", i, pkgerrors.MessageOf(err)))
				continue
			}
			if description == nil {
				desc := item.Description
				description = &desc
			}
		}
		amounts := ComputeLine(in.Qty, in.UnitPrice, in.Discount, in.TaxRate)
		lines = append(lines, models.DocumentLineItem{
			LineNo:             i + 1,
			ItemID:             in.ItemID,
			Description:        description,
			Qty:                in.Qty,
			UOM:                in.UOM,
			UnitPrice:          in.UnitPrice,
			Discount:           in.Discount,
			TaxCode:            in.TaxCode,
			TaxRate:            in.TaxRate,
			TaxInclusive:       in.TaxInclusive,
			Subtotal:           amounts.Subtotal,
			TaxAmount:          amounts.TaxAmount,
			Total:              amounts.Total,
			PlannedWeight:      in.PlannedWeight,
			ActualWeight:       in.ActualWeight,
			WeightUnit:         in.WeightUnit,
			PlannedArrivalDate: in.PlannedArrivalDate,
			ActualArrivalDate:  in.ActualArrivalDate,
			PaymentMethod:      in.PaymentMethod,
		})
	}
	if err := pkgerrors.Collect(pkgerrors.CodeValidation, errs, "document references are invalid"); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.CommercialDocument, error) {
	if err := validateRef(input.Domain, input.DocumentID); err != nil {
		return nil, err
	}
	if err := validatePatch(input.Patch); err != nil {
		return nil, err
	}

	var updated *models.CommercialDocument
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		doc, err := s.lockDocument(ctx, tx, input.Domain, input.DocumentID)
		if err != nil {
			return err
		}
		if doc.Status != enums.DocumentStatusDraft {
			return invalidState(doc, "update")
		}

		patch := input.Patch
		updates := map[string]any{}
		if patch.CounterpartyID != nil {
			if _, err := s.masterData.Counterparty(ctx, tx, input.Domain, *patch.CounterpartyID); err != nil {
				return err
			}
			updates["counterparty_id"] = *patch.CounterpartyID
		}
		if patch.Date != nil {
			updates["date"] = *patch.Date
		}
		if patch.Currency != nil {
			updates["currency"] = *patch.Currency
		}
		if patch.ExchangeRate != nil {
			updates["exchange_rate"] = *patch.ExchangeRate
		}
		if patch.BranchID != nil {
			updates["branch_id"] = *patch.BranchID
		}
		setString(updates, "agent", patch.Agent)
		setString(updates, "terms", patch.Terms)
		setString(updates, "description", patch.Description)
		setString(updates, "project", patch.Project)
		setString(updates, "ref_no", patch.RefNo)
		setString(updates, "ext_no", patch.ExtNo)

		if patch.Items != nil {
			lines, err := s.buildLines(ctx, tx, patch.Items)
			if err != nil {
				return err
			}
			if err := repo.ReplaceItems(ctx, doc.ID, lines); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace document items")
			}
			totals := SumLines(lines)
			updates["subtotal"] = totals.Subtotal
			updates["tax_amount"] = totals.TaxAmount
			updates["total"] = totals.Total
			updates["outstanding"] = totals.Total
		}

		if err := repo.UpdateHeader(ctx, doc.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update document")
		}
		updated, err = s.reload(ctx, tx, input.Domain, doc.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DocumentTransition(string(updated.Domain), "update")
	s.logg.Info(s.docContext(ctx, updated), "document updated")
	return updated, nil
}

func (s *service) Approve(ctx context.Context, input TransitionInput) (*models.CommercialDocument, error) {
	return s.transition(ctx, input, "approve", func(doc *models.CommercialDocument) error {
		if doc.Status != enums.DocumentStatusDraft {
			return invalidState(doc, "approve")
		}
		return nil
	}, enums.DocumentStatusApproved, enums.EventDocumentApproved)
}

// Cancel is accepted from every status except CANCELLED and always clears isTransferable.
func (s *service) Cancel(ctx context.Context, input TransitionInput) (*models.CommercialDocument, error) {
	return s.transition(ctx, input, "cancel", func(doc *models.CommercialDocument) error {
		if doc.Status == enums.DocumentStatusCancelled {
			return invalidState(doc, "cancel")
		}
		return nil
	}, enums.DocumentStatusCancelled, enums.EventDocumentCancelled)
}

func (s *service) transition(
	ctx context.Context,
	input TransitionInput,
	name string,
	guard func(doc *models.CommercialDocument) error,
	to enums.DocumentStatus,
	eventType enums.OutboxEventType,
) (*models.CommercialDocument, error) {
	if err := validateRef(input.Domain, input.DocumentID); err != nil {
		return nil, err
	}

	var result *models.CommercialDocument
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		doc, err := s.lockDocument(ctx, tx, input.Domain, input.DocumentID)
		if err != nil {
			return err
		}
		if err := guard(doc); err != nil {
			return err
		}

		transferable := doc.IsTransferable
		if to == enums.DocumentStatusCancelled {
			transferable = false
		}
		if err := s.moveStatus(ctx, tx, doc, to, transferable); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateCommercialDocument,
			AggregateID:   doc.ID,
			Actor:         outbox.Actor(input.ActorUserID),
			Data: payloads.DocumentStatusEvent{
				DocumentID:     doc.ID,
				Domain:         doc.Domain,
				Type:           doc.Type,
				DocNo:          doc.DocNo,
				Status:         doc.Status,
				CounterpartyID: doc.CounterpartyID,
				Total:          doc.Total,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit document event")
		}
		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DocumentTransition(string(result.Domain), name)
	logCtx := s.logg.WithFields(s.docContext(ctx, result), map[string]any{
		"transition": name,
		"status":     result.Status,
	})
	s.logg.Info(logCtx, "document status changed")
	return result, nil
}

// Transfer transforms an APPROVED, transferable document into a new DRAFT of
// TargetType. Numbering, the new document, the source flip, every registered
// effect and the event all commit or roll back together.
func (s *service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := validateRef(input.Domain, input.DocumentID); err != nil {
		return nil, err
	}
	if !input.TargetType.ValidFor(input.Domain) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid %s target type %q", input.Domain, input.TargetType)
	}

	started := time.Now()
	var result *TransferResult
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		result = nil
		source, err := s.lockDocument(ctx, tx, input.Domain, input.DocumentID)
		if err != nil {
			return err
		}
		if source.Status != enums.DocumentStatusApproved || !source.IsTransferable {
			return invalidState(source, "transfer")
		}

		at := s.now().UTC()
		target, err := s.createInTx(ctx, tx, transferDraft(source, input, at))
		if err != nil {
			return err
		}
		if err := s.moveStatus(ctx, tx, source, enums.DocumentStatusTransferred, false); err != nil {
			return err
		}

		unit := &Transfer{
			Tx:      tx,
			Domain:  input.Domain,
			Source:  source,
			Target:  target,
			ActorID: input.ActorUserID,
			At:      at,
		}
		for _, effect := range s.effects.For(input.Domain, input.TargetType) {
			if err := effect.Apply(ctx, unit); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventDocumentTransferred,
			AggregateType: enums.AggregateCommercialDocument,
			AggregateID:   source.ID,
			Actor:         outbox.Actor(input.ActorUserID),
			Data: payloads.DocumentTransferredEvent{
				SourceID:      source.ID,
				SourceDocNo:   source.DocNo,
				TargetID:      target.ID,
				TargetDocNo:   target.DocNo,
				Domain:        input.Domain,
				TargetType:    target.Type,
				InspectionIDs: unit.InspectionIDs,
				Total:         target.Total,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit document event")
		}

		result = &TransferResult{Source: source, Target: target, InspectionIDs: unit.InspectionIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DocumentTransition(string(input.Domain), "transfer")
	s.metrics.ObserveDuration("document_transfer", time.Since(started))
	logCtx := s.logg.WithFields(s.docContext(ctx, result.Source), map[string]any{
		"target_doc_no": result.Target.DocNo,
		"target_type":   result.Target.Type,
		"inspections":   len(result.InspectionIDs),
	})
	s.logg.Info(logCtx, "document transferred")
	return result, nil
}

// transferDraft copies the header and lines of source onto a new draft dated at.
// Weight fields only travel between purchase documents.
func transferDraft(source *models.CommercialDocument, input TransferInput, at time.Time) Draft {
	rate := source.ExchangeRate
	draft := Draft{
		Domain:         source.Domain,
		Type:           input.TargetType,
		CounterpartyID: source.CounterpartyID,
		Date:           at,
		Currency:       source.Currency,
		ExchangeRate:   &rate,
		RefDocID:       &source.ID,
		BranchID:       source.BranchID,
		Agent:          source.Agent,
		Terms:          source.Terms,
		Description:    source.Description,
		CreatedBy:      input.ActorUserID,
		Items:          make([]LineInput, 0, len(source.Items)),
	}
	for _, line := range source.Items {
		in := LineInput{
			ItemID:       line.ItemID,
			Description:  line.Description,
			Qty:          line.Qty,
			UOM:          line.UOM,
			UnitPrice:    line.UnitPrice,
			Discount:     line.Discount,
			TaxCode:      line.TaxCode,
			TaxRate:      line.TaxRate,
			TaxInclusive: line.TaxInclusive,
		}
		if source.Domain == enums.DomainPurchase {
			in.PlannedWeight = line.PlannedWeight
			in.ActualWeight = line.ActualWeight
			in.WeightUnit = line.WeightUnit
		}
		draft.Items = append(draft.Items, in)
	}
	return draft
}

func (s *service) Get(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID) (*models.CommercialDocument, error) {
	if err := validateRef(domain, id); err != nil {
		return nil, err
	}
	doc, err := s.repo.FindByID(ctx, domain, id, false)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

func (s *service) List(ctx context.Context, params ListParams) (pagination.Page[models.CommercialDocument], error) {
	p := params.Params.Normalize()
	if !params.Domain.IsValid() {
		return pagination.Page[models.CommercialDocument]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document domain %q", params.Domain)
	}
	if params.Type != nil && !params.Type.ValidFor(params.Domain) {
		return pagination.Page[models.CommercialDocument]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid %s document type %q", params.Domain, *params.Type)
	}
	if params.Status != nil && !params.Status.IsValid() {
		return pagination.Page[models.CommercialDocument]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document status %q", *params.Status)
	}
	rows, total, err := s.repo.List(ctx, listQuery{
		domain:         params.Domain,
		docType:        params.Type,
		status:         params.Status,
		counterpartyID: params.CounterpartyID,
		limit:          p.PageSize,
		offset:         p.Offset(),
	})
	if err != nil {
		return pagination.Page[models.CommercialDocument]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list documents")
	}
	return pagination.NewPage(rows, total, p), nil
}

// Remove deletes a DRAFT document. Its number is never handed out again.
func (s *service) Remove(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID) error {
	if err := validateRef(domain, id); err != nil {
		return err
	}
	var removed *models.CommercialDocument
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		doc, err := s.lockDocument(ctx, tx, domain, id)
		if err != nil {
			return err
		}
		if doc.Status != enums.DocumentStatusDraft {
			return invalidState(doc, "delete")
		}
		if err := s.repo.WithTx(tx).Delete(ctx, doc.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete document")
		}
		removed = doc
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.DocumentTransition(string(domain), "remove")
	s.logg.Info(s.docContext(ctx, removed), "document removed")
	return nil
}

func (s *service) lockDocument(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID) (*models.CommercialDocument, error) {
	doc, err := s.repo.WithTx(tx).FindByID(ctx, domain, id, true)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

func (s *service) reload(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID) (*models.CommercialDocument, error) {
	doc, err := s.repo.WithTx(tx).FindByID(ctx, domain, id, false)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

// moveStatus applies the conditional status write and mirrors it on doc.
func (s *service) moveStatus(ctx context.Context, tx *gorm.DB, doc *models.CommercialDocument, to enums.DocumentStatus, transferable bool) error {
	affected, err := s.repo.WithTx(tx).TransitionStatus(ctx, doc.ID, []enums.DocumentStatus{doc.Status}, to, transferable)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update document status")
	}
	if affected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "document %s changed status concurrently", doc.DocNo)
	}
	doc.Status = to
	doc.IsTransferable = transferable
	return nil
}

func (s *service) docContext(ctx context.Context, doc *models.CommercialDocument) context.Context {
	return s.logg.WithFields(s.logg.WithDocNo(ctx, doc.DocNo), map[string]any{
		"document_id": doc.ID.String(),
		"domain":      doc.Domain,
		"type":        doc.Type,
	})
}

func validateRef(domain enums.DocumentDomain, id uuid.UUID) error {
	if !domain.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document domain %q", domain)
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "document id is required")
	}
	return nil
}

func validateDraft(draft Draft) error {
	if !draft.Domain.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document domain %q", draft.Domain)
	}
	var errs error
	if !draft.Type.ValidFor(draft.Domain) {
		errs = multierr.Append(errs, fmt.Errorf("type %q is not a %s document type", draft.Type, draft.Domain))
	}
	if draft.CounterpartyID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("counterpartyId is required"))
	}
	if draft.Currency != "" && !draft.Currency.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid currency %q", draft.Currency))
	}
	if draft.ExchangeRate != nil && !draft.ExchangeRate.IsPositive() {
		errs = multierr.Append(errs, errors.New("exchangeRate must be greater than zero"))
	}
	errs = multierr.Append(errs, validateLines(draft.Items))
	return pkgerrors.Collect(pkgerrors.CodeValidation, errs, "invalid document")
}

func validatePatch(patch Patch) error {
	var errs error
	if patch.CounterpartyID != nil && *patch.CounterpartyID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("counterpartyId must not be empty"))
	}
	if patch.Currency != nil && !patch.Currency.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid currency %q", *patch.Currency))
	}
	if patch.ExchangeRate != nil && !patch.ExchangeRate.IsPositive() {
		errs = multierr.Append(errs, errors.New("exchangeRate must be greater than zero"))
	}
	if patch.Items != nil {
		errs = multierr.Append(errs, validateLines(patch.Items))
	}
	return pkgerrors.Collect(pkgerrors.CodeValidation, errs, "invalid document update")
}

func validateLines(items []LineInput) error {
	if len(items) == 0 {
		return errors.New("at least one item is required")
	}
	var errs error
	for i, line := range items {
		if line.ItemID != nil && *line.ItemID == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: itemId must not be empty", i))
		}
		if !line.Qty.IsPositive() {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: qty must be greater than zero", i))
		}
		if line.UnitPrice.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: unitPrice must not be negative", i))
		}
		if line.Discount.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: discount must not be negative", i))
		}
		if line.TaxRate.IsNegative() || line.TaxRate.GreaterThan(maxTaxRate) {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: taxRate must be between 0 and 100", i))
		}
	}
	return errs
}

func invalidState(doc *models.CommercialDocument, op string) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s document %s in status %s", op, doc.DocNo, doc.Status).
		WithDetails(map[string]any{
			"document_id":     doc.ID,
			"status":          doc.Status,
			"is_transferable": doc.IsTransferable,
		})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load document")
}

func setString(updates map[string]any, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}

