package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox/payloads"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

// SequenceTypeCode numbers stock transactions.
const SequenceTypeCode = "ST"

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
	Item(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockItem, error)
	Location(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockLocation, error)
}

// Service is the inventory ledger.
type Service interface {
	ApplyTransaction(ctx context.Context, input ApplyInput) (*models.StockTransaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.StockTransaction, error)
	ListTransactions(ctx context.Context, params ListTransactionsParams) (pagination.Page[models.StockTransaction], error)
	ListBalances(ctx context.Context, params ListBalancesParams) (pagination.Page[models.StockBalance], error)
}

// ApplyInput describes one stock transaction and its lines.
type ApplyInput struct {
	Type            enums.StockTransactionType
	Date            time.Time
	LocationFromID  *uuid.UUID
	LocationToID    *uuid.UUID
	RefDocumentType *string
	RefDocumentID   *uuid.UUID
	Description     *string
	CreatedBy       *uuid.UUID
	Items           []LineInput
}

type LineInput struct {
	ItemID   uuid.UUID
	Qty      decimal.Decimal
	UOM      *string
	UnitCost decimal.Decimal
	Notes    *string
}

type ListTransactionsParams struct {
	Type *enums.StockTransactionType
	pagination.Params
}

type ListBalancesParams struct {
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
	pagination.Params
}

type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Sequence   docNumberer
	Outbox     outboxEmitter
	MasterData masterData
	Policy     config.NegativePolicy
	Metrics    *metrics.Engine
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	tx         txRunner
	sequence   docNumberer
	outbox     outboxEmitter
	masterData masterData
	strict     bool
	metrics    *metrics.Engine
	logg       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
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
	if params.Policy != "" && !params.Policy.IsValid() {
		return nil, fmt.Errorf("invalid negative stock policy %q", params.Policy)
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		sequence:   params.Sequence,
		outbox:     params.Outbox,
		masterData: params.MasterData,
		strict:     params.Policy.Strict(),
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

func (s *service) ApplyTransaction(ctx context.Context, input ApplyInput) (*models.StockTransaction, error) {
	movements, err := planMovements(input)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	var created *models.StockTransaction
	err = s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		created = nil
		if err := s.checkReferences(ctx, tx, input); err != nil {
			return err
		}

		docNo, err := s.sequence.Next(ctx, tx, SequenceTypeCode)
		if err != nil {
			return err
		}

		row := buildTransaction(input, docNo)
		repo := s.repo.WithTx(tx)
		if err := repo.CreateTransaction(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock transaction")
		}

		for _, m := range movements {
			after, err := repo.ApplyDelta(ctx, m.ItemID, m.LocationID, m.Delta)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply stock balance delta")
			}
			if s.strict && after.IsNegative() {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "insufficient stock: item %s at location %s would fall to %s", m.ItemID, m.LocationID, after.String()).
					WithDetails(map[string]any{
						"item_id":     m.ItemID,
						"location_id": m.LocationID,
						"delta":       m.Delta,
						"balance":     after,
					})
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventStockTransactionApplied,
			AggregateType: enums.AggregateStockTransaction,
			AggregateID:   row.ID,
			Actor:         outbox.Actor(input.CreatedBy),
			Data: payloads.StockTransactionAppliedEvent{
				TransactionID: row.ID,
				DocNo:         row.DocNo,
				Type:          row.Type,
				Movements:     movements,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock transaction event")
		}

		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StockTransaction(string(created.Type))
	s.metrics.ObserveDuration("stock_transaction", time.Since(started))
	logCtx := s.logg.WithFields(s.logg.WithDocNo(ctx, created.DocNo), map[string]any{
		"stock_transaction_id": created.ID.String(),
		"type":                 created.Type,
		"movements":            len(movements),
	})
	s.logg.Info(logCtx, "stock transaction applied")
	return created, nil
}

func (s *service) checkReferences(ctx context.Context, tx *gorm.DB, input ApplyInput) error {
	var errs error
	for _, loc := range []*uuid.UUID{input.LocationFromID, input.LocationToID} {
		if loc == nil {
			continue
		}
		if _, err := s.masterData.Location(ctx, tx, *loc); err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				return err
			}
			errs = multierr.Append(errs, fmt.Errorf("location %s: %s", *loc, pkgerrors.MessageOf(err)))
		}
	}
	seen := map[uuid.UUID]struct{}{}
	for _, line := range input.Items {
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}
		if _, err := s.masterData.Item(ctx, tx, line.ItemID); err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				return err
			}
			errs = multierr.Append(errs, fmt.Errorf("item %s: %s", line.ItemID, pkgerrors.MessageOf(err)))
		}
	}
	return pkgerrors.Collect(pkgerrors.CodeValidation, errs, "stock transaction references are invalid")
}

func (s *service) GetTransaction(ctx context.Context, id uuid.UUID) (*models.StockTransaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock transaction id is required")
	}
	row, err := s.repo.FindTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock transaction")
	}
	return row, nil
}

func (s *service) ListTransactions(ctx context.Context, params ListTransactionsParams) (pagination.Page[models.StockTransaction], error) {
	p := params.Params.Normalize()
	if params.Type != nil && !params.Type.IsValid() {
		return pagination.Page[models.StockTransaction]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid stock transaction type %q", *params.Type)
	}
	rows, total, err := s.repo.ListTransactions(ctx, transactionQuery{
		txType: params.Type,
		limit:  p.PageSize,
		offset: p.Offset(),
	})
	if err != nil {
		return pagination.Page[models.StockTransaction]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock transactions")
	}
	return pagination.NewPage(rows, total, p), nil
}

func (s *service) ListBalances(ctx context.Context, params ListBalancesParams) (pagination.Page[models.StockBalance], error) {
	p := params.Params.Normalize()
	rows, total, err := s.repo.ListBalances(ctx, balanceQuery{
		itemID:     params.ItemID,
		locationID: params.LocationID,
		limit:      p.PageSize,
		offset:     p.Offset(),
	})
	if err != nil {
		return pagination.Page[models.StockBalance]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock balances")
	}
	return pagination.NewPage(rows, total, p), nil
}

// planMovements validates the input and expands every line into its signed
// balance deltas. Deltas are sorted by (item, location) so concurrent
// transactions lock balance rows in the same order.
func planMovements(input ApplyInput) ([]payloads.StockMovement, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid stock transaction type %q", input.Type)
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock transaction requires at least one item")
	}

	var errs error
	switch input.Type {
	case enums.StockReceived, enums.StockAdjustment:
		if input.LocationToID == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s requires locationToId", input.Type))
		}
	case enums.StockIssue:
		if input.LocationFromID == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s requires locationFromId", input.Type))
		}
	case enums.StockTransfer:
		if input.LocationFromID == nil || input.LocationToID == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s requires both locationFromId and locationToId", input.Type))
		} else if *input.LocationFromID == *input.LocationToID {
			errs = multierr.Append(errs, fmt.Errorf("%s requires two different locations", input.Type))
		}
	}
	for i, line := range input.Items {
		if line.ItemID == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: itemId is required", i))
		}
		if line.Qty.IsZero() {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: qty must not be zero", i))
		}
		if line.UnitCost.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: unitCost must not be negative", i))
		}
	}
	if err := pkgerrors.Collect(pkgerrors.CodeValidation, errs, "invalid stock transaction"); err != nil {
		return nil, err
	}

	movements := make([]payloads.StockMovement, 0, len(input.Items)*2)
	for _, line := range input.Items {
		switch input.Type {
		case enums.StockReceived, enums.StockAdjustment:
			movements = append(movements, payloads.StockMovement{ItemID: line.ItemID, LocationID: *input.LocationToID, Delta: line.Qty})
		case enums.StockIssue:
			movements = append(movements, payloads.StockMovement{ItemID: line.ItemID, LocationID: *input.LocationFromID, Delta: line.Qty.Neg()})
		case enums.StockTransfer:
			movements = append(movements,
				payloads.StockMovement{ItemID: line.ItemID, LocationID: *input.LocationFromID, Delta: line.Qty.Neg()},
				payloads.StockMovement{ItemID: line.ItemID, LocationID: *input.LocationToID, Delta: line.Qty},
			)
		case enums.StockAssembly, enums.StockDisassembly:
			// Recorded in the ledger only; no balance rule is defined for these types.
		}
	}
	sort.SliceStable(movements, func(i, j int) bool {
		a, b := movements[i], movements[j]
		if a.ItemID != b.ItemID {
			return a.ItemID.String() < b.ItemID.String()
		}
		return a.LocationID.String() < b.LocationID.String()
	})
	return movements, nil
}

func buildTransaction(input ApplyInput, docNo string) *models.StockTransaction {
	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	row := &models.StockTransaction{
		Type:            input.Type,
		DocNo:           docNo,
		Date:            date,
		LocationFromID:  input.LocationFromID,
		LocationToID:    input.LocationToID,
		RefDocumentType: input.RefDocumentType,
		RefDocumentID:   input.RefDocumentID,
		Description:     input.Description,
		CreatedBy:       input.CreatedBy,
		Items:           make([]models.StockTransactionItem, 0, len(input.Items)),
	}
	for _, line := range input.Items {
		row.Items = append(row.Items, models.StockTransactionItem{
			ItemID:   line.ItemID,
			Qty:      line.Qty,
			UOM:      line.UOM,
			UnitCost: line.UnitCost,
			Notes:    line.Notes,
		})
	}
	return row
}

