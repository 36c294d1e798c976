package payments

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

// Customer receipts and supplier payments number independently of documents.
var typeCodes = map[enums.DocumentDomain]string{
	enums.DomainSales:    "OR",
	enums.DomainPurchase: "SP",
}

// TypeCode is the sequence key payments of the domain draw from.
func TypeCode(domain enums.DocumentDomain) string {
	return typeCodes[domain]
}

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
	AdjustOutstanding(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID, delta decimal.Decimal) error
}

// Service records payments and keeps the counterparty's outstanding balance in step.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Payment, error)
	Update(ctx context.Context, input UpdateInput) (*models.Payment, error)
	Remove(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID) error
	Get(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, params ListParams) (pagination.Page[models.Payment], error)
}

type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Sequence   docNumberer
	Outbox     outboxEmitter
	MasterData masterData
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
	metrics    *metrics.Engine
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
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
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Payment, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.DefaultCurrency
	}
	rate := decimal.NewFromInt(1)
	if input.ExchangeRate != nil {
		rate = *input.ExchangeRate
	}
	date := s.now().UTC()
	if input.Date != nil {
		date = input.Date.UTC()
	}

	started := time.Now()
	var created *models.Payment
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		if _, err := s.masterData.Counterparty(ctx, tx, input.Domain, input.CounterpartyID); err != nil {
			return err
		}
		docNo, err := s.sequence.Next(ctx, tx, TypeCode(input.Domain))
		if err != nil {
			return err
		}
		payment := &models.Payment{
			Domain:         input.Domain,
			DocNo:          docNo,
			CounterpartyID: input.CounterpartyID,
			Date:           date,
			Amount:         input.Amount,
			Currency:       currency,
			ExchangeRate:   rate,
			PaymentMethod:  input.PaymentMethod,
			Reference:      input.Reference,
			Description:    input.Description,
			CreatedBy:      input.CreatedBy,
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := s.masterData.AdjustOutstanding(ctx, tx, input.Domain, input.CounterpartyID, input.Amount.Neg()); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         outbox.Actor(input.CreatedBy),
			Data: payloads.PaymentRecordedEvent{
				PaymentID:      payment.ID,
				DocNo:          payment.DocNo,
				Domain:         payment.Domain,
				CounterpartyID: payment.CounterpartyID,
				Amount:         payment.Amount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment event")
		}
		created = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveDuration("payment_create", time.Since(started))
	s.logg.Info(s.paymentContext(ctx, created), "payment recorded")
	return created, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Payment, error) {
	if !input.Domain.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document domain %q", input.Domain)
	}
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if input.Amount != nil && !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}

	var updated *models.Payment
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, input.Domain, input.ID, true)
		if err != nil {
			return notFound(err)
		}

		updates := map[string]any{}
		if input.Date != nil {
			updates["date"] = input.Date.UTC()
		}
		if input.PaymentMethod != nil {
			updates["payment_method"] = *input.PaymentMethod
		}
		if input.Reference != nil {
			updates["reference"] = *input.Reference
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		if input.Amount != nil && !input.Amount.Equal(payment.Amount) {
			updates["amount"] = *input.Amount
			// A larger payment lowers the outstanding balance further.
			delta := payment.Amount.Sub(*input.Amount)
			if err := s.masterData.AdjustOutstanding(ctx, tx, payment.Domain, payment.CounterpartyID, delta); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		updated, err = repo.FindByID(ctx, input.Domain, payment.ID, false)
		if err != nil {
			return notFound(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.paymentContext(ctx, updated), "payment updated")
	return updated, nil
}

// Remove deletes the payment and gives its amount back to the outstanding balance.
func (s *service) Remove(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID) error {
	if !domain.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document domain %q", domain)
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	var removed *models.Payment
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, domain, id, true)
		if err != nil {
			return notFound(err)
		}
		if err := repo.Delete(ctx, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment")
		}
		if err := s.masterData.AdjustOutstanding(ctx, tx, payment.Domain, payment.CounterpartyID, payment.Amount); err != nil {
			return err
		}
		removed = payment
		return nil
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.paymentContext(ctx, removed), "payment removed")
	return nil
}

func (s *service) Get(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID) (*models.Payment, error) {
	if !domain.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document domain %q", domain)
	}
	payment, err := s.repo.FindByID(ctx, domain, id, false)
	if err != nil {
		return nil, notFound(err)
	}
	return payment, nil
}

func (s *service) List(ctx context.Context, params ListParams) (pagination.Page[models.Payment], error) {
	if !params.Domain.IsValid() {
		return pagination.Page[models.Payment]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document domain %q", params.Domain)
	}
	p := params.Params.Normalize()
	rows, total, err := s.repo.List(ctx, listQuery{
		domain:         params.Domain,
		counterpartyID: params.CounterpartyID,
		limit:          p.PageSize,
		offset:         p.Offset(),
	})
	if err != nil {
		return pagination.Page[models.Payment]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return pagination.NewPage(rows, total, p), nil
}

func (s *service) paymentContext(ctx context.Context, payment *models.Payment) context.Context {
	return s.logg.WithFields(s.logg.WithDocNo(ctx, payment.DocNo), map[string]any{
		"payment_id":      payment.ID.String(),
		"domain":          payment.Domain,
		"counterparty_id": payment.CounterpartyID.String(),
		"amount":          payment.Amount.String(),
	})
}

func validateCreate(input CreateInput) error {
	var errs error
	if !input.Domain.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid document domain %q", input.Domain))
	}
	if input.CounterpartyID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("counterpartyId is required"))
	}
	if !input.Amount.IsPositive() {
		errs = multierr.Append(errs, errors.New("amount must be greater than zero"))
	}
	if input.Currency != "" && !input.Currency.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid currency %q", input.Currency))
	}
	if input.ExchangeRate != nil && !input.ExchangeRate.IsPositive() {
		errs = multierr.Append(errs, errors.New("exchangeRate must be greater than zero"))
	}
	return pkgerrors.Collect(pkgerrors.CodeValidation, errs, "invalid payment")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
}

