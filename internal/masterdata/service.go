package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
)

// Counterparty is the customer or supplier a document or payment is raised against.
type Counterparty struct {
	ID          uuid.UUID
	Code        string
	Name        string
	Outstanding decimal.Decimal
}

// Service is the master-data boundary the engine consumes. Every method accepts
// an optional transaction so lookups see rows written earlier in the same unit.
type Service interface {
	Counterparty(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID) (*Counterparty, error)
	Item(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockItem, error)
	Location(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockLocation, error)
	AdjustOutstanding(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID, delta decimal.Decimal) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("master data repository required")
	}
	return &service{repo: repo}, nil
}

// Counterparty resolves a customer for the sales domain and a supplier for purchase.
func (s *service) Counterparty(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID) (*Counterparty, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counterparty id is required")
	}
	repo := s.repo.WithTx(tx)
	switch domain {
	case enums.DomainSales:
		row, err := repo.FindCustomer(ctx, id)
		if err != nil {
			return nil, lookupError(err, "customer")
		}
		return &Counterparty{ID: row.ID, Code: row.Code, Name: row.Name, Outstanding: row.OutstandingAmount}, nil
	case enums.DomainPurchase:
		row, err := repo.FindSupplier(ctx, id)
		if err != nil {
			return nil, lookupError(err, "supplier")
		}
		return &Counterparty{ID: row.ID, Code: row.Code, Name: row.Name, Outstanding: row.OutstandingAmount}, nil
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document domain %q", domain)
	}
}

func (s *service) Item(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	row, err := s.repo.WithTx(tx).FindItem(ctx, id)
	if err != nil {
		return nil, lookupError(err, "stock item")
	}
	return row, nil
}

func (s *service) Location(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockLocation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	row, err := s.repo.WithTx(tx).FindLocation(ctx, id)
	if err != nil {
		return nil, lookupError(err, "stock location")
	}
	return row, nil
}

// AdjustOutstanding adds delta (negative for payments) to the counterparty's running balance.
func (s *service) AdjustOutstanding(ctx context.Context, tx *gorm.DB, domain enums.DocumentDomain, id uuid.UUID, delta decimal.Decimal) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "outstanding balances must move inside a transaction")
	}
	if delta.IsZero() {
		return nil
	}
	repo := s.repo.WithTx(tx)

	var (
		affected int64
		err      error
		entity   string
	)
	switch domain {
	case enums.DomainSales:
		entity = "customer"
		affected, err = repo.AddCustomerOutstanding(ctx, id, delta)
	case enums.DomainPurchase:
		entity = "supplier"
		affected, err = repo.AddSupplierOutstanding(ctx, id, delta)
	default:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid document domain %q", domain)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update outstanding amount")
	}
	if affected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", entity)
	}
	return nil
}

// Unknown references are input mistakes from the engine's point of view, so a
// missing row surfaces as a validation error naming the entity.
func lookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s not found", entity)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup "+entity)
}
