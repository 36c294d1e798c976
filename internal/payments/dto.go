package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

type CreateInput struct {
	Domain         enums.DocumentDomain
	CounterpartyID uuid.UUID
	Date           *time.Time
	Amount         decimal.Decimal
	Currency       enums.Currency
	ExchangeRate   *decimal.Decimal
	PaymentMethod  *string
	Reference      *string
	Description    *string
	CreatedBy      *uuid.UUID
}

// UpdateInput patches a payment; nil fields are kept. A changed Amount moves
// the counterparty's outstanding balance by the difference.
type UpdateInput struct {
	Domain        enums.DocumentDomain
	ID            uuid.UUID
	Date          *time.Time
	Amount        *decimal.Decimal
	PaymentMethod *string
	Reference     *string
	Description   *string
	ActorUserID   *uuid.UUID
}

type ListParams struct {
	Domain         enums.DocumentDomain
	CounterpartyID *uuid.UUID
	pagination.Params
}
