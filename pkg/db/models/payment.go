package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// Payment settles outstanding balances: sales-domain payments come from customers,
// purchase-domain payments go to suppliers.
type Payment struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Domain         enums.DocumentDomain `gorm:"column:domain;not null;index" json:"domain"`
	DocNo          string               `gorm:"column:doc_no;not null;uniqueIndex:ux_payments_doc_no" json:"docNo"`
	CounterpartyID uuid.UUID            `gorm:"column:counterparty_id;type:uuid;not null;index" json:"counterpartyId"`
	Date           time.Time            `gorm:"column:date;not null" json:"date"`
	Amount         decimal.Decimal      `gorm:"column:amount;type:numeric(20,4);not null" json:"amount"`
	Currency       enums.Currency       `gorm:"column:currency;not null;default:MYR" json:"currency"`
	ExchangeRate   decimal.Decimal      `gorm:"column:exchange_rate;type:numeric(20,6);not null" json:"exchangeRate"`
	PaymentMethod  *string              `gorm:"column:payment_method" json:"paymentMethod"`
	Reference      *string              `gorm:"column:reference" json:"reference"`
	Description    *string              `gorm:"column:description" json:"description"`
	CreatedBy      *uuid.UUID           `gorm:"column:created_by;type:uuid" json:"createdBy"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
