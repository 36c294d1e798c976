package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer and Supplier are owned by master data; the engine only reads them and
// moves OutstandingAmount.
type Customer struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code              string          `gorm:"column:code;not null;uniqueIndex:ux_customers_code" json:"code"`
	Name              string          `gorm:"column:name;not null" json:"name"`
	OutstandingAmount decimal.Decimal `gorm:"column:outstanding_amount;type:numeric(20,4);not null" json:"outstandingAmount"`
	IsActive          bool            `gorm:"column:is_active;not null" json:"isActive"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

type Supplier struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code              string          `gorm:"column:code;not null;uniqueIndex:ux_suppliers_code" json:"code"`
	Name              string          `gorm:"column:name;not null" json:"name"`
	OutstandingAmount decimal.Decimal `gorm:"column:outstanding_amount;type:numeric(20,4);not null" json:"outstandingAmount"`
	IsActive          bool            `gorm:"column:is_active;not null" json:"isActive"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

type StockItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code        string    `gorm:"column:code;not null;uniqueIndex:ux_stock_items_code" json:"code"`
	Description string    `gorm:"column:description;not null" json:"description"`
	UOM         *string   `gorm:"column:uom" json:"uom"`
	IsActive    bool      `gorm:"column:is_active;not null" json:"isActive"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (i *StockItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

type StockLocation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"column:code;not null;uniqueIndex:ux_stock_locations_code" json:"code"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (l *StockLocation) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}
