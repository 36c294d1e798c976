package trace

import (
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
)

// Kind tells which side of the chain a scanned code belongs to.
type Kind string

const (
	KindRawMaterial     Kind = "RAW_MATERIAL"
	KindFinishedProduct Kind = "FINISHED_PRODUCT"
)

// Result is the reconstructed chain for one scanned code. Exactly one of
// RawMaterial or FinishedProduct is set.
type Result struct {
	Kind            Kind                  `json:"type"`
	RawMaterial     *RawMaterialTrace     `json:"rawMaterial,omitempty"`
	FinishedProduct *FinishedProductTrace `json:"finishedProduct,omitempty"`
}

// RawMaterialTrace walks a batch back to its receipt and forward to every
// finished product that consumed it.
type RawMaterialTrace struct {
	Batch            models.RawMaterialBatch    `json:"batch"`
	Item             *models.StockItem          `json:"item,omitempty"`
	Supplier         *models.Supplier           `json:"supplier,omitempty"`
	PurchaseDocument *models.CommercialDocument `json:"purchaseDocument,omitempty"`
	Inspection       *models.IncomingInspection `json:"inspection,omitempty"`
	UsedIn           []ProductUsage             `json:"usedIn"`
}

type ProductUsage struct {
	FinishedProduct models.FinishedProduct `json:"finishedProduct"`
	JobOrderDocNo   string                 `json:"jobOrderDocNo,omitempty"`
	UsedWeight      decimal.Decimal        `json:"usedWeight"`
}

// FinishedProductTrace walks a product back through its job order to each
// consumed batch and that batch's supplier.
type FinishedProductTrace struct {
	Product   models.FinishedProduct `json:"product"`
	Item      *models.StockItem      `json:"item,omitempty"`
	JobOrder  *models.JobOrder       `json:"jobOrder,omitempty"`
	Materials []ConsumedBatch        `json:"materials"`
}

type ConsumedBatch struct {
	UsedWeight decimal.Decimal          `json:"usedWeight"`
	Batch      *models.RawMaterialBatch `json:"batch,omitempty"`
	Supplier   *models.Supplier         `json:"supplier,omitempty"`
}
