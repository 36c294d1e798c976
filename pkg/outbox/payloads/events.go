package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// DocumentStatusEvent covers approve and cancel on a commercial document.
type DocumentStatusEvent struct {
	DocumentID     uuid.UUID            `json:"document_id"`
	Domain         enums.DocumentDomain `json:"domain"`
	Type           enums.DocumentType   `json:"type"`
	DocNo          string               `json:"doc_no"`
	Status         enums.DocumentStatus `json:"status"`
	CounterpartyID uuid.UUID            `json:"counterparty_id"`
	Total          decimal.Decimal      `json:"total"`
}

// DocumentTransferredEvent links a source document to the one created from it.
type DocumentTransferredEvent struct {
	SourceID      uuid.UUID            `json:"source_id"`
	SourceDocNo   string               `json:"source_doc_no"`
	TargetID      uuid.UUID            `json:"target_id"`
	TargetDocNo   string               `json:"target_doc_no"`
	Domain        enums.DocumentDomain `json:"domain"`
	TargetType    enums.DocumentType   `json:"target_type"`
	InspectionIDs []uuid.UUID          `json:"inspection_ids,omitempty"`
	Total         decimal.Decimal      `json:"total"`
}

// StockMovement is one signed balance delta applied by a stock transaction.
type StockMovement struct {
	ItemID     uuid.UUID       `json:"item_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Delta      decimal.Decimal `json:"delta"`
}

type StockTransactionAppliedEvent struct {
	TransactionID uuid.UUID                  `json:"transaction_id"`
	DocNo         string                     `json:"doc_no"`
	Type          enums.StockTransactionType `json:"type"`
	Movements     []StockMovement            `json:"movements"`
}

type InspectionPassedEvent struct {
	InspectionID     uuid.UUID       `json:"inspection_id"`
	BatchID          uuid.UUID       `json:"batch_id"`
	TraceabilityCode string          `json:"traceability_code"`
	ItemID           uuid.UUID       `json:"item_id"`
	SupplierID       uuid.UUID       `json:"supplier_id"`
	Weight           decimal.Decimal `json:"weight"`
}

type InspectionRejectedEvent struct {
	InspectionID   uuid.UUID             `json:"inspection_id"`
	PurchaseDocID  uuid.UUID             `json:"purchase_doc_id"`
	SupplierID     uuid.UUID             `json:"supplier_id"`
	HandlingMethod *enums.HandlingMethod `json:"handling_method,omitempty"`
}

type ConsumedBatch struct {
	BatchID    uuid.UUID       `json:"batch_id"`
	UsedWeight decimal.Decimal `json:"used_weight"`
}

type JobOrderCompletedEvent struct {
	JobOrderID        uuid.UUID       `json:"job_order_id"`
	DocNo             string          `json:"doc_no"`
	FinishedProductID uuid.UUID       `json:"finished_product_id"`
	TraceabilityCode  string          `json:"traceability_code"`
	Weight            decimal.Decimal `json:"weight"`
	Materials         []ConsumedBatch `json:"materials"`
	CompletedAt       time.Time       `json:"completed_at"`
}

type PaymentRecordedEvent struct {
	PaymentID      uuid.UUID            `json:"payment_id"`
	DocNo          string               `json:"doc_no"`
	Domain         enums.DocumentDomain `json:"domain"`
	CounterpartyID uuid.UUID            `json:"counterparty_id"`
	Amount         decimal.Decimal      `json:"amount"`
}
