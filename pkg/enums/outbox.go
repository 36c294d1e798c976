package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateCommercialDocument OutboxAggregateType = "commercial_document"
	AggregateStockTransaction   OutboxAggregateType = "stock_transaction"
	AggregateIncomingInspection OutboxAggregateType = "incoming_inspection"
	AggregateJobOrder           OutboxAggregateType = "job_order"
	AggregatePayment            OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCommercialDocument,
	AggregateStockTransaction,
	AggregateIncomingInspection,
	AggregateJobOrder,
	AggregatePayment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventDocumentApproved        OutboxEventType = "document_approved"
	EventDocumentCancelled       OutboxEventType = "document_cancelled"
	EventDocumentTransferred     OutboxEventType = "document_transferred"
	EventStockTransactionApplied OutboxEventType = "stock_transaction_applied"
	EventInspectionPassed        OutboxEventType = "inspection_passed"
	EventInspectionRejected      OutboxEventType = "inspection_rejected"
	EventJobOrderCompleted       OutboxEventType = "job_order_completed"
	EventPaymentRecorded         OutboxEventType = "payment_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventDocumentApproved,
	EventDocumentCancelled,
	EventDocumentTransferred,
	EventStockTransactionApplied,
	EventInspectionPassed,
	EventInspectionRejected,
	EventJobOrderCompleted,
	EventPaymentRecorded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why the relay gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
