package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names. Stock
// movements go to the inventory topic, everything else to the domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	inventoryTopic := cfg.InventoryTopic
	if inventoryTopic == "" {
		inventoryTopic = cfg.DomainTopic
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	domainTopic := cfg.DomainTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventDocumentApproved,
			AggregateType:  enums.AggregateCommercialDocument,
			Topic:          domainTopic,
			PayloadFactory: func() interface{} { return &payloads.DocumentStatusEvent{} },
		},
		{
			EventType:      enums.EventDocumentCancelled,
			AggregateType:  enums.AggregateCommercialDocument,
			Topic:          domainTopic,
			PayloadFactory: func() interface{} { return &payloads.DocumentStatusEvent{} },
		},
		{
			EventType:      enums.EventDocumentTransferred,
			AggregateType:  enums.AggregateCommercialDocument,
			Topic:          domainTopic,
			PayloadFactory: func() interface{} { return &payloads.DocumentTransferredEvent{} },
		},
		{
			EventType:      enums.EventInspectionPassed,
			AggregateType:  enums.AggregateIncomingInspection,
			Topic:          domainTopic,
			PayloadFactory: func() interface{} { return &payloads.InspectionPassedEvent{} },
		},
		{
			EventType:      enums.EventInspectionRejected,
			AggregateType:  enums.AggregateIncomingInspection,
			Topic:          domainTopic,
			PayloadFactory: func() interface{} { return &payloads.InspectionRejectedEvent{} },
		},
		{
			EventType:      enums.EventJobOrderCompleted,
			AggregateType:  enums.AggregateJobOrder,
			Topic:          domainTopic,
			PayloadFactory: func() interface{} { return &payloads.JobOrderCompletedEvent{} },
		},
		{
			EventType:      enums.EventPaymentRecorded,
			AggregateType:  enums.AggregatePayment,
			Topic:          domainTopic,
			PayloadFactory: func() interface{} { return &payloads.PaymentRecordedEvent{} },
		},
	} {
		reg.register(desc)
	}
	reg.register(EventDescriptor{
		EventType:      enums.EventStockTransactionApplied,
		AggregateType:  enums.AggregateStockTransaction,
		Topic:          inventoryTopic,
		PayloadFactory: func() interface{} { return &payloads.StockTransactionAppliedEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Topics lists the distinct topics the registry publishes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	var topics []string
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		topics = append(topics, desc.Topic)
	}
	return topics
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
