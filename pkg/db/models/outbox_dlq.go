package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// OutboxDLQ captures events the publisher gave up on.
type OutboxDLQ struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID                  `gorm:"column:event_id;type:uuid;not null;uniqueIndex:ux_outbox_dlq_event_id" json:"eventId"`
	EventType     enums.OutboxEventType      `gorm:"column:event_type;not null" json:"eventType"`
	AggregateType enums.OutboxAggregateType  `gorm:"column:aggregate_type;not null" json:"aggregateType"`
	AggregateID   uuid.UUID                  `gorm:"column:aggregate_id;type:uuid;not null" json:"aggregateId"`
	Payload       json.RawMessage            `gorm:"column:payload_json;type:jsonb;not null" json:"payloadJson"`
	ErrorReason   enums.OutboxDLQErrorReason `gorm:"column:error_reason;not null" json:"errorReason"`
	ErrorMessage  *string                    `gorm:"column:error_message" json:"errorMessage"`
	AttemptCount  int                        `gorm:"column:attempt_count;not null;default:0" json:"attemptCount"`
	FailedAt      time.Time                  `gorm:"column:failed_at;autoCreateTime" json:"failedAt"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (OutboxDLQ) TableName() string { return "outbox_dlq" }

func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
