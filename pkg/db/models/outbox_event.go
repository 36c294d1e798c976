package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
)

// OutboxEvent is written in the same transaction as the state change it announces.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null" json:"eventType"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null" json:"aggregateType"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null" json:"aggregateId"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	PublishedAt   *time.Time                `gorm:"column:published_at" json:"publishedAt"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0" json:"attemptCount"`
	LastError     *string                   `gorm:"column:last_error" json:"lastError"`
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}
