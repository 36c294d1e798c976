package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is stamped on envelopes when the caller leaves Version at zero.
const EnvelopeVersion = 1

// ActorRef is the operator whose request produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// Actor returns nil for system initiated work with no operator.
func Actor(userID *uuid.UUID) *ActorRef {
	if userID == nil || *userID == uuid.Nil {
		return nil
	}
	return &ActorRef{UserID: *userID}
}

// PayloadEnvelope is what outbox_events.payload holds and what subscribers receive.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func wrap(event DomainEvent, now time.Time) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, err
	}
	env := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = EnvelopeVersion
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = now.UTC()
	}
	return env, nil
}
