package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/dbtest"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
)

func TestEmitStoresEnvelope(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)

	aggregateID := uuid.New()
	actor := &outbox.ActorRef{UserID: uuid.New(), Role: "ADMIN"}
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventJobOrderCompleted,
			AggregateType: enums.AggregateJobOrder,
			AggregateID:   aggregateID,
			Actor:         actor,
			Data:          map[string]string{"doc_no": "JO-00001"},
		})
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, aggregateID, rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, outbox.EnvelopeVersion, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)
	assert.JSONEq(t, `{"doc_no":"JO-00001"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	svc := outbox.NewService(repo, nil)

	boom := errors.New("state change failed")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitRejectsUnknownTypes(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)

	err := svc.Emit(context.Background(), conn, outbox.DomainEvent{
		EventType:     "order_created",
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
	})
	assert.Error(t, err)
	assert.Error(t, svc.Emit(context.Background(), nil, outbox.DomainEvent{}))
}

func TestEmitRequiresAggregateID(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)

	err := svc.Emit(context.Background(), conn, outbox.DomainEvent{
		EventType:     enums.EventInspectionPassed,
		AggregateType: enums.AggregateIncomingInspection,
		Data:          map[string]string{"code": "RM-20260105-001"},
	})
	assert.Error(t, err)
}

func TestActorSkipsSystemWork(t *testing.T) {
	t.Parallel()
	assert.Nil(t, outbox.Actor(nil))
	assert.Nil(t, outbox.Actor(&uuid.Nil))

	id := uuid.New()
	ref := outbox.Actor(&id)
	require.NotNil(t, ref)
	assert.Equal(t, id, ref.UserID)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)
	dlq := outbox.NewDLQRepository(conn)

	published := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventDocumentApproved, AggregateType: enums.AggregateCommercialDocument, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	failing := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventDocumentCancelled, AggregateType: enums.AggregateCommercialDocument, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Insert(conn, published))
	require.NoError(t, repo.Insert(conn, failing))

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		if err := repo.MarkPublishedTx(tx, published.ID); err != nil {
			return err
		}
		return repo.MarkFailedTx(tx, failing.ID, errors.New("topic unavailable"))
	}))

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, failing.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "topic unavailable", *rows[0].LastError)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkTerminalTx(tx, failing.ID, errors.New("gave up"), 3); err != nil {
			return err
		}
		msg := "gave up"
		entry := models.OutboxDLQ{
			EventID:       failing.ID,
			EventType:     failing.EventType,
			AggregateType: failing.AggregateType,
			AggregateID:   failing.AggregateID,
			Payload:       failing.Payload,
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &msg,
			AttemptCount:  3,
		}
		if err := dlq.InsertTx(tx, entry); err != nil {
			return err
		}
		return dlq.InsertTx(tx, entry)
	}))

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	}))

	var dead []models.OutboxDLQ
	require.NoError(t, conn.Find(&dead).Error)
	require.Len(t, dead, 1)
	assert.Equal(t, failing.ID, dead[0].EventID)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dead[0].ErrorReason)
}

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	t.Parallel()
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.OutboxEvent{
		{ID: uuid.New(), EventType: enums.EventDocumentApproved, AggregateType: enums.AggregateCommercialDocument, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), PublishedAt: &old},
		{ID: uuid.New(), EventType: enums.EventDocumentApproved, AggregateType: enums.AggregateCommercialDocument, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), PublishedAt: &recent},
		{ID: uuid.New(), EventType: enums.EventDocumentApproved, AggregateType: enums.AggregateCommercialDocument, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`)},
	}
	for _, row := range rows {
		require.NoError(t, repo.Insert(conn, row))
	}

	var deleted int64
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		n, err := repo.DeletePublishedBefore(context.Background(), tx, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
		deleted = n
		return err
	}))
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}

func TestNewDLQEntryClipsLongMessages(t *testing.T) {
	t.Parallel()
	event := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventPaymentRecorded, AggregateType: enums.AggregatePayment, AggregateID: uuid.New(), AttemptCount: 4}
	cause := errors.New(strings.Repeat("库", 600))

	entry := outbox.NewDLQEntry(event, enums.OutboxDLQReasonMaxAttempts, cause, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, entry.ErrorMessage)
	assert.LessOrEqual(t, len(*entry.ErrorMessage), 1024)
	assert.True(t, utf8.ValidString(*entry.ErrorMessage))
	assert.Equal(t, 4, entry.AttemptCount)
	assert.Equal(t, event.ID, entry.EventID)
}
